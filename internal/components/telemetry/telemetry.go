// Package telemetry is the single reporting surface of hotelcheck. Components
// receive an API and never log directly, which lets tests assert on what was
// reported.
package telemetry

// API reports the health and progress of a component.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a failure an operator should look at.
	//
	// `id` names the component that failed, not the step inside it: a failed
	// hotel list fetch is `session.query` whether HTTP or parsing went wrong.
	// Put the detail in the params, usually as a wrapped error. Ids are
	// lowercase, dot separated, and declared as `report_...` constants next to
	// the code that reports them.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something unusual that the component recovered from.
	// `id` follows the rules of ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportInfo reports operator facing progress, `args` are slog key/value pairs.
	ReportInfo(msg string, args ...any)

	// ReportDebug is only visible with verbose output.
	ReportDebug(msg string, params ...any)

	// ReportCount records a gauge sample, such as the number of hotels on the
	// last results page. Samples are points over time and must not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, so that `query` reported by
// the passkey session reads as `session.query`.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scope(id string) string {
	return s.namespace + "." + id
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scope(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scope(id), params...)
}

func (s ScopedAPI) ReportInfo(msg string, args ...any) {
	s.inner.ReportInfo(msg, append([]any{"component", s.namespace}, args...)...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scope(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scope(id), count)
}
