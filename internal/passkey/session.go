package passkey

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"hotelcheck/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_portal_establish = "portal.establish"
	report_portal_sort      = "portal.sort"
)

// Session is an authenticated search context. It stays usable until a Query
// fails, after which a new one must be established.
type Session struct {
	http     *resty.Client
	listPath string
	tel      telemetry.API
}

// Establish performs the handshake, submits the search filter and asks for the
// results to be sorted by distance. It never retries.
func (p *Portal) Establish(ctx context.Context) (*Session, error) {
	ctx, span := tracer.Start(ctx, "portal:Establish")
	defer span.End()

	fail := func(err *SessionError) (*Session, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Kind.String())
		p.tel.ReportBroken(report_portal_establish, err)
		return nil, err
	}

	httpClient, jar, err := p.newHttpClient()
	if err != nil {
		return fail(&SessionError{Kind: SessionTransport, Err: fmt.Errorf("create http client: %w", err)})
	}

	p.tel.ReportInfo("getting session...")
	res, err := httpClient.R().
		SetContext(ctx).
		Get(p.startPath())
	if err != nil {
		return fail(&SessionError{Kind: SessionTransport, Err: fmt.Errorf("handshake: %w", err)})
	}
	if res.StatusCode() != http.StatusOK {
		return fail(&SessionError{
			Kind:   SessionRejected,
			Status: res.StatusCode(),
			Err:    fmt.Errorf("handshake: request failed"),
		})
	}
	if len(res.Cookies()) == 0 && len(jar.Cookies(p.baseUrl)) == 0 {
		return fail(&SessionError{
			Kind: SessionUnauthorized,
			Err:  fmt.Errorf("no session cookie received, is your key correct?"),
		})
	}

	criteria := p.opts.Criteria
	p.tel.ReportInfo("setting search filter...", "filter", criteria.String())
	res, err = httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"hotelId":                             "0",
			"blockMap.blocks[0].blockId":          "0",
			"blockMap.blocks[0].checkIn":          criteria.CheckIn.Format(dateLayout),
			"blockMap.blocks[0].checkOut":         criteria.CheckOut.Format(dateLayout),
			"blockMap.blocks[0].numberOfGuests":   strconv.Itoa(criteria.Guests),
			"blockMap.blocks[0].numberOfRooms":    strconv.Itoa(criteria.Rooms),
			"blockMap.blocks[0].numberOfChildren": strconv.Itoa(criteria.Children),
		}).
		Post(p.eventPath("rooms/select"))
	if err != nil {
		return fail(&SessionError{Kind: SessionTransport, Err: fmt.Errorf("set search filter: %w", err)})
	}
	if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusFound {
		return fail(&SessionError{
			Kind:   SessionRejected,
			Status: res.StatusCode(),
			Err:    fmt.Errorf("set search filter: search failed"),
		})
	}

	// sort order is cosmetic, the session is usable either way
	res, err = httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"eventInventory": "false",
			"sortOption":     "ascDistance",
		}).
		Post(p.eventPath("sort/hotel-list"))
	if err != nil {
		p.tel.ReportWarning(report_portal_sort, fmt.Errorf("fetch: %w", err))
	} else if res.IsError() {
		p.tel.ReportWarning(report_portal_sort, fmt.Errorf("unexpected status"), res.StatusCode())
	}

	return &Session{
		http:     httpClient,
		listPath: p.eventPath("list/hotels"),
		tel:      telemetry.NewScopedAPI("session", p.tel),
	}, nil
}
