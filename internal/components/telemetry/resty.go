package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_http_request  = "http.request"
	report_http_response = "http.response"
	report_http_dump     = "http.dump"

	noBody = "<NO BODY AVAILABLE>"
)

// DumpSink receives the full text of every HTTP exchange. Dumps are how a
// change in the portal's markup gets diagnosed after the fact.
type DumpSink interface {
	Dump(name string, contents string) error
}

type exchangeKeyType struct{}

var exchangeKey exchangeKeyType

type exchange struct {
	seq   uint64
	start time.Time
}

// Exchanges reports every request made by the clients it instruments and,
// when sink is not nil, dumps each completed exchange to it. Exchanges are
// numbered across all of those clients, so dumps of later sessions never
// replace earlier ones.
type Exchanges struct {
	tel  API
	sink DumpSink
	seq  atomic.Uint64
}

func NewExchanges(tel API, sink DumpSink) *Exchanges {
	return &Exchanges{tel: tel, sink: sink}
}

// Instrument attaches the request hooks to client.
func (x *Exchanges) Instrument(client *resty.Client) {
	client.OnBeforeRequest(x.before)
	client.OnAfterResponse(x.after)
	client.OnError(x.failed)
}

func (x *Exchanges) before(_ *resty.Client, req *resty.Request) error {
	ex := exchange{seq: x.seq.Add(1), start: time.Now()}
	x.tel.ReportDebug(report_http_request, ex.seq, req.Method, req.URL)
	req.SetContext(context.WithValue(req.Context(), exchangeKey, ex))
	return nil
}

func (x *Exchanges) after(_ *resty.Client, res *resty.Response) error {
	ex, ok := res.Request.Context().Value(exchangeKey).(exchange)
	if !ok {
		return nil
	}
	x.tel.ReportDebug(report_http_response, ex.seq, time.Since(ex.start).String(), res.Status())

	if x.sink == nil {
		return nil
	}
	err := x.sink.Dump(strconv.FormatUint(ex.seq, 10), renderExchange(res))
	if err != nil {
		x.tel.ReportWarning(report_http_dump, err, ex.seq)
	}
	return nil
}

func (x *Exchanges) failed(req *resty.Request, err error) {
	params := []any{err, req.Method, req.URL}
	if ex, ok := req.Context().Value(exchangeKey).(exchange); ok {
		params = append(params, time.Since(ex.start))
	}
	x.tel.ReportWarning(report_http_response, params...)
}

// DumpDir writes each exchange to <dir>/<name>.txt.
type DumpDir struct {
	dir string
}

// NewDumpDir empties dir so a run only ever contains its own exchanges.
func NewDumpDir(dir string) (DumpDir, error) {
	err := os.RemoveAll(dir)
	if err != nil {
		return DumpDir{}, fmt.Errorf("clear dump dir: %w", err)
	}
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return DumpDir{}, fmt.Errorf("create dump dir: %w", err)
	}
	return DumpDir{dir: dir}, nil
}

func (d DumpDir) Dump(name string, contents string) error {
	return os.WriteFile(filepath.Join(d.dir, name+".txt"), []byte(contents), 0o600)
}

// writeHeaders writes headers sorted by key so that dumps diff cleanly.
func writeHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
}

func requestBody(req *http.Request) string {
	if req.GetBody == nil {
		return noBody
	}
	body, err := req.GetBody()
	if err != nil {
		return "request body unavailable: " + err.Error()
	}
	// set even for requests without a body
	if body == nil {
		return noBody
	}
	defer body.Close()
	contents, err := io.ReadAll(body)
	if err != nil {
		return "request body unreadable: " + err.Error()
	}
	return string(contents)
}

func renderExchange(res *resty.Response) string {
	var out strings.Builder

	out.WriteString("---- REQUEST ----\n\n")
	fmt.Fprintf(&out, "%s %s\n\n", res.Request.Method, res.Request.URL)
	body := noBody
	if raw := res.Request.RawRequest; raw != nil {
		writeHeaders(&out, raw.Header)
		body = requestBody(raw)
	}
	fmt.Fprintf(&out, "\n%s\n\n", body)

	location := res.Request.URL
	if res.RawResponse != nil {
		if redirected, err := res.RawResponse.Location(); err == nil {
			location = redirected.String()
		}
	}
	out.WriteString("---- RESPONSE ----\n\n")
	fmt.Fprintf(&out, "%d %s\n\n", res.StatusCode(), location)
	writeHeaders(&out, res.Header())
	fmt.Fprintf(&out, "\n%s", res.String())

	return out.String()
}
