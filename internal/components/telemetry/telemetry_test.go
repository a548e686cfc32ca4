package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("inner", NewScopedAPI("outer", rec))

	scoped.ReportBroken("query", "boom")
	scoped.ReportWarning("sort")
	scoped.ReportCount("listings", 3)
	scoped.ReportInfo("hello", "k", "v")

	broken := rec.Reports("broken", "")
	require.Len(t, broken, 1)
	require.Equal(t, "outer.inner.query", broken[0].ID)
	require.Equal(t, []any{"boom"}, broken[0].Params)

	require.Len(t, rec.Reports("warning", "outer.inner.sort"), 1)
	require.Equal(t, []any{int64(3)}, rec.Reports("count", "outer.inner.listings")[0].Params)

	info := rec.Reports("info", "hello")
	require.Len(t, info, 1)
	require.Equal(t, []any{"component", "outer", "component", "inner", "k", "v"}, info[0].Params)
}

func TestConfigEnabled(t *testing.T) {
	require.False(t, Config{}.Enabled())
	require.True(t, Config{Metrics: Exporter{Endpoint: "http://localhost:4318"}}.Enabled())
	require.True(t, Config{Traces: Exporter{Protocol: ProtocolGrpc, Endpoint: "http://localhost:4317"}}.Enabled())
}

func TestSetupWithoutExporters(t *testing.T) {
	providers, err := Setup(context.Background(), "test", Config{})
	require.NoError(t, err)
	require.Nil(t, providers.Tracer)
	require.Nil(t, providers.Meter)
	require.NoError(t, providers.Shutdown(context.Background()))
}

type memorySink struct {
	mu    sync.Mutex
	dumps map[string]string
}

func (m *memorySink) Dump(name string, contents string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dumps == nil {
		m.dumps = map[string]string{}
	}
	m.dumps[name] = contents
	return nil
}

func TestExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))
	defer server.Close()

	rec := &Recorder{}
	sink := &memorySink{}
	exchanges := NewExchanges(rec, sink)

	first := resty.New().SetBaseURL(server.URL)
	exchanges.Instrument(first)
	_, err := first.R().
		SetFormData(map[string]string{"sortOption": "ascDistance"}).
		Post("/sort")
	require.NoError(t, err)

	// a second client continues the numbering of the first
	second := resty.New().SetBaseURL(server.URL)
	exchanges.Instrument(second)
	_, err = second.R().Get("/list")
	require.NoError(t, err)

	require.Len(t, rec.Reports("debug", report_http_request), 2)
	require.Len(t, rec.Reports("debug", report_http_response), 2)

	require.Len(t, sink.dumps, 2)
	post := sink.dumps["1"]
	require.Contains(t, post, "---- REQUEST ----")
	require.Contains(t, post, "/sort")
	require.Contains(t, post, "sortOption=ascDistance")
	require.Contains(t, post, "---- RESPONSE ----")
	require.Contains(t, post, "418 ")
	require.Contains(t, post, "X-Test: yes")
	require.True(t, strings.HasSuffix(post, "short and stout"))

	get := sink.dumps["2"]
	require.Contains(t, get, "/list")
	require.Contains(t, get, noBody)
}

func TestExchangesTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseUrl := server.URL
	server.Close()

	rec := &Recorder{}
	client := resty.New().SetBaseURL(baseUrl)
	NewExchanges(rec, nil).Instrument(client)

	_, err := client.R().Get("/")
	require.Error(t, err)
	require.Len(t, rec.Reports("warning", report_http_response), 1)
}

func TestRequestBodyWithoutBody(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://localhost/", nil)
	require.NoError(t, err)
	require.Equal(t, noBody, requestBody(req))

	req.GetBody = func() (io.ReadCloser, error) { return nil, nil }
	require.Equal(t, noBody, requestBody(req))
}

func TestDumpDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("old"), 0o600))

	sink, err := NewDumpDir(dir)
	require.NoError(t, err)
	require.NoError(t, sink.Dump("7", "contents"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "7.txt", entries[0].Name())

	contents, err := os.ReadFile(filepath.Join(dir, "7.txt"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(contents))
}
