// Package passkey talks to the Passkey housing portal: it establishes a search
// session and reads back the hotel list embedded in the results page.
package passkey

import (
	"crypto/tls"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"hotelcheck/internal/components/assert"
	"hotelcheck/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("hotelcheck/passkey")

const (
	DefaultBaseUrl = "https://aws.passkey.com"
	DefaultEventId = "14276138"
	DefaultOwnerId = "10909638"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

type Options struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// EventId and OwnerId identify the housing block, they default to the Gen Con block.
	EventId string
	OwnerId string
	// Key is the attendee's personal access key from the registration email.
	Key      string
	Criteria Criteria

	// InsecureSkipVerify disables certificate verification of the portal.
	InsecureSkipVerify bool
	// Timeout defaults to 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond defaults to 2.
	RequestsPerSecond float64
	// Output optionally receives a dump of every HTTP exchange.
	Output telemetry.DumpSink
}

// Portal creates sessions against one housing block. It holds no session state itself.
type Portal struct {
	baseUrl   *url.URL
	opts      Options
	limiter   *rate.Limiter
	// shared by the clients of every session
	exchanges *telemetry.Exchanges
	tel       telemetry.API
}

func NewPortal(opts Options, tel telemetry.API) (*Portal, error) {
	assert.NotNil(tel, "tel")
	assert.NotEmptyStr(opts.Key, "key")

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.EventId == "" {
		opts.EventId = DefaultEventId
	}
	if opts.OwnerId == "" {
		opts.OwnerId = DefaultOwnerId
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 2
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	tel = telemetry.NewScopedAPI("passkey", tel)
	return &Portal{
		baseUrl: baseUrl,
		opts:    opts,

		// max burst >= 2 just means that no requests will be dropped
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 2),
		exchanges: telemetry.NewExchanges(tel, opts.Output),
		tel:       tel,
	}, nil
}

// StartUrl is the personal landing page of the attendee, it is also what a
// browser should open to book a room.
func (p *Portal) StartUrl() string {
	return p.baseUrl.JoinPath(p.startPath()).String()
}

func (p *Portal) startPath() string {
	return fmt.Sprintf("/reg/%s/null/null/1/0/null", url.PathEscape(p.opts.Key))
}

func (p *Portal) eventPath(suffix string) string {
	return fmt.Sprintf("/event/%s/owner/%s/%s", p.opts.EventId, p.opts.OwnerId, suffix)
}

// newHttpClient returns a client with an empty cookie jar, every session gets its own.
func (p *Portal) newHttpClient() (*resty.Client, *cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(p.baseUrl.String())
	httpClient.SetCookieJar(jar)
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(p.baseUrl.Hostname()))
	httpClient.SetTimeout(p.opts.Timeout)
	if p.opts.InsecureSkipVerify {
		httpClient.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return p.limiter.Wait(req.Context())
	})

	p.exchanges.Instrument(httpClient)

	return httpClient, jar, nil
}
