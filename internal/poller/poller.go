// Package poller drives the search cycle: establish a session, query it on an
// interval, and dispatch alerts when the list of nearby hotels changes.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotelcheck/internal/alerting"
	"hotelcheck/internal/components/assert"
	"hotelcheck/internal/components/chrono"
	"hotelcheck/internal/components/telemetry"
	"hotelcheck/internal/notify"
	"hotelcheck/internal/passkey"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("hotelcheck/poller")

const (
	report_poller_establish = "poller.establish"
	report_poller_query     = "poller.query"
	report_poller_alerts    = "poller.alerts"

	defaultRetryInterval = time.Second * 5
)

// ErrCertificate is returned by Run when the very first session cannot be
// established because the portal's certificate did not verify.
var ErrCertificate = errors.New("the portal's certificate could not be verified, you can bypass this check with --ssl-insecure")

type Session interface {
	Query(ctx context.Context) ([]passkey.Listing, error)
}

type Portal interface {
	Establish(ctx context.Context) (Session, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, preamble string, records alerting.Set, channels []notify.Channel)
}

// Observer is shown the outcome of every successful cycle.
type Observer interface {
	Observe(listings []passkey.Listing, alerts alerting.Set)
}

type passkeyPortal struct {
	portal *passkey.Portal
}

func (p passkeyPortal) Establish(ctx context.Context) (Session, error) {
	session, err := p.portal.Establish(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// FromPasskey adapts a passkey portal to Portal.
func FromPasskey(portal *passkey.Portal) Portal {
	assert.NotNil(portal, "portal")
	return passkeyPortal{portal: portal}
}

type Options struct {
	// MaxDistance is in blocks, nil alerts on every hotel with availability.
	MaxDistance *float64
	Interval    time.Duration
	// Once stops after the first successful query.
	Once     bool
	Channels []notify.Channel
	// Observer is optional.
	Observer Observer
	// RetryInterval is the first delay between consecutive failed queries, it
	// doubles up to Interval. Defaults to 5 seconds.
	RetryInterval time.Duration
}

type Loop struct {
	portal     Portal
	dispatcher Dispatcher
	clock      chrono.API
	opts       Options
	tel        telemetry.API
}

func NewLoop(portal Portal, dispatcher Dispatcher, clock chrono.API, opts Options, tel telemetry.API) *Loop {
	assert.NotNil(portal, "portal")
	assert.NotNil(dispatcher, "dispatcher")
	assert.NotNil(clock, "clock")
	assert.NotNil(tel, "tel")
	assert.Positive(int64(opts.Interval), "interval")

	if opts.RetryInterval == 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	if opts.RetryInterval > opts.Interval {
		opts.RetryInterval = opts.Interval
	}

	return &Loop{
		portal:     portal,
		dispatcher: dispatcher,
		clock:      clock,
		opts:       opts,
		tel:        telemetry.NewScopedAPI("poller", tel),
	}
}

func (l *Loop) newRetryBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.opts.RetryInterval
	b.MaxInterval = l.opts.Interval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run polls until ctx is done, or in Once mode until the first successful
// query. Transient failures are retried forever, the only error returned is
// ErrCertificate.
func (l *Loop) Run(ctx context.Context) error {
	// nil until the first successful query
	var previous *alerting.Set

	retry := l.newRetryBackoff()
	failedQueries := 0
	firstAttempt := true

	for {
		if ctx.Err() != nil {
			return nil
		}

		session, err := l.portal.Establish(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var sessionErr *passkey.SessionError
			if firstAttempt && errors.As(err, &sessionErr) && sessionErr.CertificateInvalid() {
				return fmt.Errorf("%w: %w", ErrCertificate, err)
			}
			firstAttempt = false

			l.tel.ReportWarning(report_poller_establish, err)
			if l.clock.Sleep(ctx, l.opts.Interval) != nil {
				return nil
			}
			continue
		}
		firstAttempt = false

		for {
			current, err := l.cycle(ctx, session, previous)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				l.tel.ReportWarning(report_poller_query, err)

				// the session is presumed expired, a fresh one is requested right
				// away unless the previous one failed the same way
				failedQueries++
				if failedQueries > 1 {
					delay := retry.NextBackOff()
					l.tel.ReportInfo("query failed again, waiting before getting a new session", "delay", delay)
					if l.clock.Sleep(ctx, delay) != nil {
						return nil
					}
				}
				break
			}

			failedQueries = 0
			retry.Reset()
			previous = &current

			if l.opts.Once {
				return nil
			}
			if l.clock.Sleep(ctx, l.opts.Interval) != nil {
				return nil
			}
		}
	}
}

// cycle runs one query and dispatches alerts if they changed, it returns the
// set that becomes the baseline for the next cycle.
func (l *Loop) cycle(ctx context.Context, session Session, previous *alerting.Set) (alerting.Set, error) {
	ctx, span := tracer.Start(ctx, "poller:cycle", trace.WithAttributes(
		attribute.Bool("has_baseline", previous != nil),
	))
	defer span.End()

	l.tel.ReportInfo("loading search results", "time", l.clock.Now().Format(time.DateTime))
	listings, err := session.Query(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return alerting.Set{}, err
	}

	current := alerting.Filter(listings, l.opts.MaxDistance)
	span.SetAttributes(
		attribute.Int("listings", len(listings)),
		attribute.Int("alerts", current.Len()),
	)
	l.tel.ReportCount(report_poller_alerts, int64(current.Len()))

	if l.opts.Observer != nil {
		l.opts.Observer.Observe(listings, current)
	}

	switch {
	case alerting.HasChanged(current, previous):
		l.dispatcher.Dispatch(ctx, notify.Preamble(current.Len()), current, l.opts.Channels)
		span.AddEvent("alerts dispatched", trace.WithAttributes(
			attribute.Int("channels", len(l.opts.Channels)),
		))
		l.tel.ReportInfo("Triggered alerts", "hotels", current.Len())
	case !current.Empty():
		l.tel.ReportInfo("Skipped alerts (no change to nearby hotel list)")
	}

	return current, nil
}
