// Package notify delivers alerts about nearby hotels to the operator through
// independently configured channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"hotelcheck/internal/alerting"
	"hotelcheck/internal/components/assert"
	"hotelcheck/internal/components/telemetry"
)

const (
	report_dispatch_channel = "dispatch.channel"

	alertTitle = "Gencon Hotel Search"
)

// Channel is one way of telling the operator about hotels. Implementations may
// block for as long as they need, the Dispatcher runs each on its own goroutine.
type Channel interface {
	Name() string
	Notify(ctx context.Context, preamble string, records alerting.Set) error
}

// Preamble is the first line of every alert.
func Preamble(count int) string {
	if count == 1 {
		return "1 hotel near the ICC:"
	}
	return fmt.Sprintf("%d hotels near the ICC:", count)
}

const TestPreamble = "This is a test"

// TestRecords are sent by --test to check that every channel is set up correctly.
func TestRecords() alerting.Set {
	return alerting.NewSet(
		alerting.Record{Name: "Test hotel 1", Distance: "2 blocks"},
		alerting.Record{Name: "Test hotel 2", Distance: "5 blocks"},
	)
}

func formatLines(records alerting.Set, prefix string) string {
	lines := make([]string, 0, records.Len())
	for _, r := range records.Records() {
		lines = append(lines, fmt.Sprintf("%s%s: %s", prefix, r.Distance, r.Name))
	}
	return strings.Join(lines, "\n")
}

// FormatMessage renders an alert as plain text, one hotel per line.
func FormatMessage(preamble string, records alerting.Set) string {
	return fmt.Sprintf("%s\n\n%s", preamble, formatLines(records, ""))
}

// Dispatcher fans alerts out to channels.
//
// Dispatch does not wait for delivery. A process that is about to exit should
// call Wait so that in-flight deliveries are not lost.
type Dispatcher struct {
	wg  sync.WaitGroup
	tel telemetry.API
}

func NewDispatcher(tel telemetry.API) *Dispatcher {
	assert.NotNil(tel, "tel")
	return &Dispatcher{
		tel: telemetry.NewScopedAPI("notify", tel),
	}
}

// Dispatch starts delivery on every channel and returns immediately. A channel
// that fails, panics or blocks has no effect on the others or on the caller,
// outcomes are only reported.
func (d *Dispatcher) Dispatch(ctx context.Context, preamble string, records alerting.Set, channels []Channel) {
	// deliveries outlive the cycle that triggered them
	ctx = context.WithoutCancel(ctx)
	for _, channel := range channels {
		d.wg.Add(1)
		go func(channel Channel) {
			defer d.wg.Done()
			d.deliver(ctx, channel, preamble, records)
		}(channel)
	}
}

// DispatchSequential delivers to one channel at a time and returns every
// failure, it is used to test the configured channels.
func (d *Dispatcher) DispatchSequential(ctx context.Context, preamble string, records alerting.Set, channels []Channel) error {
	var errs []error
	for _, channel := range channels {
		err := d.deliver(ctx, channel, preamble, records)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", channel.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, channel Channel, preamble string, records alerting.Set) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			d.tel.ReportBroken(report_dispatch_channel, err, channel.Name())
		}
	}()

	start := time.Now()
	err = channel.Notify(ctx, preamble, records)
	if err != nil {
		d.tel.ReportBroken(report_dispatch_channel, err, channel.Name())
		return err
	}
	d.tel.ReportInfo(
		"alert delivered",
		"channel", channel.Name(),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// Wait blocks until every delivery started by Dispatch has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
