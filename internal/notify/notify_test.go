package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"hotelcheck/internal/alerting"
	"hotelcheck/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	name   string
	calls  atomic.Int32
	notify func(ctx context.Context, preamble string, records alerting.Set) error
}

func (c *fakeChannel) Name() string {
	return c.name
}

func (c *fakeChannel) Notify(ctx context.Context, preamble string, records alerting.Set) error {
	c.calls.Add(1)
	if c.notify == nil {
		return nil
	}
	return c.notify(ctx, preamble, records)
}

func waitFor(t testing.TB, d *Dispatcher) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
}

func TestDispatchIsolatesPanics(t *testing.T) {
	tel := &telemetry.Recorder{}
	dispatcher := NewDispatcher(tel)

	first := &fakeChannel{name: "first"}
	panicking := &fakeChannel{
		name: "panicking",
		notify: func(context.Context, string, alerting.Set) error {
			panic("boom")
		},
	}
	last := &fakeChannel{name: "last"}

	records := alerting.NewSet(alerting.Record{Name: "Hotel A", Distance: "1.0 blocks"})
	dispatcher.Dispatch(context.Background(), Preamble(1), records, []Channel{first, panicking, last})
	waitFor(t, dispatcher)

	require.EqualValues(t, 1, first.calls.Load())
	require.EqualValues(t, 1, panicking.calls.Load())
	require.EqualValues(t, 1, last.calls.Load())

	broken := tel.Reports("broken", report_dispatch_channel)
	require.Len(t, broken, 1)
	require.Contains(t, broken[0].Params, "panicking")
	require.Len(t, tel.Reports("info", "alert delivered"), 2)
}

func TestDispatchIsolatesErrors(t *testing.T) {
	tel := &telemetry.Recorder{}
	dispatcher := NewDispatcher(tel)

	failing := &fakeChannel{
		name: "failing",
		notify: func(context.Context, string, alerting.Set) error {
			return errors.New("smtp unreachable")
		},
	}
	ok := &fakeChannel{name: "ok"}

	dispatcher.Dispatch(context.Background(), Preamble(0), alerting.NewSet(), []Channel{failing, ok})
	waitFor(t, dispatcher)

	require.EqualValues(t, 1, ok.calls.Load())
	require.Len(t, tel.Reports("broken", report_dispatch_channel), 1)
}

func TestDispatchDoesNotBlock(t *testing.T) {
	dispatcher := NewDispatcher(&telemetry.Recorder{})

	release := make(chan struct{})
	blocking := &fakeChannel{
		name: "blocking",
		notify: func(context.Context, string, alerting.Set) error {
			<-release
			return nil
		},
	}
	delivered := make(chan struct{})
	fast := &fakeChannel{
		name: "fast",
		notify: func(context.Context, string, alerting.Set) error {
			close(delivered)
			return nil
		},
	}

	dispatcher.Dispatch(context.Background(), Preamble(2), alerting.NewSet(), []Channel{blocking, fast})

	select {
	case <-delivered:
	case <-time.After(time.Second * 5):
		t.Fatal("fast channel was held up by the blocking one")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()
	require.ErrorIs(t, dispatcher.Wait(ctx), context.DeadlineExceeded)

	close(release)
	waitFor(t, dispatcher)
}

func TestDispatchOutlivesCancelledCycle(t *testing.T) {
	dispatcher := NewDispatcher(&telemetry.Recorder{})

	var cancelled atomic.Bool
	channel := &fakeChannel{
		name: "slow",
		notify: func(ctx context.Context, _ string, _ alerting.Set) error {
			time.Sleep(time.Millisecond * 20)
			cancelled.Store(ctx.Err() != nil)
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Dispatch(ctx, Preamble(1), alerting.NewSet(), []Channel{channel})
	cancel()
	waitFor(t, dispatcher)

	require.False(t, cancelled.Load())
}

func TestDispatchSequential(t *testing.T) {
	tel := &telemetry.Recorder{}
	dispatcher := NewDispatcher(tel)

	var order []string
	record := func(name string, err error) *fakeChannel {
		return &fakeChannel{
			name: name,
			notify: func(_ context.Context, preamble string, records alerting.Set) error {
				require.Equal(t, TestPreamble, preamble)
				require.Equal(t, 2, records.Len())
				order = append(order, name)
				return err
			},
		}
	}

	err := dispatcher.DispatchSequential(
		context.Background(),
		TestPreamble,
		TestRecords(),
		[]Channel{record("a", nil), record("b", errors.New("no display")), record("c", nil)},
	)
	require.ErrorContains(t, err, "b: no display")
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestPreambleCount(t *testing.T) {
	require.Equal(t, "1 hotel near the ICC:", Preamble(1))
	require.Equal(t, "3 hotels near the ICC:", Preamble(3))
}

func TestFormatMessage(t *testing.T) {
	require.Equal(
		t,
		"This is a test\n\n2 blocks: Test hotel 1\n5 blocks: Test hotel 2",
		FormatMessage(TestPreamble, TestRecords()),
	)
}
