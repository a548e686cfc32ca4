package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_metered_gauge = "metered.gauge"
	report_perf_cpu      = "perf.cpu"

	perfInterval = time.Second * 30
)

var meter = otel.Meter("hotelcheck")

// MeteredAPI forwards to an inner API and also exports ReportCount samples as
// an otel gauge with the report id as attribute.
type MeteredAPI struct {
	API
	counts metric.Int64Gauge
}

func NewMeteredAPI(inner API) MeteredAPI {
	counts, err := meter.Int64Gauge("report_count")
	if err != nil {
		inner.ReportWarning(report_metered_gauge, err)
	}
	return MeteredAPI{API: inner, counts: counts}
}

func (m MeteredAPI) ReportCount(id string, count int64) {
	m.API.ReportCount(id, count)
	if m.counts != nil {
		m.counts.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	}
}

type perfGauges struct {
	cpu        metric.Float64Gauge
	allocated  metric.Int64Gauge
	live       metric.Int64Gauge
	goroutines metric.Int64Gauge
}

func (g perfGauges) sample(ctx context.Context, tel API) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	g.allocated.Record(ctx, int64(mem.Alloc/1_000_000))
	g.live.Record(ctx, int64(mem.Mallocs)-int64(mem.Frees))
	g.goroutines.Record(ctx, int64(runtime.NumGoroutine()))

	usage, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil {
		tel.ReportWarning(report_perf_cpu, err)
		return
	}
	if len(usage) > 0 {
		g.cpu.Record(ctx, usage[0])
	}
}

// InstrumentPerfStats samples process gauges in the background until ctx is done.
func InstrumentPerfStats(ctx context.Context, tel API) {
	perf := otel.Meter("hotelcheck/perf")
	var g perfGauges
	g.cpu, _ = perf.Float64Gauge("cpu_usage")
	g.allocated, _ = perf.Int64Gauge("allocated_mb")
	g.live, _ = perf.Int64Gauge("live_objects")
	g.goroutines, _ = perf.Int64Gauge("goroutine_count")

	go func() {
		ticker := time.NewTicker(perfInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.sample(ctx, tel)
			}
		}
	}()
}
