package telemetry

import (
	"io"
	"log/slog"
	"strconv"
)

// InitSlog installs the default text logger. Debug records are dropped unless
// verbose is set.
func InitSlog(out io.Writer, verbose bool) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, opts)))
}

// SlogAPI implements API on top of the default slog logger.
type SlogAPI struct{}

// attrs turns positional params into `params.N` attributes after the leading pairs.
func attrs(leading []any, params []any) []any {
	out := make([]any, 0, len(leading)+2*len(params))
	out = append(out, leading...)
	for i, p := range params {
		out = append(out, "params."+strconv.Itoa(i), p)
	}
	return out
}

func (SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken component", attrs([]any{"id", id}, params)...)
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", attrs([]any{"id", id}, params)...)
}

func (SlogAPI) ReportInfo(msg string, args ...any) {
	slog.Info(msg, args...)
}

func (SlogAPI) ReportDebug(msg string, params ...any) {
	slog.Debug(msg, attrs(nil, params)...)
}

func (SlogAPI) ReportCount(id string, count int64) {
	slog.Debug("count", "id", id, "n", count)
}
