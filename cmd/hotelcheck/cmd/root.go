package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"hotelcheck/internal/components/chrono"
	"hotelcheck/internal/components/telemetry"
	"hotelcheck/internal/config"
	"hotelcheck/internal/notify"
	"hotelcheck/internal/passkey"
	"hotelcheck/internal/poller"
	"hotelcheck/internal/report"

	"github.com/spf13/cobra"
)

// how long in-flight alerts may take to go out after Ctrl+C
const shutdownGrace = time.Second * 15

var rootCmd = &cobra.Command{
	Use:   "hotelcheck",
	Short: "hotelcheck watches the Gen Con housing portal and alerts you when rooms near the ICC open up.",
	Args:  cobra.NoArgs,
	Run:   run,
}

func init() {
	registerFlags(rootCmd.Flags())
	rootCmd.MarkFlagsMutuallyExclusive(flagCheckIn, flagWednesday)
	rootCmd.MarkFlagsMutuallyExclusive(flagDelay, flagOnce)
}

func Execute() {
	err := rootCmd.ExecuteContext(signalContext())
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config files and layers the command line on top.
func loadConfig(cmd *cobra.Command) (config.Config, config.Search, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return config.Config{}, config.Search{}, err
	}
	cfg, files, err := config.Load(path)
	if err != nil {
		return config.Config{}, config.Search{}, err
	}
	err = applyFlags(cmd.Flags(), &cfg)
	if err != nil {
		return config.Config{}, config.Search{}, err
	}

	telemetry.InitSlog(os.Stderr, cfg.Verbose)
	for _, file := range files {
		slog.Info("read config", "file", file)
	}

	if cfg.Portal.Key == "" {
		return config.Config{}, config.Search{}, errors.New("--key is required (see the README for more information)")
	}
	search, err := cfg.Validate()
	if err != nil {
		return config.Config{}, config.Search{}, err
	}
	return cfg, search, nil
}

func run(cmd *cobra.Command, _ []string) {
	ctx := cmd.Context()

	cfg, search, err := loadConfig(cmd)
	if err != nil {
		fatal("invalid configuration", err)
	}

	otel, err := telemetry.Setup(ctx, "hotelcheck", cfg.Telemetry)
	if err != nil {
		fatal("setup telemetry", err)
	}
	defer func() {
		err := otel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("shutdown telemetry", "err", err)
		}
	}()

	var tel telemetry.API = telemetry.SlogAPI{}
	if cfg.Telemetry.Enabled() {
		tel = telemetry.NewMeteredAPI(tel)
		telemetry.InstrumentPerfStats(ctx, tel)
	}

	var output telemetry.DumpSink
	if cfg.Portal.DumpDir != "" {
		output, err = telemetry.NewDumpDir(cfg.Portal.DumpDir)
		if err != nil {
			fatal("create http dump directory", err)
		}
	}

	portal, err := passkey.NewPortal(passkey.Options{
		BaseUrl:            cfg.Portal.BaseUrl,
		EventId:            cfg.Portal.EventId,
		OwnerId:            cfg.Portal.OwnerId,
		Key:                cfg.Portal.Key,
		Criteria:           search.Criteria,
		InsecureSkipVerify: cfg.Portal.SslInsecure,
		Output:             output,
	}, tel)
	if err != nil {
		fatal("create portal client", err)
	}

	channels, err := buildChannels(ctx, cfg.Alerts, portal.StartUrl())
	if err != nil {
		fatal("set up alerts", err)
	}
	if len(channels) == 0 {
		slog.Warn("You have no alert methods selected, so you're not going to know about a match unless you're staring at this window when it happens. See the README for more information")
	}

	dispatcher := notify.NewDispatcher(tel)

	testMode, _ := cmd.Flags().GetBool(flagTest)
	if testMode {
		slog.Info("Testing alerts one at a time...")
		err = dispatcher.DispatchSequential(ctx, notify.TestPreamble, notify.TestRecords(), channels)
		if err != nil {
			fatal("test alerts", err)
		}
		slog.Info("Done")
		return
	}

	loop := poller.NewLoop(
		poller.FromPasskey(portal),
		dispatcher,
		chrono.NewStandardImpl(),
		poller.Options{
			MaxDistance: search.MaxDistance,
			Interval:    search.Interval,
			Once:        search.Once,
			Channels:    channels,
			Observer:    report.NewTable(os.Stdout),
		},
		tel,
	)
	runErr := loop.Run(ctx)

	// a single search waits for its alerts, an interrupted one gets a grace period
	waitCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
	}
	err = dispatcher.Wait(waitCtx)
	if err != nil {
		slog.Warn("some alerts were still being delivered", "err", err)
	}

	if runErr != nil {
		fatal("search failed", runErr)
	}
}
