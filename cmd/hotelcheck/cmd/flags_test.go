package cmd

import (
	"testing"

	"hotelcheck/internal/config"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func parse(t testing.TB, cfg config.Config, args ...string) (config.Config, error) {
	flags := pflag.NewFlagSet("hotelcheck", pflag.ContinueOnError)
	registerFlags(flags)
	require.NoError(t, flags.Parse(args))
	err := applyFlags(flags, &cfg)
	return cfg, err
}

func TestApplyFlagsKeepsConfigForUnsetFlags(t *testing.T) {
	base := config.Defaults()
	base.Search.Guests = 4
	base.Portal.Key = "FROMFILE"
	base.Alerts.Commands = []string{"say"}

	cfg, err := parse(t, base)
	require.NoError(t, err)
	require.Equal(t, base, cfg)
}

func TestApplyFlags(t *testing.T) {
	base := config.Defaults()
	base.Alerts.Commands = []string{"say"}

	cfg, err := parse(
		t, base,
		"--key", "ABC123",
		"--guests", "2",
		"--children", "1",
		"--rooms", "2",
		"--wednesday",
		"--checkout", "2016-08-08",
		"--max-distance", "3.5",
		"--once",
		"--ssl-insecure",
		"--popup",
		"--browser",
		"--cmd", "notify-me",
		"--email", "smtp.example.com, me@example.com, you@example.com",
		"--email", "smtp.example.com:587,me@example.com,them@example.com",
		"--telegram", "123:abc,42",
	)
	require.NoError(t, err)

	require.Equal(t, "ABC123", cfg.Portal.Key)
	require.Equal(t, 2, cfg.Search.Guests)
	require.Equal(t, 1, cfg.Search.Children)
	require.Equal(t, 2, cfg.Search.Rooms)
	require.Equal(t, config.WednesdayCheckIn, cfg.Search.CheckIn)
	require.Equal(t, "2016-08-08", cfg.Search.CheckOut)
	require.Equal(t, 3.5, *cfg.Search.MaxDistance)
	require.True(t, cfg.Search.Once)
	require.True(t, cfg.Portal.SslInsecure)
	require.True(t, cfg.Alerts.Popup)
	require.True(t, cfg.Alerts.Browser)
	require.Equal(t, []string{"say", "notify-me"}, cfg.Alerts.Commands)
	require.Equal(t, []config.EmailConfig{
		{Host: "smtp.example.com", From: "me@example.com", To: "you@example.com"},
		{Host: "smtp.example.com:587", From: "me@example.com", To: "them@example.com"},
	}, cfg.Alerts.Email)
	require.Equal(t, []config.TelegramConfig{{Token: "123:abc", ChatId: "42"}}, cfg.Alerts.Telegram)
	require.Equal(t, 7, cfg.Alerts.Count())

	_, err = cfg.Validate()
	require.NoError(t, err)
}

func TestApplyFlagsMalformedEmail(t *testing.T) {
	_, err := parse(t, config.Defaults(), "--email", "smtp.example.com,me@example.com")
	require.ErrorContains(t, err, "HOST,FROM,TO")

	_, err = parse(t, config.Defaults(), "--telegram", "token-only")
	require.ErrorContains(t, err, "TOKEN,CHAT_ID")
}
