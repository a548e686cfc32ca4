package cmd

import (
	"fmt"
	"strings"

	"hotelcheck/internal/config"

	"github.com/spf13/pflag"
)

const (
	flagConfig      = "config"
	flagGuests      = "guests"
	flagChildren    = "children"
	flagRooms       = "rooms"
	flagCheckIn     = "checkin"
	flagWednesday   = "wednesday"
	flagCheckOut    = "checkout"
	flagMaxDistance = "max-distance"
	flagSslInsecure = "ssl-insecure"
	flagDelay       = "delay"
	flagOnce        = "once"
	flagTest        = "test"
	flagKey         = "key"
	flagPopup       = "popup"
	flagCmd         = "cmd"
	flagBrowser     = "browser"
	flagEmail       = "email"
	flagTelegram    = "telegram"
	flagVerbose     = "verbose"
	flagDumpHttp    = "dump-http"
)

func registerFlags(flags *pflag.FlagSet) {
	defaults := config.Defaults()

	flags.String(flagConfig, config.DefaultPath, "configuration file, a .local variant next to it overrides it")

	flags.Int(flagGuests, defaults.Search.Guests, "number of guests")
	flags.Int(flagChildren, defaults.Search.Children, "number of children")
	flags.Int(flagRooms, defaults.Search.Rooms, "number of rooms")
	flags.String(flagCheckIn, defaults.Search.CheckIn, "check in (YYYY-MM-DD)")
	flags.Bool(flagWednesday, false, fmt.Sprintf("check in on %s", config.WednesdayCheckIn))
	flags.String(flagCheckOut, defaults.Search.CheckOut, "check out (YYYY-MM-DD)")
	flags.Float64(flagMaxDistance, 0, "max hotel distance in BLOCKS that triggers an alert")
	flags.Bool(flagSslInsecure, false, "skip verification of the portal's certificate")
	flags.Int(flagDelay, defaults.Search.DelayMinutes, "search every MINS minute(s)")
	flags.Bool(flagOnce, false, "search once and exit")
	flags.Bool(flagTest, false, "trigger every specified alert and exit")
	flags.String(flagKey, "", "your personal Passkey key, from the link in your housing email")

	flags.Bool(flagPopup, false, "show a dialog box")
	flags.StringArray(flagCmd, nil, "run CMD, passing each hotel name as an argument")
	flags.Bool(flagBrowser, false, "open the Passkey website in the default browser")
	flags.StringArray(flagEmail, nil, "send an e-mail, given as HOST,FROM,TO")
	flags.StringArray(flagTelegram, nil, "send a Telegram message, given as TOKEN,CHAT_ID")

	flags.BoolP(flagVerbose, "v", false, "enable verbose logging")
	flags.String(flagDumpHttp, "", "write every HTTP exchange with the portal into this directory")

	_ = flags.MarkHidden(flagSslInsecure)
}

func splitFields(flag, value string, n int, format string) ([]string, error) {
	fields := strings.Split(value, ",")
	if len(fields) != n {
		return nil, fmt.Errorf("--%s expects %s, got '%s'", flag, format, value)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}

// applyFlags overrides cfg with every flag that was explicitly given.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil || !flags.Changed(name) {
			return
		}
		err = apply()
	}

	set(flagGuests, func() (e error) { cfg.Search.Guests, e = flags.GetInt(flagGuests); return })
	set(flagChildren, func() (e error) { cfg.Search.Children, e = flags.GetInt(flagChildren); return })
	set(flagRooms, func() (e error) { cfg.Search.Rooms, e = flags.GetInt(flagRooms); return })
	set(flagCheckIn, func() (e error) { cfg.Search.CheckIn, e = flags.GetString(flagCheckIn); return })
	set(flagWednesday, func() error {
		wednesday, e := flags.GetBool(flagWednesday)
		if wednesday {
			cfg.Search.CheckIn = config.WednesdayCheckIn
		}
		return e
	})
	set(flagCheckOut, func() (e error) { cfg.Search.CheckOut, e = flags.GetString(flagCheckOut); return })
	set(flagMaxDistance, func() error {
		distance, e := flags.GetFloat64(flagMaxDistance)
		cfg.Search.MaxDistance = &distance
		return e
	})
	set(flagSslInsecure, func() (e error) { cfg.Portal.SslInsecure, e = flags.GetBool(flagSslInsecure); return })
	set(flagDelay, func() (e error) { cfg.Search.DelayMinutes, e = flags.GetInt(flagDelay); return })
	set(flagOnce, func() (e error) { cfg.Search.Once, e = flags.GetBool(flagOnce); return })
	set(flagKey, func() (e error) { cfg.Portal.Key, e = flags.GetString(flagKey); return })
	set(flagDumpHttp, func() (e error) { cfg.Portal.DumpDir, e = flags.GetString(flagDumpHttp); return })
	set(flagVerbose, func() (e error) { cfg.Verbose, e = flags.GetBool(flagVerbose); return })

	set(flagPopup, func() (e error) { cfg.Alerts.Popup, e = flags.GetBool(flagPopup); return })
	set(flagBrowser, func() (e error) { cfg.Alerts.Browser, e = flags.GetBool(flagBrowser); return })
	set(flagCmd, func() error {
		commands, e := flags.GetStringArray(flagCmd)
		cfg.Alerts.Commands = append(cfg.Alerts.Commands, commands...)
		return e
	})
	set(flagEmail, func() error {
		values, e := flags.GetStringArray(flagEmail)
		if e != nil {
			return e
		}
		for _, value := range values {
			fields, e := splitFields(flagEmail, value, 3, "HOST,FROM,TO")
			if e != nil {
				return e
			}
			cfg.Alerts.Email = append(cfg.Alerts.Email, config.EmailConfig{
				Host: fields[0],
				From: fields[1],
				To:   fields[2],
			})
		}
		return nil
	})
	set(flagTelegram, func() error {
		values, e := flags.GetStringArray(flagTelegram)
		if e != nil {
			return e
		}
		for _, value := range values {
			fields, e := splitFields(flagTelegram, value, 2, "TOKEN,CHAT_ID")
			if e != nil {
				return e
			}
			cfg.Alerts.Telegram = append(cfg.Alerts.Telegram, config.TelegramConfig{
				Token:  fields[0],
				ChatId: fields[1],
			})
		}
		return nil
	})

	return err
}
