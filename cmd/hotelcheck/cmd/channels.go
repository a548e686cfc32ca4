package cmd

import (
	"context"
	"fmt"
	"os"

	"hotelcheck/internal/config"
	"hotelcheck/internal/notify"

	"golang.org/x/term"
)

// promptPassword asks for the SMTP password without echo, nothing is asked
// when stdin is not a terminal.
func promptPassword(cfg config.EmailConfig) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprintf(
		os.Stderr,
		"Enter password for %s (or blank if %s requires no authentication): ",
		cfg.From, cfg.Host,
	)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}

// buildChannels constructs and checks every configured channel, any failure
// should stop the process before polling starts.
func buildChannels(ctx context.Context, cfg config.AlertsConfig, startUrl string) ([]notify.Channel, error) {
	var channels []notify.Channel

	if cfg.Popup {
		popup, err := notify.NewPopup()
		if err != nil {
			return nil, err
		}
		channels = append(channels, popup)
	}

	for _, name := range cfg.Commands {
		command, err := notify.NewCommand(name)
		if err != nil {
			return nil, err
		}
		channels = append(channels, command)
	}

	if cfg.Browser {
		browser, err := notify.NewBrowser(startUrl)
		if err != nil {
			return nil, err
		}
		channels = append(channels, browser)
	}

	for _, emailCfg := range cfg.Email {
		if emailCfg.Password == "" {
			password, err := promptPassword(emailCfg)
			if err != nil {
				return nil, err
			}
			emailCfg.Password = password
		}

		email, err := notify.NewEmail(notify.EmailOptions{
			Host:     emailCfg.Host,
			From:     emailCfg.From,
			To:       emailCfg.To,
			Password: emailCfg.Password,
		}, startUrl)
		if err != nil {
			return nil, err
		}
		err = email.Verify(ctx)
		if err != nil {
			return nil, err
		}
		channels = append(channels, email)
	}

	for _, telegramCfg := range cfg.Telegram {
		telegram, err := notify.NewTelegram(notify.TelegramOptions{
			Token:  telegramCfg.Token,
			ChatId: telegramCfg.ChatId,
		}, startUrl)
		if err != nil {
			return nil, err
		}
		channels = append(channels, telegram)
	}

	return channels, nil
}
