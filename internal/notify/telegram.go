package notify

import (
	"context"
	"fmt"
	"time"

	"hotelcheck/internal/alerting"

	"github.com/go-resty/resty/v2"
)

const DefaultTelegramUrl = "https://api.telegram.org"

type TelegramOptions struct {
	Token  string
	ChatId string
	// BaseUrl defaults to DefaultTelegramUrl.
	BaseUrl string
}

// Telegram posts the alert to a chat through the Bot API. Its requests are not
// instrumented since the bot token is part of every URL.
type Telegram struct {
	opts     TelegramOptions
	http     *resty.Client
	startUrl string
}

func NewTelegram(opts TelegramOptions, startUrl string) (*Telegram, error) {
	if opts.Token == "" || opts.ChatId == "" {
		return nil, fmt.Errorf("telegram: token and chat id are required")
	}
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultTelegramUrl
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetTimeout(time.Second * 10)

	return &Telegram{
		opts:     opts,
		http:     client,
		startUrl: startUrl,
	}, nil
}

func (t *Telegram) Name() string {
	return "telegram:" + t.opts.ChatId
}

type telegramResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Notify(ctx context.Context, preamble string, records alerting.Set) error {
	var result telegramResponse
	res, err := t.http.R().
		SetContext(ctx).
		SetPathParam("token", t.opts.Token).
		SetBody(map[string]any{
			"chat_id":                  t.opts.ChatId,
			"text":                     fmt.Sprintf("%s\n\n%s", FormatMessage(preamble, records), t.startUrl),
			"disable_web_page_preview": true,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/bot{token}/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	if res.IsError() || !result.Ok {
		return fmt.Errorf("telegram: send message: status %d: %s", res.StatusCode(), result.Description)
	}
	return nil
}
