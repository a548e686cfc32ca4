// Package config holds everything the poller can be configured with and turns
// it into a validated search.
package config

import (
	"errors"
	"fmt"
	"time"

	"hotelcheck/internal/components/telemetry"
	"hotelcheck/internal/passkey"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultPath = "hotelcheck.json5"

	DateLayout = "2006-01-02"
)

// The Gen Con housing block only sells nights inside this window.
var (
	FirstDay = time.Date(2016, 7, 30, 0, 0, 0, 0, time.UTC)
	LastDay  = time.Date(2016, 8, 9, 0, 0, 0, 0, time.UTC)
)

const (
	DefaultCheckIn   = "2016-08-04"
	WednesdayCheckIn = "2016-08-03"
	DefaultCheckOut  = "2016-08-07"
)

type SearchConfig struct {
	Guests   int    `json:"guests" validate:"min=1"`
	Children int    `json:"children" validate:"min=0"`
	Rooms    int    `json:"rooms" validate:"min=1"`
	CheckIn  string `json:"checkin" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"checkout" validate:"required,datetime=2006-01-02"`
	// MaxDistance is in blocks.
	MaxDistance *float64 `json:"max_distance" validate:"omitnil,gte=0"`
	// DelayMinutes is the time between searches.
	DelayMinutes int  `json:"delay" validate:"min=1"`
	Once         bool `json:"once"`
}

type PortalConfig struct {
	Key         string `json:"key" validate:"required"`
	BaseUrl     string `json:"base_url" validate:"omitempty,url"`
	EventId     string `json:"event_id"`
	OwnerId     string `json:"owner_id"`
	SslInsecure bool   `json:"ssl_insecure"`
	// DumpDir receives a copy of every HTTP exchange when set.
	DumpDir string `json:"dump_dir"`
}

type EmailConfig struct {
	Host     string `json:"host" validate:"required"`
	From     string `json:"from" validate:"required,email"`
	To       string `json:"to" validate:"required,email"`
	Password string `json:"password"`
}

type TelegramConfig struct {
	Token  string `json:"token" validate:"required"`
	ChatId string `json:"chat_id" validate:"required"`
}

type AlertsConfig struct {
	Popup    bool             `json:"popup"`
	Browser  bool             `json:"browser"`
	Commands []string         `json:"commands" validate:"dive,required"`
	Email    []EmailConfig    `json:"email" validate:"dive"`
	Telegram []TelegramConfig `json:"telegram" validate:"dive"`
}

// Count is the number of channels that are turned on.
func (c AlertsConfig) Count() int {
	n := len(c.Commands) + len(c.Email) + len(c.Telegram)
	if c.Popup {
		n++
	}
	if c.Browser {
		n++
	}
	return n
}

type Config struct {
	Search    SearchConfig     `json:"search"`
	Portal    PortalConfig     `json:"portal"`
	Alerts    AlertsConfig     `json:"alerts"`
	Telemetry telemetry.Config `json:"telemetry"`
	Verbose   bool             `json:"verbose"`
}

func Defaults() Config {
	return Config{
		Search: SearchConfig{
			Guests:       1,
			Children:     0,
			Rooms:        1,
			CheckIn:      DefaultCheckIn,
			CheckOut:     DefaultCheckOut,
			DelayMinutes: 1,
		},
		Portal: PortalConfig{
			BaseUrl: passkey.DefaultBaseUrl,
			EventId: passkey.DefaultEventId,
			OwnerId: passkey.DefaultOwnerId,
		},
	}
}

// Load reads `path` and its local override on top of Defaults. A missing file
// is not an error.
func Load(path string) (Config, []string, error) {
	return ReadFiles(path, Defaults())
}

// Search is the validated, immutable form of SearchConfig.
type Search struct {
	Criteria    passkey.Criteria
	MaxDistance *float64
	Interval    time.Duration
	Once        bool
}

func parseDay(field, value string) (time.Time, error) {
	day, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %s is not a date in the form YYYY-MM-DD", field, value)
	}
	if day.Before(FirstDay) || day.After(LastDay) {
		return time.Time{}, fmt.Errorf("%s: %s is outside the Gencon housing block window", field, value)
	}
	return day, nil
}

// Validate checks the whole configuration and returns the search it describes.
func (c Config) Validate() (Search, error) {
	validate := validator.New()
	err := validate.Struct(c)
	if err != nil {
		return Search{}, fmt.Errorf("config validation failed: %w", err)
	}

	checkIn, err := parseDay("checkin", c.Search.CheckIn)
	if err != nil {
		return Search{}, err
	}
	checkOut, err := parseDay("checkout", c.Search.CheckOut)
	if err != nil {
		return Search{}, err
	}
	if checkOut.Before(checkIn) {
		return Search{}, errors.New("checkout must not be before checkin")
	}

	var maxDistance *float64
	if c.Search.MaxDistance != nil {
		v := *c.Search.MaxDistance
		maxDistance = &v
	}

	return Search{
		Criteria: passkey.Criteria{
			Guests:   c.Search.Guests,
			Rooms:    c.Search.Rooms,
			Children: c.Search.Children,
			CheckIn:  checkIn,
			CheckOut: checkOut,
		},
		MaxDistance: maxDistance,
		Interval:    time.Duration(c.Search.DelayMinutes) * time.Minute,
		Once:        c.Search.Once,
	}, nil
}
