package passkey

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DistanceUnit is the integer enumeration the portal uses for distanceUnit.
type DistanceUnit int

const (
	UnitBlocks     DistanceUnit = 1
	UnitYards      DistanceUnit = 2
	UnitMiles      DistanceUnit = 3
	UnitMeters     DistanceUnit = 4
	UnitKilometers DistanceUnit = 5
)

var unitLabels = map[DistanceUnit]string{
	UnitBlocks:     "blocks",
	UnitYards:      "yards",
	UnitMiles:      "miles",
	UnitMeters:     "meters",
	UnitKilometers: "kilometers",
}

// Label returns the plural label of the unit, or "???" for values the portal
// is not known to send.
func (u DistanceUnit) Label() string {
	label, ok := unitLabels[u]
	if !ok {
		return "???"
	}
	return label
}

// Listing is one hotel as reported in the portal's embedded search results.
type Listing struct {
	Name              string       `json:"name"`
	DistanceFromEvent float64      `json:"distanceFromEvent"`
	DistanceUnit      DistanceUnit `json:"distanceUnit"`
	// Blocks is the room inventory, only its presence matters.
	Blocks []json.RawMessage `json:"blocks"`
}

// HasAvailability is false for hotels with no bookable inventory.
func (l Listing) HasAvailability() bool {
	return len(l.Blocks) > 0
}

// Criteria is the search filter submitted when a session is established.
type Criteria struct {
	Guests   int
	Rooms    int
	Children int
	CheckIn  time.Time
	CheckOut time.Time
}

const dateLayout = "2006-01-02"

func plural(n int, singular, many string) string {
	if n == 1 {
		return singular
	}
	return many
}

func (c Criteria) String() string {
	return fmt.Sprintf(
		"%d %s, %d %s, %s - %s",
		c.Guests, plural(c.Guests, "guest", "guests"),
		c.Rooms, plural(c.Rooms, "room", "rooms"),
		c.CheckIn.Format(dateLayout),
		c.CheckOut.Format(dateLayout),
	)
}

type SessionErrorKind int

const (
	// SessionUnauthorized means the handshake returned no session cookie, usually a bad key.
	SessionUnauthorized SessionErrorKind = iota + 1
	// SessionRejected means the portal answered with an unexpected status.
	SessionRejected
	// SessionTransport means the request itself failed (network, TLS, timeout).
	SessionTransport
)

func (k SessionErrorKind) String() string {
	switch k {
	case SessionUnauthorized:
		return "unauthorized"
	case SessionRejected:
		return "rejected"
	case SessionTransport:
		return "transport"
	}
	return "unknown"
}

// SessionError is returned by Portal.Establish.
type SessionError struct {
	Kind   SessionErrorKind
	Status int
	Err    error
}

func (e *SessionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("passkey session: %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("passkey session: %s: %v", e.Kind, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// CertificateInvalid reports whether the session failed because the portal's
// certificate could not be verified.
func (e *SessionError) CertificateInvalid() bool {
	return e.Kind == SessionTransport && IsCertificateError(e.Err)
}

type QueryErrorKind int

const (
	QueryTransport QueryErrorKind = iota + 1
	QueryBadStatus
	// QueryUnparseable means the embedded results payload was missing or not valid JSON.
	QueryUnparseable
)

func (k QueryErrorKind) String() string {
	switch k {
	case QueryTransport:
		return "transport"
	case QueryBadStatus:
		return "bad status"
	case QueryUnparseable:
		return "unparseable"
	}
	return "unknown"
}

// QueryError is returned by Session.Query.
type QueryError struct {
	Kind   QueryErrorKind
	Status int
	Err    error
}

func (e *QueryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("passkey query: %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("passkey query: %s: %v", e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsCertificateError reports whether err was caused by certificate validation.
func IsCertificateError(err error) bool {
	if err == nil {
		return false
	}
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var invalid x509.CertificateInvalidError
	if errors.As(err, &invalid) {
		return true
	}
	var hostname x509.HostnameError
	return errors.As(err, &hostname)
}
