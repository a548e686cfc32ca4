package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"hotelcheck/internal/alerting"

	"github.com/jordan-wright/email"
)

const (
	implicitTlsPort = "465"
	plainPort       = "25"
	smtpDialTimeout = time.Second * 15
)

type EmailOptions struct {
	// Host is the SMTP server, optionally with a port. Without a port implicit
	// TLS is tried on 465 before falling back to 25.
	Host string
	From string
	To   string
	// Password may be empty for servers that need no authentication.
	Password string
}

// Email sends the alert to a single address.
type Email struct {
	opts     EmailOptions
	hostname string
	tlsAddr  string
	addr     string
	startUrl string

	// set by Verify, delivery skips the implicit TLS attempt when it is known not to work
	plainOnly bool
}

func NewEmail(opts EmailOptions, startUrl string) (*Email, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("email: host is required")
	}
	_, err := mail.ParseAddress(opts.From)
	if err != nil {
		return nil, fmt.Errorf("email: invalid from address '%s': %w", opts.From, err)
	}
	_, err = mail.ParseAddress(opts.To)
	if err != nil {
		return nil, fmt.Errorf("email: invalid to address '%s': %w", opts.To, err)
	}

	e := &Email{opts: opts, startUrl: startUrl}
	host, _, err := net.SplitHostPort(opts.Host)
	if err == nil {
		e.hostname = host
		e.tlsAddr = opts.Host
		e.addr = opts.Host
	} else {
		e.hostname = opts.Host
		e.tlsAddr = net.JoinHostPort(opts.Host, implicitTlsPort)
		e.addr = net.JoinHostPort(opts.Host, plainPort)
	}

	return e, nil
}

func (e *Email) Name() string {
	return "email:" + e.opts.To
}

func (e *Email) auth() smtp.Auth {
	if e.opts.Password == "" {
		return nil
	}
	return smtp.PlainAuth("", e.opts.From, e.opts.Password, e.hostname)
}

func (e *Email) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: e.hostname}
}

func isAuthUnsupported(err error) bool {
	return err != nil && strings.Contains(err.Error(), "server doesn't support AUTH")
}

// withAuth retries without credentials if the server does not do AUTH at all.
func (e *Email) withAuth(send func(auth smtp.Auth) error) error {
	auth := e.auth()
	err := send(auth)
	if auth != nil && isAuthUnsupported(err) {
		err = send(nil)
	}
	return err
}

// Verify connects and authenticates once so that a bad host or password is
// caught at startup rather than when the first alert goes out.
func (e *Email) Verify(ctx context.Context) error {
	dialer := &net.Dialer{Timeout: smtpDialTimeout}

	tlsDialer := &tls.Dialer{NetDialer: dialer, Config: e.tlsConfig()}
	conn, tlsErr := tlsDialer.DialContext(ctx, "tcp", e.tlsAddr)
	if tlsErr == nil {
		return e.handshake(conn, false)
	}

	conn, err := dialer.DialContext(ctx, "tcp", e.addr)
	if err != nil {
		return fmt.Errorf("email: connect to %s: %w", e.opts.Host, errors.Join(tlsErr, err))
	}
	err = e.handshake(conn, true)
	if err != nil {
		return err
	}
	e.plainOnly = true
	return nil
}

func (e *Email) handshake(conn net.Conn, startTls bool) error {
	client, err := smtp.NewClient(conn, e.hostname)
	if err != nil {
		conn.Close()
		return fmt.Errorf("email: greet %s: %w", e.opts.Host, err)
	}
	defer client.Close()

	if startTls {
		if ok, _ := client.Extension("STARTTLS"); ok {
			err = client.StartTLS(e.tlsConfig())
			if err != nil {
				return fmt.Errorf("email: starttls: %w", err)
			}
		}
	}
	if auth := e.auth(); auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			err = client.Auth(auth)
			if err != nil {
				return fmt.Errorf("email: authenticate as %s: %w", e.opts.From, err)
			}
		}
	}
	return client.Quit()
}

func (e *Email) message(preamble string, records alerting.Set) *email.Email {
	msg := email.NewEmail()
	msg.From = e.opts.From
	msg.To = []string{e.opts.To}
	msg.Subject = alertTitle
	msg.Text = []byte(fmt.Sprintf(
		"%s\n\n%s\n\n%s",
		preamble,
		formatLines(records, "  * "),
		e.startUrl,
	))
	return msg
}

// Notify tries implicit TLS and then plain SMTP. The mail library takes no
// context, so ctx is only checked before each attempt.
func (e *Email) Notify(ctx context.Context, preamble string, records alerting.Set) error {
	msg := e.message(preamble, records)

	var tlsErr error
	if !e.plainOnly {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("send email to %s: %w", e.opts.To, err)
		}
		tlsErr = e.withAuth(func(auth smtp.Auth) error {
			return msg.SendWithTLS(e.tlsAddr, auth, e.tlsConfig())
		})
		if tlsErr == nil {
			return nil
		}
	}

	err := ctx.Err()
	if err == nil {
		err = e.withAuth(func(auth smtp.Auth) error {
			return msg.Send(e.addr, auth)
		})
	}
	if err != nil {
		if tlsErr != nil {
			err = errors.Join(tlsErr, err)
		}
		return fmt.Errorf("send email to %s: %w", e.opts.To, err)
	}
	return nil
}
