// Package mail delivers account emails over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	goAccount "github.com/MrEthical07/goAccount"
	"gopkg.in/gomail.v2"
)

// Options configures an SMTPSender.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	// From defaults to Username.
	From     string
	FromName string
	SSL      bool

	// InsecureSkipVerify disables certificate checks; development only.
	InsecureSkipVerify bool
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender implements goAccount.Mailer with gomail.
type SMTPSender struct {
	dialer dialer
	from   string
	name   string
}

var _ goAccount.Mailer = (*SMTPSender)(nil)

// NewSMTPSender validates opts and returns a sender.
func NewSMTPSender(opts Options) (*SMTPSender, error) {
	if opts.Host == "" || opts.Port <= 0 {
		return nil, errors.New("mail: host and port are required")
	}
	from := opts.From
	if from == "" {
		from = opts.Username
	}
	if from == "" {
		return nil, errors.New("mail: sender address is required")
	}

	d := gomail.NewDialer(opts.Host, opts.Port, opts.Username, opts.Password)
	d.SSL = opts.SSL
	if opts.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: opts.Host}
	}

	return &SMTPSender{dialer: d, from: from, name: opts.FromName}, nil
}

// Send delivers one HTML message. gomail has no context support, so the
// delivery keeps running in the background when ctx ends first; the caller
// still gets ctx.Err() and treats the mail as failed.
func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("mail: empty recipient")
	}
	if strings.EqualFold(to, s.from) {
		return errors.New("mail: invalid recipient address")
	}

	m := gomail.NewMessage()
	if s.name != "" {
		m.SetAddressHeader("From", s.from, s.name)
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mail: send failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
