package mailer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/gomail.v2"
)

var ErrNoRecipients = errors.New("message has no recipients")

type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender dials the server for every message; digests are sent a few
// times a day at most.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg Config) *SMTPSender {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// Outbox keeps messages in memory instead of sending them.
type Outbox struct {
	mu   sync.Mutex
	sent []*Message
	Err  error
}

func (o *Outbox) Send(_ context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if o.Err != nil {
		return o.Err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *Outbox) Sent() []*Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*Message, len(o.sent))
	copy(out, o.sent)
	return out
}
