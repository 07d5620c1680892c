package infra

import (
	"errors"
	"fmt"
	"net/smtp"
	"net/textproto"

	"confcheckin/internal/config"

	"github.com/jordan-wright/email"
)

// ErrMailDisabled is returned when no SMTP host is configured.
var ErrMailDisabled = errors.New("mailer: SMTP host not configured")

// Message is one outgoing email. AttachmentPath is optional.
type Message struct {
	To             string
	Subject        string
	Body           string
	AttachmentPath string
}

// Mailer wraps SMTP configuration and sends through a circuit breaker.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
	cb       *CircuitBreaker
	send     func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config, cb *CircuitBreaker) *Mailer {
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		cb:       cb,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Enabled reports whether a relay is configured.
func (m *Mailer) Enabled() bool { return m != nil && m.host != "" }

// Breaker exposes the relay breaker for health reporting. May be nil.
func (m *Mailer) Breaker() *CircuitBreaker {
	if m == nil {
		return nil
	}
	return m.cb
}

// Send delivers msg. Attachment read errors are returned before any network I/O.
func (m *Mailer) Send(msg Message) error {
	if !m.Enabled() {
		return ErrMailDisabled
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)

	if msg.AttachmentPath != "" {
		if _, err := e.AttachFile(msg.AttachmentPath); err != nil {
			return fmt.Errorf("mailer: attach file: %w", err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	deliver := func() error { return m.send(e, m.addr, auth) }
	if m.cb == nil {
		return deliver()
	}
	return m.cb.Execute(deliver)
}

// IsRelayFailure reports whether err says something about the relay rather
// than about one message. Recipient rejections (550-553) and local attach
// errors do not count against the breaker.
func IsRelayFailure(err error) bool {
	if err == nil || errors.Is(err, ErrMailDisabled) {
		return false
	}
	var tp *textproto.Error
	if errors.As(err, &tp) && tp.Code >= 550 && tp.Code <= 553 {
		return false
	}
	return true
}
