package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/frahmantamala/expense-approval/internal"
)

var ErrNoRecipients = errors.New("message has no recipients")

type Message struct {
	To      []string
	Subject string
	Body    string
}

func (m Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range m.To {
		if strings.ContainsAny(to, "\r\n") {
			return fmt.Errorf("invalid recipient %q", to)
		}
	}
	if strings.ContainsAny(m.Subject, "\r\n") {
		return errors.New("subject must be a single line")
	}
	return nil
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends plain-text mail through an SMTP relay.
type SMTPMailer struct {
	addr     string
	host     string
	username string
	password string
	from     string
	send     sendFunc
}

func NewSMTPMailer(cfg internal.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:     cfg.Host,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		send:     smtp.SendMail,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := m.send(m.addr, auth, m.from, msg.To, m.compose(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *SMTPMailer) compose(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogMailer writes messages to the log instead of sending them. Used when mail
// is disabled.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "mail delivery disabled, logging message",
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject)
	return nil
}

// NewMailer picks the SMTP mailer when mail is enabled.
func NewMailer(cfg internal.MailConfig, logger *slog.Logger) Mailer {
	if cfg.Enabled {
		return NewSMTPMailer(cfg)
	}
	return NewLogMailer(logger)
}
