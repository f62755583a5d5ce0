// Package notify delivers rendered messages to users by email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/darkarnold/task-manager-api/internal/api/metrics"
)

// SMTPConfig holds the outbound mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends HTML mail through an SMTP relay. Calls go through a
// circuit breaker: after more than three consecutive failures it fails fast
// until the breaker half-opens again.
type SMTPSender struct {
	cfg      SMTPConfig
	auth     smtp.Auth
	breaker  *gobreaker.CircuitBreaker
	sendMail sendMailFunc
	log      zerolog.Logger
}

func NewSMTPSender(cfg SMTPConfig, log zerolog.Logger) *SMTPSender {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &SMTPSender{
		cfg:      cfg,
		auth:     auth,
		breaker:  newBreaker("smtp-cb", 30*time.Second, log),
		sendMail: smtp.SendMail,
		log:      log,
	}
}

func newBreaker(name string, timeout time.Duration, log zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}

// Send delivers one message. The context is only checked before dialing;
// net/smtp has no cancellation.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(s.cfg.From, to, subject, body)
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.sendMail(addr, s.auth, s.cfg.From, []string{to}, msg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.NotificationsTotal.WithLabelValues("breaker_open").Inc()
		} else {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		}
		return fmt.Errorf("send email: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	s.log.Debug().Str("subject", subject).Msg("email sent")
	return nil
}

// buildMessage renders RFC 5322 headers followed by the HTML body. Header
// values are stripped of CR and LF.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + headerValue(from) + "\r\n")
	b.WriteString("To: " + headerValue(to) + "\r\n")
	b.WriteString("Subject: " + headerValue(subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func headerValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}
