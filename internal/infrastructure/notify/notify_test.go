package notify

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkarnold/task-manager-api/internal/core/ports"
)

var (
	_ ports.NotificationSender = (*SMTPSender)(nil)
	_ ports.NotificationSender = (*LogSender)(nil)
)

type recordedMail struct {
	addr string
	from string
	to   []string
	msg  []byte
}

func newTestSender(fail error) (*SMTPSender, *[]recordedMail) {
	var sent []recordedMail
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, User: "bot@example.com", Password: "pw"}, zerolog.Nop())
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		if fail != nil {
			return fail
		}
		sent = append(sent, recordedMail{addr: addr, from: from, to: to, msg: msg})
		return nil
	}
	return s, &sent
}

func TestSMTPSender_Send(t *testing.T) {
	s, sent := newTestSender(nil)

	err := s.Send(context.Background(), "dana@example.com", "Password reset request", "<p>hi</p>")
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", m.addr)
	assert.Equal(t, "bot@example.com", m.from, "From defaults to the SMTP user")
	assert.Equal(t, []string{"dana@example.com"}, m.to)
	assert.True(t, bytes.Contains(m.msg, []byte("Content-Type: text/html")))
	assert.True(t, bytes.HasSuffix(m.msg, []byte("<p>hi</p>\r\n")))
}

func TestSMTPSender_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	s, _ := newTestSender(errors.New("connection refused"))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		err := s.Send(ctx, "a@example.com", "s", "b")
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState), "attempt %d should reach the relay", i+1)
	}

	err := s.Send(ctx, "a@example.com", "s", "b")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, s.breaker.State())
}

func TestSMTPSender_CancelledContext(t *testing.T) {
	s, sent := newTestSender(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Send(ctx, "a@example.com", "s", "b"), context.Canceled)
	assert.Empty(t, *sent)
}

func TestBuildMessage_StripsHeaderInjection(t *testing.T) {
	msg := string(buildMessage("from@x.io", "victim@x.io\r\nBcc: evil@x.io", "hi", "body"))

	assert.False(t, strings.Contains(msg, "\r\nBcc:"))
	assert.Contains(t, msg, "To: victim@x.ioBcc: evil@x.io\r\n")
}

func TestLogSender_NeverFails(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(zerolog.New(&buf))

	require.NoError(t, s.Send(context.Background(), "a@example.com", "Password reset request", "secret-link"))
	assert.Contains(t, buf.String(), "a@example.com")
	assert.NotContains(t, buf.String(), "secret-link")
}
