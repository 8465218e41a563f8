package mailer

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jobfinder/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordResetTemplate(t *testing.T) {
	msg, err := PasswordReset("a@x.com", "Ada", "https://app.example/reset-password?token=abc", 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", msg.To)
	assert.Equal(t, "Password Reset Request - jobFinder", msg.Subject)
	assert.Contains(t, msg.HTML, "Hello Ada,")
	assert.Contains(t, msg.HTML, `href="https://app.example/reset-password?token=abc"`)
	assert.Contains(t, msg.HTML, "expire in 10 minutes")
}

func TestTemplatesEscapeInput(t *testing.T) {
	msg, err := Welcome("a@x.com", "<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}

func TestStatusUpdatedTemplate(t *testing.T) {
	msg, err := StatusUpdated("a@x.com", "Ada", "Backend Engineer", "Acme", "interview")
	require.NoError(t, err)
	assert.Contains(t, msg.Subject, "interview")
	assert.Contains(t, msg.HTML, "at Acme")

	msg, err = StatusUpdated("a@x.com", "Ada", "Backend Engineer", "", "rejected")
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, " at ")
}

func TestApplicationCreatedTemplate(t *testing.T) {
	msg, err := ApplicationCreated("r@x.com", "Rita", "Ada", "Backend Engineer")
	require.NoError(t, err)
	assert.Equal(t, "New applicant for Backend Engineer", msg.Subject)
	assert.Contains(t, msg.HTML, "Ada applied to")
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1 minute", humanDuration(time.Minute))
	assert.Equal(t, "10 minutes", humanDuration(10*time.Minute))
	assert.Equal(t, "2 hours", humanDuration(2*time.Hour))
	assert.Equal(t, "90s", humanDuration(90*time.Second))
}

func TestNewSelectsSender(t *testing.T) {
	assert.IsType(t, &LogSender{}, New(config.SMTPConfig{}, nil))
	assert.IsType(t, &SMTPSender{}, New(config.SMTPConfig{Host: "smtp.example", Port: 587}, nil))
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, sender.Send(context.Background(), Message{To: "a@x.com", Subject: "hi"}))
	assert.Contains(t, buf.String(), `"to":"a@x.com"`)

	assert.Error(t, sender.Send(context.Background(), Message{Subject: "no recipient"}))
}
