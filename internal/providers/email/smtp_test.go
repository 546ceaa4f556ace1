package email

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMTPSendTemplate(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	p := NewSMTP(Config{Host: "mail.local", Port: 2525, From: "noreply@tourdesk.test"})
	p.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.Nil(t, a)
		return nil
	}

	err := p.SendTemplate(context.Background(), []string{"ana@example.com"}, "notification", map[string]any{
		"subject": "Booking confirmed",
		"title":   "Booking confirmed",
		"name":    "Ana",
		"body":    "Your trip is booked.",
		"lines":   []string{"Total: 98750"},
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, "noreply@tourdesk.test", gotFrom)
	assert.Equal(t, []string{"ana@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Booking confirmed")
	assert.Contains(t, string(gotMsg), "Total: 98750")
}

func TestSMTPSendRequiresRecipient(t *testing.T) {
	p := NewSMTP(Config{Host: "mail.local", Port: 25})
	err := p.Send(context.Background(), nil, "x", "y")
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("missing", nil)
	assert.Error(t, err)
}

func TestLogProviderValidatesTemplate(t *testing.T) {
	p := NewLogProvider(zap.NewNop())

	assert.NoError(t, p.SendTemplate(context.Background(), []string{"ana@example.com"}, "notification", map[string]any{"subject": "Hi"}))
	assert.Error(t, p.SendTemplate(context.Background(), []string{"ana@example.com"}, "missing", nil))
}
