package email

import (
	"context"

	"go.uber.org/zap"
)

// Provider delivers member notifications. Templates live in templates/.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error
}

// LogProvider only logs outgoing mail. Used when SMTP is not configured.
type LogProvider struct {
	log *zap.Logger
}

func NewLogProvider(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log}
}

func (p *LogProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	p.log.Debug("email not sent, smtp disabled",
		zap.Int("recipients", len(to)),
		zap.String("subject", subject),
	)
	return nil
}

func (p *LogProvider) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	if _, err := Render(templateName, data); err != nil {
		return err
	}
	subject, _ := data["subject"].(string)
	return p.Send(ctx, to, subject, "")
}
