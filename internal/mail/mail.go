// Package mail delivers transactional email through SendGrid.
package mail

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/catalogpilot/catalogpilot/internal/template"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const DefaultHost = "https://api.sendgrid.com"

// Invitation is the content of an invitation email. Subject is already localized.
type Invitation struct {
	To          string
	Subject     string
	CompanyName string
	InviterName string
	Role        string
	AcceptURL   string
	ExpiresAt   time.Time
}

type Mailer interface {
	SendInvitation(ctx context.Context, inv Invitation) error
}

// New returns a SendGrid mailer, or a mailer that only logs when no API key is configured
func New(cfg config.SendGridConfig, logger *zap.Logger) Mailer {
	logger = logger.Named("mail")
	if cfg.APIKey == "" {
		logger.Warn("SendGrid API key not set, emails will only be logged")
		return &LogMailer{logger: logger}
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	return &SendGridMailer{cfg: cfg, renderer: template.NewRenderer(), logger: logger}
}

type SendGridMailer struct {
	cfg      config.SendGridConfig
	renderer *template.Renderer
	logger   *zap.Logger
}

func (m *SendGridMailer) SendInvitation(ctx context.Context, inv Invitation) error {
	html, err := m.renderer.RenderHTML(invitationHTML, inv)
	if err != nil {
		return fmt.Errorf("render invitation html: %w", err)
	}
	text, err := m.renderer.RenderText(invitationText, inv)
	if err != nil {
		return fmt.Errorf("render invitation text: %w", err)
	}

	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail(m.cfg.FromName, m.cfg.FromEmail),
		inv.Subject,
		sgmail.NewEmail("", inv.To),
		text,
		html,
	)
	req := sendgrid.GetRequest(m.cfg.APIKey, "/v3/mail/send", m.cfg.Host)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(msg)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return &errorx.ProviderError{Provider: errorx.ProviderSendGrid, Code: "UNAVAILABLE", Message: err.Error()}
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &errorx.ProviderError{
			Provider:   errorx.ProviderSendGrid,
			Code:       "HTTP_" + strconv.Itoa(resp.StatusCode),
			HTTPStatus: resp.StatusCode,
			Message:    gjson.Get(resp.Body, "errors.0.message").String(),
		}
	}
	m.logger.Info("invitation email sent", zap.String("to", inv.To), zap.Int("status", resp.StatusCode))
	return nil
}

// LogMailer writes emails to the log instead of sending them
type LogMailer struct {
	logger *zap.Logger
}

func (m *LogMailer) SendInvitation(_ context.Context, inv Invitation) error {
	m.logger.Info("invitation email (not sent)",
		zap.String("to", inv.To),
		zap.String("subject", inv.Subject),
		zap.String("accept_url", inv.AcceptURL))
	return nil
}
