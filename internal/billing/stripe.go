package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/catalogpilot/catalogpilot/internal/common/config"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// CheckoutSession is the part of a Stripe Checkout Session the frontend needs
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type CheckoutParams struct {
	CustomerID string
	PriceID    string
	CompanyID  string
	Plan       string
}

// StripeClient wraps the stripe-go API client built for one secret key
type StripeClient struct {
	cfg    config.StripeConfig
	api    *client.API
	logger *zap.Logger
}

func NewStripeClient(cfg config.StripeConfig, logger *zap.Logger) *StripeClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = stripe.APIURL
	}
	lg := logger.Named("billing.stripe")
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(strings.TrimRight(cfg.BaseURL, "/")),
		HTTPClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		LeveledLogger:     lg.Sugar(),
		MaxNetworkRetries: stripe.Int64(0),
	})
	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &StripeClient{cfg: cfg, api: api, logger: lg}
}

// Configured reports whether a secret key is set
func (c *StripeClient) Configured() bool {
	return c.cfg.SecretKey != ""
}

func (c *StripeClient) CreateCustomer(ctx context.Context, email, name, companyID string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	params.AddMetadata("company_id", companyID)
	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", stripeError(err)
	}
	return cus.ID, nil
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(p.CustomerID),
		ClientReferenceID: stripe.String(p.CompanyID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(c.cfg.SuccessURL),
		CancelURL:  stripe.String(c.cfg.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("company_id", p.CompanyID)
	params.AddMetadata("plan", p.Plan)
	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, stripeError(err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// stripeError maps a stripe-go error to a ProviderError; anything that is not
// an API error means Stripe could not be reached
func stripeError(err error) *errorx.ProviderError {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return &errorx.ProviderError{Provider: errorx.ProviderStripe, Code: "UNAVAILABLE", Message: err.Error()}
	}
	code := string(se.Code)
	if code == "" {
		code = string(se.Type)
	}
	if code == "" {
		code = fmt.Sprintf("http_%d", se.HTTPStatusCode)
	}
	return &errorx.ProviderError{
		Provider:   errorx.ProviderStripe,
		Code:       strings.ToUpper(code),
		HTTPStatus: se.HTTPStatusCode,
		Message:    se.Msg,
	}
}
