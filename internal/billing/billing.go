// Package billing starts Stripe Checkout for plan upgrades. Webhooks are not handled.
package billing

import (
	"context"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"go.uber.org/zap"
)

// Stripe is the subset of the Stripe API used for checkout
type Stripe interface {
	Configured() bool
	CreateCustomer(ctx context.Context, email, name, companyID string) (string, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
}

type Service struct {
	db     database.Database
	stripe Stripe
	prices map[string]string
	logger *zap.Logger
}

func NewService(db database.Database, stripe Stripe, prices map[string]string, logger *zap.Logger) *Service {
	return &Service{db: db, stripe: stripe, prices: prices, logger: logger.Named("billing")}
}

// Checkout creates a Checkout Session for a paid plan, creating the Stripe customer on first use
func (s *Service) Checkout(ctx context.Context, companyID, email string, plan database.Plan) (*CheckoutSession, error) {
	if !plan.Valid() || plan == database.PlanFree {
		return nil, errorx.ErrInvalidInput.WithMessagef("plan %q cannot be purchased", plan)
	}
	priceID := s.prices[string(plan)]
	if priceID == "" || !s.stripe.Configured() {
		return nil, errorx.ErrInvalidInput.WithMessagef("billing is not configured for plan %q", plan)
	}

	company, err := s.db.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company.StripeCustomerID == "" {
		id, err := s.stripe.CreateCustomer(ctx, email, company.Name, company.ID)
		if err != nil {
			return nil, err
		}
		if err := s.db.SetStripeCustomerID(ctx, company.ID, id); err != nil {
			return nil, err
		}
		company.StripeCustomerID = id
		s.logger.Info("stripe customer created", zap.String("company_id", company.ID))
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: company.StripeCustomerID,
		PriceID:    priceID,
		CompanyID:  company.ID,
		Plan:       string(plan),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("checkout session created",
		zap.String("company_id", company.ID),
		zap.String("plan", string(plan)),
		zap.String("session_id", session.ID))
	return session, nil
}

// Downgrade moves a company back to the free plan and its product limit.
// Paid plans are only reached through Checkout.
func (s *Service) Downgrade(ctx context.Context, companyID string) (*database.Company, error) {
	if err := s.db.UpdateCompanyPlan(ctx, companyID, database.PlanFree); err != nil {
		return nil, err
	}
	s.logger.Info("company downgraded", zap.String("company_id", companyID))
	return s.db.GetCompany(ctx, companyID)
}
