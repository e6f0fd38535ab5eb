// Package billing talks to the payment provider.
package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tale-forge/internal/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

type CheckoutMode string

const (
	CheckoutModePayment      CheckoutMode = "payment"
	CheckoutModeSubscription CheckoutMode = "subscription"
)

type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	Mode       CheckoutMode
	UserID     uuid.UUID
}

type Session struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url"`
}

// PaymentProvider creates customers and hosted payment sessions.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	CreatePortalSession(ctx context.Context, customerID string) (*Session, error)
}

type StripeConfig struct {
	SecretKey       string
	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
	// APIBaseURL overrides the Stripe endpoint (tests, stripe-mock).
	APIBaseURL string
	Timeout    time.Duration
}

type StripeProvider struct {
	api    *client.API
	cfg    StripeConfig
	logger *zap.Logger
}

var _ PaymentProvider = (*StripeProvider)(nil)

func NewStripeProvider(cfg StripeConfig, logger *zap.Logger) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	log := logger.Named("StripeProvider")

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		LeveledLogger:     log.Sugar(),
		MaxNetworkRetries: stripe.Int64(2),
	}
	if cfg.APIBaseURL != "" {
		backendCfg.URL = stripe.String(cfg.APIBaseURL)
	}

	return &StripeProvider{
		api:    client.New(cfg.SecretKey, stripe.NewBackendsWithConfig(backendCfg)),
		cfg:    cfg,
		logger: log,
	}, nil
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("user_id", userID.String())
	// Повтор запроса не создаст второго клиента.
	params.SetIdempotencyKey("customer-" + userID.String())

	customer, err := p.api.Customers.New(params)
	if err != nil {
		return "", p.wrap("create customer", err)
	}
	p.logger.Info("Stripe customer created", zap.String("userID", userID.String()), zap.String("customerID", customer.ID))
	return customer.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	mode := req.Mode
	if mode == "" {
		mode = CheckoutModePayment
	}
	params := &stripe.CheckoutSessionParams{
		Customer:          stripe.String(req.CustomerID),
		ClientReferenceID: stripe.String(req.UserID.String()),
		Mode:              stripe.String(string(mode)),
		SuccessURL:        stripe.String(p.cfg.SuccessURL),
		CancelURL:         stripe.String(p.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", req.UserID.String())

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, p.wrap("create checkout session", err)
	}
	return &Session{ID: session.ID, URL: session.URL}, nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID string) (*Session, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(p.cfg.PortalReturnURL),
	}
	params.Context = ctx

	session, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, p.wrap("create portal session", err)
	}
	return &Session{ID: session.ID, URL: session.URL}, nil
}

func (p *StripeProvider) wrap(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		p.logger.Error("Stripe request failed",
			zap.String("op", op),
			zap.Int("status", stripeErr.HTTPStatusCode),
			zap.String("type", string(stripeErr.Type)),
			zap.String("code", string(stripeErr.Code)),
			zap.String("message", stripeErr.Msg))
		return fmt.Errorf("%w: %s: %s", models.ErrPaymentProvider, op, stripeErr.Msg)
	}
	p.logger.Error("Stripe request failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", models.ErrPaymentProvider, op, err)
}
