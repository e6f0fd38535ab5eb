package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tale-forge/internal/billing"
	"tale-forge/internal/models"
	"tale-forge/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutInput struct {
	PriceID string
	Mode    billing.CheckoutMode
}

type BillingService interface {
	Checkout(ctx context.Context, identity models.Identity, input CheckoutInput) (*billing.Session, error)
	Portal(ctx context.Context, identity models.Identity) (*billing.Session, error)
	// SetAudioEntitlement is admin-only.
	SetAudioEntitlement(ctx context.Context, identity models.Identity, userID uuid.UUID, enabled bool) error
}

type billingServiceImpl struct {
	provider  billing.PaymentProvider
	customers repository.CustomerRepository
	logger    *zap.Logger
}

var _ BillingService = (*billingServiceImpl)(nil)

// NewBillingService accepts a nil provider; payment sessions then fail with
// ErrPaymentProvider while entitlements keep working.
func NewBillingService(provider billing.PaymentProvider, customers repository.CustomerRepository, logger *zap.Logger) BillingService {
	return &billingServiceImpl{
		provider:  provider,
		customers: customers,
		logger:    logger.Named("BillingService"),
	}
}

var errBillingDisabled = fmt.Errorf("%w: billing is not configured", models.ErrPaymentProvider)

func (s *billingServiceImpl) Checkout(ctx context.Context, identity models.Identity, input CheckoutInput) (*billing.Session, error) {
	if s.provider == nil {
		return nil, errBillingDisabled
	}
	var problems []string
	if strings.TrimSpace(input.PriceID) == "" {
		problems = append(problems, "price_id is required")
	}
	switch input.Mode {
	case "", billing.CheckoutModePayment, billing.CheckoutModeSubscription:
	default:
		problems = append(problems, fmt.Sprintf("mode must be payment or subscription, got %q", input.Mode))
	}
	if len(problems) > 0 {
		return nil, models.NewValidationError(problems...)
	}

	customer, err := s.ensureCustomer(ctx, identity)
	if err != nil {
		return nil, err
	}
	session, err := s.provider.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		CustomerID: customer.StripeCustomerID,
		PriceID:    strings.TrimSpace(input.PriceID),
		Mode:       input.Mode,
		UserID:     identity.UserID,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Checkout session created",
		zap.String("userID", identity.UserID.String()),
		zap.String("sessionID", session.ID))
	return session, nil
}

func (s *billingServiceImpl) Portal(ctx context.Context, identity models.Identity) (*billing.Session, error) {
	if s.provider == nil {
		return nil, errBillingDisabled
	}
	customer, err := s.ensureCustomer(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.provider.CreatePortalSession(ctx, customer.StripeCustomerID)
}

// ensureCustomer returns the stored mapping, creating the provider customer
// on first use. When two requests race, the row stored first wins.
func (s *billingServiceImpl) ensureCustomer(ctx context.Context, identity models.Identity) (*models.BillingCustomer, error) {
	customer, err := s.customers.GetByUserID(ctx, identity.UserID)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", models.ErrDatabase, err)
	}

	customerID, err := s.provider.CreateCustomer(ctx, identity.UserID, identity.Email)
	if err != nil {
		return nil, err
	}
	stored, err := s.customers.Create(ctx, &models.BillingCustomer{
		UserID:           identity.UserID,
		StripeCustomerID: customerID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrDatabase, err)
	}
	if stored.StripeCustomerID != customerID {
		s.logger.Warn("Customer mapping already existed, using stored customer",
			zap.String("userID", identity.UserID.String()),
			zap.String("stored", stored.StripeCustomerID),
			zap.String("created", customerID))
	}
	return stored, nil
}

func (s *billingServiceImpl) SetAudioEntitlement(ctx context.Context, identity models.Identity, userID uuid.UUID, enabled bool) error {
	if !identity.IsAdmin() {
		return models.ErrForbidden
	}
	if err := s.customers.SetAudioEnabled(ctx, userID, enabled); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("billing customer for user %s: %w", userID, err)
		}
		return fmt.Errorf("%w: %w", models.ErrDatabase, err)
	}
	s.logger.Info("Audio entitlement changed",
		zap.String("userID", userID.String()),
		zap.String("adminID", identity.UserID.String()),
		zap.Bool("enabled", enabled))
	return nil
}
