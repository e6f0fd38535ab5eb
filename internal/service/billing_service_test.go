package service_test

import (
	"context"
	"fmt"
	"testing"

	"tale-forge/internal/billing"
	"tale-forge/internal/mocks"
	"tale-forge/internal/models"
	"tale-forge/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBillingService_Checkout(t *testing.T) {
	ctx := context.Background()
	identity := userIdentity()

	t.Run("existing customer is reused", func(t *testing.T) {
		provider := new(mocks.PaymentProvider)
		customers := new(mocks.CustomerRepository)
		svc := service.NewBillingService(provider, customers, zap.NewNop())

		customers.On("GetByUserID", ctx, identity.UserID).
			Return(&models.BillingCustomer{UserID: identity.UserID, StripeCustomerID: "cus_1"}, nil).Once()
		provider.On("CreateCheckoutSession", ctx, billing.CheckoutRequest{
			CustomerID: "cus_1", PriceID: "price_10", Mode: billing.CheckoutModePayment, UserID: identity.UserID,
		}).Return(&billing.Session{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil).Once()

		session, err := svc.Checkout(ctx, identity, service.CheckoutInput{PriceID: "price_10", Mode: billing.CheckoutModePayment})

		require.NoError(t, err)
		assert.Equal(t, "https://checkout.example/cs_1", session.URL)
		provider.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything)
		provider.AssertExpectations(t)
	})

	t.Run("first checkout creates the customer once", func(t *testing.T) {
		provider := new(mocks.PaymentProvider)
		customers := new(mocks.CustomerRepository)
		svc := service.NewBillingService(provider, customers, zap.NewNop())

		customers.On("GetByUserID", ctx, identity.UserID).Return(nil, models.ErrNotFound).Once()
		provider.On("CreateCustomer", ctx, identity.UserID, identity.Email).Return("cus_new", nil).Once()
		// Another request stored its customer first.
		customers.On("Create", ctx, mock.AnythingOfType("*models.BillingCustomer")).
			Return(&models.BillingCustomer{UserID: identity.UserID, StripeCustomerID: "cus_first"}, nil).Once()
		provider.On("CreateCheckoutSession", ctx, mock.MatchedBy(func(r billing.CheckoutRequest) bool {
			return r.CustomerID == "cus_first"
		})).Return(&billing.Session{URL: "https://checkout.example"}, nil).Once()

		_, err := svc.Checkout(ctx, identity, service.CheckoutInput{PriceID: "price_10"})

		require.NoError(t, err)
		customers.AssertExpectations(t)
		provider.AssertExpectations(t)
	})

	t.Run("validation", func(t *testing.T) {
		svc := service.NewBillingService(new(mocks.PaymentProvider), new(mocks.CustomerRepository), zap.NewNop())

		_, err := svc.Checkout(ctx, identity, service.CheckoutInput{Mode: "lifetime"})

		assert.ErrorIs(t, err, models.ErrInvalidInput)
		assert.Contains(t, err.Error(), "price_id is required")
	})

	t.Run("billing disabled", func(t *testing.T) {
		svc := service.NewBillingService(nil, new(mocks.CustomerRepository), zap.NewNop())

		_, err := svc.Portal(ctx, identity)

		assert.ErrorIs(t, err, models.ErrPaymentProvider)
	})

	t.Run("provider failure", func(t *testing.T) {
		provider := new(mocks.PaymentProvider)
		customers := new(mocks.CustomerRepository)
		svc := service.NewBillingService(provider, customers, zap.NewNop())

		customers.On("GetByUserID", ctx, identity.UserID).Return(nil, models.ErrNotFound).Once()
		provider.On("CreateCustomer", ctx, identity.UserID, identity.Email).
			Return("", fmt.Errorf("%w: card_declined", models.ErrPaymentProvider)).Once()

		_, err := svc.Portal(ctx, identity)

		assert.ErrorIs(t, err, models.ErrPaymentProvider)
		customers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestBillingService_SetAudioEntitlement(t *testing.T) {
	ctx := context.Background()
	admin := userIdentity()
	admin.Roles = []string{models.RoleAdmin}
	target := uuid.New()

	customers := new(mocks.CustomerRepository)
	svc := service.NewBillingService(nil, customers, zap.NewNop())

	customers.On("SetAudioEnabled", ctx, target, true).Return(nil).Once()
	require.NoError(t, svc.SetAudioEntitlement(ctx, admin, target, true))

	customers.On("SetAudioEnabled", ctx, target, false).Return(models.ErrNotFound).Once()
	assert.ErrorIs(t, svc.SetAudioEntitlement(ctx, admin, target, false), models.ErrNotFound)

	assert.ErrorIs(t, svc.SetAudioEntitlement(ctx, userIdentity(), target, true), models.ErrForbidden)
	customers.AssertExpectations(t)
}
