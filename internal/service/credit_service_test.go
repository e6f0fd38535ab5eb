package service_test

import (
	"context"
	"testing"

	"tale-forge/internal/credits"
	"tale-forge/internal/mocks"
	"tale-forge/internal/models"
	"tale-forge/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCreditService() (*mocks.TxRunner, *mocks.CreditRepository, *mocks.CustomerRepository, service.CreditService) {
	tx := new(mocks.TxRunner)
	creditRepo := new(mocks.CreditRepository)
	customers := new(mocks.CustomerRepository)
	gate := credits.NewGate(creditRepo, zap.NewNop())
	return tx, creditRepo, customers, service.NewCreditService(tx, creditRepo, customers, gate, zap.NewNop())
}

func TestCreditService_EstimateCost(t *testing.T) {
	ctx := context.Background()
	identity := userIdentity()

	t.Run("preview does not mutate", func(t *testing.T) {
		_, creditRepo, _, svc := newCreditService()
		creditRepo.On("GetBalance", ctx, identity.UserID).Return(4, nil).Once()

		estimate, err := svc.EstimateCost(ctx, identity, service.EstimateInput{Chapters: 5, WordsPerChapter: 200})

		require.NoError(t, err)
		assert.Equal(t, 5, estimate.Cost.Total)
		assert.False(t, estimate.Affordability.CanAfford)
		assert.Equal(t, 4, estimate.Affordability.Balance)
		creditRepo.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid plan", func(t *testing.T) {
		_, creditRepo, _, svc := newCreditService()

		_, err := svc.EstimateCost(ctx, identity, service.EstimateInput{Chapters: 11, WordsPerChapter: 200})

		assert.ErrorIs(t, err, models.ErrInvalidInput)
		creditRepo.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)
	})

	t.Run("audio entitlement is looked up", func(t *testing.T) {
		_, creditRepo, customers, svc := newCreditService()
		customers.On("IsAudioEnabled", ctx, identity.UserID).Return(true, nil).Once()
		creditRepo.On("GetBalance", ctx, identity.UserID).Return(100, nil).Once()

		estimate, err := svc.EstimateCost(ctx, identity, service.EstimateInput{Chapters: 3, WordsPerChapter: 150, IncludeAudio: true})

		require.NoError(t, err)
		// 3 chapters + ceil(450/100) audio credits
		assert.Equal(t, 8, estimate.Cost.Total)
		assert.Equal(t, 5, estimate.Cost.AudioCost)
		assert.True(t, estimate.Affordability.CanAfford)
	})
}

func TestCreditService_GrantCredits(t *testing.T) {
	ctx := context.Background()
	admin := userIdentity()
	admin.Roles = []string{models.RoleAdmin}
	target := uuid.New()

	t.Run("admin grant writes a ledger entry", func(t *testing.T) {
		tx, creditRepo, _, svc := newCreditService()
		tx.On("WithTransaction", ctx).Once()
		creditRepo.On("Grant", ctx, mock.Anything, target, 25).Return(30, nil).Once()
		creditRepo.On("InsertTransaction", ctx, mock.Anything, mock.MatchedBy(func(e *models.CreditTransaction) bool {
			return e.UserID == target && e.Amount == 25 && e.BalanceAfter == 30 &&
				*e.ReferenceType == models.ReferenceTypeGrant && *e.ReferenceID == admin.UserID
		})).Return(nil).Once()

		entry, err := svc.GrantCredits(ctx, admin, target, 25, "")

		require.NoError(t, err)
		assert.Equal(t, 30, entry.BalanceAfter)
		assert.Equal(t, "Granted 25 credit(s)", entry.Description)
		creditRepo.AssertExpectations(t)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		_, creditRepo, _, svc := newCreditService()

		_, err := svc.GrantCredits(ctx, userIdentity(), target, 25, "gift")

		assert.ErrorIs(t, err, models.ErrForbidden)
		creditRepo.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("amount must be positive", func(t *testing.T) {
		_, _, _, svc := newCreditService()

		_, err := svc.GrantCredits(ctx, admin, target, 0, "")

		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestCreditService_ListTransactions(t *testing.T) {
	ctx := context.Background()
	identity := userIdentity()
	_, creditRepo, _, svc := newCreditService()
	creditRepo.On("ListTransactions", ctx, identity.UserID, service.MaxPageSize, 40).
		Return([]models.CreditTransaction{{Amount: -5}}, nil).Once()

	entries, err := svc.ListTransactions(ctx, identity, 1000, 40)

	require.NoError(t, err)
	assert.Len(t, entries, 1)
	creditRepo.AssertExpectations(t)
}
