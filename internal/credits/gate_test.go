package credits_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tale-forge/internal/credits"
	"tale-forge/internal/models"
)

type balanceReaderMock struct {
	mock.Mock
}

func (m *balanceReaderMock) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func TestCheckAffordability(t *testing.T) {
	assert.Equal(t, credits.Affordability{CanAfford: false, Balance: 5, Cost: 8}, credits.CheckAffordability(5, 8))
	assert.Equal(t, credits.Affordability{CanAfford: true, Balance: 8, Cost: 8}, credits.CheckAffordability(8, 8))
	assert.True(t, credits.CheckAffordability(0, 0).CanAfford)
}

func TestGate_Check(t *testing.T) {
	userID := uuid.New()

	t.Run("affordable", func(t *testing.T) {
		reader := new(balanceReaderMock)
		reader.On("GetBalance", mock.Anything, userID).Return(10, nil).Once()

		res, err := credits.NewGate(reader, zap.NewNop()).Check(context.Background(), userID, 5)
		require.NoError(t, err)
		assert.True(t, res.CanAfford)
		assert.Equal(t, 10, res.Balance)
		reader.AssertExpectations(t)
	})

	t.Run("fails closed when balance unavailable", func(t *testing.T) {
		reader := new(balanceReaderMock)
		reader.On("GetBalance", mock.Anything, userID).Return(0, errors.New("connection reset")).Once()

		res, err := credits.NewGate(reader, zap.NewNop()).Check(context.Background(), userID, 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrBalanceUnavailable))
		assert.False(t, res.CanAfford)
		reader.AssertExpectations(t)
	})
}
