package credits

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tale-forge/internal/models"
)

// Affordability is the gate's verdict together with the inputs it used.
type Affordability struct {
	CanAfford bool `json:"can_afford"`
	Balance   int  `json:"balance"`
	Cost      int  `json:"cost"`
}

// CheckAffordability is inclusive: a balance equal to the cost is enough.
func CheckAffordability(balance, cost int) Affordability {
	return Affordability{CanAfford: balance >= cost, Balance: balance, Cost: cost}
}

// BalanceReader returns the caller's current balance; a user without a
// credits row has balance 0.
type BalanceReader interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
}

// Gate checks a cost against the stored balance without mutating anything.
type Gate struct {
	balances BalanceReader
	logger   *zap.Logger
}

func NewGate(balances BalanceReader, logger *zap.Logger) *Gate {
	return &Gate{balances: balances, logger: logger.Named("AffordabilityGate")}
}

// Check fails closed: when the balance cannot be read the result is
// unaffordable and the error wraps ErrBalanceUnavailable.
func (g *Gate) Check(ctx context.Context, userID uuid.UUID, cost int) (Affordability, error) {
	balance, err := g.balances.GetBalance(ctx, userID)
	if err != nil {
		g.logger.Error("Balance fetch failed, treating as unaffordable",
			zap.String("userID", userID.String()), zap.Int("cost", cost), zap.Error(err))
		return Affordability{CanAfford: false, Cost: cost}, fmt.Errorf("%w: %w", models.ErrBalanceUnavailable, err)
	}

	result := CheckAffordability(balance, cost)
	g.logger.Debug("Affordability checked",
		zap.String("userID", userID.String()),
		zap.Int("balance", balance),
		zap.Int("cost", cost),
		zap.Bool("canAfford", result.CanAfford))
	return result, nil
}
