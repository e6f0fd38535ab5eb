package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tale-forge/internal/database"
	"tale-forge/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	getBalanceQuery = `SELECT balance FROM user_credits WHERE user_id = $1`
	getCreditsQuery = `
        SELECT user_id, balance, lifetime_earned, lifetime_spent, updated_at
        FROM user_credits
        WHERE user_id = $1
    `
	// Условное списание: строка не обновится, если баланса не хватает.
	debitCreditsQuery = `
        UPDATE user_credits
        SET balance = balance - $1, lifetime_spent = lifetime_spent + $1, updated_at = NOW()
        WHERE user_id = $2 AND balance >= $1
        RETURNING balance
    `
	grantCreditsQuery = `
        INSERT INTO user_credits (user_id, balance, lifetime_earned, lifetime_spent, updated_at)
        VALUES ($1, $2, $2, 0, NOW())
        ON CONFLICT (user_id) DO UPDATE SET
            balance = user_credits.balance + EXCLUDED.balance,
            lifetime_earned = user_credits.lifetime_earned + EXCLUDED.lifetime_earned,
            updated_at = NOW()
        RETURNING balance
    `
	insertTransactionQuery = `
        INSERT INTO credit_transactions
            (id, user_id, amount, balance_after, description, reference_type, reference_id, created_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	listTransactionsQuery = `
        SELECT id, user_id, amount, balance_after, description, reference_type, reference_id, created_at
        FROM credit_transactions
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3
    `
)

var _ CreditRepository = (*pgCreditRepository)(nil)

type pgCreditRepository struct {
	db     database.DBTX
	logger *zap.Logger
}

func NewPgCreditRepository(db database.DBTX, logger *zap.Logger) CreditRepository {
	return &pgCreditRepository{
		db:     db,
		logger: logger.Named("PgCreditRepo"),
	}
}

// GetBalance returns 0 for users without a credits row.
func (r *pgCreditRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := r.db.QueryRow(ctx, getBalanceQuery, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		r.logger.Error("Failed to get balance", zap.String("userID", userID.String()), zap.Error(err))
		return 0, fmt.Errorf("failed to get balance for user %s: %w", userID, err)
	}
	return balance, nil
}

// GetCredits returns a zero record for users without a credits row.
func (r *pgCreditRepository) GetCredits(ctx context.Context, userID uuid.UUID) (*models.UserCredits, error) {
	var credits models.UserCredits
	if err := pgxscan.Get(ctx, r.db, &credits, getCreditsQuery, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &models.UserCredits{UserID: userID}, nil
		}
		r.logger.Error("Failed to get credits", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get credits for user %s: %w", userID, err)
	}
	return &credits, nil
}

// Debit atomically subtracts amount and returns the new balance.
// ErrInsufficientCredits when the balance is too low or the row is missing.
func (r *pgCreditRepository) Debit(ctx context.Context, querier database.DBTX, userID uuid.UUID, amount int) (int, error) {
	var balance int
	err := querier.QueryRow(ctx, debitCreditsQuery, amount, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isCheckViolation(err) {
			r.logger.Warn("Debit rejected", zap.String("userID", userID.String()), zap.Int("amount", amount))
			return 0, models.ErrInsufficientCredits
		}
		r.logger.Error("Failed to debit credits", zap.String("userID", userID.String()), zap.Error(err))
		return 0, fmt.Errorf("failed to debit credits for user %s: %w", userID, err)
	}
	return balance, nil
}

// Grant adds amount to balance and lifetime_earned, creating the row if needed.
func (r *pgCreditRepository) Grant(ctx context.Context, querier database.DBTX, userID uuid.UUID, amount int) (int, error) {
	var balance int
	if err := querier.QueryRow(ctx, grantCreditsQuery, userID, amount).Scan(&balance); err != nil {
		r.logger.Error("Failed to grant credits", zap.String("userID", userID.String()), zap.Error(err))
		return 0, fmt.Errorf("failed to grant credits to user %s: %w", userID, err)
	}
	return balance, nil
}

func (r *pgCreditRepository) InsertTransaction(ctx context.Context, querier database.DBTX, entry *models.CreditTransaction) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := querier.Exec(ctx, insertTransactionQuery,
		entry.ID,
		entry.UserID,
		entry.Amount,
		entry.BalanceAfter,
		entry.Description,
		entry.ReferenceType,
		entry.ReferenceID,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert ledger entry", zap.String("userID", entry.UserID.String()), zap.Error(err))
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

func (r *pgCreditRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.CreditTransaction, error) {
	entries := make([]models.CreditTransaction, 0)
	if err := pgxscan.Select(ctx, r.db, &entries, listTransactionsQuery, userID, limit, offset); err != nil {
		r.logger.Error("Failed to list ledger entries", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list ledger entries for user %s: %w", userID, err)
	}
	return entries, nil
}
