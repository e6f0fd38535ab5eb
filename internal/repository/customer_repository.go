package repository

import (
	"context"
	"errors"
	"fmt"

	"tale-forge/internal/database"
	"tale-forge/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	getCustomerQuery = `
        SELECT user_id, stripe_customer_id, audio_enabled, created_at
        FROM billing_customers
        WHERE user_id = $1
    `
	// ON CONFLICT DO NOTHING: при гонке остается первая запись.
	createCustomerQuery = `
        INSERT INTO billing_customers (user_id, stripe_customer_id, audio_enabled, created_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (user_id) DO NOTHING
    `
	getAudioEnabledQuery = `SELECT audio_enabled FROM billing_customers WHERE user_id = $1`
	setAudioEnabledQuery = `UPDATE billing_customers SET audio_enabled = $1 WHERE user_id = $2`
)

var _ CustomerRepository = (*pgCustomerRepository)(nil)

type pgCustomerRepository struct {
	db     database.DBTX
	logger *zap.Logger
}

func NewPgCustomerRepository(db database.DBTX, logger *zap.Logger) CustomerRepository {
	return &pgCustomerRepository{
		db:     db,
		logger: logger.Named("PgCustomerRepo"),
	}
}

func (r *pgCustomerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.BillingCustomer, error) {
	var customer models.BillingCustomer
	if err := pgxscan.Get(ctx, r.db, &customer, getCustomerQuery, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get billing customer", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get billing customer for user %s: %w", userID, err)
	}
	return &customer, nil
}

func (r *pgCustomerRepository) Create(ctx context.Context, customer *models.BillingCustomer) (*models.BillingCustomer, error) {
	tag, err := r.db.Exec(ctx, createCustomerQuery, customer.UserID, customer.StripeCustomerID, customer.AudioEnabled)
	if err != nil {
		r.logger.Error("Failed to create billing customer", zap.String("userID", customer.UserID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to create billing customer for user %s: %w", customer.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Info("Billing customer already exists, using stored mapping",
			zap.String("userID", customer.UserID.String()),
			zap.String("discardedCustomerID", customer.StripeCustomerID))
	}
	return r.GetByUserID(ctx, customer.UserID)
}

// IsAudioEnabled is false for users without a billing record.
func (r *pgCustomerRepository) IsAudioEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	var enabled bool
	if err := r.db.QueryRow(ctx, getAudioEnabledQuery, userID).Scan(&enabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read audio entitlement for user %s: %w", userID, err)
	}
	return enabled, nil
}

func (r *pgCustomerRepository) SetAudioEnabled(ctx context.Context, userID uuid.UUID, enabled bool) error {
	tag, err := r.db.Exec(ctx, setAudioEnabledQuery, enabled, userID)
	if err != nil {
		return fmt.Errorf("failed to update audio entitlement for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
