package service

import (
	"context"
	"fmt"

	"tale-forge/internal/credits"
	"tale-forge/internal/database"
	"tale-forge/internal/models"
	"tale-forge/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EstimateInput is a story plan priced without generating anything.
type EstimateInput struct {
	Chapters        int
	WordsPerChapter int
	IncludeAudio    bool
}

type Estimate struct {
	Cost          credits.GenerationCost `json:"cost"`
	Affordability credits.Affordability  `json:"affordability"`
}

type CreditService interface {
	GetCredits(ctx context.Context, identity models.Identity) (*models.UserCredits, error)
	ListTransactions(ctx context.Context, identity models.Identity, limit, offset int) ([]models.CreditTransaction, error)
	EstimateCost(ctx context.Context, identity models.Identity, input EstimateInput) (*Estimate, error)
	// GrantCredits is admin-only.
	GrantCredits(ctx context.Context, identity models.Identity, userID uuid.UUID, amount int, description string) (*models.CreditTransaction, error)
}

type creditServiceImpl struct {
	tx        database.TxRunner
	credits   repository.CreditRepository
	customers repository.CustomerRepository
	gate      *credits.Gate
	logger    *zap.Logger
}

var _ CreditService = (*creditServiceImpl)(nil)

func NewCreditService(tx database.TxRunner, creditRepo repository.CreditRepository, customers repository.CustomerRepository, gate *credits.Gate, logger *zap.Logger) CreditService {
	return &creditServiceImpl{
		tx:        tx,
		credits:   creditRepo,
		customers: customers,
		gate:      gate,
		logger:    logger.Named("CreditService"),
	}
}

func (s *creditServiceImpl) GetCredits(ctx context.Context, identity models.Identity) (*models.UserCredits, error) {
	uc, err := s.credits.GetCredits(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrDatabase, err)
	}
	return uc, nil
}

func (s *creditServiceImpl) ListTransactions(ctx context.Context, identity models.Identity, limit, offset int) ([]models.CreditTransaction, error) {
	limit, offset = NormalizePage(limit, offset)
	entries, err := s.credits.ListTransactions(ctx, identity.UserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrDatabase, err)
	}
	if entries == nil {
		entries = []models.CreditTransaction{}
	}
	return entries, nil
}

// EstimateCost prices a plan the way Generate would and reports whether the
// caller can pay for it right now.
func (s *creditServiceImpl) EstimateCost(ctx context.Context, identity models.Identity, input EstimateInput) (*Estimate, error) {
	entitled := identity.IsAdmin()
	if input.IncludeAudio && !entitled {
		var err error
		entitled, err = s.customers.IsAudioEnabled(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: audio entitlement: %w", models.ErrDatabase, err)
		}
	}

	cost, err := credits.CalculateGenerationCost(
		credits.StoryParams{Chapters: input.Chapters, WordsPerChapter: input.WordsPerChapter},
		input.IncludeAudio, entitled)
	if err != nil {
		return nil, err
	}

	charge := cost.Total
	if identity.IsAdmin() {
		charge = 0
	}
	affordability, err := s.gate.Check(ctx, identity.UserID, charge)
	if err != nil {
		return nil, err
	}
	return &Estimate{Cost: cost, Affordability: affordability}, nil
}

func (s *creditServiceImpl) GrantCredits(ctx context.Context, identity models.Identity, userID uuid.UUID, amount int, description string) (*models.CreditTransaction, error) {
	if !identity.IsAdmin() {
		return nil, models.ErrForbidden
	}
	if amount <= 0 {
		return nil, models.NewValidationError(fmt.Sprintf("amount must be positive, got %d", amount))
	}
	if userID == uuid.Nil {
		return nil, models.NewValidationError("user_id is required")
	}
	if description == "" {
		description = fmt.Sprintf("Granted %d credit(s)", amount)
	}

	refType := models.ReferenceTypeGrant
	adminID := identity.UserID
	entry := &models.CreditTransaction{
		UserID:        userID,
		Amount:        amount,
		Description:   description,
		ReferenceType: &refType,
		ReferenceID:   &adminID,
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx database.DBTX) error {
		balance, err := s.credits.Grant(ctx, tx, userID, amount)
		if err != nil {
			return err
		}
		entry.BalanceAfter = balance
		return s.credits.InsertTransaction(ctx, tx, entry)
	})
	if err != nil {
		s.logger.Error("Credit grant failed", zap.String("userID", userID.String()), zap.Int("amount", amount), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", models.ErrDatabase, err)
	}

	creditsGranted.Add(float64(amount))
	s.logger.Info("Credits granted",
		zap.String("userID", userID.String()),
		zap.String("adminID", adminID.String()),
		zap.Int("amount", amount),
		zap.Int("balance", entry.BalanceAfter))
	return entry, nil
}
