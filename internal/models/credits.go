package models

import (
	"time"

	"github.com/google/uuid"
)

type UserCredits struct {
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	Balance        int       `json:"balance" db:"balance"`
	LifetimeEarned int       `json:"lifetime_earned" db:"lifetime_earned"`
	LifetimeSpent  int       `json:"lifetime_spent" db:"lifetime_spent"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Reference types recorded on ledger entries.
const (
	ReferenceTypeStory = "story"
	ReferenceTypeGrant = "grant"
)

// CreditTransaction is an append-only ledger entry. Amount is signed:
// negative for charges, positive for grants and purchases.
type CreditTransaction struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	Amount        int        `json:"amount" db:"amount"`
	BalanceAfter  int        `json:"balance_after" db:"balance_after"`
	Description   string     `json:"description" db:"description"`
	ReferenceType *string    `json:"reference_type,omitempty" db:"reference_type"`
	ReferenceID   *uuid.UUID `json:"reference_id,omitempty" db:"reference_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
