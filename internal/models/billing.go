package models

import (
	"time"

	"github.com/google/uuid"
)

// BillingCustomer maps an internal user to the payment provider's customer.
type BillingCustomer struct {
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	StripeCustomerID string    `json:"stripe_customer_id" db:"stripe_customer_id"`
	AudioEnabled     bool      `json:"audio_enabled" db:"audio_enabled"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
