package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense represents a single monetary event owned by a user. Amount is held
// as a decimal so that summaries stay exact for currency values.
type Expense struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category"`
	Description string          `json:"description,omitempty"`
	Date        Date            `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}
