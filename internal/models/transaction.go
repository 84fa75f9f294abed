package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types.
const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

// Transaction is a single income or expense entry.
type Transaction struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"-"`
	Type      string    `gorm:"size:10" json:"type"`
	Amount    float64   `gorm:"type:numeric(12,2)" json:"amount"`
	Currency  string    `gorm:"size:3" json:"currency"`
	Category  string    `gorm:"size:100" json:"category"`
	Note      string    `gorm:"type:text" json:"note,omitempty"`
	Date      time.Time `gorm:"index" json:"date"`
	Recurring bool      `json:"recurring"`
}
