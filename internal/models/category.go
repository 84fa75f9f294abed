package models

import "github.com/google/uuid"

// Category types.
const (
	CategoryIncome  = "income"
	CategoryExpense = "expense"
	CategoryBoth    = "both"
)

// Category is a user-owned transaction category.
type Category struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;index" json:"-"`
	Name   string    `gorm:"size:100" json:"name"`
	Icon   string    `gorm:"size:50" json:"icon"`
	Color  string    `gorm:"size:7" json:"color"`
	Type   string    `gorm:"size:10" json:"type"`
}
