package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recipe is a sellable dish composed of ingredient lines.
type Recipe struct {
	ID                    uint                `gorm:"primaryKey" json:"id"`
	Name                  string              `gorm:"uniqueIndex;not null" json:"name"`
	Price                 decimal.Decimal     `gorm:"type:numeric(14,4);not null" json:"price"`
	FinalYieldWeightGrams decimal.NullDecimal `gorm:"type:numeric(14,4)" json:"final_yield_weight_grams"`
	ServingPortions       *int                `json:"serving_portions"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}
