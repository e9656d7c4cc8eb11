package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"platecost/internal/cost"
)

// Ingredient is a purchasable raw material whose cost is normalised to one standard unit.
type Ingredient struct {
	ID                          uint            `gorm:"primaryKey" json:"id"`
	Name                        string          `gorm:"uniqueIndex;not null" json:"name"`
	StandardMeasurementUnit     string          `gorm:"type:varchar(16);not null" json:"standard_measurement_unit"`
	PurchasePackPrice           decimal.Decimal `gorm:"type:numeric(14,4);not null;check:chk_ingredients_pack_price,purchase_pack_price >= 0" json:"purchase_pack_price"`
	PackQuantityInStandardUnits decimal.Decimal `gorm:"type:numeric(14,4);not null;check:chk_ingredients_pack_quantity,pack_quantity_in_standard_units > 0" json:"pack_quantity_in_standard_units"`
	CostPerStandardUnit         decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"cost_per_standard_unit"`
	CreatedAt                   time.Time       `json:"created_at"`
	UpdatedAt                   time.Time       `json:"updated_at"`
}

// Reprice is the only write path for the pack price and quantity. It keeps
// CostPerStandardUnit consistent with the two values it is derived from.
func (i *Ingredient) Reprice(purchasePackPrice, packQuantity decimal.Decimal) error {
	unitCost, err := cost.PerStandardUnit(purchasePackPrice, packQuantity)
	if err != nil {
		return err
	}
	i.PurchasePackPrice = purchasePackPrice
	i.PackQuantityInStandardUnits = packQuantity
	i.CostPerStandardUnit = unitCost
	return nil
}

// BeforeSave recomputes the derived unit cost on every create and update issued with an
// Ingredient value. Column-map updates that skip the pricing inputs are rejected here.
func (i *Ingredient) BeforeSave(tx *gorm.DB) error {
	if err := i.Reprice(i.PurchasePackPrice, i.PackQuantityInStandardUnits); err != nil {
		return fmt.Errorf("ingredient %q: %w", i.Name, err)
	}
	return nil
}
