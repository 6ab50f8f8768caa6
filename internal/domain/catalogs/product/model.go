// Package product implements the product catalog with live stock levels,
// weighted average pricing and keyword-based category assignment.
package product

import (
	"context"
	"strings"
	"time"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/entity"
	"belegwerk/internal/core/id"
	"belegwerk/internal/core/types"
)

// Category is the closed set of product categories.
type Category string

const (
	CategoryFleisch       Category = "fleisch"
	CategoryFisch         Category = "fisch"
	CategoryGemuese       Category = "gemuese"
	CategoryObst          Category = "obst"
	CategoryMolkerei      Category = "molkereiprodukte"
	CategoryBackwaren     Category = "backwaren"
	CategoryGetraenke     Category = "getraenke"
	CategoryGewuerze      Category = "gewuerze"
	CategoryTrockenwaren  Category = "trockenwaren"
	CategoryTiefkuehlkost Category = "tiefkuehlkost"
	CategoryReinigung     Category = "reinigung"
	CategorySonstiges     Category = "sonstiges"
)

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryFleisch, CategoryFisch, CategoryGemuese, CategoryObst,
		CategoryMolkerei, CategoryBackwaren, CategoryGetraenke, CategoryGewuerze,
		CategoryTrockenwaren, CategoryTiefkuehlkost, CategoryReinigung, CategorySonstiges:
		return true
	}
	return false
}

// Product is a catalog item tracked by the receiving flow.
// Stock and average price are maintained by approved delivery notes;
// manual adjustments go through AdjustStock.
type Product struct {
	entity.Catalog

	Category      Category       `db:"category" json:"category"`
	Unit          string         `db:"unit" json:"unit"`
	CurrentStock  types.Quantity `db:"current_stock" json:"currentStock"`
	MinStock      types.Quantity `db:"min_stock" json:"minStock"`
	AvgPrice      types.Money    `db:"avg_price" json:"avgPrice"`
	SupplierID    *id.ID         `db:"supplier_id" json:"supplierId,omitempty"`
	LastOrderDate *time.Time     `db:"last_order_date" json:"lastOrderDate,omitempty"`
}

// NewFromReceipt creates a product from a delivery note line the catalog
// has never seen. Category is guessed from the name, the minimum stock is
// seeded at 30% of the first received quantity (rounded up to a whole unit).
func NewFromReceipt(name, unit string, qty types.Quantity, unitPrice types.Money, supplierID *id.ID, receivedAt time.Time) *Product {
	p := &Product{
		Catalog:      entity.NewCatalog("", strings.TrimSpace(name)),
		Category:     GuessCategory(name),
		Unit:         unit,
		CurrentStock: qty,
		MinStock:     seedMinStock(qty),
		SupplierID:   supplierID,
	}
	if unitPrice.IsPositive() {
		p.AvgPrice = unitPrice
	}
	t := receivedAt
	p.LastOrderDate = &t
	return p
}

// seedMinStock returns ceil(qty * 0.3) in whole units.
func seedMinStock(qty types.Quantity) types.Quantity {
	min := qty.Decimal().Mul(threshold30).Ceil()
	return types.NewQuantityFromDecimal(min)
}

var threshold30 = types.MustMoney("0.3")

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}
	if p.Category != "" && !ValidCategory(p.Category) {
		return apperror.NewValidation("unknown product category").
			WithDetail("field", "category").
			WithDetail("value", string(p.Category))
	}
	if p.MinStock.IsNegative() {
		return apperror.NewValidation("minimum stock cannot be negative").
			WithDetail("field", "minStock")
	}
	return nil
}

// IsLowStock reports whether the current stock is strictly below the
// minimum. Stock exactly at the minimum is not low.
func (p *Product) IsLowStock() bool {
	return p.CurrentStock < p.MinStock
}

// ApplyReceipt books a received quantity onto the product. The average
// price is recalculated as a stock-weighted average, but only when the
// receipt carries a positive unit price; zero-priced lines (unpriced
// delivery notes) adjust stock without touching the price.
func (p *Product) ApplyReceipt(qty types.Quantity, unitPrice types.Money, receivedAt time.Time) {
	oldStock := p.CurrentStock
	p.CurrentStock = p.CurrentStock.Add(qty)

	if unitPrice.IsPositive() {
		newStock := p.CurrentStock
		if newStock.IsPositive() {
			oldValue := oldStock.Decimal().Mul(p.AvgPrice)
			newValue := qty.Decimal().Mul(unitPrice)
			p.AvgPrice = oldValue.Add(newValue).Div(newStock.Decimal())
		} else {
			p.AvgPrice = unitPrice
		}
	}

	t := receivedAt
	p.LastOrderDate = &t
	p.Touch()
}

// AdjustStock applies a manual stock delta (positive or negative).
// Stock is clamped at zero: corrections cannot drive it negative.
func (p *Product) AdjustStock(delta types.Quantity) {
	p.CurrentStock = p.CurrentStock.Add(delta)
	if p.CurrentStock.IsNegative() {
		p.CurrentStock = 0
	}
	p.Touch()
}
