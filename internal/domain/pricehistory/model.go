// Package pricehistory implements the append-only register of observed
// unit prices per product name and supplier. The price-change detector
// compares each new invoice line against the latest record here.
package pricehistory

import (
	"time"

	"belegwerk/internal/core/id"
	"belegwerk/internal/core/types"
)

// Record is one observed price point. Keyed by the raw product name (not
// the catalog product) so price tracking works for items the catalog has
// never seen.
type Record struct {
	ID           id.ID          `db:"id" json:"id"`
	ProductName  string         `db:"product_name" json:"productName"`
	SupplierID   id.ID          `db:"supplier_id" json:"supplierId"`
	UnitPrice    types.Money    `db:"unit_price" json:"unitPrice"`
	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	Unit         string         `db:"unit" json:"unit"`
	DocumentID   id.ID          `db:"document_id" json:"documentId"`
	DocumentDate time.Time      `db:"document_date" json:"documentDate"`
	RecordedAt   time.Time      `db:"recorded_at" json:"recordedAt"`
}

// NewRecord creates a price point for an invoice line.
func NewRecord(productName string, supplierID id.ID, unitPrice types.Money, qty types.Quantity, unit string, documentID id.ID, documentDate time.Time) *Record {
	return &Record{
		ID:           id.New(),
		ProductName:  productName,
		SupplierID:   supplierID,
		UnitPrice:    unitPrice,
		Quantity:     qty,
		Unit:         unit,
		DocumentID:   documentID,
		DocumentDate: documentDate,
		RecordedAt:   time.Now().UTC(),
	}
}
