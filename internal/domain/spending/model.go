// Package spending implements the monthly spending register. Approved
// invoices accumulate their total amount into the bucket of the
// document's calendar month.
package spending

import (
	"time"

	"belegwerk/internal/core/id"
	"belegwerk/internal/core/types"
)

// Record is the accumulated spending of one calendar month.
type Record struct {
	ID        id.ID       `db:"id" json:"id"`
	Year      int         `db:"year" json:"year"`
	Month     time.Month  `db:"month" json:"month"`
	Amount    types.Money `db:"amount" json:"amount"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
}

// Period returns the bucket key for a document date.
func Period(documentDate time.Time) (int, time.Month) {
	return documentDate.Year(), documentDate.Month()
}
