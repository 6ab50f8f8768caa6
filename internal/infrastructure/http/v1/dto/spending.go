package dto

import (
	"time"

	"belegwerk/internal/core/types"
	"belegwerk/internal/domain/spending"
)

// SpendingResponse is one monthly spending bucket.
type SpendingResponse struct {
	Year      int         `json:"year"`
	Month     int         `json:"month"`
	Amount    types.Money `json:"amount"`
	UpdatedAt time.Time   `json:"updatedAt,omitempty"`
}

// FromSpending creates SpendingResponse from a domain record.
func FromSpending(r *spending.Record) SpendingResponse {
	return SpendingResponse{
		Year:      r.Year,
		Month:     int(r.Month),
		Amount:    r.Amount,
		UpdatedAt: r.UpdatedAt,
	}
}
