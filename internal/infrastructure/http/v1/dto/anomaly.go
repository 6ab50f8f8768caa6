package dto

import (
	"time"

	"belegwerk/internal/domain/anomaly"
)

// AnomalyResponse contains anomaly fields.
type AnomalyResponse struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Severity    string     `json:"severity"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DocumentID  *string    `json:"documentId,omitempty"`
	ProductID   *string    `json:"productId,omitempty"`
	SupplierID  *string    `json:"supplierId,omitempty"`
	DetectedAt  time.Time  `json:"detectedAt"`
	Resolved    bool       `json:"resolved"`
	ResolvedBy  string     `json:"resolvedBy,omitempty"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

// FromAnomaly creates AnomalyResponse from a domain anomaly.
func FromAnomaly(a *anomaly.Anomaly) AnomalyResponse {
	resp := AnomalyResponse{
		ID:          a.ID.String(),
		Type:        string(a.Type),
		Severity:    string(a.Severity),
		Title:       a.Title,
		Description: a.Description,
		DetectedAt:  a.DetectedAt,
		Resolved:    a.Resolved,
		ResolvedBy:  a.ResolvedBy,
		ResolvedAt:  a.ResolvedAt,
	}
	if a.DocumentID != nil {
		s := a.DocumentID.String()
		resp.DocumentID = &s
	}
	if a.ProductID != nil {
		s := a.ProductID.String()
		resp.ProductID = &s
	}
	if a.SupplierID != nil {
		s := a.SupplierID.String()
		resp.SupplierID = &s
	}
	return resp
}
