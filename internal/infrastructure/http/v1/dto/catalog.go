package dto

import (
	"time"

	"belegwerk/internal/core/types"
	"belegwerk/internal/domain/catalogs/product"
	"belegwerk/internal/domain/catalogs/supplier"
)

// --- Suppliers ---

// SupplierResponse contains supplier fields.
type SupplierResponse struct {
	ID            string `json:"id"`
	Version       int    `json:"version"`
	DeletionMark  bool   `json:"deletionMark"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// FromSupplier creates SupplierResponse from a domain supplier.
func FromSupplier(s *supplier.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:            s.ID.String(),
		Version:       s.Version,
		DeletionMark:  s.DeletionMark,
		Code:          s.Code,
		Name:          s.Name,
		ContactPerson: s.ContactPerson,
		Phone:         s.Phone,
		Email:         s.Email,
		Address:       s.Address,
		Notes:         s.Notes,
	}
}

// CreateSupplierRequest creates a supplier.
type CreateSupplierRequest struct {
	Code          string `json:"code"`
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contactPerson"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	Notes         string `json:"notes"`
}

// ToSupplier maps the request to a new domain supplier.
func (r *CreateSupplierRequest) ToSupplier() *supplier.Supplier {
	s := supplier.NewSupplier(r.Name)
	s.Code = r.Code
	s.ContactPerson = r.ContactPerson
	s.Phone = r.Phone
	s.Email = r.Email
	s.Address = r.Address
	s.Notes = r.Notes
	return s
}

// UpdateSupplierRequest updates supplier contact details.
type UpdateSupplierRequest struct {
	Name          *string `json:"name"`
	ContactPerson *string `json:"contactPerson"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
	Notes         *string `json:"notes"`
	Version       int     `json:"version" binding:"required,min=1"`
}

// Apply merges the request into an existing supplier.
func (r *UpdateSupplierRequest) Apply(s *supplier.Supplier) {
	if r.Name != nil {
		s.Name = *r.Name
	}
	if r.ContactPerson != nil {
		s.ContactPerson = *r.ContactPerson
	}
	if r.Phone != nil {
		s.Phone = *r.Phone
	}
	if r.Email != nil {
		s.Email = *r.Email
	}
	if r.Address != nil {
		s.Address = *r.Address
	}
	if r.Notes != nil {
		s.Notes = *r.Notes
	}
	s.Version = r.Version
}

// --- Products ---

// ProductResponse contains product fields.
type ProductResponse struct {
	ID            string         `json:"id"`
	Version       int            `json:"version"`
	DeletionMark  bool           `json:"deletionMark"`
	Code          string         `json:"code"`
	Name          string         `json:"name"`
	Category      string         `json:"category"`
	Unit          string         `json:"unit,omitempty"`
	CurrentStock  types.Quantity `json:"currentStock"`
	MinStock      types.Quantity `json:"minStock"`
	AvgPrice      types.Money    `json:"avgPrice"`
	SupplierID    *string        `json:"supplierId,omitempty"`
	LastOrderDate *time.Time     `json:"lastOrderDate,omitempty"`
	LowStock      bool           `json:"lowStock"`
}

// FromProduct creates ProductResponse from a domain product.
func FromProduct(p *product.Product) ProductResponse {
	resp := ProductResponse{
		ID:            p.ID.String(),
		Version:       p.Version,
		DeletionMark:  p.DeletionMark,
		Code:          p.Code,
		Name:          p.Name,
		Category:      string(p.Category),
		Unit:          p.Unit,
		CurrentStock:  p.CurrentStock,
		MinStock:      p.MinStock,
		AvgPrice:      p.AvgPrice,
		LastOrderDate: p.LastOrderDate,
		LowStock:      p.IsLowStock(),
	}
	if p.SupplierID != nil {
		s := p.SupplierID.String()
		resp.SupplierID = &s
	}
	return resp
}

// UpdateProductRequest updates product master data.
type UpdateProductRequest struct {
	Name     *string         `json:"name"`
	Category *string         `json:"category"`
	Unit     *string         `json:"unit"`
	MinStock *types.Quantity `json:"minStock"`
	Version  int             `json:"version" binding:"required,min=1"`
}

// Apply merges the request into an existing product.
func (r *UpdateProductRequest) Apply(p *product.Product) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Category != nil {
		p.Category = product.Category(*r.Category)
	}
	if r.Unit != nil {
		p.Unit = *r.Unit
	}
	if r.MinStock != nil {
		p.MinStock = *r.MinStock
	}
	p.Version = r.Version
}

// AdjustStockRequest applies a manual stock delta.
type AdjustStockRequest struct {
	Delta types.Quantity `json:"delta"`
}
