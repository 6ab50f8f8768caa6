package dto

import (
	"time"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/types"
	"belegwerk/internal/domain/documents/document"
)

// --- Requests ---

// DocumentItemRequest is one line of a create/update request.
type DocumentItemRequest struct {
	Name       string         `json:"name" binding:"required"`
	Quantity   types.Quantity `json:"quantity"`
	Unit       string         `json:"unit"`
	UnitPrice  types.Money    `json:"unitPrice"`
	TotalPrice types.Money    `json:"totalPrice"`
}

// CreateDocumentRequest creates a document with its items.
type CreateDocumentRequest struct {
	Kind          string                `json:"kind" binding:"required"`
	FileID        string                `json:"fileId"`
	InvoiceNumber string                `json:"invoiceNumber"`
	SupplierName  string                `json:"supplierName" binding:"required"`
	DocumentDate  time.Time             `json:"documentDate" binding:"required"`
	DueDate       *time.Time            `json:"dueDate"`
	NetAmount     types.Money           `json:"netAmount"`
	TaxAmount     types.Money           `json:"taxAmount"`
	TotalAmount   types.Money           `json:"totalAmount"`
	Items         []DocumentItemRequest `json:"items"`
}

// ToDocument maps the request to a new domain document.
func (r *CreateDocumentRequest) ToDocument() *document.Document {
	doc := document.NewDocument(document.Kind(r.Kind))
	doc.FileID = r.FileID
	doc.InvoiceNumber = r.InvoiceNumber
	doc.SupplierName = r.SupplierName
	doc.DocumentDate = r.DocumentDate
	doc.DueDate = r.DueDate
	doc.NetAmount = r.NetAmount
	doc.TaxAmount = r.TaxAmount
	doc.TotalAmount = r.TotalAmount
	doc.Items = mapItems(r.Items)
	return doc
}

// UpdateDocumentRequest replaces document content. Version is required
// for optimistic locking.
type UpdateDocumentRequest struct {
	InvoiceNumber *string               `json:"invoiceNumber"`
	SupplierName  *string               `json:"supplierName"`
	DocumentDate  *time.Time            `json:"documentDate"`
	DueDate       *time.Time            `json:"dueDate"`
	NetAmount     *types.Money          `json:"netAmount"`
	TaxAmount     *types.Money          `json:"taxAmount"`
	TotalAmount   *types.Money          `json:"totalAmount"`
	Items         []DocumentItemRequest `json:"items"`
	Version       int                   `json:"version" binding:"required,min=1"`
}

// Apply merges the request into an existing document.
func (r *UpdateDocumentRequest) Apply(doc *document.Document) {
	if r.InvoiceNumber != nil {
		doc.InvoiceNumber = *r.InvoiceNumber
	}
	if r.SupplierName != nil {
		doc.SupplierName = *r.SupplierName
	}
	if r.DocumentDate != nil {
		doc.DocumentDate = *r.DocumentDate
	}
	if r.DueDate != nil {
		doc.DueDate = r.DueDate
	}
	if r.NetAmount != nil {
		doc.NetAmount = *r.NetAmount
	}
	if r.TaxAmount != nil {
		doc.TaxAmount = *r.TaxAmount
	}
	if r.TotalAmount != nil {
		doc.TotalAmount = *r.TotalAmount
	}
	if r.Items != nil {
		doc.Items = mapItems(r.Items)
	}
	doc.Version = r.Version
}

func mapItems(items []DocumentItemRequest) []document.Item {
	mapped := make([]document.Item, len(items))
	for i, item := range items {
		mapped[i] = document.Item{
			LineNo:     i + 1,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Unit:       item.Unit,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		}
	}
	return mapped
}

// TransitionStatusRequest changes document status.
type TransitionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Validate checks the target status is a known one.
func (r *TransitionStatusRequest) Validate() error {
	if !document.ValidStatus(document.Status(r.Status)) {
		return apperror.NewValidation("unknown document status").
			WithDetail("field", "status").
			WithDetail("value", r.Status)
	}
	return nil
}

// ExtractRequest triggers AI extraction for an uploaded file.
type ExtractRequest struct {
	FileID string `json:"fileId" binding:"required"`
}

// --- Responses ---

// DocumentItemResponse is one document line.
type DocumentItemResponse struct {
	ID         string         `json:"id"`
	LineNo     int            `json:"lineNo"`
	Name       string         `json:"name"`
	Quantity   types.Quantity `json:"quantity"`
	Unit       string         `json:"unit"`
	UnitPrice  types.Money    `json:"unitPrice"`
	TotalPrice types.Money    `json:"totalPrice"`
}

// DocumentResponse contains document fields.
type DocumentResponse struct {
	ID            string                 `json:"id"`
	Version       int                    `json:"version"`
	Kind          string                 `json:"kind"`
	Status        string                 `json:"status"`
	FileID        string                 `json:"fileId,omitempty"`
	InvoiceNumber string                 `json:"invoiceNumber,omitempty"`
	SupplierName  string                 `json:"supplierName"`
	SupplierID    *string                `json:"supplierId,omitempty"`
	DocumentDate  time.Time              `json:"documentDate"`
	DueDate       *time.Time             `json:"dueDate,omitempty"`
	NetAmount     types.Money            `json:"netAmount"`
	TaxAmount     types.Money            `json:"taxAmount"`
	TotalAmount   types.Money            `json:"totalAmount"`
	Items         []DocumentItemResponse `json:"items,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// FromDocument creates DocumentResponse from a domain document.
func FromDocument(d *document.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:            d.ID.String(),
		Version:       d.Version,
		Kind:          string(d.Kind),
		Status:        string(d.Status),
		FileID:        d.FileID,
		InvoiceNumber: d.InvoiceNumber,
		SupplierName:  d.SupplierName,
		DocumentDate:  d.DocumentDate,
		DueDate:       d.DueDate,
		NetAmount:     d.NetAmount,
		TaxAmount:     d.TaxAmount,
		TotalAmount:   d.TotalAmount,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.SupplierID != nil {
		s := d.SupplierID.String()
		resp.SupplierID = &s
	}
	if len(d.Items) > 0 {
		resp.Items = make([]DocumentItemResponse, len(d.Items))
		for i, item := range d.Items {
			resp.Items[i] = DocumentItemResponse{
				ID:         item.ID.String(),
				LineNo:     item.LineNo,
				Name:       item.Name,
				Quantity:   item.Quantity,
				Unit:       item.Unit,
				UnitPrice:  item.UnitPrice,
				TotalPrice: item.TotalPrice,
			}
		}
	}
	return resp
}
