// Package extraction defines the AI document-extraction collaborator and
// the mapping from extracted payloads into documents. The extraction call
// itself is external: this package only consumes its structured result.
package extraction

import (
	"context"
	"strings"
	"time"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/types"
	"belegwerk/internal/domain/documents/document"
)

// ExtractedItem is one line of an extracted document.
type ExtractedItem struct {
	Name       string         `json:"name"`
	Quantity   types.Quantity `json:"quantity"`
	Unit       string         `json:"unit"`
	UnitPrice  types.Money    `json:"unitPrice"`
	TotalPrice types.Money    `json:"totalPrice"`
}

// ExtractedInvoiceData is the full payload an extraction returns. The
// deposit and fee breakdowns are carried for display; document creation
// consumes the header fields and the item lines.
type ExtractedInvoiceData struct {
	Type            string          `json:"type"`
	InvoiceNumber   string          `json:"invoiceNumber"`
	SupplierName    string          `json:"supplierName"`
	SupplierAddress string          `json:"supplierAddress"`
	DocumentDate    string          `json:"documentDate"` // ISO date
	DueDate         string          `json:"dueDate,omitempty"`
	Items           []ExtractedItem `json:"items"`
	DepositItems    []ExtractedItem `json:"depositItems,omitempty"`
	Fees            []ExtractedItem `json:"fees,omitempty"`
	ItemsTotal      types.Money     `json:"itemsTotal"`
	DepositTotal    types.Money     `json:"depositTotal"`
	FeesTotal       types.Money     `json:"feesTotal"`
	NetAmount       types.Money     `json:"netAmount"`
	TaxRate         types.Money     `json:"taxRate"`
	TaxAmount       types.Money     `json:"taxAmount"`
	TotalAmount     types.Money     `json:"totalAmount"`
}

// Result is the structured outcome of an extraction call. A failed call
// carries Error and leaves no trace in document state.
type Result struct {
	Success bool                  `json:"success"`
	Data    *ExtractedInvoiceData `json:"data,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// Analyzer is the external AI extraction collaborator.
type Analyzer interface {
	// AnalyzeDocument extracts structured data from an uploaded file.
	// Transport errors and unparseable model output surface as a
	// Result with Success=false, not as an error.
	AnalyzeDocument(ctx context.Context, fileID string) (*Result, error)
}

// BuildDocument maps an extracted payload onto a new document in
// analyzed state. Dates arrive as ISO strings; an unparseable document
// date is a validation failure, a missing due date is fine.
func BuildDocument(data *ExtractedInvoiceData, fileID string) (*document.Document, error) {
	if data == nil {
		return nil, apperror.NewValidation("extraction data is empty")
	}

	kind := document.Kind(data.Type)
	if !document.ValidKind(kind) {
		return nil, apperror.NewValidation("unknown document kind").
			WithDetail("field", "type").
			WithDetail("value", data.Type)
	}

	docDate, err := parseISODate(data.DocumentDate)
	if err != nil {
		return nil, apperror.NewValidation("invalid document date").
			WithDetail("field", "documentDate").
			WithDetail("value", data.DocumentDate)
	}

	doc := document.NewDocument(kind)
	doc.Status = document.StatusAnalyzed
	doc.FileID = fileID
	doc.InvoiceNumber = strings.TrimSpace(data.InvoiceNumber)
	doc.SupplierName = strings.TrimSpace(data.SupplierName)
	doc.DocumentDate = docDate
	doc.NetAmount = data.NetAmount
	doc.TaxAmount = data.TaxAmount
	doc.TotalAmount = data.TotalAmount

	if data.DueDate != "" {
		due, err := parseISODate(data.DueDate)
		if err == nil {
			doc.DueDate = &due
		}
	}

	for i, item := range data.Items {
		doc.Items = append(doc.Items, document.Item{
			DocumentID: doc.ID,
			LineNo:     i + 1,
			Name:       strings.TrimSpace(item.Name),
			Quantity:   item.Quantity,
			Unit:       item.Unit,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}

	return doc, nil
}

func parseISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}
