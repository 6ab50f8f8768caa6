package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/types"
	"belegwerk/internal/domain/documents/document"
)

func validPayload() *ExtractedInvoiceData {
	return &ExtractedInvoiceData{
		Type:          "invoice",
		InvoiceNumber: "RE-2026-0815",
		SupplierName:  "Metro AG",
		DocumentDate:  "2026-03-15",
		DueDate:       "2026-04-14",
		Items: []ExtractedItem{
			{Name: "Tomaten", Quantity: types.NewQuantityFromInt(10), Unit: "kg", UnitPrice: types.MustMoney("2.50"), TotalPrice: types.MustMoney("25.00")},
			{Name: "Gurken", Quantity: types.NewQuantityFromInt(5), Unit: "kg", UnitPrice: types.MustMoney("1.20"), TotalPrice: types.MustMoney("6.00")},
		},
		NetAmount:   types.MustMoney("31.00"),
		TaxAmount:   types.MustMoney("5.89"),
		TotalAmount: types.MustMoney("36.89"),
	}
}

func TestBuildDocument(t *testing.T) {
	doc, err := BuildDocument(validPayload(), "file-123")
	require.NoError(t, err)

	assert.Equal(t, document.KindInvoice, doc.Kind)
	assert.Equal(t, document.StatusAnalyzed, doc.Status)
	assert.Equal(t, "file-123", doc.FileID)
	assert.Equal(t, "RE-2026-0815", doc.InvoiceNumber)
	assert.Equal(t, "Metro AG", doc.SupplierName)
	assert.Equal(t, 2026, doc.DocumentDate.Year())
	require.NotNil(t, doc.DueDate)
	assert.True(t, doc.TotalAmount.Equal(types.MustMoney("36.89")))

	require.Len(t, doc.Items, 2)
	assert.Equal(t, 1, doc.Items[0].LineNo)
	assert.Equal(t, 2, doc.Items[1].LineNo)
	assert.Equal(t, doc.ID, doc.Items[0].DocumentID)
}

func TestBuildDocumentRejectsUnknownKind(t *testing.T) {
	payload := validPayload()
	payload.Type = "receipt"

	_, err := BuildDocument(payload, "file-123")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestBuildDocumentRejectsBadDate(t *testing.T) {
	payload := validPayload()
	payload.DocumentDate = "15.03.2026"

	_, err := BuildDocument(payload, "file-123")
	require.Error(t, err)
}

func TestBuildDocumentToleratesBadDueDate(t *testing.T) {
	payload := validPayload()
	payload.DueDate = "not-a-date"

	doc, err := BuildDocument(payload, "file-123")
	require.NoError(t, err)
	assert.Nil(t, doc.DueDate)
}

func TestBuildDocumentAcceptsRFC3339(t *testing.T) {
	payload := validPayload()
	payload.DocumentDate = "2026-03-15T10:30:00Z"

	doc, err := BuildDocument(payload, "file-123")
	require.NoError(t, err)
	assert.Equal(t, 15, doc.DocumentDate.Day())
}
