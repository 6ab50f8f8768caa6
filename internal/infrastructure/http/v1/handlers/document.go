package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/id"
	"belegwerk/internal/domain"
	"belegwerk/internal/domain/approval"
	"belegwerk/internal/domain/documents/document"
	"belegwerk/internal/domain/extraction"
	"belegwerk/internal/infrastructure/http/v1/dto"
)

// DocumentHandler serves document CRUD, status transitions and extraction.
type DocumentHandler struct {
	*BaseHandler
	service    *document.Service
	approval   *approval.Engine
	extraction *extraction.Service
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(base *BaseHandler, service *document.Service, engine *approval.Engine, extractionSvc *extraction.Service) *DocumentHandler {
	return &DocumentHandler{
		BaseHandler: base,
		service:     service,
		approval:    engine,
		extraction:  extractionSvc,
	}
}

// List handles GET /documents.
func (h *DocumentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := document.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.Query("orderBy")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"
	filter.Kind = document.Kind(c.Query("kind"))
	filter.Status = document.Status(c.Query("status"))

	if supplierID := c.Query("supplierId"); supplierID != "" {
		parsed, err := id.Parse(supplierID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid supplierId format"))
			return
		}
		filter.SupplierID = &parsed
	}

	if from := c.Query("dateFrom"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateFrom, expected YYYY-MM-DD"))
			return
		}
		filter.DateFrom = &t
	}

	if to := c.Query("dateTo"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateTo, expected YYYY-MM-DD"))
			return
		}
		filter.DateTo = &t
	}

	docs, total, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.DocumentResponse, len(docs))
	for i, d := range docs {
		items[i] = dto.FromDocument(d)
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// Create handles POST /documents.
func (h *DocumentHandler) Create(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc := req.ToDocument()
	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromDocument(doc))
}

// Get handles GET /documents/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDocument(doc))
}

// Update handles PUT /documents/:id.
func (h *DocumentHandler) Update(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.UpdateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.Apply(doc)
	if err := h.service.Update(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	updated, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDocument(updated))
}

// Delete handles DELETE /documents/:id.
func (h *DocumentHandler) Delete(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// TransitionStatus handles POST /documents/:id/status.
// Approval side effects (stock updates, spending, detector tasks) run
// inside the transition transaction.
func (h *DocumentHandler) TransitionStatus(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.TransitionStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.approval.TransitionStatus(c.Request.Context(), docID, document.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDocument(doc))
}

// Extract handles POST /documents/extract.
// Runs AI extraction on an uploaded file and creates an analyzed document
// from the result. Extraction failure is reported without persisting.
func (h *DocumentHandler) Extract(c *gin.Context) {
	var req dto.ExtractRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, result, err := h.extraction.IngestFile(c.Request.Context(), req.FileID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error":   result.Error,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"document": dto.FromDocument(doc),
	})
}
