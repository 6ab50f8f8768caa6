package handlers

import (
	"github.com/gin-gonic/gin"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/id"
	"belegwerk/internal/domain"
	"belegwerk/internal/domain/anomaly"
	"belegwerk/internal/infrastructure/http/v1/dto"
)

// AnomalyHandler serves anomaly listing and resolution.
type AnomalyHandler struct {
	*BaseHandler
	service *anomaly.Service
}

// NewAnomalyHandler creates a new anomaly handler.
func NewAnomalyHandler(base *BaseHandler, service *anomaly.Service) *AnomalyHandler {
	return &AnomalyHandler{BaseHandler: base, service: service}
}

// List handles GET /anomalies.
func (h *AnomalyHandler) List(c *gin.Context) {
	filter := anomaly.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.Query("orderBy")
	filter.Type = anomaly.Type(c.Query("type"))
	filter.Severity = anomaly.Severity(c.Query("severity"))

	if resolved := c.Query("resolved"); resolved != "" {
		val := resolved == "true"
		filter.Resolved = &val
	}

	for param, target := range map[string]**id.ID{
		"documentId": &filter.DocumentID,
		"productId":  &filter.ProductID,
		"supplierId": &filter.SupplierID,
	} {
		if raw := c.Query(param); raw != "" {
			parsed, err := id.Parse(raw)
			if err != nil {
				h.Error(c, apperror.NewValidation("invalid "+param+" format"))
				return
			}
			*target = &parsed
		}
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.AnomalyResponse, len(result.Items))
	for i, a := range result.Items {
		items[i] = dto.FromAnomaly(a)
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /anomalies/:id.
func (h *AnomalyHandler) Get(c *gin.Context) {
	anomalyID, ok := h.ParseID(c)
	if !ok {
		return
	}

	a, err := h.service.GetByID(c.Request.Context(), anomalyID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromAnomaly(a))
}

// Resolve handles POST /anomalies/:id/resolve.
// Resolution is one-way: a second call returns a business rule error.
func (h *AnomalyHandler) Resolve(c *gin.Context) {
	anomalyID, ok := h.ParseID(c)
	if !ok {
		return
	}

	a, err := h.service.Resolve(c.Request.Context(), anomalyID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromAnomaly(a))
}
