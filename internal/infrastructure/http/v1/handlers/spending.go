package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/domain/spending"
	"belegwerk/internal/infrastructure/http/v1/dto"
)

// SpendingHandler serves the monthly spending register.
type SpendingHandler struct {
	*BaseHandler
	service *spending.Service
}

// NewSpendingHandler creates a new spending handler.
func NewSpendingHandler(base *BaseHandler, service *spending.Service) *SpendingHandler {
	return &SpendingHandler{BaseHandler: base, service: service}
}

// Month handles GET /spending/:year/:month.
// Months with no approved invoices return a zero-amount bucket.
func (h *SpendingHandler) Month(c *gin.Context) {
	year := h.parsePathInt(c, "year")
	month := h.parsePathInt(c, "month")
	if c.IsAborted() {
		return
	}

	rec, err := h.service.Month(c.Request.Context(), year, time.Month(month))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSpending(rec))
}

// Year handles GET /spending/:year.
func (h *SpendingHandler) Year(c *gin.Context) {
	year := h.parsePathInt(c, "year")
	if c.IsAborted() {
		return
	}

	records, err := h.service.Year(c.Request.Context(), year)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.SpendingResponse, len(records))
	for i, rec := range records {
		items[i] = dto.FromSpending(rec)
	}

	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: int64(len(items)),
		Limit:      len(items),
	})
}

func (h *SpendingHandler) parsePathInt(c *gin.Context, key string) int {
	val, err := strconv.Atoi(c.Param(key))
	if err != nil || val <= 0 {
		h.Error(c, apperror.NewValidation("invalid "+key).WithDetail(key, c.Param(key)))
		return 0
	}
	return val
}
