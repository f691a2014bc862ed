package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"buildplus/internal/domain/datadeletion"
	"buildplus/internal/infrastructure/http/v1/dto"
)

// DeletionService is the part of datadeletion.Service the handler uses.
type DeletionService interface {
	Counts(ctx context.Context, companyID string) (map[string]int64, error)
	Validate(ctx context.Context, companyID string, categories []string) (*datadeletion.ValidationResult, error)
	Delete(ctx context.Context, companyID string, categories []string) (*datadeletion.DeletionReport, error)
	History(ctx context.Context, companyID string, limit int) ([]datadeletion.AuditRecord, error)
}

// DataDeletionHandler serves the admin data deletion endpoints.
type DataDeletionHandler struct {
	*BaseHandler
	service DeletionService
}

// NewDataDeletionHandler creates the handler.
func NewDataDeletionHandler(service DeletionService) *DataDeletionHandler {
	return &DataDeletionHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Counts returns row counts per category.
// GET /api/admin/data-deletion/counts
func (h *DataDeletionHandler) Counts(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	counts, err := h.service.Counts(c.Request.Context(), companyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, counts)
}

// Validate checks a deletion plan without changing data.
// POST /api/admin/data-deletion/validate
func (h *DataDeletionHandler) Validate(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.DeletionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Validate(c.Request.Context(), companyID, req.Categories)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, dto.FromValidationResult(result))
}

// Delete executes a deletion plan.
// POST /api/admin/data-deletion/delete
func (h *DataDeletionHandler) Delete(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var req dto.DeletionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	report, err := h.service.Delete(c.Request.Context(), companyID, req.Categories)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, dto.FromDeletionReport(report))
}

// History lists recent committed deletions.
// GET /api/admin/data-deletion/history
func (h *DataDeletionHandler) History(c *gin.Context) {
	companyID, ok := h.CompanyID(c)
	if !ok {
		return
	}

	var q dto.HistoryQuery
	if !h.BindQuery(c, &q) {
		return
	}

	recs, err := h.service.History(c.Request.Context(), companyID, q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, dto.FromAuditRecords(recs))
}
