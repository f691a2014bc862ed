package dto

import (
	"encoding/json"
	"time"

	"buildplus/internal/domain/datadeletion"
)

// DeletionRequest is the body of the validate and delete endpoints.
type DeletionRequest struct {
	Categories []string `json:"categories" binding:"required,min=1"`
}

// ValidationResponse reports whether a plan may run. Errors and Warnings are
// display strings; Issues carries the same findings in structured form.
type ValidationResponse struct {
	Valid    bool                 `json:"valid"`
	Errors   []string             `json:"errors"`
	Warnings []string             `json:"warnings"`
	Issues   []datadeletion.Issue `json:"issues"`
}

// FromValidationResult maps the domain result to the response.
func FromValidationResult(r *datadeletion.ValidationResult) ValidationResponse {
	issues := r.Issues
	if issues == nil {
		issues = []datadeletion.Issue{}
	}
	return ValidationResponse{
		Valid:    r.Valid,
		Errors:   r.Errors(),
		Warnings: r.Warnings(),
		Issues:   issues,
	}
}

// DeletionResponse is returned after a committed deletion.
type DeletionResponse struct {
	Success bool             `json:"success"`
	Deleted map[string]int64 `json:"deleted"`
	Cleared map[string]int64 `json:"cleared"`
}

// FromDeletionReport maps the domain report to the response.
func FromDeletionReport(r *datadeletion.DeletionReport) DeletionResponse {
	cleared := r.Cleared
	if cleared == nil {
		cleared = map[string]int64{}
	}
	return DeletionResponse{Success: true, Deleted: r.Deleted, Cleared: cleared}
}

// HistoryQuery holds the history endpoint parameters.
type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// HistoryEntry is one committed deletion.
type HistoryEntry struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId,omitempty"`
	Categories []string        `json:"categories"`
	Report     json.RawMessage `json:"report"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// HistoryResponse lists recent deletions, newest first.
type HistoryResponse struct {
	Items []HistoryEntry `json:"items"`
}

// FromAuditRecords maps audit records to the history response.
func FromAuditRecords(recs []datadeletion.AuditRecord) HistoryResponse {
	items := make([]HistoryEntry, 0, len(recs))
	for _, r := range recs {
		items = append(items, HistoryEntry{
			ID:         r.ID.String(),
			UserID:     r.UserID,
			Categories: r.Categories,
			Report:     r.Report,
			CreatedAt:  r.CreatedAt,
		})
	}
	return HistoryResponse{Items: items}
}
