package datadeletion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildplus/internal/core/apperror"
	appctx "buildplus/internal/core/context"
	"buildplus/internal/core/id"
)

const (
	companyA = "0190f4c2-0000-7000-8000-00000000000a"
	companyB = "0190f4c2-0000-7000-8000-00000000000b"
)

type harness struct {
	store   *memStore
	txm     *memTxManager
	auditor *memAuditor
	svc     *Service
}

func newHarness() *harness {
	store := newMemStore()
	txm := &memTxManager{store: store}
	auditor := &memAuditor{}
	svc := NewService(ServiceConfig{
		Store:     store,
		Auditor:   auditor,
		TxManager: txm,
		Now:       func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) },
	})
	return &harness{store: store, txm: txm, auditor: auditor, svc: svc}
}

func (h *harness) job(company string) id.ID {
	return h.store.insert("jobs", map[string]any{"company_id": company})
}

func (h *harness) panel(job id.ID) id.ID {
	return h.store.insert("panel_register", map[string]any{"job_id": job})
}

func (h *harness) supplier(company string) id.ID {
	return h.store.insert("suppliers", map[string]any{"company_id": company})
}

func (h *harness) logRow(company string, job, panel any) id.ID {
	user := h.store.insert("users", map[string]any{"company_id": company})
	log := h.store.insert("daily_logs", map[string]any{"user_id": user})
	return h.store.insert("log_rows", map[string]any{"daily_log_id": log, "job_id": job, "panel_id": panel})
}

func TestValidate_SuppliersBlockedByPurchaseOrders(t *testing.T) {
	h := newHarness()
	sup := h.supplier(companyA)
	h.store.insert("purchase_orders", map[string]any{"company_id": companyA, "supplier_id": sup})
	h.store.insert("purchase_orders", map[string]any{"company_id": companyA, "supplier_id": sup})

	res, err := h.svc.Validate(context.Background(), companyA, []string{"suppliers"})
	require.NoError(t, err)

	assert.False(t, res.Valid)
	require.Len(t, res.Errors(), 1)
	assert.Contains(t, res.Errors()[0], "Cannot delete Suppliers while Purchase Orders exist")

	blocking := res.Blocking()
	require.Len(t, blocking, 1)
	assert.Equal(t, IssueHardBlock, blocking[0].Code)
	assert.Equal(t, Suppliers, blocking[0].Category)
	assert.Equal(t, PurchaseOrders, blocking[0].RelatedCategory)
	assert.Equal(t, int64(2), blocking[0].Count)
}

func TestValidate_SoftClearAndCascadeAreWarnings(t *testing.T) {
	h := newHarness()
	job := h.job(companyA)
	h.store.insert("weekly_job_reports", map[string]any{"job_id": job})
	h.store.insert("weekly_job_reports", map[string]any{"job_id": job})
	h.logRow(companyA, job, nil)

	res, err := h.svc.Validate(context.Background(), companyA, []string{"jobs"})
	require.NoError(t, err)

	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors())
	assert.Contains(t, res.Warnings(), "1 Log Rows (Daily Logs) reference Jobs; their job_id link will be cleared.")
	assert.Contains(t, res.Warnings(), "Deleting Jobs will also remove 2 Weekly Job Reports.")
	assert.Equal(t, []LockMode{LockShared}, h.store.locks)
}

func TestValidate_UnknownCategoryIsIgnored(t *testing.T) {
	h := newHarness()

	res, err := h.svc.Validate(context.Background(), companyA, []string{"widgets"})
	require.NoError(t, err)

	assert.True(t, res.Valid)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, IssueUnknownCategory, res.Issues[0].Code)
}

func TestValidate_InputErrors(t *testing.T) {
	h := newHarness()

	_, err := h.svc.Validate(context.Background(), companyA, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = h.svc.Validate(context.Background(), "", []string{"jobs"})
	assert.True(t, apperror.HasCode(err, apperror.CodeTenantRequired))

	_, err = h.svc.Delete(context.Background(), companyA, []string{})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Zero(t, h.txm.begun)
}

func TestDelete_JobsWithPanelsSlotsScenario(t *testing.T) {
	h := newHarness()
	job := h.job(companyA)
	for i := 0; i < 3; i++ {
		h.panel(job)
	}
	h.store.insert("production_slots", map[string]any{"job_id": job})
	h.store.insert("production_slots", map[string]any{"job_id": job})

	report, err := h.svc.Delete(context.Background(), companyA,
		[]string{"jobs", "panels", "production_slots", "drafting_program", "logistics"})
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{
		"jobs":             1,
		"panels":           3,
		"production_slots": 2,
		"drafting_program": 0,
		"logistics":        0,
	}, report.Deleted)
	assert.Equal(t, []LockMode{LockExclusive}, h.store.locks)
}

func TestDelete_DocumentsReferencedByContract(t *testing.T) {
	h := newHarness()
	doc := h.store.insert("documents", map[string]any{"company_id": companyA})
	h.store.insert("documents", map[string]any{"company_id": companyA})
	h.store.insert("contracts", map[string]any{"company_id": companyA, "ai_source_document_id": doc})

	_, err := h.svc.Delete(context.Background(), companyA, []string{"documents"})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDeletionBlocked, appErr.Code)
	assert.Equal(t, 400, appErr.HTTPStatus)
	assert.Contains(t, appErr.Message, "Cannot delete Documents while Contracts exist")

	assert.Zero(t, h.txm.begun, "precondition must fail before the transaction opens")
	assert.Len(t, h.store.rows("documents"), 2)
}

func TestDelete_DocumentsWithContractsSelected(t *testing.T) {
	h := newHarness()
	doc := h.store.insert("documents", map[string]any{"company_id": companyA})
	h.store.insert("document_bundle_items", map[string]any{"document_id": doc})
	h.store.insert("contracts", map[string]any{"company_id": companyA, "ai_source_document_id": doc})

	report, err := h.svc.Delete(context.Background(), companyA, []string{"documents", "contracts"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.Deleted["documents"])
	assert.Equal(t, int64(1), report.Deleted["contracts"])
	assert.Empty(t, h.store.rows("document_bundle_items"))
}

func TestDelete_AtomicOnFailure(t *testing.T) {
	h := newHarness()
	job := h.job(companyA)
	panel := h.panel(job)
	h.store.insert("panel_audit_logs", map[string]any{"panel_id": panel})
	row := h.logRow(companyA, job, panel)
	h.store.failDeleteOn = "jobs"

	_, err := h.svc.Delete(context.Background(), companyA, []string{"panels", "jobs"})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDeletionFailed, appErr.Code)
	assert.Contains(t, appErr.Message, "injected failure deleting jobs")

	assert.Equal(t, 1, h.txm.rollbacks)
	assert.Len(t, h.store.rows("panel_register"), 1)
	assert.Len(t, h.store.rows("panel_audit_logs"), 1)
	assert.Len(t, h.store.rows("jobs"), 1)

	got, ok := h.store.get("log_rows", row)
	require.True(t, ok)
	assert.Equal(t, panel, got.cols["panel_id"], "soft clear must be rolled back too")
	assert.Empty(t, h.auditor.records)
}

func TestDelete_HardBlockAgreesWithValidate(t *testing.T) {
	h := newHarness()
	job := h.job(companyA)
	h.panel(job)

	res, err := h.svc.Validate(context.Background(), companyA, []string{"jobs"})
	require.NoError(t, err)
	assert.False(t, res.Valid)

	_, err = h.svc.Delete(context.Background(), companyA, []string{"jobs"})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeDeletionBlocked))

	assert.Equal(t, 1, h.txm.rollbacks)
	assert.Len(t, h.store.rows("jobs"), 1)
	assert.Len(t, h.store.rows("panel_register"), 1)
}

func TestDelete_PanelsClearsLogRowReferences(t *testing.T) {
	h := newHarness()
	job := h.job(companyA)
	panel := h.panel(job)
	row := h.logRow(companyA, job, panel)

	report, err := h.svc.Delete(context.Background(), companyA, []string{"panels"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.Deleted["panels"])
	assert.Equal(t, int64(1), report.Cleared["log_rows.panel_id"])

	got, ok := h.store.get("log_rows", row)
	require.True(t, ok)
	assert.Nil(t, got.cols["panel_id"])
	assert.Equal(t, job, got.cols["job_id"])
}

func TestDelete_TenantIsolation(t *testing.T) {
	h := newHarness()
	jobA := h.job(companyA)
	h.panel(jobA)
	jobB := h.job(companyB)
	h.panel(jobB)
	h.panel(jobB)
	h.supplier(companyB)

	countsB, err := h.svc.Counts(context.Background(), companyB)
	require.NoError(t, err)

	report, err := h.svc.Delete(context.Background(), companyA, []string{"jobs", "panels", "suppliers"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Deleted["jobs"])
	assert.Equal(t, int64(1), report.Deleted["panels"])
	assert.Equal(t, int64(0), report.Deleted["suppliers"])

	after, err := h.svc.Counts(context.Background(), companyB)
	require.NoError(t, err)
	assert.Equal(t, countsB, after)
	assert.Equal(t, int64(2), after["panels"])
	assert.Equal(t, int64(1), after["suppliers"])
}

func TestCounts_ZeroAfterDelete(t *testing.T) {
	h := newHarness()
	job := h.job(companyA)
	h.panel(job)
	h.store.insert("production_days", map[string]any{"job_id": job})

	before, err := h.svc.Counts(context.Background(), companyA)
	require.NoError(t, err)
	assert.Len(t, before, len(AllCategories()))
	assert.Equal(t, int64(1), before["jobs"])

	_, err = h.svc.Delete(context.Background(), companyA, []string{"jobs", "panels"})
	require.NoError(t, err)

	after, err := h.svc.Counts(context.Background(), companyA)
	require.NoError(t, err)
	assert.Zero(t, after["jobs"])
	assert.Zero(t, after["panels"])
	assert.Empty(t, h.store.rows("production_days"))
}

func TestDelete_ReportHasEveryRequestedKey(t *testing.T) {
	h := newHarness()

	report, err := h.svc.Delete(context.Background(), companyA, []string{"chats", "widgets", "boq", "chats"})
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"chats": 0, "widgets": 0, "boq": 0}, report.Deleted)
}

func TestDelete_DeepCategoryTree(t *testing.T) {
	h := newHarness()
	sup := h.supplier(companyA)
	code := h.store.insert("cost_codes", map[string]any{"company_id": companyA})
	tender := h.store.insert("tenders", map[string]any{"company_id": companyA})
	sub := h.store.insert("tender_submissions", map[string]any{"tender_id": tender, "supplier_id": sup})
	line := h.store.insert("tender_line_items", map[string]any{"tender_submission_id": sub, "cost_code_id": code})
	h.store.insert("tender_line_risks", map[string]any{"line_item_id": line})
	h.store.insert("tender_line_files", map[string]any{"line_item_id": line})

	report, err := h.svc.Delete(context.Background(), companyA, []string{"tenders", "suppliers", "cost_codes"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.Deleted["tenders"])
	assert.Equal(t, int64(1), report.Deleted["suppliers"])
	assert.Equal(t, int64(1), report.Deleted["cost_codes"])
	assert.Empty(t, h.store.rows("tender_line_risks"))
	assert.Empty(t, h.store.rows("tender_line_items"))
}

func TestDelete_CostCodesClearsTenderLinesOnly(t *testing.T) {
	h := newHarness()
	code := h.store.insert("cost_codes", map[string]any{"company_id": companyA})
	tender := h.store.insert("tenders", map[string]any{"company_id": companyA})
	sub := h.store.insert("tender_submissions", map[string]any{"tender_id": tender})
	line := h.store.insert("tender_line_items", map[string]any{"tender_submission_id": sub, "cost_code_id": code})

	_, err := h.svc.Delete(context.Background(), companyA, []string{"cost_codes"})
	require.NoError(t, err)

	got, ok := h.store.get("tender_line_items", line)
	require.True(t, ok)
	assert.Nil(t, got.cols["cost_code_id"])

	budget := h.store.insert("job_budgets", map[string]any{"company_id": companyA})
	code2 := h.store.insert("cost_codes", map[string]any{"company_id": companyA})
	h.store.insert("budget_lines", map[string]any{"budget_id": budget, "cost_code_id": code2})

	_, err = h.svc.Delete(context.Background(), companyA, []string{"cost_codes"})
	assert.True(t, apperror.HasCode(err, apperror.CodeDeletionBlocked))
}

func TestDelete_WritesAuditRecord(t *testing.T) {
	h := newHarness()
	h.job(companyA)
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "user-1", CompanyID: companyA})

	_, err := h.svc.Delete(ctx, companyA, []string{"jobs"})
	require.NoError(t, err)

	require.Len(t, h.auditor.records, 1)
	rec := h.auditor.records[0]
	assert.Equal(t, companyA, rec.CompanyID)
	assert.Equal(t, "user-1", rec.UserID)
	assert.Equal(t, []string{"jobs"}, rec.Categories)
	assert.JSONEq(t, `{"deleted":{"jobs":1},"cleared":{}}`, string(rec.Report))

	history, err := h.svc.History(ctx, companyA, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	history, err = h.svc.History(ctx, companyB, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
