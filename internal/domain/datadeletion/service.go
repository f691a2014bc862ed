package datadeletion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"buildplus/internal/core/apperror"
	appctx "buildplus/internal/core/context"
	"buildplus/internal/core/id"
	"buildplus/internal/core/lock"
	"buildplus/internal/core/tenant"
	"buildplus/internal/core/tx"
	"buildplus/pkg/logger"
)

var tracer = otel.Tracer("buildplus/datadeletion")

// ServiceConfig configures the deletion service.
type ServiceConfig struct {
	Store Store

	// Auditor is optional; when set every committed deletion is recorded.
	Auditor Auditor

	// TxManager is optional; when nil it is taken from the request context.
	TxManager tx.Manager

	// Now is used for audit timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Service validates and executes deletion plans.
//
// Delete requests for the same company are serialized twice: by an
// in-process keyed mutex, and by the store's transaction-scoped company lock
// so that several API instances agree as well.
type Service struct {
	store     Store
	auditor   Auditor
	txManager tx.Manager
	locks     *lock.Keyed
	now       func() time.Time
}

// NewService creates the deletion service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:     cfg.Store,
		auditor:   cfg.Auditor,
		txManager: cfg.TxManager,
		locks:     lock.NewKeyed(),
		now:       now,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// Counts returns the number of root rows per category for the company.
func (s *Service) Counts(ctx context.Context, companyID string) (map[string]int64, error) {
	if companyID == "" {
		return nil, apperror.NewTenantRequired()
	}
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	counts := make(map[string]int64, len(definitions))
	err = txm.ReadOnly(ctx, func(ctx context.Context) error {
		if err := s.store.LockCompany(ctx, companyID, LockShared); err != nil {
			return fmt.Errorf("lock company: %w", err)
		}
		for _, def := range definitions {
			n, err := s.store.CountRows(ctx, companyID, def.Root)
			if err != nil {
				return fmt.Errorf("count %s: %w", def.Category, err)
			}
			counts[string(def.Category)] = n
		}
		return nil
	})
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return counts, nil
}

// Validate runs every rule against the company's data without changing it.
func (s *Service) Validate(ctx context.Context, companyID string, categories []string) (*ValidationResult, error) {
	plan, err := s.newPlan(companyID, categories)
	if err != nil {
		return nil, err
	}
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	var res *ValidationResult
	err = txm.ReadOnly(ctx, func(ctx context.Context) error {
		if err := s.store.LockCompany(ctx, companyID, LockShared); err != nil {
			return fmt.Errorf("lock company: %w", err)
		}
		var err error
		res, err = validatePlan(ctx, s.store, companyID, plan, checkFull)
		return err
	})
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return res, nil
}

// Delete executes the plan in one transaction. Hard blocks are re-checked
// inside the transaction regardless of any earlier Validate call.
func (s *Service) Delete(ctx context.Context, companyID string, categories []string) (*DeletionReport, error) {
	plan, err := s.newPlan(companyID, categories)
	if err != nil {
		return nil, err
	}
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	ctx, span := tracer.Start(ctx, "datadeletion.Delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("company.id", companyID),
		attribute.StringSlice("deletion.categories", plan.Requested()),
	)

	unlock, err := s.locks.Lock(ctx, companyID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("wait for company lock: %w", err))
	}
	defer unlock()

	pre, err := validatePlan(ctx, s.store, companyID, plan, checkPreconditions)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if !pre.Valid {
		logger.Warn(ctx, "data deletion rejected by precondition", "categories", plan.Requested())
		return nil, blockedError(pre)
	}

	logger.Info(ctx, "data deletion started", "categories", plan.Requested())

	var report *DeletionReport
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.LockCompany(ctx, companyID, LockExclusive); err != nil {
			return fmt.Errorf("lock company: %w", err)
		}

		check, err := validatePlan(ctx, s.store, companyID, plan, checkHardBlocks)
		if err != nil {
			return err
		}
		if !check.Valid {
			return blockedError(check)
		}

		report, err = executePlan(ctx, s.store, companyID, plan)
		if err != nil {
			return err
		}

		return s.audit(ctx, companyID, plan, report)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if apperror.HasCode(err, apperror.CodeDeletionBlocked) {
			logger.Warn(ctx, "data deletion blocked", "categories", plan.Requested(), "error", err)
			return nil, err
		}
		logger.Error(ctx, "data deletion rolled back", "categories", plan.Requested(), "error", err)
		return nil, apperror.NewDeletionFailed(err)
	}

	logger.Info(ctx, "data deletion committed", "deleted", report.Deleted, "cleared", report.Cleared)
	return report, nil
}

// History returns the most recent committed deletions for the company.
func (s *Service) History(ctx context.Context, companyID string, limit int) ([]AuditRecord, error) {
	if companyID == "" {
		return nil, apperror.NewTenantRequired()
	}
	if s.auditor == nil {
		return []AuditRecord{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	recs, err := s.auditor.DeletionHistory(ctx, companyID, limit)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return recs, nil
}

func (s *Service) newPlan(companyID string, categories []string) (Plan, error) {
	if companyID == "" {
		return Plan{}, apperror.NewTenantRequired()
	}
	plan := NewPlan(categories)
	if plan.Empty() {
		return Plan{}, apperror.NewValidation("categories must be a non-empty list")
	}
	return plan, nil
}

func (s *Service) audit(ctx context.Context, companyID string, plan Plan, report *DeletionReport) error {
	if s.auditor == nil {
		return nil
	}
	body, err := json.Marshal(map[string]any{
		"deleted": report.Deleted,
		"cleared": report.Cleared,
	})
	if err != nil {
		return fmt.Errorf("marshal audit report: %w", err)
	}
	rec := AuditRecord{
		ID:         id.New(),
		CompanyID:  companyID,
		UserID:     appctx.GetUserID(ctx),
		Categories: plan.Requested(),
		Report:     body,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.auditor.RecordDeletion(ctx, rec); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

func blockedError(res *ValidationResult) error {
	blocking := res.Blocking()
	msg := "deletion plan is blocked by dependent data"
	if len(blocking) > 0 {
		msg = blocking[0].Message
	}
	messages := make([]string, 0, len(blocking))
	for _, i := range blocking {
		messages = append(messages, i.Message)
	}
	return apperror.NewDeletionBlocked(msg).
		WithDetail("errors", messages).
		WithDetail("issues", blocking)
}
