package datadeletion

import (
	"context"
	"encoding/json"
	"time"

	"buildplus/internal/core/id"
)

// LockMode selects the per-company lock taken inside a transaction.
type LockMode int

const (
	// LockShared lets readers (counts, validation) run together but wait for a delete.
	LockShared LockMode = iota + 1
	// LockExclusive serializes deletes of one company.
	LockExclusive
)

// Store is the storage the orchestrator drives. Every method that takes a
// companyID restricts itself to that company's rows through the table scope.
// Implementations pick the transaction up from ctx.
type Store interface {
	// LockCompany takes a transaction-scoped lock on the company.
	LockCompany(ctx context.Context, companyID string, mode LockMode) error

	// CountRows counts the company's rows in table.
	CountRows(ctx context.Context, companyID string, table Table) (int64, error)

	// CountReferences counts the company's rows of ref.Table whose ref.Column
	// points at one of the company's ref.Target rows.
	CountReferences(ctx context.Context, companyID string, ref Reference) (int64, error)

	// ResolveIDs returns the ids of the company's rows in table.
	ResolveIDs(ctx context.Context, companyID string, table Table) ([]id.ID, error)

	// ChildIDs returns ids of child rows whose parent column is in parentIDs.
	ChildIDs(ctx context.Context, child Table, parentIDs []id.ID) ([]id.ID, error)

	// ClearReferences nulls ref.Column on the company's ref.Table rows that
	// point at targetIDs and returns the number of rows updated.
	ClearReferences(ctx context.Context, companyID string, ref Reference, targetIDs []id.ID) (int64, error)

	// DeleteRows removes rows of table by id and returns the number removed.
	DeleteRows(ctx context.Context, table Table, ids []id.ID) (int64, error)
}

// AuditRecord is written once per committed deletion.
type AuditRecord struct {
	ID         id.ID           `json:"id"`
	CompanyID  string          `json:"companyId"`
	UserID     string          `json:"userId"`
	Categories []string        `json:"categories"`
	Report     json.RawMessage `json:"report"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Auditor persists deletion history inside the deletion transaction.
type Auditor interface {
	RecordDeletion(ctx context.Context, rec AuditRecord) error
	DeletionHistory(ctx context.Context, companyID string, limit int) ([]AuditRecord, error)
}
