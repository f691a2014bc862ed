// Package deletion_repo is the PostgreSQL Store behind the data deletion service.
// Queries scope tenant rows by following each table's foreign-key path up to
// company_id, so child tables without a company column stay isolated too.
package deletion_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"buildplus/internal/core/id"
	"buildplus/internal/domain/datadeletion"
	"buildplus/internal/infrastructure/storage/postgres"
)

// lockNamespace keeps deletion locks apart from other advisory lock users.
const lockNamespace = "data-deletion:"

var _ datadeletion.Store = (*Repo)(nil)

// Repo implements datadeletion.Store. The TxManager is taken from context.
type Repo struct {
	advisoryLocks bool
}

// NewRepo creates the deletion repository. With advisoryLocks off, LockCompany
// is a no-op and only the service's in-process lock serializes deletes.
func NewRepo(advisoryLocks bool) *Repo {
	return &Repo{advisoryLocks: advisoryLocks}
}

func (r *Repo) querier(ctx context.Context) postgres.Querier {
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

// scopeCond restricts rows of a table with the given scope to one company.
// Each hop becomes a nested "col IN (SELECT id FROM parent WHERE ...)".
func scopeCond(scope datadeletion.Scope, companyID string) squirrel.Sqlizer {
	if len(scope.Hops) == 0 {
		return squirrel.Eq{scope.CompanyColumn: companyID}
	}
	hop := scope.Hops[0]
	parent := squirrel.Select("id").From(hop.Table).Where(scopeCond(scope.Rest(), companyID))
	return squirrel.Expr(hop.Column+" IN (?)", parent)
}

func lockQuery(companyID string, mode datadeletion.LockMode) (string, []any, error) {
	fn := "pg_advisory_xact_lock_shared"
	if mode == datadeletion.LockExclusive {
		fn = "pg_advisory_xact_lock"
	}
	return postgres.Builder().
		Select().
		Column(squirrel.Expr(fn+"(hashtextextended(?, 0))", lockNamespace+companyID)).
		ToSql()
}

func countRowsQuery(companyID string, table datadeletion.Table) (string, []any, error) {
	return postgres.Builder().
		Select("count(*)").
		From(table.Name).
		Where(scopeCond(table.Scope, companyID)).
		ToSql()
}

func countReferencesQuery(companyID string, ref datadeletion.Reference) (string, []any, error) {
	targets := squirrel.Select("id").From(ref.Target.Name).Where(scopeCond(ref.Target.Scope, companyID))
	return postgres.Builder().
		Select("count(*)").
		From(ref.Table.Name).
		Where(scopeCond(ref.Table.Scope, companyID)).
		Where(squirrel.Expr(ref.Column+" IN (?)", targets)).
		ToSql()
}

func resolveIDsQuery(companyID string, table datadeletion.Table) (string, []any, error) {
	return postgres.Builder().
		Select("id").
		From(table.Name).
		Where(scopeCond(table.Scope, companyID)).
		ToSql()
}

func childIDsQuery(child datadeletion.Table, parentIDs []id.ID) (string, []any, error) {
	col, _ := child.Parent()
	if col == "" {
		return "", nil, fmt.Errorf("table %s has no parent column", child.Name)
	}
	return postgres.Builder().
		Select("id").
		From(child.Name).
		Where(col+" = ANY(?)", parentIDs).
		ToSql()
}

func clearReferencesQuery(companyID string, ref datadeletion.Reference, targetIDs []id.ID) (string, []any, error) {
	return postgres.Builder().
		Update(ref.Table.Name).
		Set(ref.Column, squirrel.Expr("NULL")).
		Where(ref.Column+" = ANY(?)", targetIDs).
		Where(scopeCond(ref.Table.Scope, companyID)).
		ToSql()
}

func deleteRowsQuery(table datadeletion.Table, ids []id.ID) (string, []any, error) {
	return postgres.Builder().
		Delete(table.Name).
		Where("id = ANY(?)", ids).
		ToSql()
}

// LockCompany takes a transaction-scoped advisory lock keyed by company.
func (r *Repo) LockCompany(ctx context.Context, companyID string, mode datadeletion.LockMode) error {
	if !r.advisoryLocks {
		return nil
	}
	sql, args, err := lockQuery(companyID, mode)
	if err != nil {
		return fmt.Errorf("build lock: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

// CountRows counts the company's rows in table.
func (r *Repo) CountRows(ctx context.Context, companyID string, table datadeletion.Table) (int64, error) {
	sql, args, err := countRowsQuery(companyID, table)
	if err != nil {
		return 0, fmt.Errorf("build count %s: %w", table.Name, err)
	}
	var n int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table.Name, err)
	}
	return n, nil
}

// CountReferences counts ref.Table rows pointing at the company's ref.Target rows.
func (r *Repo) CountReferences(ctx context.Context, companyID string, ref datadeletion.Reference) (int64, error) {
	sql, args, err := countReferencesQuery(companyID, ref)
	if err != nil {
		return 0, fmt.Errorf("build reference count %s.%s: %w", ref.Table.Name, ref.Column, err)
	}
	var n int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count references %s.%s: %w", ref.Table.Name, ref.Column, err)
	}
	return n, nil
}

// ResolveIDs returns ids of the company's rows in table.
func (r *Repo) ResolveIDs(ctx context.Context, companyID string, table datadeletion.Table) ([]id.ID, error) {
	sql, args, err := resolveIDsQuery(companyID, table)
	if err != nil {
		return nil, fmt.Errorf("build resolve %s: %w", table.Name, err)
	}
	return r.selectIDs(ctx, sql, args)
}

// ChildIDs returns child ids whose parent column is in parentIDs.
func (r *Repo) ChildIDs(ctx context.Context, child datadeletion.Table, parentIDs []id.ID) ([]id.ID, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	sql, args, err := childIDsQuery(child, parentIDs)
	if err != nil {
		return nil, err
	}
	return r.selectIDs(ctx, sql, args)
}

// ClearReferences sets ref.Column to NULL on company rows pointing at targetIDs.
func (r *Repo) ClearReferences(ctx context.Context, companyID string, ref datadeletion.Reference, targetIDs []id.ID) (int64, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	sql, args, err := clearReferencesQuery(companyID, ref, targetIDs)
	if err != nil {
		return 0, fmt.Errorf("build clear %s.%s: %w", ref.Table.Name, ref.Column, err)
	}
	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("clear %s.%s: %w", ref.Table.Name, ref.Column, err)
	}
	return tag.RowsAffected(), nil
}

// DeleteRows deletes rows of table by id.
func (r *Repo) DeleteRows(ctx context.Context, table datadeletion.Table, ids []id.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	sql, args, err := deleteRowsQuery(table, ids)
	if err != nil {
		return 0, fmt.Errorf("build delete %s: %w", table.Name, err)
	}
	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table.Name, err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repo) selectIDs(ctx context.Context, sql string, args []any) ([]id.ID, error) {
	var ids []id.ID
	if err := pgxscan.Select(ctx, r.querier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("select ids: %w", err)
	}
	return ids, nil
}
