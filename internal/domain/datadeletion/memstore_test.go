package datadeletion

import (
	"context"
	"fmt"
	"sync"

	"buildplus/internal/core/id"
)

// memStore is an in-memory Store that enforces the schema's foreign keys, so
// a wrong deletion order fails the same way PostgreSQL would.
type memStore struct {
	mu     sync.Mutex
	tables map[string][]memRow
	fks    []memFK

	failDeleteOn string
	locks        []LockMode
}

type memRow struct {
	id   id.ID
	cols map[string]any
}

type memFK struct {
	table, column, target string
}

func newMemStore() *memStore {
	m := &memStore{tables: make(map[string][]memRow)}
	seen := map[memFK]bool{}
	add := func(fk memFK) {
		if !seen[fk] {
			seen[fk] = true
			m.fks = append(m.fks, fk)
		}
	}
	for _, def := range definitions {
		for _, t := range def.Tables() {
			if col, parent := t.Parent(); col != "" {
				add(memFK{table: t.Name, column: col, target: parent})
			}
		}
	}
	for _, r := range rules {
		add(memFK{table: r.Ref.Table.Name, column: r.Ref.Column, target: r.Ref.Target.Name})
	}
	return m
}

func (m *memStore) insert(table string, cols map[string]any) id.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	rowID := id.New()
	m.tables[table] = append(m.tables[table], memRow{id: rowID, cols: cols})
	return rowID
}

func (m *memStore) rows(table string) []memRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]memRow(nil), m.tables[table]...)
}

func (m *memStore) get(table string, rowID id.ID) (memRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(table, rowID)
}

func (m *memStore) find(table string, rowID id.ID) (memRow, bool) {
	for _, r := range m.tables[table] {
		if r.id == rowID {
			return r, true
		}
	}
	return memRow{}, false
}

func (m *memStore) inScope(row memRow, scope Scope, companyID string) bool {
	if len(scope.Hops) == 0 {
		return row.cols[scope.CompanyColumn] == companyID
	}
	hop := scope.Hops[0]
	ref, ok := row.cols[hop.Column].(id.ID)
	if !ok {
		return false
	}
	parent, ok := m.find(hop.Table, ref)
	if !ok {
		return false
	}
	return m.inScope(parent, scope.Rest(), companyID)
}

func (m *memStore) snapshot() map[string][]memRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]memRow, len(m.tables))
	for name, rows := range m.tables {
		cp := make([]memRow, len(rows))
		for i, r := range rows {
			cols := make(map[string]any, len(r.cols))
			for k, v := range r.cols {
				cols[k] = v
			}
			cp[i] = memRow{id: r.id, cols: cols}
		}
		out[name] = cp
	}
	return out
}

func (m *memStore) restore(snap map[string][]memRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = snap
}

func (m *memStore) LockCompany(_ context.Context, _ string, mode LockMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = append(m.locks, mode)
	return nil
}

func (m *memStore) CountRows(_ context.Context, companyID string, table Table) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.tables[table.Name] {
		if m.inScope(r, table.Scope, companyID) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountReferences(_ context.Context, companyID string, ref Reference) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.tables[ref.Table.Name] {
		if !m.inScope(r, ref.Table.Scope, companyID) {
			continue
		}
		target, ok := r.cols[ref.Column].(id.ID)
		if !ok {
			continue
		}
		if t, ok := m.find(ref.Target.Name, target); ok && m.inScope(t, ref.Target.Scope, companyID) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ResolveIDs(_ context.Context, companyID string, table Table) ([]id.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []id.ID
	for _, r := range m.tables[table.Name] {
		if m.inScope(r, table.Scope, companyID) {
			out = append(out, r.id)
		}
	}
	return out, nil
}

func (m *memStore) ChildIDs(_ context.Context, child Table, parentIDs []id.ID) ([]id.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, _ := child.Parent()
	set := idSet(parentIDs)
	var out []id.ID
	for _, r := range m.tables[child.Name] {
		if v, ok := r.cols[col].(id.ID); ok && set[v] {
			out = append(out, r.id)
		}
	}
	return out, nil
}

func (m *memStore) ClearReferences(_ context.Context, companyID string, ref Reference, targetIDs []id.ID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := idSet(targetIDs)
	var n int64
	for _, r := range m.tables[ref.Table.Name] {
		v, ok := r.cols[ref.Column].(id.ID)
		if !ok || !set[v] || !m.inScope(r, ref.Table.Scope, companyID) {
			continue
		}
		r.cols[ref.Column] = nil
		n++
	}
	return n, nil
}

func (m *memStore) DeleteRows(_ context.Context, table Table, ids []id.ID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDeleteOn == table.Name {
		return 0, fmt.Errorf("injected failure deleting %s", table.Name)
	}

	set := idSet(ids)
	for _, fk := range m.fks {
		if fk.target != table.Name {
			continue
		}
		for _, r := range m.tables[fk.table] {
			if v, ok := r.cols[fk.column].(id.ID); ok && set[v] {
				return 0, fmt.Errorf("foreign key violation: %s.%s references %s", fk.table, fk.column, table.Name)
			}
		}
	}

	kept := m.tables[table.Name][:0]
	var n int64
	for _, r := range m.tables[table.Name] {
		if set[r.id] {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.tables[table.Name] = kept
	return n, nil
}

func idSet(ids []id.ID) map[id.ID]bool {
	set := make(map[id.ID]bool, len(ids))
	for _, v := range ids {
		set[v] = true
	}
	return set
}

// memTxManager restores the store snapshot when fn fails.
type memTxManager struct {
	store     *memStore
	begun     int
	rollbacks int
}

func (t *memTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.begun++
	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		t.rollbacks++
		return err
	}
	return nil
}

func (t *memTxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memAuditor keeps audit records in memory.
type memAuditor struct {
	records []AuditRecord
}

func (a *memAuditor) RecordDeletion(_ context.Context, rec AuditRecord) error {
	a.records = append(a.records, rec)
	return nil
}

func (a *memAuditor) DeletionHistory(_ context.Context, companyID string, limit int) ([]AuditRecord, error) {
	var out []AuditRecord
	for i := len(a.records) - 1; i >= 0 && len(out) < limit; i-- {
		if a.records[i].CompanyID == companyID {
			out = append(out, a.records[i])
		}
	}
	return out, nil
}
