package datadeletion

import (
	"context"
	"fmt"

	"buildplus/internal/core/id"
	"buildplus/pkg/logger"
)

// executePlan deletes the plan's categories in dependency order. It must run
// inside a transaction: a failure part way leaves earlier statements to be
// rolled back by the caller.
func executePlan(ctx context.Context, store Store, companyID string, plan Plan) (*DeletionReport, error) {
	report := &DeletionReport{
		Deleted: make(map[string]int64, len(plan.Requested())),
		Cleared: make(map[string]int64),
	}
	for _, key := range plan.Requested() {
		report.Deleted[key] = 0
	}

	for _, c := range plan.Order() {
		n, err := deleteCategory(ctx, store, companyID, c, plan, report.Cleared)
		if err != nil {
			return nil, fmt.Errorf("delete %s: %w", c, err)
		}
		report.Deleted[string(c)] = n
		logger.Debug(ctx, "category deleted", "category", c, "rows", n)
	}

	return report, nil
}

// deleteCategory runs the four steps for one category: resolve ids, clear
// soft references from unselected categories, delete owned rows bottom-up,
// delete the category's own rows.
func deleteCategory(ctx context.Context, store Store, companyID string, c Category, plan Plan, cleared map[string]int64) (int64, error) {
	def, ok := DefinitionOf(c)
	if !ok {
		return 0, fmt.Errorf("no definition for category %q", c)
	}

	ids := make(map[string][]id.ID, len(def.Children)+1)

	rootIDs, err := store.ResolveIDs(ctx, companyID, def.Root)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", def.Root.Name, err)
	}
	ids[def.Root.Name] = rootIDs

	for _, child := range def.Children {
		_, parent := child.Parent()
		parentIDs := ids[parent]
		if len(parentIDs) == 0 {
			continue
		}
		childIDs, err := store.ChildIDs(ctx, child, parentIDs)
		if err != nil {
			return 0, fmt.Errorf("resolve %s: %w", child.Name, err)
		}
		ids[child.Name] = childIDs
	}

	for _, r := range rulesInto(c) {
		if r.Kind != SoftClear || plan.Has(r.Dependent) {
			continue
		}
		targets := ids[r.Ref.Target.Name]
		if len(targets) == 0 {
			continue
		}
		n, err := store.ClearReferences(ctx, companyID, r.Ref, targets)
		if err != nil {
			return 0, fmt.Errorf("clear %s.%s: %w", r.Ref.Table.Name, r.Ref.Column, err)
		}
		if n > 0 {
			cleared[r.Ref.Table.Name+"."+r.Ref.Column] += n
		}
	}

	for i := len(def.Children) - 1; i >= 0; i-- {
		child := def.Children[i]
		childIDs := ids[child.Name]
		if len(childIDs) == 0 {
			continue
		}
		if _, err := store.DeleteRows(ctx, child, childIDs); err != nil {
			return 0, fmt.Errorf("delete %s: %w", child.Name, err)
		}
	}

	if len(rootIDs) == 0 {
		return 0, nil
	}
	n, err := store.DeleteRows(ctx, def.Root, rootIDs)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", def.Root.Name, err)
	}
	return n, nil
}
