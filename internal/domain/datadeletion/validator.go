package datadeletion

import (
	"context"
	"fmt"
)

// checkMode limits which findings a validation run collects.
type checkMode int

const (
	// checkFull collects every issue; used by the validate endpoint.
	checkFull checkMode = iota
	// checkHardBlocks collects blocking issues only; used inside the deletion transaction.
	checkHardBlocks
	// checkPreconditions evaluates precondition rules only; used before the transaction.
	checkPreconditions
)

// validatePlan applies the rule table to plan for one company.
func validatePlan(ctx context.Context, store Store, companyID string, plan Plan, mode checkMode) (*ValidationResult, error) {
	res := &ValidationResult{Issues: []Issue{}}

	if mode == checkFull {
		for _, key := range plan.Unknown() {
			res.Issues = append(res.Issues, newUnknownCategory(key))
		}
	}

	for _, r := range rules {
		if !r.Applies(plan) {
			continue
		}
		switch mode {
		case checkHardBlocks:
			if r.Kind != HardBlock {
				continue
			}
		case checkPreconditions:
			if !r.Precondition {
				continue
			}
		}

		n, err := store.CountReferences(ctx, companyID, r.Ref)
		if err != nil {
			return nil, fmt.Errorf("probe %s -> %s (%s.%s): %w",
				r.Dependent, r.Dependency, r.Ref.Table.Name, r.Ref.Column, err)
		}
		if n == 0 {
			continue
		}

		if r.Kind == HardBlock {
			res.Issues = append(res.Issues, newHardBlock(r, n))
		} else {
			res.Issues = append(res.Issues, newSoftClear(r, n))
		}
	}

	if mode == checkFull {
		for _, c := range plan.Order() {
			def, _ := DefinitionOf(c)
			for _, child := range def.Children {
				n, err := store.CountRows(ctx, companyID, child)
				if err != nil {
					return nil, fmt.Errorf("count %s: %w", child.Name, err)
				}
				if n > 0 {
					res.Issues = append(res.Issues, newCascade(c, child, n))
				}
			}
		}
	}

	res.Valid = len(res.Blocking()) == 0
	return res, nil
}
