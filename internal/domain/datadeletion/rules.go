package datadeletion

import (
	"fmt"
	"sort"
)

// Kind says how a dependency is resolved when its target is deleted.
type Kind int

const (
	// HardBlock: dependent rows must be selected too, or absent.
	HardBlock Kind = iota + 1
	// SoftClear: dependent rows survive with the foreign key nulled.
	SoftClear
)

func (k Kind) String() string {
	switch k {
	case HardBlock:
		return "hard_block"
	case SoftClear:
		return "soft_clear"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reference is a foreign key from a dependent-category table to a
// dependency-category table.
type Reference struct {
	Table  Table
	Column string
	Target Table
}

// Rule ties two categories through one reference. The probe of a rule is the
// number of tenant rows in Ref.Table whose Ref.Column points at a tenant row
// of Ref.Target.
type Rule struct {
	Dependent  Category
	Dependency Category
	Kind       Kind
	Ref        Reference
	// Precondition rules are checked before the deletion transaction opens.
	Precondition bool
}

// Applies reports whether the rule must be evaluated for plan: the dependency
// is being deleted while the dependent is not.
func (r Rule) Applies(plan Plan) bool {
	return plan.Has(r.Dependency) && !plan.Has(r.Dependent)
}

func hard(dependent, dependency Category, table Table, column string, target Table) Rule {
	return Rule{Dependent: dependent, Dependency: dependency, Kind: HardBlock,
		Ref: Reference{Table: table, Column: column, Target: target}}
}

func soft(dependent, dependency Category, table Table, column string, target Table) Rule {
	return Rule{Dependent: dependent, Dependency: dependency, Kind: SoftClear,
		Ref: Reference{Table: table, Column: column, Target: target}}
}

var rules = []Rule{
	// jobs
	hard(Panels, Jobs, panelsTable, "job_id", jobsTable),
	hard(ProductionSlots, Jobs, productionSlotsTable, "job_id", jobsTable),
	hard(DraftingProgram, Jobs, draftingProgramTable, "job_id", jobsTable),
	hard(Logistics, Jobs, loadListsTable, "job_id", jobsTable),
	hard(ProgressClaims, Jobs, progressClaimsTable, "job_id", jobsTable),
	hard(JobActivities, Jobs, jobActivitiesTable, "job_id", jobsTable),
	hard(Budgets, Jobs, jobBudgetsTable, "job_id", jobsTable),
	hard(BOQ, Jobs, boqGroupsTable, "job_id", jobsTable),
	hard(Contracts, Jobs, contractsTable, "job_id", jobsTable),
	soft(DailyLogs, Jobs, logRowsTable, "job_id", jobsTable),
	soft(PurchaseOrders, Jobs, purchaseOrdersTable, "job_id", jobsTable),
	soft(Chats, Jobs, conversationsTable, "job_id", jobsTable),
	soft(Tasks, Jobs, tasksTable, "job_id", jobsTable),
	soft(Documents, Jobs, documentsTable, "job_id", jobsTable),
	soft(Tenders, Jobs, tendersTable, "job_id", jobsTable),
	soft(WeeklyWages, Jobs, weeklyWageReportsTable, "job_id", jobsTable),

	// panels
	hard(DraftingProgram, Panels, draftingProgramTable, "panel_id", panelsTable),
	hard(Logistics, Panels, loadListPanelsTable, "panel_id", panelsTable),
	soft(DailyLogs, Panels, logRowsTable, "panel_id", panelsTable),
	soft(Chats, Panels, conversationsTable, "panel_id", panelsTable),

	// suppliers
	hard(PurchaseOrders, Suppliers, purchaseOrdersTable, "supplier_id", suppliersTable),
	hard(Tenders, Suppliers, tenderSubmissionsTable, "supplier_id", suppliersTable),
	soft(Assets, Suppliers, assetsTable, "supplier_id", suppliersTable),

	// cost codes
	hard(Budgets, CostCodes, budgetLinesTable, "cost_code_id", costCodesTable),
	hard(BOQ, CostCodes, boqGroupsTable, "cost_code_id", costCodesTable),
	hard(BOQ, CostCodes, boqItemsTable, "cost_code_id", costCodesTable),
	soft(Tenders, CostCodes, tenderLineItemsTable, "cost_code_id", costCodesTable),

	// documents: contracts keep an AI-extracted link to their source document.
	{
		Dependent: Contracts, Dependency: Documents, Kind: HardBlock, Precondition: true,
		Ref: Reference{Table: contractsTable, Column: "ai_source_document_id", Target: documentsTable},
	},

	// activity templates
	soft(JobActivities, ActivityTemplates, jobActivitiesTable, "template_id", activityTemplatesTable),
}

// Rules returns the rule table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// rulesInto returns rules whose dependency is c.
func rulesInto(c Category) []Rule {
	var out []Rule
	for _, r := range rules {
		if r.Dependency == c {
			out = append(out, r)
		}
	}
	return out
}

// deletionOrder is derived once from the rule table: every dependent comes
// before its dependency.
var deletionOrder = mustTopoOrder(allCategories, rules)

// DeletionOrder returns the order in which selected categories are processed.
func DeletionOrder() []Category {
	out := make([]Category, len(deletionOrder))
	copy(out, deletionOrder)
	return out
}

// Order returns the plan's known categories sorted into deletion order.
func (p Plan) Order() []Category {
	out := make([]Category, 0, len(p.selected))
	for _, c := range deletionOrder {
		if p.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func mustTopoOrder(categories []Category, rs []Rule) []Category {
	order, err := topoOrder(categories, rs)
	if err != nil {
		panic("datadeletion: " + err.Error())
	}
	return order
}

// topoOrder is Kahn's algorithm; among ready categories the one declared
// first wins, which keeps the order stable across releases.
func topoOrder(categories []Category, rs []Rule) ([]Category, error) {
	position := make(map[Category]int, len(categories))
	for i, c := range categories {
		position[c] = i
	}

	pending := make(map[Category]int, len(categories)) // dependents not yet ordered
	blocks := make(map[Category][]Category)            // dependent -> dependencies
	seenEdge := make(map[[2]Category]bool)
	for _, r := range rs {
		if _, ok := position[r.Dependent]; !ok {
			return nil, fmt.Errorf("rule references undeclared category %q", r.Dependent)
		}
		if _, ok := position[r.Dependency]; !ok {
			return nil, fmt.Errorf("rule references undeclared category %q", r.Dependency)
		}
		edge := [2]Category{r.Dependent, r.Dependency}
		if seenEdge[edge] {
			continue
		}
		seenEdge[edge] = true
		pending[r.Dependency]++
		blocks[r.Dependent] = append(blocks[r.Dependent], r.Dependency)
	}

	var ready []Category
	for _, c := range categories {
		if pending[c] == 0 {
			ready = append(ready, c)
		}
	}

	order := make([]Category, 0, len(categories))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return position[ready[i]] < position[ready[j]] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dep := range blocks[next] {
			pending[dep]--
			if pending[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(categories) {
		var stuck []string
		for _, c := range categories {
			if pending[c] > 0 {
				stuck = append(stuck, string(c))
			}
		}
		return nil, fmt.Errorf("dependency cycle between categories %v", stuck)
	}
	return order, nil
}
