// Package datadeletion removes whole categories of a company's operational
// data (jobs, panels, purchase orders, tenders, ...) in one transaction while
// honouring the foreign-key dependencies between categories.
//
// The package is built around a single declarative rule table (rules.go). The
// validation pass and the deletion pass both read that table, so the checks a
// client sees before confirming are exactly the checks enforced on delete.
package datadeletion

import "strings"

// Category is a user-selectable group of tables removed as one unit.
type Category string

const (
	Panels             Category = "panels"
	ProductionSlots    Category = "production_slots"
	DraftingProgram    Category = "drafting_program"
	DailyLogs          Category = "daily_logs"
	PurchaseOrders     Category = "purchase_orders"
	Logistics          Category = "logistics"
	WeeklyWages        Category = "weekly_wages"
	Chats              Category = "chats"
	Tasks              Category = "tasks"
	Suppliers          Category = "suppliers"
	Jobs               Category = "jobs"
	Assets             Category = "assets"
	Documents          Category = "documents"
	Contracts          Category = "contracts"
	ProgressClaims     Category = "progress_claims"
	BroadcastTemplates Category = "broadcast_templates"
	ActivityTemplates  Category = "activity_templates"
	JobActivities      Category = "job_activities"
	CostCodes          Category = "cost_codes"
	Tenders            Category = "tenders"
	Budgets            Category = "budgets"
	BOQ                Category = "boq"
)

// allCategories is the declaration order. It breaks ties in the deletion order
// and fixes the key order of the counts response.
var allCategories = []Category{
	Panels, ProductionSlots, DraftingProgram, DailyLogs, PurchaseOrders,
	Logistics, WeeklyWages, Chats, Tasks, Suppliers, Jobs, Assets, Documents,
	Contracts, ProgressClaims, BroadcastTemplates, ActivityTemplates,
	JobActivities, CostCodes, Tenders, Budgets, BOQ,
}

var categoryLabels = map[Category]string{
	Panels:             "Panels",
	ProductionSlots:    "Production Slots",
	DraftingProgram:    "Drafting Program",
	DailyLogs:          "Daily Logs",
	PurchaseOrders:     "Purchase Orders",
	Logistics:          "Logistics",
	WeeklyWages:        "Weekly Wages",
	Chats:              "Chats",
	Tasks:              "Tasks",
	Suppliers:          "Suppliers",
	Jobs:               "Jobs",
	Assets:             "Assets",
	Documents:          "Documents",
	Contracts:          "Contracts",
	ProgressClaims:     "Progress Claims",
	BroadcastTemplates: "Broadcast Templates",
	ActivityTemplates:  "Activity Templates",
	JobActivities:      "Job Activities",
	CostCodes:          "Cost Codes",
	Tenders:            "Tenders",
	Budgets:            "Budgets",
	BOQ:                "Bill of Quantities",
}

// AllCategories returns every category in declaration order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// Label returns the display name used in issue messages.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Known reports whether c is one of the declared categories.
func (c Category) Known() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Plan is the set of categories selected in one request.
type Plan struct {
	requested []string
	selected  []Category
	set       map[Category]struct{}
	unknown   []string
}

// NewPlan builds a plan from raw request keys. Keys are trimmed; duplicates
// are dropped; unknown keys are kept aside and never matched by a rule.
func NewPlan(keys []string) Plan {
	p := Plan{set: make(map[Category]struct{}, len(keys))}
	seen := make(map[string]struct{}, len(keys))

	for _, raw := range keys {
		key := strings.TrimSpace(raw)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		p.requested = append(p.requested, key)

		c := Category(key)
		if !c.Known() {
			p.unknown = append(p.unknown, key)
			continue
		}
		p.selected = append(p.selected, c)
		p.set[c] = struct{}{}
	}
	return p
}

// Has reports whether c is selected.
func (p Plan) Has(c Category) bool {
	_, ok := p.set[c]
	return ok
}

// Empty reports whether no key at all was requested.
func (p Plan) Empty() bool { return len(p.requested) == 0 }

// Requested returns the de-duplicated keys as sent, known or not.
func (p Plan) Requested() []string { return p.requested }

// Selected returns the known categories in request order.
func (p Plan) Selected() []Category { return p.selected }

// Unknown returns keys that name no category.
func (p Plan) Unknown() []string { return p.unknown }
