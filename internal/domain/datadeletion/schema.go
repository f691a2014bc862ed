package datadeletion

import "fmt"

// CompanyColumn is the tenant column carried by company-owned root tables.
const CompanyColumn = "company_id"

// Hop follows a foreign key: Column of the current table references Table.id.
type Hop struct {
	Column string
	Table  string
}

// Scope is the path from a table to the company column. Rows are tenant
// rows when following the hops ends in a row whose CompanyColumn matches.
type Scope struct {
	Hops          []Hop
	CompanyColumn string
}

// Rest drops the first hop; the result scopes the table that hop points at.
func (s Scope) Rest() Scope {
	if len(s.Hops) == 0 {
		return s
	}
	return Scope{Hops: s.Hops[1:], CompanyColumn: s.CompanyColumn}
}

// Table describes one physical table.
type Table struct {
	Name  string
	Label string
	Scope Scope
}

// Parent returns the FK column and the table it points at, or empty strings
// for tables scoped directly by company.
func (t Table) Parent() (column, table string) {
	if len(t.Scope.Hops) == 0 {
		return "", ""
	}
	return t.Scope.Hops[0].Column, t.Scope.Hops[0].Table
}

// companyTable builds a table scoped directly by company_id.
func companyTable(name, label string) Table {
	return Table{Name: name, Label: label, Scope: Scope{CompanyColumn: CompanyColumn}}
}

// childOf builds a table whose column references parent.id; the scope is the
// parent's scope with one more hop in front.
func childOf(parent Table, name, label, column string) Table {
	hops := make([]Hop, 0, len(parent.Scope.Hops)+1)
	hops = append(hops, Hop{Column: column, Table: parent.Name})
	hops = append(hops, parent.Scope.Hops...)
	return Table{
		Name:  name,
		Label: label,
		Scope: Scope{Hops: hops, CompanyColumn: parent.Scope.CompanyColumn},
	}
}

// Definition is a category: its root table plus the tables it owns.
// Children are listed parents first; deletion walks them backwards.
type Definition struct {
	Category Category
	Root     Table
	Children []Table
}

// Tables returns root followed by children.
func (d Definition) Tables() []Table {
	out := make([]Table, 0, len(d.Children)+1)
	out = append(out, d.Root)
	return append(out, d.Children...)
}

// Table returns the named table of this category.
func (d Definition) Table(name string) (Table, bool) {
	for _, t := range d.Tables() {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Users anchor daily logs to a company; they are never deleted here.
var usersTable = companyTable("users", "Users")

var (
	jobsTable              = companyTable("jobs", "Jobs")
	weeklyJobReportsTable  = childOf(jobsTable, "weekly_job_reports", "Weekly Job Reports", "job_id")
	productionDaysTable    = childOf(jobsTable, "production_days", "Production Days", "job_id")
	jobPanelRatesTable     = childOf(jobsTable, "job_panel_rates", "Panel Rates", "job_id")
	jobCycleTimesTable     = childOf(jobsTable, "job_level_cycle_times", "Cycle Times", "job_id")
	panelsTable            = childOf(jobsTable, "panel_register", "Panels", "job_id")
	panelAuditLogsTable    = childOf(panelsTable, "panel_audit_logs", "Panel Audit Logs", "panel_id")
	productionEntriesTable = childOf(panelsTable, "production_entries", "Production Entries", "panel_id")

	productionSlotsTable     = childOf(jobsTable, "production_slots", "Production Slots", "job_id")
	slotAdjustmentsTable     = childOf(productionSlotsTable, "production_slot_adjustments", "Slot Adjustments", "production_slot_id")
	draftingProgramTable     = childOf(jobsTable, "drafting_program", "Drafting Program Entries", "job_id")
	loadListsTable           = childOf(jobsTable, "load_lists", "Load Lists", "job_id")
	loadListPanelsTable      = childOf(loadListsTable, "load_list_panels", "Load List Panels", "load_list_id")
	deliveryRecordsTable     = childOf(loadListsTable, "delivery_records", "Delivery Records", "load_list_id")
	dailyLogsTable           = childOf(usersTable, "daily_logs", "Daily Logs", "user_id")
	logRowsTable             = childOf(dailyLogsTable, "log_rows", "Log Rows", "daily_log_id")
	approvalEventsTable      = childOf(dailyLogsTable, "approval_events", "Approval Events", "daily_log_id")
	purchaseOrdersTable      = companyTable("purchase_orders", "Purchase Orders")
	purchaseOrderItemsTable  = childOf(purchaseOrdersTable, "purchase_order_items", "Purchase Order Items", "purchase_order_id")
	purchaseOrderFilesTable  = childOf(purchaseOrdersTable, "purchase_order_attachments", "Purchase Order Attachments", "purchase_order_id")
	weeklyWageReportsTable   = companyTable("weekly_wage_reports", "Weekly Wage Reports")
	conversationsTable       = companyTable("conversations", "Conversations")
	conversationMembersTable = childOf(conversationsTable, "conversation_members", "Conversation Members", "conversation_id")
	chatMessagesTable        = childOf(conversationsTable, "chat_messages", "Chat Messages", "conversation_id")
	chatAttachmentsTable     = childOf(chatMessagesTable, "chat_message_attachments", "Chat Attachments", "message_id")
	chatMentionsTable        = childOf(chatMessagesTable, "chat_message_mentions", "Chat Mentions", "message_id")
	taskGroupsTable          = companyTable("task_groups", "Task Groups")
	tasksTable               = childOf(taskGroupsTable, "tasks", "Tasks", "group_id")
	taskAssigneesTable       = childOf(tasksTable, "task_assignees", "Task Assignees", "task_id")
	taskUpdatesTable         = childOf(tasksTable, "task_updates", "Task Updates", "task_id")
	suppliersTable           = companyTable("suppliers", "Suppliers")
	assetsTable              = companyTable("assets", "Assets")
	assetMaintenanceTable    = childOf(assetsTable, "asset_maintenance_records", "Maintenance Records", "asset_id")
	assetTransfersTable      = childOf(assetsTable, "asset_transfers", "Asset Transfers", "asset_id")
	documentsTable           = companyTable("documents", "Documents")
	documentBundleItemsTable = childOf(documentsTable, "document_bundle_items", "Document Bundle Items", "document_id")
	contractsTable           = companyTable("contracts", "Contracts")
	progressClaimsTable      = companyTable("progress_claims", "Progress Claims")
	progressClaimItemsTable  = childOf(progressClaimsTable, "progress_claim_items", "Progress Claim Items", "progress_claim_id")
	broadcastTemplatesTable  = companyTable("broadcast_templates", "Broadcast Templates")
	broadcastMessagesTable   = childOf(broadcastTemplatesTable, "broadcast_messages", "Broadcast Messages", "template_id")
	broadcastDeliveriesTable = childOf(broadcastMessagesTable, "broadcast_deliveries", "Broadcast Deliveries", "broadcast_message_id")
	activityTemplatesTable   = companyTable("activity_templates", "Activity Templates")
	templateSubtasksTable    = childOf(activityTemplatesTable, "activity_template_subtasks", "Template Subtasks", "template_id")
	jobActivitiesTable       = companyTable("job_activities", "Job Activities")
	activityAssigneesTable   = childOf(jobActivitiesTable, "job_activity_assignees", "Activity Assignees", "activity_id")
	activityUpdatesTable     = childOf(jobActivitiesTable, "job_activity_updates", "Activity Updates", "activity_id")
	activityFilesTable       = childOf(jobActivitiesTable, "job_activity_files", "Activity Files", "activity_id")
	costCodesTable           = companyTable("cost_codes", "Cost Codes")
	childCostCodesTable      = childOf(costCodesTable, "child_cost_codes", "Child Cost Codes", "parent_cost_code_id")
	tendersTable             = companyTable("tenders", "Tenders")
	tenderPackagesTable      = childOf(tendersTable, "tender_packages", "Tender Packages", "tender_id")
	tenderSubmissionsTable   = childOf(tendersTable, "tender_submissions", "Tender Submissions", "tender_id")
	tenderLineItemsTable     = childOf(tenderSubmissionsTable, "tender_line_items", "Tender Line Items", "tender_submission_id")
	tenderLineActivities     = childOf(tenderLineItemsTable, "tender_line_activities", "Tender Line Activities", "line_item_id")
	tenderLineFiles          = childOf(tenderLineItemsTable, "tender_line_files", "Tender Line Files", "line_item_id")
	tenderLineRisks          = childOf(tenderLineItemsTable, "tender_line_risks", "Tender Line Risks", "line_item_id")
	jobBudgetsTable          = companyTable("job_budgets", "Job Budgets")
	budgetLinesTable         = childOf(jobBudgetsTable, "budget_lines", "Budget Lines", "budget_id")
	budgetLineFilesTable     = childOf(budgetLinesTable, "budget_line_files", "Budget Line Files", "budget_line_id")
	budgetDetailItemsTable   = childOf(budgetLinesTable, "budget_line_detail_items", "Budget Detail Items", "budget_line_id")
	boqGroupsTable           = companyTable("boq_groups", "BOQ Groups")
	boqItemsTable            = childOf(boqGroupsTable, "boq_items", "BOQ Items", "group_id")
)

var definitions = []Definition{
	{Category: Panels, Root: panelsTable, Children: []Table{panelAuditLogsTable, productionEntriesTable}},
	{Category: ProductionSlots, Root: productionSlotsTable, Children: []Table{slotAdjustmentsTable}},
	{Category: DraftingProgram, Root: draftingProgramTable},
	{Category: DailyLogs, Root: dailyLogsTable, Children: []Table{logRowsTable, approvalEventsTable}},
	{Category: PurchaseOrders, Root: purchaseOrdersTable, Children: []Table{purchaseOrderItemsTable, purchaseOrderFilesTable}},
	{Category: Logistics, Root: loadListsTable, Children: []Table{loadListPanelsTable, deliveryRecordsTable}},
	{Category: WeeklyWages, Root: weeklyWageReportsTable},
	{Category: Chats, Root: conversationsTable, Children: []Table{conversationMembersTable, chatMessagesTable, chatAttachmentsTable, chatMentionsTable}},
	{Category: Tasks, Root: taskGroupsTable, Children: []Table{tasksTable, taskAssigneesTable, taskUpdatesTable}},
	{Category: Suppliers, Root: suppliersTable},
	{Category: Jobs, Root: jobsTable, Children: []Table{weeklyJobReportsTable, productionDaysTable, jobPanelRatesTable, jobCycleTimesTable}},
	{Category: Assets, Root: assetsTable, Children: []Table{assetMaintenanceTable, assetTransfersTable}},
	{Category: Documents, Root: documentsTable, Children: []Table{documentBundleItemsTable}},
	{Category: Contracts, Root: contractsTable},
	{Category: ProgressClaims, Root: progressClaimsTable, Children: []Table{progressClaimItemsTable}},
	{Category: BroadcastTemplates, Root: broadcastTemplatesTable, Children: []Table{broadcastMessagesTable, broadcastDeliveriesTable}},
	{Category: ActivityTemplates, Root: activityTemplatesTable, Children: []Table{templateSubtasksTable}},
	{Category: JobActivities, Root: jobActivitiesTable, Children: []Table{activityAssigneesTable, activityUpdatesTable, activityFilesTable}},
	{Category: CostCodes, Root: costCodesTable, Children: []Table{childCostCodesTable}},
	{Category: Tenders, Root: tendersTable, Children: []Table{tenderPackagesTable, tenderSubmissionsTable, tenderLineItemsTable, tenderLineActivities, tenderLineFiles, tenderLineRisks}},
	{Category: Budgets, Root: jobBudgetsTable, Children: []Table{budgetLinesTable, budgetLineFilesTable, budgetDetailItemsTable}},
	{Category: BOQ, Root: boqGroupsTable, Children: []Table{boqItemsTable}},
}

var definitionIndex = func() map[Category]Definition {
	m := make(map[Category]Definition, len(definitions))
	for _, d := range definitions {
		if _, dup := m[d.Category]; dup {
			panic(fmt.Sprintf("datadeletion: duplicate definition for %q", d.Category))
		}
		m[d.Category] = d
	}
	return m
}()

// DefinitionOf returns the table layout of a category.
func DefinitionOf(c Category) (Definition, bool) {
	d, ok := definitionIndex[c]
	return d, ok
}

// Definitions returns every category definition in declaration order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}
