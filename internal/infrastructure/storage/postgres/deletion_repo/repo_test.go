package deletion_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildplus/internal/core/id"
	"buildplus/internal/domain/datadeletion"
)

const company = "0190f4c2-0000-7000-8000-00000000000a"

func table(t *testing.T, c datadeletion.Category, name string) datadeletion.Table {
	t.Helper()
	def, ok := datadeletion.DefinitionOf(c)
	require.True(t, ok)
	tbl, ok := def.Table(name)
	require.True(t, ok, "%s has no table %s", c, name)
	return tbl
}

func TestLockQuery(t *testing.T) {
	sql, args, err := lockQuery(company, datadeletion.LockExclusive)
	require.NoError(t, err)
	assert.Equal(t, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", sql)
	assert.Equal(t, []any{"data-deletion:" + company}, args)

	sql, _, err = lockQuery(company, datadeletion.LockShared)
	require.NoError(t, err)
	assert.Equal(t, "SELECT pg_advisory_xact_lock_shared(hashtextextended($1, 0))", sql)
}

func TestCountRowsQuery_CompanyTable(t *testing.T) {
	sql, args, err := countRowsQuery(company, table(t, datadeletion.Jobs, "jobs"))
	require.NoError(t, err)

	assert.Equal(t, "SELECT count(*) FROM jobs WHERE company_id = $1", sql)
	assert.Equal(t, []any{company}, args)
}

func TestCountRowsQuery_FollowsScopeHops(t *testing.T) {
	sql, args, err := countRowsQuery(company, table(t, datadeletion.DailyLogs, "log_rows"))
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT count(*) FROM log_rows WHERE daily_log_id IN (SELECT id FROM daily_logs WHERE user_id IN (SELECT id FROM users WHERE company_id = $1))",
		sql)
	assert.Equal(t, []any{company}, args)
}

func TestCountReferencesQuery(t *testing.T) {
	ref := datadeletion.Reference{
		Table:  table(t, datadeletion.DailyLogs, "log_rows"),
		Column: "panel_id",
		Target: table(t, datadeletion.Panels, "panel_register"),
	}
	sql, args, err := countReferencesQuery(company, ref)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT count(*) FROM log_rows WHERE daily_log_id IN (SELECT id FROM daily_logs WHERE user_id IN (SELECT id FROM users WHERE company_id = $1)) "+
			"AND panel_id IN (SELECT id FROM panel_register WHERE job_id IN (SELECT id FROM jobs WHERE company_id = $2))",
		sql)
	assert.Equal(t, []any{company, company}, args)
}

func TestEveryRuleBuildsAReferenceQuery(t *testing.T) {
	for _, r := range datadeletion.Rules() {
		sql, args, err := countReferencesQuery(company, r.Ref)
		require.NoError(t, err, "%s -> %s", r.Dependent, r.Dependency)
		assert.Contains(t, sql, r.Ref.Column+" IN (SELECT id FROM "+r.Ref.Target.Name)
		for _, a := range args {
			assert.Equal(t, company, a)
		}
	}
}

func TestChildIDsQuery(t *testing.T) {
	parents := []id.ID{id.New(), id.New()}
	sql, args, err := childIDsQuery(table(t, datadeletion.Tenders, "tender_line_items"), parents)
	require.NoError(t, err)

	assert.Equal(t, "SELECT id FROM tender_line_items WHERE tender_submission_id = ANY($1)", sql)
	assert.Equal(t, []any{parents}, args)

	_, _, err = childIDsQuery(table(t, datadeletion.Jobs, "jobs"), parents)
	assert.Error(t, err)
}

func TestClearReferencesQuery(t *testing.T) {
	ref := datadeletion.Reference{
		Table:  table(t, datadeletion.DailyLogs, "log_rows"),
		Column: "panel_id",
		Target: table(t, datadeletion.Panels, "panel_register"),
	}
	targets := []id.ID{id.New()}
	sql, args, err := clearReferencesQuery(company, ref, targets)
	require.NoError(t, err)

	want := "UPDATE log_rows SET panel_id = NULL WHERE panel_id = ANY($1) AND " +
		"daily_log_id IN (SELECT id FROM daily_logs WHERE user_id IN (SELECT id FROM users WHERE company_id = $2))"
	assert.Equal(t, want, sql)
	assert.Equal(t, []any{targets, company}, args)
}

func TestDeleteRowsQuery(t *testing.T) {
	ids := []id.ID{id.New()}
	sql, args, err := deleteRowsQuery(table(t, datadeletion.Jobs, "jobs"), ids)
	require.NoError(t, err)

	assert.Equal(t, "DELETE FROM jobs WHERE id = ANY($1)", sql)
	assert.Equal(t, []any{ids}, args)
}
