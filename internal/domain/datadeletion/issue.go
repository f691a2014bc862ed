package datadeletion

import "fmt"

// IssueCode classifies a validation finding.
type IssueCode string

const (
	IssueHardBlock       IssueCode = "HARD_BLOCK"
	IssueSoftClear       IssueCode = "SOFT_CLEAR"
	IssueCascade         IssueCode = "CASCADE"
	IssueUnknownCategory IssueCode = "UNKNOWN_CATEGORY"
)

// Severity decides whether an issue blocks the plan.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one structured validation finding. Message is rendered from the
// other fields so clients can choose either form.
type Issue struct {
	Code            IssueCode `json:"code"`
	Severity        Severity  `json:"severity"`
	Category        Category  `json:"category,omitempty"`
	RelatedCategory Category  `json:"relatedCategory,omitempty"`
	Table           string    `json:"table,omitempty"`
	Count           int64     `json:"count"`
	Message         string    `json:"message"`
}

func newHardBlock(r Rule, count int64) Issue {
	i := Issue{
		Code:            IssueHardBlock,
		Severity:        SeverityError,
		Category:        r.Dependency,
		RelatedCategory: r.Dependent,
		Table:           r.Ref.Table.Name,
		Count:           count,
	}
	i.Message = fmt.Sprintf(
		"Cannot delete %s while %s exist (%d %s still reference them). Select %s as well or remove them first.",
		r.Dependency.Label(), r.Dependent.Label(), count, r.Ref.Table.Label, r.Dependent.Label(),
	)
	return i
}

func newSoftClear(r Rule, count int64) Issue {
	i := Issue{
		Code:            IssueSoftClear,
		Severity:        SeverityWarning,
		Category:        r.Dependency,
		RelatedCategory: r.Dependent,
		Table:           r.Ref.Table.Name,
		Count:           count,
	}
	i.Message = fmt.Sprintf(
		"%d %s (%s) reference %s; their %s link will be cleared.",
		count, r.Ref.Table.Label, r.Dependent.Label(), r.Dependency.Label(), r.Ref.Column,
	)
	return i
}

func newCascade(c Category, t Table, count int64) Issue {
	return Issue{
		Code:     IssueCascade,
		Severity: SeverityInfo,
		Category: c,
		Table:    t.Name,
		Count:    count,
		Message:  fmt.Sprintf("Deleting %s will also remove %d %s.", c.Label(), count, t.Label),
	}
}

func newUnknownCategory(key string) Issue {
	return Issue{
		Code:     IssueUnknownCategory,
		Severity: SeverityWarning,
		Category: Category(key),
		Message:  fmt.Sprintf("Unknown category %q is ignored.", key),
	}
}

// ValidationResult is the outcome of the validation pass.
type ValidationResult struct {
	Valid  bool
	Issues []Issue
}

// Errors returns the messages of blocking issues.
func (r *ValidationResult) Errors() []string {
	out := []string{}
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i.Message)
		}
	}
	return out
}

// Warnings returns the messages of non-blocking issues.
func (r *ValidationResult) Warnings() []string {
	out := []string{}
	for _, i := range r.Issues {
		if i.Severity != SeverityError {
			out = append(out, i.Message)
		}
	}
	return out
}

// Blocking returns the error-severity issues.
func (r *ValidationResult) Blocking() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// DeletionReport is the outcome of a committed deletion.
// Deleted has one key per requested category, zero when nothing matched.
type DeletionReport struct {
	Deleted map[string]int64
	Cleared map[string]int64
}
