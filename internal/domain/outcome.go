package domain

// Outcome is the reconciliation decision for one asset on one run.
type Outcome string

const (
	OutcomeNoAction              Outcome = "NoAction"
	OutcomeCreateUpcoming        Outcome = "CreateUpcoming"
	OutcomeCreateOverdue         Outcome = "CreateOverdue"
	OutcomeRenewUpcoming         Outcome = "RenewUpcoming"
	OutcomeRenewOverdue          Outcome = "RenewOverdue"
	OutcomeMarkOverdue           Outcome = "MarkOverdue"
	OutcomeMarkUpcoming          Outcome = "MarkUpcoming"
	OutcomeMarkCompletedAndRenew Outcome = "MarkCompletedAndRenew"
)

// ReportRow carries the formatted fields a reconciliation outcome contributes
// to the status workbook. Which fields are populated depends on the bucket
// the row lands in (upcoming / overdue / completed).
type ReportRow struct {
	AssetID  string
	Category Category

	Area        string
	Building    string
	Description string
	Notes       string
	Clock       string
	Kind        string
	Accessible  string
	Interval    string

	DueDate        string // upcoming: next due; overdue: original due
	LastInspection string // "No previous inspection" when never inspected
	CompletedDate  string
	NextDate       string // completed: due date of the new cycle
	Assignee       string

	DaysOverdue int
}
