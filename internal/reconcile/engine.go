package reconcile

import (
	"time"

	"go.uber.org/zap"

	"github.com/geo-tg/ljb-asset-workorder-updates/internal/domain"
)

// Variant selects between the two generations of the work-order service.
// The branching differences (see Policy) are intentional and must not be
// unified; the two services manage different asset populations.
type Variant string

const (
	// VariantLegacy is the Operator/PE service: work orders are created and
	// retired as individual features, and completion is read off the work
	// order's own status field.
	VariantLegacy Variant = "legacy"

	// VariantUnified is the per-category service: every asset owns one
	// permanent work-order point, and crews append completion rows to a
	// separate work-order table.
	VariantUnified Variant = "unified"
)

// Assignment holds the values stamped onto work orders created for one
// asset category.
type Assignment struct {
	Type     string // AssignmentType
	Assignee string // username
}

// Policy is the per-run reconciliation configuration. Lead windows are per
// category because the populations differ wildly (40 days for operator
// inspections, 375 for professional-engineer ones, 60 for the unified
// layers).
type Policy struct {
	Variant     Variant
	LeadWindows map[domain.Category]int
	Assignments map[domain.Category]Assignment
}

// LeadWindow returns the category's proactive-creation window in days.
func (p Policy) LeadWindow(cat domain.Category) int {
	return p.LeadWindows[cat]
}

// Input is everything the engine may consult for one asset.
type Input struct {
	Asset domain.Asset

	// Order is the correlated work order: the feature whose due date matches
	// the asset's (legacy), or the asset's permanent point (unified).
	Order *domain.WorkOrder

	// Completion is the most recent work-order table row for the asset
	// (unified only). HasHistory reports whether any table row exists at
	// all, because a stale row and no row take different branches.
	Completion *domain.WorkOrder
	HasHistory bool
}

// WriteOp is a pending side effect implied by a reconciliation outcome.
// The engine never touches the remote store itself; the runner executes
// writes one by one so a single failure cannot abort the run.
type WriteOp interface{ writeOp() }

// AddWorkOrder inserts a new work-order feature for a new inspection cycle.
type AddWorkOrder struct {
	Order           domain.WorkOrder
	CopyAttachments bool // best-effort copy from the asset feature
}

// UpdateWorkOrder rewrites fields on an existing work-order feature in
// place. Nil pointers leave the remote value untouched.
type UpdateWorkOrder struct {
	ObjectID       int64
	Status         domain.Status
	NextInspection *int64
	LastInspection *int64
	Clock          string
	Inspector      string

	// CopyAttachmentsFrom is the work-order table object id whose
	// attachments should be mirrored onto the point (unified completions).
	// Zero means no copy.
	CopyAttachmentsFrom int64
}

// UpdateAssetSchedule rolls the asset's inspection bookkeeping forward
// after a completed inspection.
type UpdateAssetSchedule struct {
	ObjectID       int64
	Category       domain.Category
	LastInspection int64
	NextInspection int64
	Inspector      string
}

func (AddWorkOrder) writeOp()        {}
func (UpdateWorkOrder) writeOp()     {}
func (UpdateAssetSchedule) writeOp() {}

// Result is the decision for one asset: the outcome, at most one report row
// per bucket, and the writes the outcome implies.
type Result struct {
	AssetID string
	Outcome domain.Outcome

	Upcoming  *domain.ReportRow
	Overdue   *domain.ReportRow
	Completed *domain.ReportRow

	Writes []WriteOp
}

// Engine decides, for each asset with a scheduled inspection, whether a work
// order must be created, renewed, marked overdue, or rolled to the next
// cycle. It is pure: all I/O stays with the caller.
type Engine struct {
	policy Policy
	loc    *time.Location
	logger *zap.Logger
}

// NewEngine creates an Engine. loc is the plant's timezone; date comparisons
// are whole-calendar-day granular in that zone.
func NewEngine(policy Policy, loc *time.Location, logger *zap.Logger) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{policy: policy, loc: loc, logger: logger}
}

const noPreviousInspection = "No previous inspection"

const dateLayout = "2006-01-02 15:04:05"

// Reconcile runs the decision procedure for one asset.
func (e *Engine) Reconcile(in Input, today time.Time) Result {
	res := Result{AssetID: in.Asset.AssetID, Outcome: domain.OutcomeNoAction}

	if in.Asset.NextInspection == nil {
		// Snapshot building should have filtered these out already.
		return res
	}

	switch {
	case in.Order == nil:
		e.reconcileNoOrder(in, today, &res)
	case e.completionDetected(in):
		e.reconcileCompleted(in, today, &res)
	default:
		e.reconcileOpen(in, today, &res)
	}
	return res
}

// completionDetected reports whether a finished inspection is waiting to be
// rolled forward. The legacy service closes the work order itself; the
// unified service appends a table row, which counts only when it is newer
// than the asset's recorded last inspection.
func (e *Engine) completionDetected(in Input) bool {
	if e.policy.Variant == VariantLegacy {
		return in.Order.IsCompleted()
	}
	if in.Completion == nil || in.Completion.Created == nil {
		return false
	}
	return in.Asset.LastInspection == nil || *in.Completion.Created > *in.Asset.LastInspection
}

// daysUntilDue applies the model's day counting. The unified service counts
// inclusive of today: a window of 60 means "due within the next 60 calendar
// days counting today as day one".
func (e *Engine) daysUntilDue(due, today time.Time) int {
	d := DaysBetween(today, due)
	if e.policy.Variant == VariantUnified {
		d++
	}
	return d
}

// pastDue is the overdue test: the due date's calendar day is strictly
// before today's, regardless of the model's inclusive counting.
func pastDue(due, today time.Time) bool {
	return DaysBetween(due, today) > 0
}

// reconcileNoOrder handles an asset with no correlated work order at all.
func (e *Engine) reconcileNoOrder(in Input, today time.Time, res *Result) {
	asset := in.Asset
	due := asset.NextInspectionTime(e.loc)
	window := e.policy.LeadWindow(asset.Category)

	switch {
	case pastDue(due, today):
		// The legacy service deliberately does not create work orders for
		// assets that went overdue without ever getting one; the unified
		// service reports them the same way and only edits a point when one
		// exists (handled in reconcileOpen). Both just report here.
		res.Outcome = domain.OutcomeCreateOverdue
		res.Overdue = e.overdueRow(asset, due, DaysBetween(due, today))

	case e.daysUntilDue(due, today) <= window:
		res.Outcome = domain.OutcomeCreateUpcoming
		res.Upcoming = e.upcomingRow(asset, due)
		res.Writes = append(res.Writes, e.newWorkOrder(asset, *asset.NextInspection))

	default:
		res.Outcome = domain.OutcomeNoAction
	}
}

// reconcileCompleted rolls a finished inspection into the next cycle.
func (e *Engine) reconcileCompleted(in Input, today time.Time, res *Result) {
	asset := in.Asset
	res.Outcome = domain.OutcomeMarkCompletedAndRenew

	completedMS, assignee, clock := e.completionReference(in)
	completed := domain.MSToTime(completedMS, e.loc)
	nextDue := NextDue(asset.Interval, completed, asset.NextInspectionTime(e.loc))
	nextDueMS := domain.TimeToMS(nextDue)

	res.Completed = e.completedRow(asset, completed, nextDue, assignee)
	if clock != "" {
		// The history row's clock identifies who actually did the inspection;
		// the asset's clock is only the standing assignment.
		res.Completed.Clock = clock
	}

	// The schedule fields roll forward no matter where the new cycle lands.
	res.Writes = append(res.Writes, UpdateAssetSchedule{
		ObjectID:       asset.ObjectID,
		Category:       asset.Category,
		LastInspection: completedMS,
		NextInspection: nextDueMS,
		Inspector:      assignee,
	})

	if e.daysUntilDue(nextDue, today) <= e.policy.LeadWindow(asset.Category) {
		res.Upcoming = e.upcomingRowAfterCompletion(asset, nextDue, completed)

		if e.policy.Variant == VariantLegacy {
			res.Writes = append(res.Writes, e.newWorkOrder(asset, nextDueMS))
		} else {
			res.Writes = append(res.Writes, UpdateWorkOrder{
				ObjectID:            in.Order.ObjectID,
				Status:              domain.StatusAssigned,
				NextInspection:      &nextDueMS,
				LastInspection:      &completedMS,
				Clock:               asset.Clock,
				Inspector:           assignee,
				CopyAttachmentsFrom: in.Completion.ObjectID,
			})
		}
	}
}

// reconcileOpen handles an existing, not-yet-completed work order.
func (e *Engine) reconcileOpen(in Input, today time.Time, res *Result) {
	if e.policy.Variant == VariantLegacy {
		e.reconcileOpenLegacy(in, today, res)
		return
	}
	e.reconcileOpenUnified(in, today, res)
}

func (e *Engine) reconcileOpenLegacy(in Input, today time.Time, res *Result) {
	asset := in.Asset
	order := in.Order

	dueMS := *asset.NextInspection
	if order.DueDate != nil {
		dueMS = *order.DueDate
	}
	due := domain.MSToTime(dueMS, e.loc)

	if pastDue(due, today) {
		res.Outcome = domain.OutcomeMarkOverdue
		res.Overdue = e.overdueRow(asset, due, DaysBetween(due, today))
		res.Writes = append(res.Writes, UpdateWorkOrder{
			ObjectID: order.ObjectID,
			Status:   domain.StatusOverdue,
		})
		return
	}

	// Already pending with a future due date; nothing to write.
	res.Outcome = domain.OutcomeMarkUpcoming
	res.Upcoming = e.upcomingRow(asset, due)
}

// reconcileOpenUnified covers the unified point with either a stale table
// row or no table row at all. In both cases the point is re-stamped from
// the asset's schedule; the outcome label records which situation it was.
func (e *Engine) reconcileOpenUnified(in Input, today time.Time, res *Result) {
	asset := in.Asset
	due := asset.NextInspectionTime(e.loc)
	window := e.policy.LeadWindow(asset.Category)
	stale := in.HasHistory

	edit := UpdateWorkOrder{
		ObjectID:       in.Order.ObjectID,
		NextInspection: asset.NextInspection,
		LastInspection: asset.LastInspection,
		Clock:          asset.Clock,
	}

	switch {
	case pastDue(due, today):
		if stale {
			res.Outcome = domain.OutcomeRenewOverdue
		} else {
			res.Outcome = domain.OutcomeMarkOverdue
		}
		res.Overdue = e.overdueRow(asset, due, DaysBetween(due, today))
		edit.Status = domain.StatusOverdue
		res.Writes = append(res.Writes, edit)

	case e.daysUntilDue(due, today) <= window:
		if stale {
			res.Outcome = domain.OutcomeRenewUpcoming
		} else {
			res.Outcome = domain.OutcomeMarkUpcoming
		}
		res.Upcoming = e.upcomingRow(asset, due)
		edit.Status = domain.StatusAssigned
		res.Writes = append(res.Writes, edit)

	case !stale:
		// Due date well out: carry the asset's schedule onto the empty point
		// so the map stays current, without reporting anything.
		res.Outcome = domain.OutcomeNoAction
		res.Writes = append(res.Writes, edit)

	default:
		res.Outcome = domain.OutcomeNoAction
	}
}

// completionReference picks the completion timestamp, the person credited
// with the inspection, and their clock number (unified table rows only).
func (e *Engine) completionReference(in Input) (int64, string, string) {
	if e.policy.Variant == VariantUnified {
		return *in.Completion.Created, in.Completion.Assignee, in.Completion.Clock
	}
	order := in.Order
	if order.Completed != nil {
		return *order.Completed, order.Assignee, ""
	}
	// Completed status with no completion date: a known data-quality gap in
	// the legacy service. Fall back to the order's due date so the cycle
	// still rolls forward.
	e.logger.Warn("completed work order has no completion date, using due date",
		zap.String("asset_id", in.Asset.AssetID),
		zap.Int64("work_order_oid", order.ObjectID),
	)
	if order.DueDate != nil {
		return *order.DueDate, order.Assignee, ""
	}
	return *in.Asset.NextInspection, order.Assignee, ""
}

// newWorkOrder builds the insert for a fresh inspection cycle: status
// Assigned, due date from the schedule, geometry copied from the asset.
func (e *Engine) newWorkOrder(asset domain.Asset, dueMS int64) AddWorkOrder {
	assign := e.policy.Assignments[asset.Category]
	return AddWorkOrder{
		Order: domain.WorkOrder{
			AssetID:  asset.AssetID,
			Type:     assign.Type,
			Status:   domain.StatusAssigned,
			Assignee: assign.Assignee,
			DueDate:  &dueMS,
			Geometry: asset.Geometry,
		},
		CopyAttachments: true,
	}
}

func (e *Engine) lastInspectionLabel(asset domain.Asset) string {
	if asset.LastInspection == nil {
		return noPreviousInspection
	}
	return domain.MSToTime(*asset.LastInspection, e.loc).Format(dateLayout)
}

func (e *Engine) baseRow(asset domain.Asset) *domain.ReportRow {
	return &domain.ReportRow{
		AssetID:     asset.AssetID,
		Category:    asset.Category,
		Area:        asset.Area,
		Building:    asset.Building,
		Description: asset.Description,
		Notes:       asset.Notes,
		Clock:       asset.Clock,
		Kind:        asset.Kind,
		Accessible:  asset.Accessible,
		Interval:    asset.Interval.String(),
	}
}

func (e *Engine) upcomingRow(asset domain.Asset, due time.Time) *domain.ReportRow {
	row := e.baseRow(asset)
	row.DueDate = due.Format(dateLayout)
	row.LastInspection = e.lastInspectionLabel(asset)
	return row
}

// upcomingRowAfterCompletion reports the freshly scheduled cycle; the
// inspection just recorded becomes the row's last-inspection value.
func (e *Engine) upcomingRowAfterCompletion(asset domain.Asset, due, completed time.Time) *domain.ReportRow {
	row := e.baseRow(asset)
	row.DueDate = due.Format(dateLayout)
	row.LastInspection = completed.Format(dateLayout)
	return row
}

func (e *Engine) overdueRow(asset domain.Asset, due time.Time, daysOverdue int) *domain.ReportRow {
	row := e.baseRow(asset)
	row.DueDate = due.Format(dateLayout)
	row.DaysOverdue = daysOverdue
	row.LastInspection = e.lastInspectionLabel(asset)
	return row
}

func (e *Engine) completedRow(asset domain.Asset, completed, nextDue time.Time, assignee string) *domain.ReportRow {
	row := e.baseRow(asset)
	row.CompletedDate = completed.Format(dateLayout)
	row.NextDate = nextDue.Format(dateLayout)
	row.Assignee = assignee
	return row
}
