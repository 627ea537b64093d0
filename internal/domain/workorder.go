package domain

import "encoding/json"

// Status is a work-order assignment status.
type Status string

const (
	StatusAssigned  Status = "Assigned"
	StatusCompleted Status = "Completed"
	StatusOverdue   Status = "Overdue"
)

// WorkOrder is one row of the work-order point layer or, in the unified
// service, one row of the work-order history table.
type WorkOrder struct {
	ObjectID int64
	GlobalID string
	AssetID  string // RELAssetID foreign key (unified) / HazardID (legacy)

	Type     string // AssignmentType
	Status   Status
	Assignee string // username
	Clock    string // unified table: inspector clock number

	// Feature-service dates, epoch milliseconds.
	DueDate   *int64 // AssignmentDueDate
	Completed *int64 // legacy CompleteDate; unified table LastInspect
	Created   *int64 // unified table created_date

	Geometry json.RawMessage
}

// IsCompleted reports whether the assignment has been closed out.
func (w *WorkOrder) IsCompleted() bool {
	return w.Status == StatusCompleted
}
