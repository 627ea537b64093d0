package report

import (
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/domain"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/reconcile"
)

// Sheet is one rendered worksheet: a fixed header row plus data rows in
// insertion order.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]any
}

type column struct {
	header string
	value  func(domain.ReportRow) any
}

func headers(layout []column) []string {
	out := make([]string, len(layout))
	for i, c := range layout {
		out[i] = c.header
	}
	return out
}

func renderRow(layout []column, row domain.ReportRow) []any {
	out := make([]any, len(layout))
	for i, c := range layout {
		out[i] = c.value(row)
	}
	return out
}

// Unified worksheet layouts. Every category shares one column set per bucket.
var (
	unifiedCompleted = []column{
		{"Area", func(r domain.ReportRow) any { return r.Area }},
		{"Building", func(r domain.ReportRow) any { return r.Building }},
		{"Equipment Type", func(r domain.ReportRow) any { return r.Category.DisplayName() }},
		{"Notes", func(r domain.ReportRow) any { return r.Notes }},
		{"Inspector Clock", func(r domain.ReportRow) any { return r.Clock }},
		{"Completed Date", func(r domain.ReportRow) any { return r.CompletedDate }},
		{"Next Inspection Date", func(r domain.ReportRow) any { return r.NextDate }},
		{"Inspection Interval", func(r domain.ReportRow) any { return r.Interval }},
		{"Asset ID", func(r domain.ReportRow) any { return r.AssetID }},
	}
	unifiedUpcoming = []column{
		{"Area", func(r domain.ReportRow) any { return r.Area }},
		{"Building", func(r domain.ReportRow) any { return r.Building }},
		{"Equipment Type", func(r domain.ReportRow) any { return r.Category.DisplayName() }},
		{"Notes", func(r domain.ReportRow) any { return r.Notes }},
		{"Inspector Clock", func(r domain.ReportRow) any { return r.Clock }},
		{"Next Inspection Date", func(r domain.ReportRow) any { return r.DueDate }},
		{"Last Inspection Date", func(r domain.ReportRow) any { return r.LastInspection }},
		{"Inspection Interval", func(r domain.ReportRow) any { return r.Interval }},
		{"Asset ID", func(r domain.ReportRow) any { return r.AssetID }},
	}
	unifiedOverdue = []column{
		{"Area", func(r domain.ReportRow) any { return r.Area }},
		{"Building", func(r domain.ReportRow) any { return r.Building }},
		{"Equipment Type", func(r domain.ReportRow) any { return r.Category.DisplayName() }},
		{"Notes", func(r domain.ReportRow) any { return r.Notes }},
		{"Inspector Clock", func(r domain.ReportRow) any { return r.Clock }},
		{"Duedate", func(r domain.ReportRow) any { return r.DueDate }},
		{"Days Overdue", func(r domain.ReportRow) any { return r.DaysOverdue }},
		{"Last Inspection Date", func(r domain.ReportRow) any { return r.LastInspection }},
		{"Inspection Interval", func(r domain.ReportRow) any { return r.Interval }},
		{"Asset ID", func(r domain.ReportRow) any { return r.AssetID }},
	}
)

// Legacy worksheet layouts. The hazard Type column ("Crane or WWS") only
// appears on the Operator sheets.
var (
	legacyCompleted = []column{
		{"Area", func(r domain.ReportRow) any { return r.Area }},
		{"Location", func(r domain.ReportRow) any { return r.Building }},
		{"Description", func(r domain.ReportRow) any { return r.Description }},
		{"Asset Description Notes", func(r domain.ReportRow) any { return r.Notes }},
		{"Completion Date", func(r domain.ReportRow) any { return r.CompletedDate }},
		{"Who Completed Inspection", func(r domain.ReportRow) any { return r.Assignee }},
		{"Asset ID of Hazard", func(r domain.ReportRow) any { return r.AssetID }},
		{"Production Accessible", func(r domain.ReportRow) any { return r.Accessible }},
	}
	legacyUpcoming = []column{
		{"Area", func(r domain.ReportRow) any { return r.Area }},
		{"Location", func(r domain.ReportRow) any { return r.Building }},
		{"Description", func(r domain.ReportRow) any { return r.Description }},
		{"Asset Description Notes", func(r domain.ReportRow) any { return r.Notes }},
		{"Due Date", func(r domain.ReportRow) any { return r.DueDate }},
		{"Frequency of Inspection", func(r domain.ReportRow) any { return r.Interval }},
		{"Last Inspection Date", func(r domain.ReportRow) any { return r.LastInspection }},
		{"Asset ID of Hazard", func(r domain.ReportRow) any { return r.AssetID }},
		{"Production Accessible", func(r domain.ReportRow) any { return r.Accessible }},
	}
	legacyOverdue = []column{
		{"Original Due Date", func(r domain.ReportRow) any { return r.DueDate }},
		{"Days Overdue", func(r domain.ReportRow) any { return r.DaysOverdue }},
		{"Area", func(r domain.ReportRow) any { return r.Area }},
		{"Location", func(r domain.ReportRow) any { return r.Building }},
		{"Description", func(r domain.ReportRow) any { return r.Description }},
		{"Asset Description Notes", func(r domain.ReportRow) any { return r.Notes }},
		{"Frequency", func(r domain.ReportRow) any { return r.Interval }},
		{"Last Inspected Date", func(r domain.ReportRow) any { return r.LastInspection }},
		{"Asset ID of Hazard", func(r domain.ReportRow) any { return r.AssetID }},
		{"Production Accessible", func(r domain.ReportRow) any { return r.Accessible }},
	}
	legacyKindColumn = column{
		"Type (Crane or WWS)", func(r domain.ReportRow) any { return r.Kind },
	}
)

func layoutFor(variant reconcile.Variant, bucketName string, cat domain.Category) []column {
	if variant == reconcile.VariantLegacy {
		var layout []column
		switch bucketName {
		case BucketCompleted:
			layout = legacyCompleted
		case BucketUpcoming:
			layout = legacyUpcoming
		default:
			layout = legacyOverdue
		}
		if cat == domain.CategoryOperator {
			layout = append(append([]column(nil), layout...), legacyKindColumn)
		}
		return layout
	}
	switch bucketName {
	case BucketCompleted:
		return unifiedCompleted
	case BucketUpcoming:
		return unifiedUpcoming
	default:
		return unifiedOverdue
	}
}
