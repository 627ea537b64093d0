package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// Category identifies which asset feature layer a record came from in the
// unified service, or which legacy schedule (Operator/PE) it represents.
type Category string

const (
	CategoryCrane        Category = "Crane"
	CategoryExtinguisher Category = "Extinguisher"
	CategoryEyewash      Category = "Eyewash"
	CategoryForklift     Category = "Forklift"
	CategoryOperator     Category = "Operator"
	CategoryPE           Category = "PE"
)

// DisplayName is the category name used in worksheet titles.
func (c Category) DisplayName() string {
	switch c {
	case CategoryExtinguisher:
		return "Fire Extinguisher"
	case CategoryForklift:
		return "Fork Truck"
	default:
		return string(c)
	}
}

// Interval is an inspection frequency. The unified service stores a named
// frequency (Daily, Weekly, ...); the legacy service stores a day count.
type Interval struct {
	Name string // named frequency, "" for the legacy numeric form
	Days int    // legacy day count
}

// String renders the interval for report rows.
func (iv Interval) String() string {
	if iv.Name != "" {
		return iv.Name
	}
	if iv.Days > 0 {
		if iv.Days == 1 {
			return "1 day"
		}
		return strconv.Itoa(iv.Days) + " days"
	}
	return ""
}

// Asset is one row of an asset feature layer.
// Invariant: an Asset only enters the working set when NextInspection is set.
type Asset struct {
	AssetID     string
	Category    Category
	Area        string
	Building    string // legacy: AssetLocation
	Description string
	Notes       string
	Clock       string // unified: inspector clock number
	Kind        string // legacy: hazard Type attribute (Crane or WWS)
	Accessible  string // legacy: ProductionAccessible
	Interval    Interval

	// Inspection schedule, epoch milliseconds (feature-service date encoding).
	LastInspection *int64
	NextInspection *int64

	ObjectID int64
	GlobalID string
	Geometry json.RawMessage
}

// NextInspectionTime converts NextInspection to a time in loc.
// Callers must only use it when NextInspection is set.
func (a *Asset) NextInspectionTime(loc *time.Location) time.Time {
	return MSToTime(*a.NextInspection, loc)
}

// MSToTime converts a feature-service epoch-millisecond date.
func MSToTime(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}

// TimeToMS converts a time back to the epoch-millisecond encoding.
func TimeToMS(t time.Time) int64 {
	return t.UnixMilli()
}
