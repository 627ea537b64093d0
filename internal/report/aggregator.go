package report

import (
	"fmt"

	"github.com/geo-tg/ljb-asset-workorder-updates/internal/domain"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/reconcile"
)

// Bucket names double as the worksheet name suffix.
const (
	BucketCompleted = "Completed"
	BucketUpcoming  = "Upcoming"
	BucketOverdue   = "Overdue"
)

// Aggregator buckets reconciliation outcomes per category, one row per asset.
// Rows keep insertion order; a second row for the same asset replaces the
// first in place.
type Aggregator struct {
	categories []domain.Category
	buckets    map[string]*bucket // "<category>|<bucket>"
}

type bucket struct {
	order []string
	rows  map[string]domain.ReportRow
}

func newBucket() *bucket {
	return &bucket{rows: make(map[string]domain.ReportRow)}
}

func (b *bucket) put(row domain.ReportRow) {
	if _, seen := b.rows[row.AssetID]; !seen {
		b.order = append(b.order, row.AssetID)
	}
	b.rows[row.AssetID] = row
}

// NewAggregator prepares empty buckets for the given categories. The category
// order fixes the worksheet order within each bucket.
func NewAggregator(categories []domain.Category) *Aggregator {
	a := &Aggregator{
		categories: categories,
		buckets:    make(map[string]*bucket),
	}
	for _, cat := range categories {
		for _, name := range []string{BucketCompleted, BucketUpcoming, BucketOverdue} {
			a.buckets[bucketKey(cat, name)] = newBucket()
		}
	}
	return a
}

func bucketKey(cat domain.Category, name string) string {
	return string(cat) + "|" + name
}

// Add files the report rows a reconciliation result carries. A completed
// inspection whose new cycle is already within the lead window contributes
// both a completed and an upcoming row.
func (a *Aggregator) Add(res reconcile.Result) {
	for _, entry := range []struct {
		name string
		row  *domain.ReportRow
	}{
		{BucketCompleted, res.Completed},
		{BucketUpcoming, res.Upcoming},
		{BucketOverdue, res.Overdue},
	} {
		if entry.row == nil {
			continue
		}
		if _, ok := a.buckets[bucketKey(entry.row.Category, BucketCompleted)]; !ok {
			// Category missing from the configured set; register it last.
			a.categories = append(a.categories, entry.row.Category)
			for _, name := range []string{BucketCompleted, BucketUpcoming, BucketOverdue} {
				a.buckets[bucketKey(entry.row.Category, name)] = newBucket()
			}
		}
		a.buckets[bucketKey(entry.row.Category, entry.name)].put(*entry.row)
	}
}

// Sheets renders every bucket as a worksheet, completed sheets first, then
// upcoming, then overdue, categories in configured order within each group.
// Empty buckets still produce a header-only sheet.
func (a *Aggregator) Sheets(variant reconcile.Variant) []Sheet {
	var sheets []Sheet
	for _, name := range []string{BucketCompleted, BucketUpcoming, BucketOverdue} {
		for _, cat := range a.categories {
			b := a.buckets[bucketKey(cat, name)]
			if b == nil {
				continue
			}
			layout := layoutFor(variant, name, cat)
			sheet := Sheet{
				Name:    fmt.Sprintf("%s %s", cat.DisplayName(), name),
				Columns: headers(layout),
			}
			for _, id := range b.order {
				sheet.Rows = append(sheet.Rows, renderRow(layout, b.rows[id]))
			}
			sheets = append(sheets, sheet)
		}
	}
	return sheets
}

// Counts reports the number of rows per bucket name, for run summary logging.
func (a *Aggregator) Counts() map[string]int {
	counts := make(map[string]int, 3)
	for _, name := range []string{BucketCompleted, BucketUpcoming, BucketOverdue} {
		for _, cat := range a.categories {
			if b := a.buckets[bucketKey(cat, name)]; b != nil {
				counts[name] += len(b.order)
			}
		}
	}
	return counts
}
