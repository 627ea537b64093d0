package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/geo-tg/ljb-asset-workorder-updates/internal/domain"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/reconcile"
)

func upcomingResult(id string, cat domain.Category) reconcile.Result {
	return reconcile.Result{
		AssetID: id,
		Outcome: domain.OutcomeCreateUpcoming,
		Upcoming: &domain.ReportRow{
			AssetID:  id,
			Category: cat,
			Area:     "Melt Shop",
			Building: "Bldg 2",
			Clock:    "4417",
			Interval: "Monthly",
			DueDate:  "2026-04-01 00:00:00",
		},
	}
}

func TestAggregator_BucketsPerCategoryInOrder(t *testing.T) {
	agg := NewAggregator([]domain.Category{domain.CategoryExtinguisher, domain.CategoryCrane})

	agg.Add(upcomingResult("CR-1", domain.CategoryCrane))
	agg.Add(upcomingResult("FE-1", domain.CategoryExtinguisher))
	agg.Add(reconcile.Result{
		AssetID: "CR-2",
		Outcome: domain.OutcomeMarkCompletedAndRenew,
		Completed: &domain.ReportRow{
			AssetID: "CR-2", Category: domain.CategoryCrane,
			CompletedDate: "2026-03-01 10:00:00", NextDate: "2026-04-01 10:00:00",
			Assignee: "mjones", Interval: "Monthly",
		},
		Upcoming: &domain.ReportRow{
			AssetID: "CR-2", Category: domain.CategoryCrane,
			DueDate: "2026-04-01 10:00:00", LastInspection: "2026-03-01 10:00:00",
		},
	})

	sheets := agg.Sheets(reconcile.VariantUnified)

	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = s.Name
	}
	require.Equal(t, []string{
		"Fire Extinguisher Completed", "Crane Completed",
		"Fire Extinguisher Upcoming", "Crane Upcoming",
		"Fire Extinguisher Overdue", "Crane Overdue",
	}, names)

	crane := sheets[3]
	require.Len(t, crane.Rows, 2, "one upcoming row per crane asset")
	require.Equal(t, "CR-1", crane.Rows[0][len(crane.Rows[0])-1])
	require.Equal(t, "CR-2", crane.Rows[1][len(crane.Rows[1])-1])

	require.Empty(t, sheets[0].Rows, "no completed extinguishers")
	require.NotEmpty(t, sheets[0].Columns, "empty buckets still carry headers")
}

func TestAggregator_SecondRowForAssetReplacesFirst(t *testing.T) {
	agg := NewAggregator([]domain.Category{domain.CategoryCrane})

	first := upcomingResult("CR-1", domain.CategoryCrane)
	second := upcomingResult("CR-1", domain.CategoryCrane)
	second.Upcoming.DueDate = "2026-05-01 00:00:00"
	agg.Add(first)
	agg.Add(upcomingResult("CR-2", domain.CategoryCrane))
	agg.Add(second)

	sheets := agg.Sheets(reconcile.VariantUnified)
	upcoming := sheets[1]

	require.Len(t, upcoming.Rows, 2)
	require.Equal(t, "CR-1", upcoming.Rows[0][8], "replacement keeps the original position")
	require.Equal(t, "2026-05-01 00:00:00", upcoming.Rows[0][5])
}

func TestLayout_LegacyOperatorCarriesKindColumn(t *testing.T) {
	op := layoutFor(reconcile.VariantLegacy, BucketOverdue, domain.CategoryOperator)
	pe := layoutFor(reconcile.VariantLegacy, BucketOverdue, domain.CategoryPE)

	require.Equal(t, "Type (Crane or WWS)", op[len(op)-1].header)
	require.Equal(t, len(pe)+1, len(op))
	require.Equal(t, "Original Due Date", op[0].header)
	require.Equal(t, "Days Overdue", op[1].header)
}

func TestLayout_UnifiedOverdueColumns(t *testing.T) {
	layout := layoutFor(reconcile.VariantUnified, BucketOverdue, domain.CategoryCrane)
	require.Equal(t, []string{
		"Area", "Building", "Equipment Type", "Notes", "Inspector Clock",
		"Duedate", "Days Overdue", "Last Inspection Date", "Inspection Interval", "Asset ID",
	}, headers(layout))

	row := renderRow(layout, domain.ReportRow{
		AssetID: "CR-1", Category: domain.CategoryForklift, DaysOverdue: 5,
	})
	require.Equal(t, "Fork Truck", row[2])
	require.Equal(t, 5, row[6])
}

func TestLayout_UnifiedCompletedRendersClock(t *testing.T) {
	layout := layoutFor(reconcile.VariantUnified, BucketCompleted, domain.CategoryCrane)
	require.Equal(t, "Inspector Clock", headers(layout)[4])

	row := renderRow(layout, domain.ReportRow{
		AssetID: "CR-1", Category: domain.CategoryCrane,
		Clock: "8802", Assignee: "mjones",
		CompletedDate: "2026-03-01 10:00:00",
	})
	require.Equal(t, "8802", row[4], "the clock number, not the username")
	require.Equal(t, "2026-03-01 10:00:00", row[5])
}

func TestFilename(t *testing.T) {
	today := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	require.Equal(t, "WWSAssetUpdates_20260309.xlsx", Filename("WWSAssetUpdates_", today))
}

func TestWriteWorkbookFile_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	sheets := []Sheet{
		{
			Name:    "Crane Upcoming",
			Columns: []string{"Area", "Asset ID"},
			Rows:    [][]any{{"Melt Shop", "CR-1"}, {"Caster", "CR-2"}},
		},
		{
			Name:    "Crane Overdue",
			Columns: []string{"Asset ID", "Days Overdue"},
		},
	}

	path, err := WriteWorkbookFile(dir, "WWSAssetUpdates_", time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), sheets)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "WWSAssetUpdates_20260309.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"Crane Upcoming", "Crane Overdue"}, f.GetSheetList())

	rows, err := f.GetRows("Crane Upcoming")
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Area", "Asset ID"},
		{"Melt Shop", "CR-1"},
		{"Caster", "CR-2"},
	}, rows)

	rows, err = f.GetRows("Crane Overdue")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Asset ID", "Days Overdue"}}, rows)
}

func TestArchive_MovesAndPrunesOldest(t *testing.T) {
	dir := t.TempDir()
	arch := filepath.Join(dir, "archived")

	write := func(name string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("wb"), 0o644))
		return p
	}

	require.NoError(t, os.MkdirAll(arch, 0o755))
	for _, name := range []string{
		"WWSAssetUpdates_20260301.xlsx",
		"WWSAssetUpdates_20260302.xlsx",
		"WWSAssetUpdates_20260303.xlsx",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(arch, name), []byte("wb"), 0o644))
	}

	path := write("WWSAssetUpdates_20260309.xlsx")
	require.NoError(t, Archive(path, arch, 3))

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "workbook should be moved out of the run dir")

	entries, err := os.ReadDir(arch)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Equal(t, []string{
		"WWSAssetUpdates_20260302.xlsx",
		"WWSAssetUpdates_20260303.xlsx",
		"WWSAssetUpdates_20260309.xlsx",
	}, names)
}

func TestArchive_KeepZeroDisablesPruning(t *testing.T) {
	dir := t.TempDir()
	arch := filepath.Join(dir, "archived")

	path := filepath.Join(dir, "WWSAssetUpdates_20260309.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("wb"), 0o644))
	require.NoError(t, Archive(path, arch, 0))

	entries, err := os.ReadDir(arch)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
