package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geo-tg/ljb-asset-workorder-updates/internal/config"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/feature"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/notify"
)

const (
	craneLayer = 1
	woLayer    = 2
	woTable    = 3
	listLayer  = 4
)

type fakeStore struct {
	features map[int][]feature.Feature

	added   map[int][]feature.Feature
	updated map[int][]feature.Feature
	deleted map[int][]int64

	failUpdateOID   int64
	emptyAddResults bool
	nextOID         int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		features: make(map[int][]feature.Feature),
		added:    make(map[int][]feature.Feature),
		updated:  make(map[int][]feature.Feature),
		deleted:  make(map[int][]int64),
		nextOID:  100,
	}
}

func (s *fakeStore) Query(_ context.Context, layer int, _ string) ([]feature.Feature, error) {
	return s.features[layer], nil
}

func (s *fakeStore) Add(_ context.Context, layer int, feats []feature.Feature) ([]feature.EditResult, error) {
	s.added[layer] = append(s.added[layer], feats...)
	if s.emptyAddResults {
		return nil, nil
	}
	results := make([]feature.EditResult, len(feats))
	for i := range feats {
		s.nextOID++
		results[i] = feature.EditResult{ObjectID: s.nextOID, Success: true}
	}
	return results, nil
}

func (s *fakeStore) Update(_ context.Context, layer int, feats []feature.Feature) ([]feature.EditResult, error) {
	for _, f := range feats {
		if oid, ok := f.Attributes["OBJECTID"].(int64); ok && oid == s.failUpdateOID {
			return nil, errors.New("update rejected")
		}
	}
	s.updated[layer] = append(s.updated[layer], feats...)
	results := make([]feature.EditResult, len(feats))
	for i := range results {
		results[i] = feature.EditResult{Success: true}
	}
	return results, nil
}

func (s *fakeStore) Delete(_ context.Context, layer int, ids []int64) error {
	s.deleted[layer] = append(s.deleted[layer], ids...)
	return nil
}

func (s *fakeStore) Attachments(context.Context, int, int64) ([]feature.AttachmentInfo, error) {
	return nil, nil
}

func (s *fakeStore) DownloadAttachment(context.Context, int, int64, feature.AttachmentInfo) ([]byte, error) {
	return nil, errors.New("no attachments in fake")
}

func (s *fakeStore) AddAttachment(context.Context, int, int64, string, []byte) error {
	return nil
}

type fakeNotifier struct {
	sent []notify.Message
}

func (n *fakeNotifier) Send(msg notify.Message) error {
	n.sent = append(n.sent, msg)
	return nil
}

var testToday = time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Policy: config.PolicyConfig{
			Variant:     "unified",
			LeadWindows: map[string]int{"Crane": 60},
			Assignments: map[string]config.Assignment{
				"Crane": {Type: "Crane Inspection", Assignee: "crane.crew"},
			},
			ReportWeekday: testToday.Weekday().String(),
		},
		Service: config.ServiceConfig{
			WorkOrderLayer: woLayer,
			WorkOrderTable: woTable,
			ListLayer:      listLayer,
			ListX:          -9453433.93,
			ListY:          5067414.83,
			AssetLayers: []config.AssetLayerConfig{
				{
					Category: "Crane",
					Layer:    craneLayer,
					Fields: config.AssetFields{
						AssetID:        "AssetID",
						Area:           "MeltShopArea",
						Building:       "Building",
						Interval:       "InspectInterval",
						NextInspection: "NextInspection",
						LastInspection: "LastInspect",
						Inspector:      "InspectName",
						Clock:          "Clock",
					},
				},
			},
		},
		Fields: config.FieldsConfig{
			WorkOrder: config.WorkOrderFields{
				AssetID:        "RELAssetID",
				Type:           "AssignmentType",
				Status:         "AssignmentStatus",
				Assignee:       "username",
				DueDate:        "AssignmentDueDate",
				Completed:      "CompleteDate",
				Created:        "created_date",
				LastInspection: "LastInspect",
				NextInspection: "NextInspection",
				Clock:          "Clock",
				Area:           "MeltShopArea",
				Building:       "Building",
			},
		},
		Report: config.ReportConfig{
			OutputDir:   filepath.Join(dir, "data"),
			ArchiveDir:  filepath.Join(dir, "archived"),
			ArchiveKeep: 8,
			FilePrefix:  "WWSAssetUpdates_",
		},
		Email: config.EmailConfig{
			To:      []string{"ops@example.com"},
			Subject: "WWS Asset Updates",
			Body:    "Workbook attached.",
		},
		Timezone: "UTC",
	}
}

func craneFeature(id string, due time.Time) feature.Feature {
	return feature.Feature{Attributes: map[string]any{
		"OBJECTID":        float64(1),
		"GlobalID":        "{A1}",
		"AssetID":         id,
		"MeltShopArea":    "Melt Shop",
		"Building":        "Bldg 2",
		"InspectInterval": "Monthly",
		"NextInspection":  float64(due.UnixMilli()),
		"Clock":           "4417",
	}}
}

func TestRun_CreatesWorkOrderAndMirrorsAndMails(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	store.features[craneLayer] = []feature.Feature{
		craneFeature("CR-1", testToday.AddDate(0, 0, 10)),
	}
	notifier := &fakeNotifier{}

	r, err := New(cfg, store, notifier, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background(), testToday))

	// One new work order, stamped with the asset's location attributes.
	require.Len(t, store.added[woLayer], 1)
	wo := store.added[woLayer][0]
	require.Equal(t, "CR-1", wo.Attributes["RELAssetID"])
	require.Equal(t, "Assigned", wo.Attributes["AssignmentStatus"])
	require.Equal(t, "Crane Inspection", wo.Attributes["AssignmentType"])
	require.Equal(t, "Melt Shop", wo.Attributes["MeltShopArea"])
	require.NotEmpty(t, wo.Attributes["GlobalID"])

	// The list mirror copies the work-order layer snapshot (empty in the
	// fake, queried separately from the snapshot build).
	require.Empty(t, store.deleted[listLayer])

	// Report mail goes out with the workbook, which then lands in the
	// archive.
	require.Len(t, notifier.sent, 1)
	require.Equal(t, []string{"ops@example.com"}, notifier.sent[0].To)
	require.NotEmpty(t, notifier.sent[0].Attachment)

	entries, err := os.ReadDir(cfg.Report.ArchiveDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "WWSAssetUpdates_20260310.xlsx", entries[0].Name())
}

func TestRun_SkipsReportMailOffSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Policy.ReportWeekday = testToday.AddDate(0, 0, 1).Weekday().String()
	store := newFakeStore()
	notifier := &fakeNotifier{}

	r, err := New(cfg, store, notifier, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background(), testToday))

	require.Empty(t, notifier.sent)

	// The workbook is still produced and archived.
	entries, err := os.ReadDir(cfg.Report.ArchiveDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRun_MirrorRebuildsListLayer(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	store.features[woLayer] = []feature.Feature{
		{Attributes: map[string]any{
			"OBJECTID":         float64(51),
			"GlobalID":         "{W1}",
			"RELAssetID":       "CR-9",
			"AssignmentStatus": "Assigned",
		}},
	}
	store.features[listLayer] = []feature.Feature{
		{Attributes: map[string]any{"OBJECTID": float64(7)}},
	}
	notifier := &fakeNotifier{}

	r, err := New(cfg, store, notifier, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background(), testToday))

	require.Equal(t, []int64{7}, store.deleted[listLayer])
	require.Len(t, store.added[listLayer], 1)

	mirrored := store.added[listLayer][0]
	require.Equal(t, "CR-9", mirrored.Attributes["RELAssetID"])
	require.NotContains(t, mirrored.Attributes, "OBJECTID")
	require.NotContains(t, mirrored.Attributes, "GlobalID")
	require.JSONEq(t,
		`{"x":-9453433.93,"y":5067414.83,"spatialReference":{"wkid":102100}}`,
		string(mirrored.Geometry),
	)
}

func TestRun_EmptyAddResultDoesNotAbort(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()
	store.emptyAddResults = true
	store.features[craneLayer] = []feature.Feature{
		craneFeature("CR-1", testToday.AddDate(0, 0, 10)),
	}
	notifier := &fakeNotifier{}

	r, err := New(cfg, store, notifier, zap.NewNop())
	require.NoError(t, err)
	require.NotPanics(t, func() {
		require.NoError(t, r.Run(context.Background(), testToday))
	})

	// The insert was attempted, and the rest of the run still completed.
	require.Len(t, store.added[woLayer], 1)
	entries, err := os.ReadDir(cfg.Report.ArchiveDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRun_WriteFailureDoesNotAbort(t *testing.T) {
	cfg := testConfig(t)
	store := newFakeStore()

	// Two cranes with stale points past due; the first point's status edit
	// is rejected by the store.
	overdueDue := testToday.AddDate(0, 0, -5)
	a1 := craneFeature("CR-1", overdueDue)
	a1.Attributes["OBJECTID"] = float64(11)
	a2 := craneFeature("CR-2", overdueDue)
	a2.Attributes["OBJECTID"] = float64(12)
	store.features[craneLayer] = []feature.Feature{a1, a2}
	store.features[woLayer] = []feature.Feature{
		{Attributes: map[string]any{"OBJECTID": float64(201), "RELAssetID": "CR-1", "AssignmentStatus": "Assigned"}},
		{Attributes: map[string]any{"OBJECTID": float64(202), "RELAssetID": "CR-2", "AssignmentStatus": "Assigned"}},
	}
	store.failUpdateOID = 201
	notifier := &fakeNotifier{}

	r, err := New(cfg, store, notifier, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background(), testToday))

	// CR-2's edit still lands.
	var statusEdits []int64
	for _, f := range store.updated[woLayer] {
		if f.Attributes["AssignmentStatus"] == "Overdue" {
			statusEdits = append(statusEdits, f.Attributes["OBJECTID"].(int64))
		}
	}
	require.Equal(t, []int64{202}, statusEdits)
}
