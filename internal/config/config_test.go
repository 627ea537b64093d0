package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
portal:
  url: https://maps.example.com/portal
  username: svc
  password: pw
service:
  url: https://maps.example.com/server/rest/services/WWSAssets/FeatureServer
  work_order_layer: 0
  list_layer: 6
  asset_layers:
    - category: Crane
      layer: 1
      fields:
        asset_id: AssetID
        next_inspection: NextInspection
timezone: UTC
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	require.Equal(t, "unified", cfg.Policy.Variant)
	require.Equal(t, 60, cfg.Policy.LeadWindows["Crane"])
	require.Equal(t, 375, cfg.Policy.LeadWindows["PE"])
	require.Equal(t, -1, cfg.Service.WorkOrderTable)
	require.Equal(t, "RELAssetID", cfg.Fields.WorkOrder.AssetID)
	require.Equal(t, "WWSAssetUpdates_", cfg.Report.FilePrefix)
	require.Equal(t, 8, cfg.Report.ArchiveKeep)
	require.Equal(t, 25, cfg.Email.Port)
	require.InDelta(t, -9453433.93, cfg.Service.ListX, 0.001)

	day, ok := cfg.ReportDay()
	require.True(t, ok)
	require.Equal(t, time.Monday, day)

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "UTC", loc.String())
}

func TestLoad_RejectsUnknownVariant(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
policy:
  variant: experimental
`))
	require.ErrorContains(t, err, "policy.variant")
}

func TestLoad_RequiresAssetIDField(t *testing.T) {
	_, err := Load(writeConfig(t, `
portal: {url: https://p.example.com, username: u, password: p}
service:
  url: https://s.example.com/FeatureServer
  asset_layers:
    - category: Crane
      layer: 1
      fields: {next_inspection: NextInspection}
`))
	require.ErrorContains(t, err, "fields.asset_id")
}

func TestLoad_LegacyMailsEveryRunByDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
policy:
  variant: legacy
`))
	require.NoError(t, err)

	require.Empty(t, cfg.Policy.ReportWeekday)
	_, ok := cfg.ReportDay()
	require.False(t, ok)
}

func TestLoad_WeekdayOverrideWins(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
policy:
  variant: legacy
  report_weekday: Friday
`))
	require.NoError(t, err)

	day, ok := cfg.ReportDay()
	require.True(t, ok)
	require.Equal(t, time.Friday, day)
}

func TestReportDay_EmptyMeansEveryRun(t *testing.T) {
	cfg := Config{Policy: PolicyConfig{ReportWeekday: ""}}
	_, ok := cfg.ReportDay()
	require.False(t, ok)
}
