package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is everything one reconciliation run needs, read once at startup.
// Defaults mirror the unified work-order service; legacy deployments
// override the policy and field sections in YAML.
type Config struct {
	Portal   PortalConfig  `mapstructure:"portal"`
	Service  ServiceConfig `mapstructure:"service"`
	Policy   PolicyConfig  `mapstructure:"policy"`
	Fields   FieldsConfig  `mapstructure:"fields"`
	Report   ReportConfig  `mapstructure:"report"`
	Email    EmailConfig   `mapstructure:"email"`
	Log      LogConfig     `mapstructure:"log"`
	Timezone string        `mapstructure:"timezone"` // IANA name; empty = local
}

// PortalConfig is the GIS portal account the run signs in with.
type PortalConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ServiceConfig locates the feature service and its layer indices.
type ServiceConfig struct {
	URL            string             `mapstructure:"url"` // .../FeatureServer
	WorkOrderLayer int                `mapstructure:"work_order_layer"`
	WorkOrderTable int                `mapstructure:"work_order_table"` // unified only; -1 when absent
	ListLayer      int                `mapstructure:"list_layer"`
	AssetLayers    []AssetLayerConfig `mapstructure:"asset_layers"`

	// All work orders are mirrored to the list layer at one fixed location
	// so the map widget can render them as a single stack.
	ListX float64 `mapstructure:"list_x"`
	ListY float64 `mapstructure:"list_y"`
}

// AssetLayerConfig binds one asset category to a feature layer and its
// field names. Two categories may share a layer (the legacy service keeps
// the Operator and PE schedules on the same features).
type AssetLayerConfig struct {
	Category string      `mapstructure:"category"`
	Layer    int         `mapstructure:"layer"`
	Fields   AssetFields `mapstructure:"fields"`
}

// AssetFields names the attributes of an asset layer. The asset-id field is
// configured explicitly per layer rather than guessed from field names.
type AssetFields struct {
	AssetID        string `mapstructure:"asset_id"`
	EquipType      string `mapstructure:"equip_type"` // legacy hazard Type (Crane or WWS)
	Accessible     string `mapstructure:"accessible"` // legacy ProductionAccessible
	Area           string `mapstructure:"area"`
	Building       string `mapstructure:"building"`
	Description    string `mapstructure:"description"`
	Notes          string `mapstructure:"notes"`
	Inspector      string `mapstructure:"inspector"`
	Clock          string `mapstructure:"clock"`
	Interval       string `mapstructure:"interval"`
	NextInspection string `mapstructure:"next_inspection"`
	LastInspection string `mapstructure:"last_inspection"`
}

// WorkOrderFields names the attributes of the work-order layer and table.
type WorkOrderFields struct {
	AssetID        string `mapstructure:"asset_id"` // RELAssetID / HazardID
	Type           string `mapstructure:"type"`
	Status         string `mapstructure:"status"`
	Assignee       string `mapstructure:"assignee"`
	DueDate        string `mapstructure:"due_date"`
	Completed      string `mapstructure:"completed"` // legacy CompleteDate
	Created        string `mapstructure:"created"`
	LastInspection string `mapstructure:"last_inspection"`
	NextInspection string `mapstructure:"next_inspection"`
	Clock          string `mapstructure:"clock"`

	// Location attributes stamped onto inserted work orders; empty names
	// are skipped.
	Area        string `mapstructure:"area"`
	Building    string `mapstructure:"building"`
	Description string `mapstructure:"description"`
	Notes       string `mapstructure:"notes"`
}

// FieldsConfig groups the work-order field map; asset maps live on the
// individual layer entries.
type FieldsConfig struct {
	WorkOrder WorkOrderFields `mapstructure:"work_order"`
}

// PolicyConfig selects the reconciliation variant and its thresholds.
type PolicyConfig struct {
	Variant     string                `mapstructure:"variant"` // legacy | unified
	LeadWindows map[string]int        `mapstructure:"lead_windows"`
	Assignments map[string]Assignment `mapstructure:"assignments"`

	// ReportWeekday gates the business email in the unified model; "" sends
	// every run (the legacy behavior).
	ReportWeekday string `mapstructure:"report_weekday"`
}

// Assignment stamps new work orders for one category.
type Assignment struct {
	Type     string `mapstructure:"type"`
	Assignee string `mapstructure:"assignee"`
}

// ReportConfig controls workbook output and archival.
type ReportConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	ArchiveDir  string `mapstructure:"archive_dir"`
	ArchiveKeep int    `mapstructure:"archive_keep"`
	FilePrefix  string `mapstructure:"file_prefix"`
}

// EmailConfig holds SMTP settings and the two recipient sets: the business
// report distribution and the failure-alert list.
type EmailConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	CC       []string `mapstructure:"cc"`
	Subject  string   `mapstructure:"subject"`
	Body     string   `mapstructure:"body"`
	ErrorTo  []string `mapstructure:"error_to"`
}

// LogConfig mirrors the logger setup: level/format plus the directory that
// receives the monthly log file attached to failure alerts.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"`
}

// Load reads the YAML config at path with environment overrides (prefix
// AWU_, e.g. AWU_PORTAL_PASSWORD).
func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	viper.SetDefault("policy.variant", "unified")
	viper.SetDefault("policy.lead_windows", map[string]int{
		"Crane":        60,
		"Extinguisher": 60,
		"Eyewash":      60,
		"Forklift":     60,
		"Operator":     40,
		"PE":           375,
	})
	viper.SetDefault("service.work_order_table", -1)
	viper.SetDefault("service.list_x", -9453433.93)
	viper.SetDefault("service.list_y", 5067414.83)

	viper.SetDefault("fields.work_order.asset_id", "RELAssetID")
	viper.SetDefault("fields.work_order.type", "AssignmentType")
	viper.SetDefault("fields.work_order.status", "AssignmentStatus")
	viper.SetDefault("fields.work_order.assignee", "username")
	viper.SetDefault("fields.work_order.due_date", "AssignmentDueDate")
	viper.SetDefault("fields.work_order.completed", "CompleteDate")
	viper.SetDefault("fields.work_order.created", "created_date")
	viper.SetDefault("fields.work_order.last_inspection", "LastInspect")
	viper.SetDefault("fields.work_order.next_inspection", "NextInspection")
	viper.SetDefault("fields.work_order.clock", "Clock")

	viper.SetDefault("report.output_dir", "data")
	viper.SetDefault("report.archive_dir", "archived")
	viper.SetDefault("report.archive_keep", 8)
	viper.SetDefault("report.file_prefix", "WWSAssetUpdates_")

	viper.SetDefault("email.port", 25)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.dir", "logs")

	viper.SetEnvPrefix("AWU")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The weekday gate belongs to the unified model. Legacy deployments mail
	// on every run unless they configure a weekday themselves.
	if cfg.Policy.Variant == "unified" && !viper.IsSet("policy.report_weekday") {
		cfg.Policy.ReportWeekday = "Monday"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the run cannot start with.
func (c *Config) Validate() error {
	if c.Portal.URL == "" || c.Service.URL == "" {
		return fmt.Errorf("portal.url and service.url are required")
	}
	if c.Policy.Variant != "legacy" && c.Policy.Variant != "unified" {
		return fmt.Errorf("policy.variant must be legacy or unified, got %q", c.Policy.Variant)
	}
	if len(c.Service.AssetLayers) == 0 {
		return fmt.Errorf("service.asset_layers must name at least one layer")
	}
	for _, al := range c.Service.AssetLayers {
		if al.Fields.AssetID == "" {
			return fmt.Errorf("asset layer %q needs an explicit fields.asset_id", al.Category)
		}
		if al.Fields.NextInspection == "" {
			return fmt.Errorf("asset layer %q needs fields.next_inspection", al.Category)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ReportDay parses policy.report_weekday; ok is false when every run
// should send the report.
func (c *Config) ReportDay() (time.Weekday, bool) {
	switch c.Policy.ReportWeekday {
	case "Sunday":
		return time.Sunday, true
	case "Monday":
		return time.Monday, true
	case "Tuesday":
		return time.Tuesday, true
	case "Wednesday":
		return time.Wednesday, true
	case "Thursday":
		return time.Thursday, true
	case "Friday":
		return time.Friday, true
	case "Saturday":
		return time.Saturday, true
	default:
		return 0, false
	}
}
