package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Log         LogConfig         `yaml:"log"`
	Run         RunConfig         `yaml:"run"`
	StatusPage  StatusPageConfig  `yaml:"statuspage"`
	Helpdesk    HelpdeskConfig    `yaml:"helpdesk"`
	Secrets     SecretsConfig     `yaml:"secrets"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
	Database    DatabaseConfig    `yaml:"database"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Export      ExportConfig      `yaml:"export"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// RunConfig holds the per-run toggles. CLI flags override these.
type RunConfig struct {
	Debug  bool `yaml:"debug"`
	DryRun bool `yaml:"dry_run"`
}

// StatusPageConfig contains status-page API settings
type StatusPageConfig struct {
	BaseURL      string   `yaml:"base_url" validate:"required,url"`
	AccountURL   string   `yaml:"account_url"` // printf pattern used for account reachability checks
	AuthScheme   string   `yaml:"auth_scheme" validate:"oneof=basic bearer"`
	Timeout      Duration `yaml:"timeout"`
	RateLimitRPS float64  `yaml:"rate_limit_rps"`
	PageSize     int      `yaml:"page_size" validate:"gt=0"`
}

// HelpdeskConfig contains helpdesk (ticketing/KB) API settings
type HelpdeskConfig struct {
	Domain          string   `yaml:"domain"`
	BaseURLTemplate string   `yaml:"base_url_template" validate:"required"`
	Timeout         Duration `yaml:"timeout"`
	RateLimitRPS    float64  `yaml:"rate_limit_rps"`
	PageSize        int      `yaml:"page_size" validate:"gt=0"`
}

// BaseURL returns the helpdesk API root for a domain
func (c *HelpdeskConfig) BaseURL(domain string) string {
	if strings.Contains(c.BaseURLTemplate, "%s") {
		return fmt.Sprintf(c.BaseURLTemplate, domain)
	}
	return c.BaseURLTemplate
}

// SecretsConfig points at the credential files
type SecretsConfig struct {
	Dir               string `yaml:"dir" validate:"required"`
	StatusPagePattern string `yaml:"statuspage_pattern" validate:"required"`
	HelpdeskPattern   string `yaml:"helpdesk_pattern" validate:"required"`
}

// ReconcileConfig controls name matching during backup restore
type ReconcileConfig struct {
	Match      string `yaml:"match" validate:"oneof=exact fold lua"`
	KeyScript  string `yaml:"key_script" validate:"required_if=Match lua"`
	Duplicates string `yaml:"duplicates" validate:"oneof=warn reject"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// LedgerConfig contains publish ledger settings
type LedgerConfig struct {
	RetentionDays int `yaml:"retention_days" validate:"gte=0"`
}

// ExportConfig contains export output settings
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// MaintenanceConfig contains maintenance scheduling settings
type MaintenanceConfig struct {
	Template            string `yaml:"template"`
	TimezoneOffsetHours int    `yaml:"timezone_offset_hours" validate:"gte=-12,lte=14"`
	DefaultStart        string `yaml:"default_start"`
	DefaultEnd          string `yaml:"default_end"`
}

// Location returns the fixed zone maintenance windows are entered in
func (c *MaintenanceConfig) Location() *time.Location {
	offset := c.TimezoneOffsetHours * 3600
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.TimezoneOffsetHours), offset)
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file.
// A missing file is not an error: the defaults are returned instead.
func Load(path string) (*Config, error) {
	// .env is optional, values already in the environment win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand environment variables
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// Status page defaults
	if cfg.StatusPage.BaseURL == "" {
		cfg.StatusPage.BaseURL = "https://public-api.freshstatus.io/api/v1/"
	}
	if cfg.StatusPage.AccountURL == "" {
		cfg.StatusPage.AccountURL = "https://%s.freshstatus.io"
	}
	if cfg.StatusPage.AuthScheme == "" {
		cfg.StatusPage.AuthScheme = "basic"
	}
	if cfg.StatusPage.Timeout == 0 {
		cfg.StatusPage.Timeout = Duration(30 * time.Second)
	}
	if cfg.StatusPage.RateLimitRPS == 0 {
		cfg.StatusPage.RateLimitRPS = 5.0
	}
	if cfg.StatusPage.PageSize == 0 {
		cfg.StatusPage.PageSize = 100
	}

	// Helpdesk defaults
	if cfg.Helpdesk.BaseURLTemplate == "" {
		cfg.Helpdesk.BaseURLTemplate = "https://%s.freshservice.com/api/v2/"
	}
	if cfg.Helpdesk.Timeout == 0 {
		cfg.Helpdesk.Timeout = Duration(30 * time.Second)
	}
	if cfg.Helpdesk.RateLimitRPS == 0 {
		cfg.Helpdesk.RateLimitRPS = 5.0
	}
	if cfg.Helpdesk.PageSize == 0 {
		cfg.Helpdesk.PageSize = 100
	}

	// Secrets defaults
	if cfg.Secrets.Dir == "" {
		cfg.Secrets.Dir = "~/.secrets"
	}
	if cfg.Secrets.StatusPagePattern == "" {
		cfg.Secrets.StatusPagePattern = "freshstatus_%s.key"
	}
	if cfg.Secrets.HelpdeskPattern == "" {
		cfg.Secrets.HelpdeskPattern = "freshservice_%s.key"
	}

	// Reconcile defaults - exact, case-sensitive names
	if cfg.Reconcile.Match == "" {
		cfg.Reconcile.Match = "exact"
	}
	if cfg.Reconcile.Duplicates == "" {
		cfg.Reconcile.Duplicates = "warn"
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "./deskops.sqlite"
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 90
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "."
	}

	// Maintenance defaults (EST, fixed offset)
	if cfg.Maintenance.Template == "" {
		cfg.Maintenance.Template = "Templates/fstatus_templates.json"
	}
	if cfg.Maintenance.TimezoneOffsetHours == 0 {
		cfg.Maintenance.TimezoneOffsetHours = -5
	}
	if cfg.Maintenance.DefaultStart == "" {
		cfg.Maintenance.DefaultStart = "06:00 AM"
	}
	if cfg.Maintenance.DefaultEnd == "" {
		cfg.Maintenance.DefaultEnd = "12:00 PM"
	}
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
