package contract

import (
	"fmt"
	"maps"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/huangsam/cpkwatch/schema"
)

// Default values for configuration.
const (
	DefaultLookbackDays = 14
	MaxLookbackDays     = 366
	DefaultResultLimit  = 25
	MaxResultLimit      = 1000
	DefaultPrecision    = 2
	MaxPrecision        = 4
	MaxHistogramBins    = 200
	DefaultTimeout      = 30 * time.Second
	DefaultListenAddr   = "127.0.0.1:8040"
)

// CacheGranularity defines the time granularity for caching backend responses.
// This ensures consistent cache key generation and time window alignment across
// the application and tests.
const CacheGranularity = time.Hour

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration for the analysis.
// This struct remains the "final, validated" config.
type Config struct {
	APIURL string
	WSURL  string

	StartTime time.Time
	EndTime   time.Time

	TestFilter  string
	Station     schema.Station // empty means every station
	ResultLimit int
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	Width       int // Terminal width override (0 = auto-detect)
	Bins        int
	Timeout     time.Duration

	// SigmaMax is the global sigma ceiling, nil when unset
	SigmaMax *float64

	// SigmaLimits is a mapping of [lowercased TestName] = sigma ceiling, overriding SigmaMax
	SigmaLimits map[string]float64

	FailLevel schema.RiskLevel

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	AnalysisBackend   schema.DatabaseBackend
	AnalysisDBConnect string // Please use env var as this is plaintext

	LogLevel  string
	LogFormat string
	Listen    string

	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	APIURL            string `mapstructure:"api-url"`
	WSURL             string `mapstructure:"ws-url"`
	Start             string `mapstructure:"start"`
	End               string `mapstructure:"end"`
	Days              int    `mapstructure:"days"`
	Test              string `mapstructure:"test"`
	Station           string `mapstructure:"station"`
	Limit             int    `mapstructure:"limit"`
	Precision         int    `mapstructure:"precision"`
	Output            string `mapstructure:"output"`
	OutputFile        string `mapstructure:"output-file"`
	Width             int    `mapstructure:"width"`
	SigmaMax          string `mapstructure:"sigma-max"`
	Timeout           string `mapstructure:"timeout"`
	CacheBackend      string `mapstructure:"cache-backend"`
	CacheDBConnect    string `mapstructure:"cache-db-connect"`
	AnalysisBackend   string `mapstructure:"analysis-backend"`
	AnalysisDBConnect string `mapstructure:"analysis-db-connect"`
	Color             string `mapstructure:"color"`
	LogLevel          string `mapstructure:"log-level"`
	LogFormat         string `mapstructure:"log-format"`

	// --- Fields from histogramCmd.Flags() ---
	Bins int `mapstructure:"bins"`

	// --- Fields from checkCmd.Flags() ---
	FailLevel string `mapstructure:"fail-level"`

	// --- Fields from serveCmd.Flags() ---
	Listen string `mapstructure:"listen"`

	// --- Per-test sigma ceilings from config file ---
	SigmaLimits map[string]float64 `mapstructure:"sigma_limits"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.SigmaMax != nil {
		v := *c.SigmaMax
		clone.SigmaMax = &v
	}
	if c.SigmaLimits != nil {
		clone.SigmaLimits = make(map[string]float64, len(c.SigmaLimits))
		maps.Copy(clone.SigmaLimits, c.SigmaLimits)
	}
	return &clone
}

// CloneWithTimeWindow creates a copy of the Config and sets the new StartTime and EndTime.
func (c *Config) CloneWithTimeWindow(start time.Time, end time.Time) *Config {
	clone := c.Clone()
	clone.StartTime = start
	clone.EndTime = end
	return clone
}

// GetAnalysisStartTime returns the configured start time, truncated to the caching granularity.
// This ensures consistent time window alignment across the application and tests.
func (c *Config) GetAnalysisStartTime() time.Time {
	return c.StartTime.Truncate(CacheGranularity)
}

// GetAnalysisEndTime returns the configured end time, truncated to the caching granularity.
// This ensures consistent time window alignment across the application and tests.
func (c *Config) GetAnalysisEndTime() time.Time {
	return c.EndTime.Truncate(CacheGranularity)
}

// SigmaCeiling returns the sigma ceiling for a test: its per-test limit when
// configured, else the global ceiling, else nil.
func (c *Config) SigmaCeiling(testName string) *float64 {
	if v, ok := c.SigmaLimits[strings.ToLower(testName)]; ok {
		return &v
	}
	if c.SigmaMax == nil {
		return nil
	}
	v := *c.SigmaMax
	return &v
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processEndpoints(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input, time.Now()); err != nil {
		return err
	}
	if err := processSigmaLimits(cfg, input); err != nil {
		return err
	}
	return validateBackendConfigs(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and analysis backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache-db-connect: %w", err)
	}

	// --- Analysis Backend Validation ---
	cfg.AnalysisBackend = schema.DatabaseBackend(strings.ToLower(input.AnalysisBackend))
	if cfg.AnalysisBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.AnalysisBackend]; !ok {
		return fmt.Errorf("invalid analysis backend '%s'. must be sqlite, mysql, postgresql, none", input.AnalysisBackend)
	}
	cfg.AnalysisDBConnect = input.AnalysisDBConnect
	if err := ValidateDatabaseConnectionString(cfg.AnalysisBackend, cfg.AnalysisDBConnect); err != nil {
		return fmt.Errorf("analysis-db-connect: %w", err)
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.AnalysisBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		analysisDBPath := cfg.AnalysisDBConnect
		if analysisDBPath == "" {
			analysisDBPath = GetAnalysisDBFilePath()
		}
		if cacheDBPath == analysisDBPath && cacheDBPath != ":memory:" {
			return fmt.Errorf("cache and analysis storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all non-endpoint related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.TestFilter = strings.TrimSpace(input.Test)
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.LogLevel = input.LogLevel
	cfg.LogFormat = input.LogFormat
	cfg.Listen = input.Listen
	if cfg.Listen == "" {
		cfg.Listen = DefaultListenAddr
	}

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. ResultLimit Validation ---
	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	// --- 2. Station Validation ---
	cfg.Station = ""
	if strings.TrimSpace(input.Station) != "" {
		st, err := schema.ParseStation(input.Station)
		if err != nil {
			return fmt.Errorf("invalid station: %w", err)
		}
		cfg.Station = st
	}

	// --- 3. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	// --- 4. Histogram bins ---
	if input.Bins < 0 || input.Bins > MaxHistogramBins {
		return fmt.Errorf("bins must be between 0 and %d (received %d)", MaxHistogramBins, input.Bins)
	}
	cfg.Bins = input.Bins
	if cfg.Bins == 0 {
		cfg.Bins = schema.DefaultHistogramBins
	}

	// --- 5. Sigma ceiling, finite or unset ---
	cfg.SigmaMax = nil
	if strings.TrimSpace(input.SigmaMax) != "" {
		v := schema.ParseFinite(input.SigmaMax)
		if v == nil {
			LogWarn("sigma-max ignored", fmt.Errorf("%q is not a finite number", input.SigmaMax))
		} else if *v <= 0 {
			return fmt.Errorf("sigma-max must be greater than 0 (received %s)", input.SigmaMax)
		}
		cfg.SigmaMax = v
	}

	// --- 6. Fail level ---
	cfg.FailLevel = schema.HighRisk
	if input.FailLevel != "" {
		level := schema.RiskLevel(strings.ToLower(input.FailLevel))
		if level != schema.MediumRisk && level != schema.HighRisk {
			return fmt.Errorf("invalid fail level '%s'. must be medium or high", input.FailLevel)
		}
		cfg.FailLevel = level
	}

	// --- 7. Timeout ---
	cfg.Timeout = DefaultTimeout
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid timeout '%s'. expected a positive duration like 30s", input.Timeout)
		}
		cfg.Timeout = d
	}

	return nil
}

// processEndpoints validates the backend REST and WebSocket addresses.
func processEndpoints(cfg *Config, input *ConfigRawInput) error {
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(input.APIURL), "/")
	if cfg.APIURL != "" {
		u, err := url.Parse(cfg.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid api-url '%s'. must be an http or https URL", input.APIURL)
		}
	}

	cfg.WSURL = strings.TrimSpace(input.WSURL)
	if cfg.WSURL == "" && cfg.APIURL != "" {
		cfg.WSURL = DeriveWebSocketURL(cfg.APIURL)
	}
	if cfg.WSURL != "" {
		u, err := url.Parse(cfg.WSURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("invalid ws-url '%s'. must be a ws or wss URL", input.WSURL)
		}
	}
	return nil
}

// DeriveWebSocketURL maps the REST base address onto the live feed endpoint.
func DeriveWebSocketURL(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/calibration"
	return u.String()
}

// processTimeRange handles the date parsing and time range validation.
func processTimeRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	if input.Days < 0 || input.Days > MaxLookbackDays {
		return fmt.Errorf("days must be between 1 and %d (received %d)", MaxLookbackDays, input.Days)
	}
	days := input.Days
	if days == 0 {
		days = DefaultLookbackDays
	}

	cfg.EndTime = now
	if input.End != "" {
		t, err := ParseTimeInput(input.End, now)
		if err != nil {
			return fmt.Errorf("invalid end date format for '%s': %w", input.End, err)
		}
		cfg.EndTime = t
	}

	cfg.StartTime = cfg.EndTime.AddDate(0, 0, -(days - 1))
	if input.Start != "" {
		t, err := ParseTimeInput(input.Start, now)
		if err != nil {
			return fmt.Errorf("invalid start date format for '%s': %w", input.Start, err)
		}
		cfg.StartTime = t
	}

	if cfg.StartTime.After(cfg.EndTime) {
		return fmt.Errorf("start time (%s) cannot be after end time (%s)", cfg.StartTime.Format(DateTimeFormat), cfg.EndTime.Format(DateTimeFormat))
	}
	if cfg.EndTime.Sub(cfg.StartTime) > MaxLookbackDays*24*time.Hour {
		return fmt.Errorf("time window cannot exceed %d days", MaxLookbackDays)
	}
	return nil
}

// processSigmaLimits copies the per-test sigma ceilings from the config file.
// Keys are stored lowercased since viper folds map keys.
func processSigmaLimits(cfg *Config, input *ConfigRawInput) error {
	cfg.SigmaLimits = nil
	if len(input.SigmaLimits) == 0 {
		return nil
	}
	cfg.SigmaLimits = make(map[string]float64, len(input.SigmaLimits))
	for name, limit := range input.SigmaLimits {
		if math.IsNaN(limit) || math.IsInf(limit, 0) || limit <= 0 {
			return fmt.Errorf("sigma limit for test %s must be a positive number (received %v)", name, limit)
		}
		cfg.SigmaLimits[strings.ToLower(name)] = limit
	}
	return nil
}
