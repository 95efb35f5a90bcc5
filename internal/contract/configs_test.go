package contract

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/cpkwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRawInput() *ConfigRawInput {
	return &ConfigRawInput{
		APIURL:       "http://mes.local:8080/api/",
		Limit:        DefaultResultLimit,
		Precision:    DefaultPrecision,
		Output:       "text",
		Color:        "yes",
		CacheBackend: "none",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
		errContains string
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{name: "zero limit", mutate: func(in *ConfigRawInput) { in.Limit = 0 }, expectError: true, errContains: "limit"},
		{name: "limit too large", mutate: func(in *ConfigRawInput) { in.Limit = MaxResultLimit + 1 }, expectError: true, errContains: "limit"},
		{name: "unknown station", mutate: func(in *ConfigRawInput) { in.Station = "aoi" }, expectError: true, errContains: "station"},
		{name: "station alias", mutate: func(in *ConfigRawInput) { in.Station = "Burn-In" }},
		{name: "precision too high", mutate: func(in *ConfigRawInput) { in.Precision = 5 }, expectError: true, errContains: "precision"},
		{name: "unknown output", mutate: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: true, errContains: "output"},
		{name: "parquet needs file", mutate: func(in *ConfigRawInput) { in.Output = "parquet" }, expectError: true, errContains: "output-file"},
		{name: "bad color", mutate: func(in *ConfigRawInput) { in.Color = "maybe" }, expectError: true, errContains: "color"},
		{name: "bad api url", mutate: func(in *ConfigRawInput) { in.APIURL = "ftp://mes.local" }, expectError: true, errContains: "api-url"},
		{name: "bad ws url", mutate: func(in *ConfigRawInput) { in.WSURL = "http://mes.local/ws" }, expectError: true, errContains: "ws-url"},
		{name: "negative sigma max", mutate: func(in *ConfigRawInput) { in.SigmaMax = "-0.5" }, expectError: true, errContains: "sigma-max"},
		{name: "non-finite sigma max is dropped", mutate: func(in *ConfigRawInput) { in.SigmaMax = "abc" }},
		{name: "fail level low", mutate: func(in *ConfigRawInput) { in.FailLevel = "low" }, expectError: true, errContains: "fail level"},
		{name: "bad timeout", mutate: func(in *ConfigRawInput) { in.Timeout = "soon" }, expectError: true, errContains: "timeout"},
		{name: "too many bins", mutate: func(in *ConfigRawInput) { in.Bins = 500 }, expectError: true, errContains: "bins"},
		{name: "bad sigma limit", mutate: func(in *ConfigRawInput) { in.SigmaLimits = map[string]float64{"vbat": 0} }, expectError: true, errContains: "vbat"},
		{name: "start after end", mutate: func(in *ConfigRawInput) { in.Start = "2024-03-10"; in.End = "2024-03-01" }, expectError: true, errContains: "cannot be after"},
		{name: "bad start", mutate: func(in *ConfigRawInput) { in.Start = "last tuesday" }, expectError: true, errContains: "start"},
		{name: "unknown cache backend", mutate: func(in *ConfigRawInput) { in.CacheBackend = "redis" }, expectError: true, errContains: "cache backend"},
		{name: "mysql without dsn", mutate: func(in *ConfigRawInput) { in.CacheBackend = "mysql" }, expectError: true, errContains: "connection string"},
		{name: "unknown analysis backend", mutate: func(in *ConfigRawInput) { in.AnalysisBackend = "mongo" }, expectError: true, errContains: "analysis backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validRawInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProcessAndValidate_Defaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validRawInput()))

	assert.Equal(t, "http://mes.local:8080/api", cfg.APIURL)
	assert.Equal(t, "ws://mes.local:8080/api/ws/calibration", cfg.WSURL)
	assert.Equal(t, schema.HighRisk, cfg.FailLevel)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, schema.DefaultHistogramBins, cfg.Bins)
	assert.Equal(t, DefaultListenAddr, cfg.Listen)
	assert.Nil(t, cfg.SigmaMax)
	assert.True(t, cfg.UseColors)
	assert.Equal(t, schema.Station(""), cfg.Station)
	assert.Equal(t, schema.NoneBackend, cfg.CacheBackend)
	assert.WithinDuration(t, cfg.EndTime.AddDate(0, 0, -(DefaultLookbackDays-1)), cfg.StartTime, time.Second)
}

func TestProcessAndValidate_SigmaCeilings(t *testing.T) {
	input := validRawInput()
	input.SigmaMax = "0.05"
	input.SigmaLimits = map[string]float64{"VBat": 0.02}

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	require.NotNil(t, cfg.SigmaCeiling("vbat"))
	assert.Equal(t, 0.02, *cfg.SigmaCeiling("vbat"))
	assert.Equal(t, 0.02, *cfg.SigmaCeiling("VBAT"))
	assert.Equal(t, 0.05, *cfg.SigmaCeiling("leakage"))

	cfg.SigmaMax = nil
	assert.Nil(t, cfg.SigmaCeiling("leakage"))
}

func TestProcessTimeRange(t *testing.T) {
	tests := []struct {
		name          string
		input         ConfigRawInput
		expectedStart time.Time
		expectedEnd   time.Time
		expectError   bool
	}{
		{
			name:          "default window",
			input:         ConfigRawInput{},
			expectedStart: fixedNow.AddDate(0, 0, -13),
			expectedEnd:   fixedNow,
		},
		{
			name:          "days window",
			input:         ConfigRawInput{Days: 7},
			expectedStart: fixedNow.AddDate(0, 0, -6),
			expectedEnd:   fixedNow,
		},
		{
			name:          "absolute dates",
			input:         ConfigRawInput{Start: "2025-10-01", End: "2025-10-05T12:00:00Z"},
			expectedStart: time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2025, time.October, 5, 12, 0, 0, 0, time.UTC),
		},
		{
			name:          "relative start",
			input:         ConfigRawInput{Start: "3 days ago"},
			expectedStart: fixedNow.AddDate(0, 0, -3),
			expectedEnd:   fixedNow,
		},
		{
			name:        "negative days",
			input:       ConfigRawInput{Days: -1},
			expectError: true,
		},
		{
			name:        "window too long",
			input:       ConfigRawInput{Start: "2 years ago"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := processTimeRange(cfg, &tt.input, fixedNow)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStart, cfg.StartTime)
			assert.Equal(t, tt.expectedEnd, cfg.EndTime)
		})
	}
}

func TestValidateBackendConfigs_SQLitePaths(t *testing.T) {
	dir := t.TempDir()
	shared := filepath.Join(dir, "shared.db")

	input := &ConfigRawInput{
		CacheBackend: "sqlite", CacheDBConnect: shared,
		AnalysisBackend: "sqlite", AnalysisDBConnect: shared,
	}
	err := validateBackendConfigs(&Config{}, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different SQLite database files")

	input.AnalysisDBConnect = filepath.Join(dir, "analysis.db")
	assert.NoError(t, validateBackendConfigs(&Config{}, input))

	input.CacheDBConnect = ":memory:"
	input.AnalysisDBConnect = ":memory:"
	assert.NoError(t, validateBackendConfigs(&Config{}, input))
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		connStr string
		wantErr bool
	}{
		{"sqlite empty", schema.SQLiteBackend, "", false},
		{"none", schema.NoneBackend, "", false},
		{"mysql ok", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/cpk", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/cpk", true},
		{"postgres ok", schema.PostgreSQLBackend, "host=localhost port=5432 dbname=cpk", false},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
		{"postgres empty", schema.PostgreSQLBackend, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	sigma := 0.1
	cfg := &Config{
		TestFilter:  "vbat",
		SigmaMax:    &sigma,
		SigmaLimits: map[string]float64{"vbat": 0.02},
	}

	clone := cfg.Clone()
	*clone.SigmaMax = 0.5
	clone.SigmaLimits["vbat"] = 0.9
	clone.TestFilter = "leakage"

	assert.Equal(t, 0.1, *cfg.SigmaMax)
	assert.Equal(t, 0.02, cfg.SigmaLimits["vbat"])
	assert.Equal(t, "vbat", cfg.TestFilter)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	windowed := cfg.CloneWithTimeWindow(start, start.AddDate(0, 0, 3))
	assert.Equal(t, start, windowed.StartTime)
	assert.True(t, cfg.StartTime.IsZero())
}

func TestDeriveWebSocketURL(t *testing.T) {
	assert.Equal(t, "wss://mes.example.com/ws/calibration", DeriveWebSocketURL("https://mes.example.com"))
	assert.Equal(t, "ws://10.0.0.5:8080/api/ws/calibration", DeriveWebSocketURL("http://10.0.0.5:8080/api/"))
}
