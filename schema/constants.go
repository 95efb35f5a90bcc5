package schema

// Custom string types for type safety.
type (
	// RiskLevel is the three-step classification of a risk score.
	RiskLevel string

	// OutputMode represents the format of the output.
	OutputMode string

	// MarkerTone groups histogram markers by what they annotate.
	MarkerTone string

	// DatabaseBackend represents the database backend for caching.
	DatabaseBackend string
)

// All risk levels supported, ordered from least to most severe.
const (
	LowRisk    RiskLevel = "low"
	MediumRisk RiskLevel = "medium"
	HighRisk   RiskLevel = "high"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// Marker tones used by the histogram overlays.
const (
	SpecTone       MarkerTone = "spec"
	PercentileTone MarkerTone = "percentile"
	CenterTone     MarkerTone = "center"
)

// All cache backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Score thresholds and contributions of the risk engine.
const (
	HighScoreThreshold   = 70
	MediumScoreThreshold = 40
	HardRuleScore        = 90
	MaxRiskScore         = 100
)

// DefaultHistogramBins is the bin count used when callers pass zero.
const DefaultHistogramBins = 24

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidRiskLevels lists all valid risk levels.
var ValidRiskLevels = map[RiskLevel]struct{}{
	LowRisk:    {},
	MediumRisk: {},
	HighRisk:   {},
}

// Rank returns the severity order of a level (low=0, medium=1, high=2).
// Unknown levels rank below low.
func (l RiskLevel) Rank() int {
	switch l {
	case HighRisk:
		return 2
	case MediumRisk:
		return 1
	case LowRisk:
		return 0
	default:
		return -1
	}
}

// AtLeast reports whether l is as severe as other or more.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.Rank() >= other.Rank()
}
