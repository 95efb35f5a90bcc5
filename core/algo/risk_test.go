package algo

import (
	"testing"

	"github.com/huangsam/cpkwatch/schema"
	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return schema.Float(v) }

func series(values ...float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = f(v)
	}
	return out
}

func TestAssessRisk_HardRule(t *testing.T) {
	tests := []struct {
		name  string
		input schema.RiskInput
	}{
		{"cpk only", schema.RiskInput{Cpk: f(0.5)}},
		{"all signals bad", schema.RiskInput{
			Cpk: f(0.99), Mean: f(10), Sigma: f(5), LSL: f(9), USL: f(11), SigmaMax: f(1),
			CpkSeries: series(1.5, 1.0, 0.5), SigmaSeries: series(1, 3, 5),
		}},
		{"negative cpk", schema.RiskInput{Cpk: f(-2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssessRisk(tt.input)
			assert.Equal(t, 90, got.Score)
			assert.Equal(t, schema.HighRisk, got.Level)
			assert.Len(t, got.Reasons, 1)
			assert.Contains(t, got.Reasons[0], "Hard rule: Cpk")
			assert.Contains(t, got.Reasons[0], "< 1.00")
		})
	}
	assert.Equal(t, "Hard rule: Cpk 0.50 < 1.00", AssessRisk(schema.RiskInput{Cpk: f(0.5)}).Reasons[0])
}

func TestAssessRisk_Contributions(t *testing.T) {
	tests := []struct {
		name          string
		input         schema.RiskInput
		expectedScore int
		expectedLevel schema.RiskLevel
		reasonParts   []string
	}{
		{
			name:          "nothing known",
			input:         schema.RiskInput{},
			expectedScore: 15,
			expectedLevel: schema.LowRisk,
			reasonParts:   []string{"No Cpk value", "OOS probability cannot be computed"},
		},
		{
			name:          "capable process",
			input:         schema.RiskInput{Cpk: f(2.0), Mean: f(10), Sigma: f(0.5), LSL: f(7), USL: f(13)},
			expectedScore: 0,
			expectedLevel: schema.LowRisk,
			reasonParts:   nil,
		},
		{
			name:          "moderate cpk without sigma",
			input:         schema.RiskInput{Cpk: f(1.5)},
			expectedScore: 20,
			expectedLevel: schema.LowRisk,
			reasonParts:   []string{"Moderate Cpk 1.50 (< 1.67)", "OOS probability cannot be computed"},
		},
		{
			name:          "oos probability caps at 50",
			input:         schema.RiskInput{Cpk: f(1.7), Mean: f(10), Sigma: f(5), LSL: f(9), USL: f(11)},
			expectedScore: 50,
			expectedLevel: schema.MediumRisk,
			reasonParts:   []string{"Estimated OOS probability"},
		},
		{
			name:          "zero sigma is not computable",
			input:         schema.RiskInput{Cpk: f(1.7), Mean: f(10), Sigma: f(0), LSL: f(9)},
			expectedScore: 5,
			expectedLevel: schema.LowRisk,
			reasonParts:   []string{"OOS probability cannot be computed"},
		},
		{
			name: "sigma uptrend",
			input: schema.RiskInput{
				Cpk: f(2.0), Mean: f(10), Sigma: f(0.5), LSL: f(7), USL: f(13),
				SigmaSeries: series(0.2, 0.3, 0.4, 0.5),
			},
			expectedScore: 10,
			expectedLevel: schema.LowRisk,
			reasonParts:   []string{"Sigma upward trend"},
		},
		{
			name: "everything at once is clamped",
			input: schema.RiskInput{
				Cpk: f(1.1), Mean: f(10), Sigma: f(5), LSL: f(9), USL: f(11), SigmaMax: f(1),
				CpkSeries: series(1.5, 1.3, 1.1), SigmaSeries: series(1, 3, 5),
			},
			expectedScore: 100,
			expectedLevel: schema.HighRisk,
			reasonParts: []string{
				"Low Cpk 1.10 (< 1.33)",
				"Estimated OOS probability",
				"Sigma 5.000 exceeds ceiling 1.000",
				"Cpk downtrend",
				"Sigma upward trend",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssessRisk(tt.input)
			assert.Equal(t, tt.expectedScore, got.Score)
			assert.Equal(t, tt.expectedLevel, got.Level)
			assert.Len(t, got.Reasons, len(tt.reasonParts))
			for i, part := range tt.reasonParts {
				assert.Contains(t, got.Reasons[i], part)
			}
		})
	}
}

func TestAssessRisk_FloorProtection(t *testing.T) {
	t.Run("low cpk lifts low to medium", func(t *testing.T) {
		got := AssessRisk(schema.RiskInput{Cpk: f(1.2), Mean: f(10), Sigma: f(0.1), LSL: f(7), USL: f(13)})
		assert.Equal(t, 35, got.Score)
		assert.Equal(t, schema.MediumRisk, got.Level)
	})

	t.Run("low cpk without sigma", func(t *testing.T) {
		got := AssessRisk(schema.RiskInput{Cpk: f(1.2)})
		assert.Equal(t, schema.MediumRisk, got.Level)
	})

	t.Run("sigma above ceiling lifts low to medium", func(t *testing.T) {
		got := AssessRisk(schema.RiskInput{
			Cpk: f(2.0), Mean: f(10), Sigma: f(0.5), LSL: f(0), USL: f(20), SigmaMax: f(0.4),
		})
		assert.Equal(t, 25, got.Score)
		assert.Equal(t, schema.MediumRisk, got.Level)
		assert.Equal(t, []string{"Sigma 0.500 exceeds ceiling 0.400"}, got.Reasons)
	})

	t.Run("floors never reach high", func(t *testing.T) {
		got := AssessRisk(schema.RiskInput{
			Cpk: f(1.2), Mean: f(10), Sigma: f(0.5), LSL: f(0), USL: f(20), SigmaMax: f(0.4),
		})
		assert.Equal(t, 60, got.Score)
		assert.Equal(t, schema.MediumRisk, got.Level)
	})

	t.Run("non-finite ceiling is ignored", func(t *testing.T) {
		got := AssessRisk(schema.RiskInput{
			Cpk: f(2.0), Mean: f(10), Sigma: f(0.5), LSL: f(0), USL: f(20), SigmaMax: schema.ParseFinite("NaN"),
		})
		assert.Equal(t, 0, got.Score)
		assert.Equal(t, schema.LowRisk, got.Level)
	})
}

func TestAssessRisk_EndToEnd(t *testing.T) {
	in := schema.RiskInput{
		Cpk:         f(1.5),
		Mean:        f(10),
		Sigma:       f(1),
		LSL:         f(7),
		USL:         f(13),
		SigmaMax:    f(2),
		CpkSeries:   series(1.6, 1.55, 1.5, 1.45, 1.4),
		SigmaSeries: series(0.8, 0.9, 1.0, 1.0, 1.0),
	}

	got := AssessRisk(in)

	// 15 moderate + 1 oos + 10 cpk downtrend + 10 sigma uptrend
	assert.Equal(t, 36, got.Score)
	assert.Equal(t, schema.LowRisk, got.Level)
	assert.Equal(t, []string{
		"Moderate Cpk 1.50 (< 1.67)",
		"Estimated OOS probability 0.27%",
		"Cpk downtrend (slope -0.050/day)",
		"Sigma upward trend (slope 0.050/day)",
	}, got.Reasons)
	assert.Equal(t, got, AssessRisk(in))
}

func TestLevelForScore(t *testing.T) {
	assert.Equal(t, schema.LowRisk, LevelForScore(0))
	assert.Equal(t, schema.LowRisk, LevelForScore(39))
	assert.Equal(t, schema.MediumRisk, LevelForScore(40))
	assert.Equal(t, schema.MediumRisk, LevelForScore(69))
	assert.Equal(t, schema.HighRisk, LevelForScore(70))
	assert.Equal(t, schema.HighRisk, LevelForScore(100))
}

func BenchmarkAssessRisk(b *testing.B) {
	in := schema.RiskInput{
		Cpk: f(1.5), Mean: f(10), Sigma: f(1), LSL: f(7), USL: f(13), SigmaMax: f(2),
		CpkSeries:   series(1.6, 1.55, 1.5, 1.45, 1.4, 1.38, 1.36, 1.35, 1.34, 1.33, 1.32, 1.31, 1.3, 1.29),
		SigmaSeries: series(0.8, 0.9, 1.0, 1.0, 1.0, 1.02, 1.04, 1.05, 1.06, 1.07, 1.08, 1.09, 1.1, 1.11),
	}
	for b.Loop() {
		AssessRisk(in)
	}
}
