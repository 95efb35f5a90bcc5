package schema

import "math"

// RiskInput is everything the risk engine looks at for one test on one day.
// Missing values are nil.
type RiskInput struct {
	Cpk         *float64   `json:"cpk"`
	Mean        *float64   `json:"mean"`
	Sigma       *float64   `json:"sigma"`
	LSL         *float64   `json:"lsl"`
	USL         *float64   `json:"usl"`
	SigmaMax    *float64   `json:"sigma_max"`
	CpkSeries   []*float64 `json:"cpk_series"`
	SigmaSeries []*float64 `json:"sigma_series"`
}

// RiskAssessment is the bounded score, its level and the reasons that produced it.
type RiskAssessment struct {
	Score   int       `json:"score"`
	Level   RiskLevel `json:"level"`
	Reasons []string  `json:"reasons"`
}

// Marker is a labeled value drawn over a histogram.
type Marker struct {
	Value float64    `json:"value"`
	Label string     `json:"label"`
	Tone  MarkerTone `json:"tone"`
}

// PositionedMarker is a marker with its offset along the histogram domain (0 at min, 1 at max).
type PositionedMarker struct {
	Marker
	Position float64 `json:"position"`
}

// Histogram is the fixed-bin result over the combined domain of values and markers.
type Histogram struct {
	Counts  []int              `json:"counts"`
	Domain  [2]float64         `json:"domain"`
	Markers []PositionedMarker `json:"markers"`
}

// BinWidth is the domain width covered by one bin.
func (h Histogram) BinWidth() float64 {
	if len(h.Counts) == 0 {
		return 0
	}
	n := float64(len(h.Counts))
	span := h.Domain[1] - h.Domain[0]
	if span == 0 {
		span = 1
	}
	if math.IsInf(span, 0) {
		return h.Domain[1]/n - h.Domain[0]/n
	}
	return span / n
}

// Summary holds the descriptive statistics of a sample set.
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P5     float64 `json:"p5"`
	P95    float64 `json:"p95"`
}
