package algo

import (
	"errors"
	"math"

	"github.com/huangsam/cpkwatch/schema"
)

// ErrNoData is returned by Histogram when there is no finite value to bin.
var ErrNoData = errors.New("no data to bin")

// Histogram counts values into fixed-width bins over the combined domain of
// the values and the marker values, so every marker lies inside the domain.
// Markers are positioned on that domain and never change the counts.
// Non-finite values and markers are ignored. bins <= 0 uses DefaultHistogramBins.
func Histogram(values []float64, bins int, markers []schema.Marker) (schema.Histogram, error) {
	if bins <= 0 {
		bins = schema.DefaultHistogramBins
	}

	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return schema.Histogram{}, ErrNoData
	}

	lo, hi := finite[0], finite[0]
	for _, v := range finite {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	kept := make([]schema.Marker, 0, len(markers))
	for _, m := range markers {
		if !isFinite(m.Value) {
			continue
		}
		kept = append(kept, m)
		lo = min(lo, m.Value)
		hi = max(hi, m.Value)
	}

	counts := make([]int, bins)
	for _, v := range finite {
		idx := int(math.Floor(offset(v, lo, hi) * float64(bins)))
		counts[min(max(idx, 0), bins-1)]++
	}

	positioned := make([]schema.PositionedMarker, len(kept))
	for i, m := range kept {
		positioned[i] = schema.PositionedMarker{Marker: m, Position: offset(m.Value, lo, hi)}
	}

	return schema.Histogram{
		Counts:  counts,
		Domain:  [2]float64{lo, hi},
		Markers: positioned,
	}, nil
}

// DistributionMarkers builds the overlay markers for a distribution view.
// Spec limits replace the P5/P95 lines when either limit exists.
// Mean and median are always present.
func DistributionMarkers(summary schema.Summary, lsl, usl *float64) []schema.Marker {
	markers := make([]schema.Marker, 0, 4)
	l, hasL := schema.Finite(lsl)
	u, hasU := schema.Finite(usl)
	if hasL || hasU {
		if hasL {
			markers = append(markers, schema.Marker{Value: l, Label: "LSL", Tone: schema.SpecTone})
		}
		if hasU {
			markers = append(markers, schema.Marker{Value: u, Label: "USL", Tone: schema.SpecTone})
		}
	} else {
		markers = append(markers,
			schema.Marker{Value: summary.P5, Label: "P5", Tone: schema.PercentileTone},
			schema.Marker{Value: summary.P95, Label: "P95", Tone: schema.PercentileTone},
		)
	}
	return append(markers,
		schema.Marker{Value: summary.Mean, Label: "Mean", Tone: schema.CenterTone},
		schema.Marker{Value: summary.Median, Label: "Median", Tone: schema.CenterTone},
	)
}

// offset places v on [lo, hi] as a fraction in [0, 1]. A zero span counts as 1.
// Domains wider than the float64 range are measured at half scale.
func offset(v, lo, hi float64) float64 {
	span := hi - lo
	if span == 0 {
		return v - lo
	}
	if math.IsInf(span, 0) {
		return (v/2 - lo/2) / (hi/2 - lo/2)
	}
	return (v - lo) / span
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
