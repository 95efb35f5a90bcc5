package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStation(t *testing.T) {
	tests := []struct {
		input    string
		expected Station
		wantErr  bool
	}{
		{"ict", ICTStation, false},
		{"FCT", FCTStation, false},
		{" rf ", RFStation, false},
		{"burn-in", BurnInStation, false},
		{"burn_in", BurnInStation, false},
		{"final", FinalStation, false},
		{"aoi", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStation(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestStationCounts(t *testing.T) {
	var c StationCounts
	for i, st := range AllStations {
		assert.True(t, c.Add(st, i+1))
	}
	assert.False(t, c.Add(Station("aoi"), 7))

	assert.Equal(t, StationCounts{ICT: 1, FCT: 2, RF: 3, BurnIn: 4, Final: 5}, c)
	assert.Equal(t, 4, c.Get(BurnInStation))
	assert.Equal(t, 0, c.Get(Station("aoi")))
	assert.Equal(t, 15, c.Total())
	assert.Len(t, stationFields, len(AllStations))
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"2024-03-05", "2024-03-05", true},
		{"2024-03-05T23:10:00Z", "2024-03-05", true},
		{"2024-03-05T23:10:00-05:00", "2024-03-06", true},
		{"2024-03-05 08:00:00", "2024-03-05", true},
		{"03/05/2024", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDay(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCalibrationRecord_Decode(t *testing.T) {
	payload := `[{"date":"2024-03-05","test_name":"vbat","station":"fct","cpk":"1.41","mean":3.3,
		"sigma":0.02,"lsl":3.1,"usl":null,"samples":[3.29, "3.31", null, "bad"]}]`

	var records []CalibrationRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &records))
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, Float(1.41), r.Cpk.Ptr())
	assert.Nil(t, r.USL.Ptr())
	assert.Equal(t, []float64{3.29, 3.31}, r.SampleValues())
	day, ok := r.Day()
	assert.True(t, ok)
	assert.Equal(t, "2024-03-05", day)
}

func TestFailureRecord_Failures(t *testing.T) {
	assert.Equal(t, 1, FailureRecord{}.Failures())
	assert.Equal(t, 4, FailureRecord{Count: NumberOf(4)}.Failures())
	assert.Equal(t, 0, FailureRecord{Count: NumberOf(-3)}.Failures())
}

func TestRiskLevel_AtLeast(t *testing.T) {
	assert.True(t, HighRisk.AtLeast(MediumRisk))
	assert.True(t, MediumRisk.AtLeast(MediumRisk))
	assert.False(t, LowRisk.AtLeast(MediumRisk))
	assert.False(t, RiskLevel("bogus").AtLeast(LowRisk))
}

func TestDailySeries(t *testing.T) {
	s := DailySeries{Points: []DailyPoint{
		{Day: "2024-03-01", Cpk: Float(1.5), Sigma: Float(0.1)},
		{Day: "2024-03-02", Cpk: Float(1.4)},
		{Day: "2024-03-03"},
	}}
	assert.Equal(t, []*float64{Float(1.5), Float(1.4), nil}, s.CpkValues())
	assert.Equal(t, []*float64{Float(0.1), nil, nil}, s.SigmaValues())

	latest, ok := s.Latest()
	assert.True(t, ok)
	assert.Equal(t, "2024-03-02", latest.Day)

	_, ok = DailySeries{}.Latest()
	assert.False(t, ok)
}

func TestEnrichTestRisks(t *testing.T) {
	got := EnrichTestRisks([]TestRiskResult{{TestName: "a"}, {TestName: "b"}})
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, "b", got[1].TestName)
	assert.Equal(t, 2, got[1].Rank)
}
