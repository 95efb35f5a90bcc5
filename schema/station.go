package schema

import (
	"fmt"
	"strings"
)

// Station identifies a test station on the production line.
type Station string

// All stations known to the backend, in line order.
const (
	ICTStation    Station = "ict"
	FCTStation    Station = "fct"
	RFStation     Station = "rf"
	BurnInStation Station = "burn_in"
	FinalStation  Station = "final"
)

// AllStations lists every station in line order.
var AllStations = []Station{ICTStation, FCTStation, RFStation, BurnInStation, FinalStation}

// StationCounts holds per-station failure counts for one day.
type StationCounts struct {
	ICT    int `json:"ict"`
	FCT    int `json:"fct"`
	RF     int `json:"rf"`
	BurnIn int `json:"burn_in"`
	Final  int `json:"final"`
}

// stationFields maps every station to its counter inside StationCounts.
var stationFields = map[Station]func(*StationCounts) *int{
	ICTStation:    func(c *StationCounts) *int { return &c.ICT },
	FCTStation:    func(c *StationCounts) *int { return &c.FCT },
	RFStation:     func(c *StationCounts) *int { return &c.RF },
	BurnInStation: func(c *StationCounts) *int { return &c.BurnIn },
	FinalStation:  func(c *StationCounts) *int { return &c.Final },
}

// ParseStation validates a station name. Matching ignores case and accepts "-" for "_".
func ParseStation(s string) (Station, error) {
	st := Station(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if _, ok := stationFields[st]; !ok {
		return "", fmt.Errorf("unknown station %q", s)
	}
	return st, nil
}

// Get returns the count for a station. Unknown stations count zero.
func (c StationCounts) Get(st Station) int {
	field, ok := stationFields[st]
	if !ok {
		return 0
	}
	return *field(&c)
}

// Add increments the count for a station and reports whether the station is known.
func (c *StationCounts) Add(st Station, n int) bool {
	field, ok := stationFields[st]
	if !ok {
		return false
	}
	*field(c) += n
	return true
}

// Total sums all station counts.
func (c StationCounts) Total() int {
	total := 0
	for _, st := range AllStations {
		total += c.Get(st)
	}
	return total
}
