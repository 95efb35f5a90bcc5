package agg

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/huangsam/cpkwatch/schema"
)

// envelope is the wrapped form some backend deployments answer with.
type envelope[T any] struct {
	Data []T `json:"data"`
}

// decodeRecords accepts either a bare JSON array or an object with a "data" array.
// An empty body is an empty result.
func decodeRecords[T any](data []byte, kind string) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var env envelope[T]
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", kind, err)
		}
		return env.Data, nil
	}
	var records []T
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", kind, err)
	}
	return records, nil
}

// ParseCalibrationLog decodes a calibration response body.
func ParseCalibrationLog(data []byte) ([]schema.CalibrationRecord, error) {
	return decodeRecords[schema.CalibrationRecord](data, "calibration")
}

// ParseFailureLog decodes a failure response body.
func ParseFailureLog(data []byte) ([]schema.FailureRecord, error) {
	return decodeRecords[schema.FailureRecord](data, "failure")
}

// ParseCalibrationMessage decodes one live feed message. Besides the response
// shapes it accepts a single record object.
func ParseCalibrationMessage(data []byte) ([]schema.CalibrationRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ParseCalibrationLog(trimmed)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode calibration message: %w", err)
	}
	if _, ok := probe["data"]; ok {
		return ParseCalibrationLog(trimmed)
	}
	var record schema.CalibrationRecord
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return nil, fmt.Errorf("failed to decode calibration message: %w", err)
	}
	return []schema.CalibrationRecord{record}, nil
}
