package agg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/internal/iocache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig() *contract.Config {
	return &contract.Config{
		APIURL:    "http://dashboard.local/api",
		StartTime: time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, time.March, 14, 10, 20, 0, 0, time.UTC),
	}
}

func TestCheckCacheHit(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		version int
		ts      int64
		err     error
		hit     bool
	}{
		{"fresh", currentCacheVersion, now.Add(-10 * time.Minute).Unix(), nil, true},
		{"version mismatch", currentCacheVersion + 1, now.Unix(), nil, false},
		{"stale", currentCacheVersion, now.Add(-2 * time.Hour).Unix(), nil, false},
		{"lookup error", 0, 0, errors.New("no rows"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &iocache.MockCacheStore{}
			store.On("Get", "k").Return([]byte("[]"), tt.version, tt.ts, tt.err)
			got := checkCacheHit(store, "k", now)
			if tt.hit {
				assert.Equal(t, []byte("[]"), got)
			} else {
				assert.Nil(t, got)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestGenerateCacheKey(t *testing.T) {
	cfg := testConfig()
	key := generateCacheKey(cfg, calibrationKind)
	assert.Len(t, key, 64)
	assert.Equal(t, key, generateCacheKey(cfg, calibrationKind))
	assert.NotEqual(t, key, generateCacheKey(cfg, failureKind))

	// Same hour, same key
	shifted := cfg.Clone()
	shifted.EndTime = shifted.EndTime.Add(15 * time.Minute)
	assert.Equal(t, key, generateCacheKey(shifted, calibrationKind))

	other := cfg.Clone()
	other.APIURL = "http://elsewhere/api"
	assert.NotEqual(t, key, generateCacheKey(other, calibrationKind))
}

func TestFetchCalibration_NoCache(t *testing.T) {
	cfg := testConfig()
	src := &contract.MockDataSource{}
	src.On("GetCalibrationLog", mock.Anything, cfg.StartTime, cfg.EndTime).Return(calibrationJSON, nil)

	records, err := FetchCalibration(context.Background(), cfg, src, nil)
	require.NoError(t, err)
	assert.Len(t, records, 7)
	src.AssertExpectations(t)
}

func TestFetchCalibration_CacheMissStores(t *testing.T) {
	cfg := testConfig()
	key := generateCacheKey(cfg, calibrationKind)

	store := &iocache.MockCacheStore{}
	store.On("Get", key).Return(nil, 0, int64(0), errors.New("miss"))
	store.On("Set", key, calibrationJSON, currentCacheVersion, mock.AnythingOfType("int64")).Return(nil)

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetResponseStore").Return(store)

	src := &contract.MockDataSource{}
	src.On("GetCalibrationLog", mock.Anything, cfg.StartTime, cfg.EndTime).Return(calibrationJSON, nil)

	_, err := FetchCalibration(context.Background(), cfg, src, mgr)
	require.NoError(t, err)
	store.AssertExpectations(t)
	src.AssertExpectations(t)
}

func TestFetchFailures_CacheHitSkipsBackend(t *testing.T) {
	cfg := testConfig()
	key := generateCacheKey(cfg, failureKind)

	store := &iocache.MockCacheStore{}
	store.On("Get", key).Return(failuresJSON, currentCacheVersion, time.Now().Unix(), nil)

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetResponseStore").Return(store)

	src := &contract.MockDataSource{}

	records, err := FetchFailures(context.Background(), cfg, src, mgr)
	require.NoError(t, err)
	assert.Len(t, records, 7)
	src.AssertNotCalled(t, "GetFailureLog", mock.Anything, mock.Anything, mock.Anything)
}

func TestFetchFailures_BackendError(t *testing.T) {
	cfg := testConfig()
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetResponseStore").Return(nil)

	src := &contract.MockDataSource{}
	src.On("GetFailureLog", mock.Anything, cfg.StartTime, cfg.EndTime).Return(nil, errors.New("down"))

	_, err := FetchFailures(context.Background(), cfg, src, mgr)
	assert.ErrorContains(t, err, "down")
}
