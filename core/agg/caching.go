package agg

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
)

// currentCacheVersion defines the version of the cached response format.
const currentCacheVersion = 1

// cacheMaxAge bounds how old a cached backend response may be.
const cacheMaxAge = time.Hour

// Response kinds used in cache keys.
const (
	calibrationKind = "calibration"
	failureKind     = "failures"
)

// FetchCalibration returns the calibration records of the configured window,
// served from the response cache when a fresh entry exists.
func FetchCalibration(ctx context.Context, cfg *contract.Config, src contract.DataSource, mgr contract.CacheManager) ([]schema.CalibrationRecord, error) {
	data, err := cachedFetch(ctx, cfg, mgr, calibrationKind, src.GetCalibrationLog)
	if err != nil {
		return nil, err
	}
	return ParseCalibrationLog(data)
}

// FetchFailures returns the failure records of the configured window.
func FetchFailures(ctx context.Context, cfg *contract.Config, src contract.DataSource, mgr contract.CacheManager) ([]schema.FailureRecord, error) {
	data, err := cachedFetch(ctx, cfg, mgr, failureKind, src.GetFailureLog)
	if err != nil {
		return nil, err
	}
	return ParseFailureLog(data)
}

type fetchFunc func(ctx context.Context, start, end time.Time) ([]byte, error)

// cachedFetch consults the response store before calling the backend and stores fresh answers.
func cachedFetch(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, kind string, fetch fetchFunc) ([]byte, error) {
	var store contract.CacheStore
	if mgr != nil {
		store = mgr.GetResponseStore()
	}
	if store == nil {
		return fetch(ctx, cfg.StartTime, cfg.EndTime)
	}

	key := generateCacheKey(cfg, kind)
	if data := checkCacheHit(store, key, time.Now()); data != nil {
		return data, nil
	}

	data, err := fetch(ctx, cfg.StartTime, cfg.EndTime)
	if err != nil {
		return nil, err
	}
	_ = store.Set(key, data, currentCacheVersion, time.Now().Unix())
	return data, nil
}

// checkCacheHit returns the cached body when the entry has the current version and is fresh.
func checkCacheHit(store contract.CacheStore, key string, now time.Time) []byte {
	data, version, ts, err := store.Get(key)
	if err != nil || version != currentCacheVersion {
		return nil
	}
	if now.Sub(time.Unix(ts, 0)) > cacheMaxAge {
		return nil
	}
	return data
}

// generateCacheKey creates a unique key for one kind of response over the analysis window.
func generateCacheKey(cfg *contract.Config, kind string) string {
	key := fmt.Sprintf("%s:%s:%d:%d",
		kind,
		cfg.APIURL,
		cfg.GetAnalysisStartTime().Unix(),
		cfg.GetAnalysisEndTime().Unix(),
	)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}
