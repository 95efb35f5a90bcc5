// Package iocache is for caching backend responses and recording analysis runs.
package iocache

import (
	"sync"

	"github.com/huangsam/cpkwatch/internal/contract"
)

// CacheStoreManager manages the response cache and the analysis store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	response     contract.CacheStore
	analysis     contract.AnalysisStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// NewCacheStoreManager wraps already opened stores. Either may be nil.
func NewCacheStoreManager(response contract.CacheStore, analysis contract.AnalysisStore) *CacheStoreManager {
	return &CacheStoreManager{response: response, analysis: analysis}
}

// GetResponseStore returns the backend response CacheStore.
func (mgr *CacheStoreManager) GetResponseStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.response
}

// GetAnalysisStore returns the analysis AnalysisStore.
func (mgr *CacheStoreManager) GetAnalysisStore() contract.AnalysisStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.analysis
}
