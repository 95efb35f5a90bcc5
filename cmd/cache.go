package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/internal/iocache"
	"github.com/huangsam/cpkwatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// backendFromViper reads and validates one backend setting.
func backendFromViper(backendKey, connKey string) (schema.DatabaseBackend, string, error) {
	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString(backendKey)))
	if backend == "" {
		backend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid %s '%s'. must be sqlite, mysql, postgresql, none", backendKey, backend)
	}
	connStr := viper.GetString(connKey)
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", fmt.Errorf("%s: %w", connKey, err)
	}
	return backend, connStr, nil
}

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup(_ *cobra.Command, _ []string) error {
	if err := readConfigFile(); err != nil {
		return err
	}

	backend, connStr, err := backendFromViper("cache-backend", "cache-db-connect")
	if err != nil {
		return err
	}

	// Initialize caching with the loaded config (no analysis tracking for cache commands)
	if err := iocache.InitCaching(backend, connStr, "", ""); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	return nil
}

// cacheCmd focused on cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup used by analysis commands. This avoids backend URL and
// time window validation for simple cache operations.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the backend response cache (improves performance)",
	Long: `Manage the cache of dashboard backend responses.

cpkwatch caches calibration and failure responses per hour-aligned window so
repeated runs over the same window do not hit the backend again.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached data

Examples:
  # Check cache status
  cpkwatch cache status

  # Clear cache after the backend reprocessed old data
  cpkwatch cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached backend responses",
	Long: `Delete all cached backend responses from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  # Clear SQLite cache (default)
  cpkwatch cache clear

  # Clear MySQL cache (set connection string via env variable)
  CPKWATCH_CACHE_BACKEND=mysql CPKWATCH_CACHE_DB_CONNECT="..." cpkwatch cache clear`,
	PreRunE: cacheSetup,
	Run: func(_ *cobra.Command, _ []string) {
		// Release the SQLite handle before the file goes away
		iocache.CloseCaching()
		if err := iocache.ClearCache(cfg.CacheBackend, sqlitePath(cfg.CacheDBConnect, contract.GetCacheDBFilePath()), cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show detailed information about the backend response cache.

Displays:
- Backend type and connection status
- Total number of cached entries
- Last and oldest cache entry timestamps
- Cache table size

Examples:
  # Check cache status
  cpkwatch cache status`,
	PreRunE: cacheSetup,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetResponseStore()
		if store == nil {
			contract.LogFatal("Failed to get cache status", errors.New("caching is disabled (cache-backend none)"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(os.Stdout, status)
	},
}

// sqlitePath returns the SQLite file behind connStr, falling back to the default path.
func sqlitePath(connStr, fallback string) string {
	if connStr != "" {
		return connStr
	}
	return fallback
}
