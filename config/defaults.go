package config

import "time"

// Default runtime limits and guardrails for the command center server.
// They are referenced by internal/runtime and internal/snapshots and can be
// overridden through the YAML file or COMMANDCENTER_* environment variables.

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 10
	DefaultMaxConcurrentLoads    = 2

	// Listings
	DefaultPageSize    = 50
	DefaultMaxPageSize = 500
	DefaultTopN        = 10
)

const (
	// Timeouts
	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second
	DefaultFetchTimeout          = 20 * time.Second

	// Snapshot cache; the dashboards refreshed their export every ten minutes.
	DefaultSnapshotTTL           = 10 * time.Minute
	DefaultSnapshotCleanupPeriod = time.Minute
)

const (
	DefaultLogLevel = "info"
	DefaultHTTPAddr = ":8080"
	DefaultSheetTab = "Dados2"
	EnvPrefix       = "COMMANDCENTER_"
)
