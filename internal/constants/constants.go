package constants

import "time"

const (
	// Minimum spacing between outbound requests to the stats site. The
	// site publishes no rate limit, so the pipeline self-throttles.
	DefaultRequestDelay = 1 * time.Second

	FetchMaxRetries  = 3
	FetchRetryBase   = 500 * time.Millisecond
	FetchReadTimeout = 15 * time.Second
)

const (
	ExternalFetchTimeout = 30 * time.Second
	DatabaseTimeout      = 5 * time.Second
	RunTimeout           = 30 * time.Minute
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// Main events run five rounds, the rest of the card runs three.
	MainEventOrder    = 0
	MainEventRounds   = 5
	DefaultBoutRounds = 3

	DefaultHistoryCount = 5
)
