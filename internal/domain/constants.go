package domain

import "time"

const (
	// DefaultRetention is the age after which artifacts are reclaimed
	DefaultRetention = 24 * time.Hour

	// DefaultSweepInterval is how often the retention sweep runs
	DefaultSweepInterval = time.Hour

	// DownloadRoute prefixes retrieval paths handed back to clients
	DownloadRoute = "/downloads"
)

// Ledger job statuses
const (
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
	JobStatusDeleted   = "DELETED"
	JobStatusExpired   = "EXPIRED"
)
