package domain

import "time"

// EventType names a job or artifact lifecycle transition
type EventType string

const (
	EventJobStarted      EventType = "job.started"
	EventJobCompleted    EventType = "job.completed"
	EventJobFailed       EventType = "job.failed"
	EventArtifactDeleted EventType = "artifact.deleted"
	EventArtifactExpired EventType = "artifact.expired"
)

// Event is published to the configured event sinks
type Event struct {
	Type      EventType `json:"type"`
	JobID     string    `json:"job_id"`
	Kind      Kind      `json:"kind,omitempty"`
	Tier      string    `json:"tier,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Status maps the event onto a ledger job status
func (e Event) Status() string {
	switch e.Type {
	case EventJobStarted:
		return JobStatusRunning
	case EventJobCompleted:
		return JobStatusCompleted
	case EventJobFailed:
		return JobStatusFailed
	case EventArtifactDeleted:
		return JobStatusDeleted
	case EventArtifactExpired:
		return JobStatusExpired
	default:
		return ""
	}
}
