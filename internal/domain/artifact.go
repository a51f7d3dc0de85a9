package domain

import (
	"strings"
	"time"
)

// Artifact is the single file produced for a job
type Artifact struct {
	JobID      string
	Filename   string
	Path       string
	Size       int64
	ModifiedAt time.Time
}

// DownloadURL is the retrieval path served by the gateway
func (a *Artifact) DownloadURL() string {
	return DownloadURLFor(a.Filename)
}

// DownloadURLFor builds the retrieval path for a stored filename
func DownloadURLFor(filename string) string {
	return DownloadRoute + "/" + filename
}

// Entry is one directory entry seen by a storage scan
type Entry struct {
	Filename   string
	Size       int64
	ModifiedAt time.Time
}

// Age returns how long ago the entry was last modified
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.ModifiedAt)
}

// JobIDFromFilename returns the job id prefix of an artifact filename
func JobIDFromFilename(filename string) string {
	if i := strings.IndexByte(filename, '.'); i >= 0 {
		return filename[:i]
	}
	return filename
}
