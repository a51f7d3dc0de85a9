package ledger

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Cursor is the keyset position after the last job of a page
type Cursor struct {
	CreatedAt time.Time
	JobID     string
}

// DecodeCursor parses an opaque page cursor; an empty string is no cursor.
func DecodeCursor(cursorStr string) (*Cursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	if _, err := fmt.Sscanf(parts[0], "%d", &createdAt); err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &Cursor{
		CreatedAt: time.Unix(0, createdAt).UTC(),
		JobID:     parts[1],
	}, nil
}

// Encode renders the cursor as an opaque URL-safe string
func (c *Cursor) Encode() string {
	cs := fmt.Sprintf("%d|%s", c.CreatedAt.UnixNano(), c.JobID)
	return base64.URLEncoding.EncodeToString([]byte(cs))
}

// Paginate trims a List result to pageSize and returns the cursor of the
// next page, or nil on the last page.
func Paginate(jobs []Job, pageSize int) ([]Job, *Cursor) {
	if pageSize <= 0 || len(jobs) <= pageSize {
		return jobs, nil
	}

	jobs = jobs[:pageSize]
	last := jobs[len(jobs)-1]
	return jobs, &Cursor{CreatedAt: last.CreatedAt, JobID: last.JobID}
}
