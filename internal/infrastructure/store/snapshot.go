package store

import (
	"encoding/json"
	"time"
)

// SnapshotThreshold is the stream length between two snapshots.
const SnapshotThreshold = 10

// Snapshot is an aggregate's serialized state as of Version. Loading resumes
// from Version+1.
type Snapshot struct {
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	State         json.RawMessage `json:"state"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SnapshotDue reports whether a stream that just reached version should be snapshotted.
func SnapshotDue(version int) bool {
	return version > 0 && version%SnapshotThreshold == 0
}
