package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotDue(t *testing.T) {
	tests := []struct {
		version int
		due     bool
	}{
		{0, false},
		{1, false},
		{9, false},
		{SnapshotThreshold, true},
		{SnapshotThreshold + 1, false},
		{SnapshotThreshold * 3, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.due, SnapshotDue(tt.version), "version %d", tt.version)
	}
}

func TestEventStore_SnapshotRoundTrip(t *testing.T) {
	es := NewEventStore(nil)
	ctx := context.Background()

	missing, err := es.GetSnapshot(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	state, err := json.Marshal(map[string]any{"code": "SKU-1", "on_hand": 7})
	require.NoError(t, err)

	err = es.SaveSnapshot(ctx, &Snapshot{
		AggregateID:   "SKU-1",
		AggregateType: "Variant",
		Version:       10,
		State:         state,
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	got, err := es.GetSnapshot(ctx, "SKU-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10, got.Version)
	assert.JSONEq(t, string(state), string(got.State))
}
