package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javi11/trackmount/internal/track"
)

func TestTracker_Lifecycle(t *testing.T) {
	tr := NewTracker()
	defer tr.Stop()

	id := tr.Add(track.ID{Ref: "abc", Type: track.ItemTypeTrack}, 5000)
	require.NotEmpty(t, id)

	active := tr.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "track:abc", active[0].TrackRef)
	assert.Equal(t, "Starting", active[0].Status)

	tr.UpdateProgress(id, 1024)
	tr.UpdateProgress(id, 512)

	active = tr.Active()
	require.Len(t, active, 1)
	assert.Equal(t, int64(1536), active[0].BytesSent)
	assert.Equal(t, "Streaming", active[0].Status)

	tr.Remove(id)
	assert.Empty(t, tr.Active())

	history := tr.History()
	require.Len(t, history, 1)
	assert.Equal(t, "Completed", history[0].Status)
	assert.Equal(t, int64(1536), history[0].BytesSent)
}

func TestTracker_ActiveIsNewestFirst(t *testing.T) {
	tr := NewTracker()
	defer tr.Stop()

	var ids []string
	for _, ref := range []string{"a", "b", "c"} {
		ids = append(ids, tr.Add(track.ID{Ref: ref, Type: track.ItemTypeTrack}, 0))
		time.Sleep(2 * time.Millisecond)
	}

	active := tr.Active()
	require.Len(t, active, 3)
	assert.Equal(t, ids[2], active[0].ID)
	assert.Equal(t, ids[1], active[1].ID)
	assert.Equal(t, ids[0], active[2].ID)
}

func TestTracker_UnknownIDsAreIgnored(t *testing.T) {
	tr := NewTracker()
	defer tr.Stop()

	tr.UpdateProgress("nope", 100)
	tr.Remove("nope")
	assert.Empty(t, tr.Active())
	assert.Empty(t, tr.History())
}

func TestTracker_HistoryIsBounded(t *testing.T) {
	tr := NewTracker()
	defer tr.Stop()

	for i := 0; i < historySize+10; i++ {
		id := tr.Add(track.ID{Ref: "t", Type: track.ItemTypeTrack}, 0)
		tr.Remove(id)
	}
	assert.Len(t, tr.History(), historySize)
}
