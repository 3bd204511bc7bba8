package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    ID
		wantErr bool
	}{
		{
			name: "plain track ref",
			ref:  "track:4uLU6hMCjMI75M1A2tKUQC",
			want: ID{Ref: "4uLU6hMCjMI75M1A2tKUQC", Type: ItemTypeTrack},
		},
		{
			name: "leading slash is stripped",
			ref:  "/track:4uLU6hMCjMI75M1A2tKUQC",
			want: ID{Ref: "4uLU6hMCjMI75M1A2tKUQC", Type: ItemTypeTrack},
		},
		{
			name: "episode ref",
			ref:  "episode:abc123",
			want: ID{Ref: "abc123", Type: ItemTypeEpisode},
		},
		{
			name:    "missing separator",
			ref:     "trackabc",
			wantErr: true,
		},
		{
			name:    "empty id part",
			ref:     "track:",
			wantErr: true,
		},
		{
			name:    "unknown item type",
			ref:     "playlist:abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRef(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTrackRef_RejectsNonTrack(t *testing.T) {
	_, err := ParseTrackRef("episode:abc123")
	assert.ErrorIs(t, err, ErrNotATrack)

	id, err := ParseTrackRef("track:abc123")
	require.NoError(t, err)
	assert.Equal(t, ItemTypeTrack, id.Type)
}

func TestID_IsComparable(t *testing.T) {
	a := ID{Ref: "x", Type: ItemTypeTrack}
	b := ID{Ref: "x", Type: ItemTypeTrack}

	m := map[ID]int{a: 1}
	assert.Equal(t, 1, m[b])
}
