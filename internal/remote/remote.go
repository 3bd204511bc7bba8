// Package remote defines the capability interfaces the track session core
// consumes: catalog metadata resolution, byte-range content access and
// decryption key retrieval. Implementations live elsewhere (a real backend
// client, or localdir for development and tests).
package remote

import (
	"context"
	"io"

	"github.com/javi11/trackmount/internal/format"
	"github.com/javi11/trackmount/internal/track"
)

// AudioItem is the resolved catalog view of one track: the encoded files it
// is offered in, and the alternative ids to probe when it is restricted.
type AudioItem struct {
	ID   track.ID
	Name string

	// Restriction is non-empty when the item cannot be streamed; the value
	// carries the backend's reason for diagnostics.
	Restriction string

	Files        map[format.Format]track.FileID
	Alternatives []track.ID
}

// Available reports whether the item can be streamed as-is.
func (a *AudioItem) Available() bool {
	return a.Restriction == ""
}

// MetadataResolver resolves a track id into its catalog metadata.
type MetadataResolver interface {
	ResolveAudioItem(ctx context.Context, id track.ID) (*AudioItem, error)
}

// FetchMode selects how the backing store prefetches file data.
type FetchMode int

const (
	// FetchSequential optimises for linear playback.
	FetchSequential FetchMode = iota
	// FetchRandomAccess optimises for seek-heavy access.
	FetchRandomAccess
)

// RangeController reports the total remote file length and steers prefetch
// behaviour for one open handle.
type RangeController interface {
	// Len returns the total length of the remote file in bytes.
	Len() int64
	// SetMode switches the prefetch strategy.
	SetMode(mode FetchMode)
	// RequestRange declares [start, start+length) as wanted so the backing
	// store can fetch it ahead of reads.
	RequestRange(start, length int64)
	// Release drops all declared ranges and any backing resources. Called
	// exactly once, when the owning registry entry is removed.
	Release()
}

// RangeHandle is an open, seekable view of one remote encoded file.
type RangeHandle interface {
	io.ReadSeeker
	Controller() RangeController
}

// ContentSource opens byte-range-capable handles for remote file ids.
type ContentSource interface {
	OpenFile(ctx context.Context, fileID track.FileID) (RangeHandle, error)
}

// KeyProvider fetches decryption key material for a (track, file) pair.
// Not all content is encrypted: a failed key request means the stream is
// served without decryption, it is not an error.
type KeyProvider interface {
	AudioKey(ctx context.Context, id track.ID, fileID track.FileID) ([]byte, error)
}

// Capabilities bundles the three external dependencies of the session core.
type Capabilities struct {
	Metadata MetadataResolver
	Content  ContentSource
	Keys     KeyProvider
}
