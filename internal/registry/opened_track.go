package registry

import (
	"sync/atomic"

	"github.com/javi11/trackmount/internal/format"
	"github.com/javi11/trackmount/internal/remote"
	"github.com/javi11/trackmount/internal/stream"
)

// OpenedTrack owns one acquired track stream: the windowed decrypted file,
// the controller steering its remote fetches, and an atomic reference count.
// While resident in the registry the count is at least 1; the entry is
// removed exactly when a decrement brings it to 0.
type OpenedTrack struct {
	file       stream.SeekReader
	controller remote.RangeController
	refCount   atomic.Int32
	audioFmt   format.Format
}

func newOpenedTrack(file stream.SeekReader, controller remote.RangeController, audioFmt format.Format) *OpenedTrack {
	t := &OpenedTrack{
		file:       file,
		controller: controller,
		audioFmt:   audioFmt,
	}
	t.refCount.Store(1)
	return t
}

// Ref adds a reference and returns the new count.
func (t *OpenedTrack) Ref() int32 {
	return t.refCount.Add(1)
}

// Unref drops a reference and returns the new count.
func (t *OpenedTrack) Unref() int32 {
	return t.refCount.Add(-1)
}

// RefCount returns the current reference count.
func (t *OpenedTrack) RefCount() int32 {
	return t.refCount.Load()
}

// Len returns the total stream length reported by the controller.
func (t *OpenedTrack) Len() int64 {
	return t.controller.Len()
}

// Format returns the encoding resolved at acquisition time.
func (t *OpenedTrack) Format() format.Format {
	return t.audioFmt
}

func (t *OpenedTrack) Read(p []byte) (int, error) {
	return t.file.Read(p)
}

func (t *OpenedTrack) Seek(offset int64, whence int) (int64, error) {
	return t.file.Seek(offset, whence)
}

// release drops the backing stream. Called exactly once, at removal.
func (t *OpenedTrack) release() {
	t.controller.Release()
}
