// Package registry caches opened tracks under reference counting so
// concurrent callers share one acquired stream per track id.
package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/javi11/trackmount/internal/format"
	"github.com/javi11/trackmount/internal/loader"
	"github.com/javi11/trackmount/internal/metrics"
	"github.com/javi11/trackmount/internal/track"
)

var (
	// ErrNotOpen is returned for operations on an id with no registry entry.
	ErrNotOpen = errors.New("no track is currently open")
	// ErrLoadFailed is the single caller-visible acquisition failure. The
	// root cause is logged, not propagated.
	ErrLoadFailed = errors.New("unable to load track")
)

// TrackLoader acquires the stream for a track id on a cache miss.
type TrackLoader interface {
	Load(ctx context.Context, id track.ID) (*loader.LoadedTrack, error)
}

// OpenInfo is what callers get back from Open: enough to describe the stream
// without touching it.
type OpenInfo struct {
	Size   int64
	Format format.Format
}

// Registry is the single owner of all OpenedTrack instances. Every
// structural mutation of the backing map happens under one exclusive lock.
type Registry struct {
	log     *slog.Logger
	loader  TrackLoader
	metrics *metrics.Metrics

	mu     sync.Mutex
	tracks map[track.ID]*OpenedTrack
}

// New creates an empty registry. Create one at process start and tear it
// down with Shutdown; operations receive it by handle.
func New(l TrackLoader, m *metrics.Metrics) *Registry {
	return &Registry{
		log:     slog.Default().With("component", "track-registry"),
		loader:  l,
		metrics: m,
		tracks:  make(map[track.ID]*OpenedTrack),
	}
}

// Open returns the size and format for id, acquiring the stream on first
// use and bumping the ref count on every later call.
//
// The lock is held across a cache-miss acquisition: a concurrent Open of the
// same absent id blocks until the entry exists and never triggers a second
// load. There is no timeout; a stalled fetch blocks Open callers until the
// backend resolves it.
func (r *Registry) Open(ctx context.Context, id track.ID) (OpenInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tracks[id]; ok {
		t.Ref()
		r.metrics.OpensTotal.Inc()
		return OpenInfo{Size: t.Len(), Format: t.Format()}, nil
	}

	loaded, err := r.loader.Load(ctx, id)
	if err != nil {
		r.log.ErrorContext(ctx, "Track acquisition failed", "track_id", id, "error", err)
		r.metrics.LoadFailuresTotal.Inc()
		return OpenInfo{}, ErrLoadFailed
	}

	t := newOpenedTrack(loaded.File, loaded.Controller, loaded.Format)
	r.tracks[id] = t

	r.metrics.OpensTotal.Inc()
	r.metrics.TracksOpen.Inc()

	return OpenInfo{Size: t.Len(), Format: t.Format()}, nil
}

// Info returns the recorded size and format for an already-open id without
// touching the ref count.
func (r *Registry) Info(id track.ID) (OpenInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tracks[id]
	if !ok {
		return OpenInfo{}, ErrNotOpen
	}
	return OpenInfo{Size: t.Len(), Format: t.Format()}, nil
}

// Seek positions the opened track at pos, counted from the start of its
// logical window.
func (r *Registry) Seek(ctx context.Context, id track.ID, pos uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tracks[id]
	if !ok {
		return 0, ErrNotOpen
	}

	newPos, err := t.Seek(int64(pos), io.SeekStart)
	if err != nil {
		return 0, err
	}
	return uint64(newPos), nil
}

// Close drops one reference to id, releasing the underlying stream exactly
// when the count reaches zero.
func (r *Registry) Close(ctx context.Context, id track.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tracks[id]
	if !ok {
		return ErrNotOpen
	}

	if t.Unref() > 0 {
		r.metrics.ClosesTotal.Inc()
		return nil
	}

	delete(r.tracks, id)
	t.release()

	r.metrics.ClosesTotal.Inc()
	r.metrics.TracksOpen.Dec()
	r.log.DebugContext(ctx, "Track released", "track_id", id)
	return nil
}

// WithTrack runs fn on the entry for id under the registry lock. Read
// sessions call this once per chunk so other operations can interleave
// between chunks.
func (r *Registry) WithTrack(id track.ID, fn func(*OpenedTrack) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tracks[id]
	if !ok {
		return ErrNotOpen
	}
	return fn(t)
}

// OpenCount returns the number of tracks currently resident.
func (r *Registry) OpenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tracks)
}

// Shutdown releases every resident track regardless of ref count. Callers
// must be gone by the time this runs.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.tracks {
		t.release()
		delete(r.tracks, id)
		r.metrics.TracksOpen.Dec()
	}
}
