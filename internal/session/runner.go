// Package session serves chunked read sessions against registry entries,
// streaming results through a small bounded channel so a slow consumer
// exerts backpressure on the producer.
package session

import (
	"context"
	"errors"
	"io"

	"github.com/javi11/trackmount/internal/metrics"
	"github.com/javi11/trackmount/internal/registry"
	"github.com/javi11/trackmount/internal/slogutil"
	"github.com/javi11/trackmount/internal/track"
)

const (
	minChunkSize     = 128
	maxChunkSize     = 10240
	defaultChunkSize = 10240

	// queueDepth bounds how far the producer can run ahead of the consumer.
	queueDepth = 4
)

// Item is one element of a read session's output. Exactly one of the error
// and data forms is populated; after an Err item the channel closes.
//
// EOF marks genuine stream exhaustion only. A session that stops because it
// delivered `limit` bytes ends without a final marker, so consumers track
// the byte count themselves if they need to tell the two apart.
type Item struct {
	Data []byte
	EOF  bool
	Err  error
}

// Runner produces read sessions over a shared registry.
type Runner struct {
	registry *registry.Registry
	metrics  *metrics.Metrics
	tracker  *Tracker
}

func NewRunner(reg *registry.Registry, m *metrics.Metrics, tracker *Tracker) *Runner {
	return &Runner{
		registry: reg,
		metrics:  m,
		tracker:  tracker,
	}
}

// clampChunkSize bounds a requested chunk size to [128, 10240]; zero selects
// the default.
func clampChunkSize(requested uint32) int {
	switch {
	case requested == 0:
		return defaultChunkSize
	case requested < minChunkSize:
		return minChunkSize
	case requested > maxChunkSize:
		return maxChunkSize
	default:
		return int(requested)
	}
}

// Read starts a chunked read of up to limit bytes at offset and returns the
// channel the chunks arrive on. The producer runs until the limit is
// reached, the stream is exhausted, an error item is emitted, or ctx is
// cancelled; cancelling ctx is how a departed consumer stops it, silently.
// The registry lock is taken once per chunk, never for the whole transfer.
func (r *Runner) Read(ctx context.Context, id track.ID, offset uint64, limit uint32, chunkSize uint32) <-chan Item {
	out := make(chan Item, queueDepth)
	go r.run(ctx, id, offset, int(limit), clampChunkSize(chunkSize), out)
	return out
}

func (r *Runner) run(ctx context.Context, id track.ID, offset uint64, limit, chunkSize int, out chan<- Item) {
	defer close(out)

	log := slogutil.FromContext(ctx).With("component", "read-session")

	r.metrics.ReadSessionsTotal.Inc()

	var sessionID string
	if r.tracker != nil {
		sessionID = r.tracker.Add(id, int64(limit))
		defer r.tracker.Remove(sessionID)
	}

	err := r.registry.WithTrack(id, func(t *registry.OpenedTrack) error {
		_, err := t.Seek(int64(offset), io.SeekStart)
		return err
	})
	if err != nil {
		log.WarnContext(ctx, "Read session seek failed",
			"track_id", id, "offset", offset, "error", err)
		r.send(ctx, out, Item{Err: err})
		return
	}

	log.DebugContext(ctx, "Read session started",
		"track_id", id, "offset", offset, "limit", limit, "chunk_size", chunkSize)

	read := 0
	for read < limit {
		buf := make([]byte, min(chunkSize, limit-read))

		var n int
		var readErr error
		err := r.registry.WithTrack(id, func(t *registry.OpenedTrack) error {
			n, readErr = t.Read(buf)
			return nil
		})
		if err != nil {
			// Track was closed between chunks.
			r.send(ctx, out, Item{Err: err})
			return
		}
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			log.WarnContext(ctx, "Read session failed",
				"track_id", id, "read", read, "error", readErr)
			r.send(ctx, out, Item{Err: readErr})
			return
		}

		read += n
		if r.tracker != nil {
			r.tracker.UpdateProgress(sessionID, int64(n))
		}
		r.metrics.BytesStreamedTotal.Add(float64(n))

		if !r.send(ctx, out, Item{Data: buf[:n], EOF: n == 0}) {
			return
		}
		if n == 0 {
			log.DebugContext(ctx, "Read session reached end of stream",
				"track_id", id, "read", read)
			return
		}
	}

	log.DebugContext(ctx, "Read session delivered limit", "track_id", id, "read", read)
}

// send queues item for the consumer; false means the consumer is gone.
func (r *Runner) send(ctx context.Context, out chan<- Item, item Item) bool {
	select {
	case out <- item:
		return true
	case <-ctx.Done():
		return false
	}
}
