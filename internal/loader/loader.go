// Package loader resolves a track id into a decrypted, windowed, seekable
// stream ready for registration in the opened-track registry.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc"

	"github.com/javi11/trackmount/internal/decrypt"
	"github.com/javi11/trackmount/internal/format"
	"github.com/javi11/trackmount/internal/remote"
	"github.com/javi11/trackmount/internal/stream"
	"github.com/javi11/trackmount/internal/track"
)

// ErrUnavailable means the track and every alternative are restricted.
var ErrUnavailable = errors.New("track is unavailable")

// Ogg files carry a custom leading metadata packet that is not a well-formed
// Ogg page; players may balk at it, so the window starts after it.
const oggHeaderSkip = 0xa7

// LoadedTrack is the result of a successful acquisition: a windowed,
// decrypted stream plus the controller steering its remote fetches.
type LoadedTrack struct {
	File       stream.SeekReader
	Format     format.Format
	Controller remote.RangeController
}

// Loader acquires remote track streams through the external capabilities.
type Loader struct {
	log  *slog.Logger
	caps remote.Capabilities
}

func New(caps remote.Capabilities) *Loader {
	return &Loader{
		log:  slog.Default().With("component", "track-loader"),
		caps: caps,
	}
}

// Load acquires the byte stream for id. There are no retries and no
// timeouts here: a stalled fetch blocks until the backend gives up, and the
// only fallback is the one-shot alternative-track probe.
func (l *Loader) Load(ctx context.Context, id track.ID) (*LoadedTrack, error) {
	item, err := l.caps.Metadata.ResolveAudioItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve audio item %s: %w", id, err)
	}

	if !item.Available() {
		item, err = l.findAvailableAlternative(ctx, item)
		if err != nil {
			return nil, err
		}
	}

	l.log.InfoContext(ctx, "Loading track", "track_id", id, "name", item.Name)

	audioFormat, fileID, err := format.Select(item.Files)
	if err != nil {
		return nil, fmt.Errorf("track %s: %w", id, err)
	}

	l.log.DebugContext(ctx, "Selected audio file",
		"format", audioFormat,
		"file_id", fileID,
		"bytes_per_second", audioFormat.DataRate())

	handle, err := l.caps.Content.OpenFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("open audio file %s: %w", fileID, err)
	}
	controller := handle.Controller()

	// Not all audio files are encrypted. If no key can be fetched the track
	// is streamed as-is; a genuinely encrypted file will then fail at the
	// decoder, not here.
	key, err := l.caps.Keys.AudioKey(ctx, id, fileID)
	if err != nil {
		l.log.WarnContext(ctx, "Unable to load key, continuing without decryption",
			"track_id", id, "file_id", fileID, "error", err)
		key = nil
	}

	decrypted, err := decrypt.NewReader(key, handle)
	if err != nil {
		// The handle is open from here on; failures must give it back.
		controller.Release()
		return nil, fmt.Errorf("wrap audio file %s: %w", fileID, err)
	}

	var offset int64
	if audioFormat.IsOggVorbis() {
		offset = oggHeaderSkip
	}

	file, err := stream.NewSubfile(decrypted, offset, controller.Len())
	if err != nil {
		controller.Release()
		return nil, fmt.Errorf("open subfile for %s: %w", fileID, err)
	}

	l.log.InfoContext(ctx, "Track loaded",
		"track_id", id, "size", controller.Len(), "format", audioFormat)

	controller.SetMode(remote.FetchRandomAccess)
	controller.RequestRange(offset, controller.Len()-offset)

	return &LoadedTrack{
		File:       file,
		Format:     audioFormat,
		Controller: controller,
	}, nil
}

// findAvailableAlternative probes every alternative id concurrently and
// takes the first one to resolve as available. The race is intentional:
// completion order is the only tie-break.
func (l *Loader) findAvailableAlternative(ctx context.Context, item *remote.AudioItem) (*remote.AudioItem, error) {
	if len(item.Alternatives) == 0 {
		l.log.ErrorContext(ctx, "Track is unavailable and has no alternatives",
			"track_id", item.ID, "restriction", item.Restriction)
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, item.Restriction)
	}

	results := make(chan *remote.AudioItem, len(item.Alternatives))

	wg := conc.NewWaitGroup()
	for _, altID := range item.Alternatives {
		wg.Go(func() {
			alt, err := l.caps.Metadata.ResolveAudioItem(ctx, altID)
			if err != nil {
				l.log.DebugContext(ctx, "Alternative probe failed",
					"track_id", altID, "error", err)
				results <- nil
				return
			}
			if !alt.Available() {
				results <- nil
				return
			}
			results <- alt
		})
	}
	go wg.Wait()

	for range item.Alternatives {
		if alt := <-results; alt != nil {
			l.log.InfoContext(ctx, "Using available alternative",
				"track_id", item.ID, "alternative_id", alt.ID)
			return alt, nil
		}
	}

	l.log.ErrorContext(ctx, "No available alternative found", "track_id", item.ID)
	return nil, fmt.Errorf("%w: no available alternative", ErrUnavailable)
}
