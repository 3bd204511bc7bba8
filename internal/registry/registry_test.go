package registry

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javi11/trackmount/internal/format"
	"github.com/javi11/trackmount/internal/loader"
	"github.com/javi11/trackmount/internal/metrics"
	"github.com/javi11/trackmount/internal/remote"
	"github.com/javi11/trackmount/internal/track"
)

type stubController struct {
	length   int64
	released atomic.Bool
}

func (c *stubController) Len() int64               { return c.length }
func (c *stubController) SetMode(remote.FetchMode) {}
func (c *stubController) RequestRange(_, _ int64)  {}
func (c *stubController) Release()                 { c.released.Store(true) }

// stubLoader hands out in-memory tracks and counts acquisitions.
type stubLoader struct {
	mu       sync.Mutex
	data     map[track.ID][]byte
	errs     map[track.ID]error
	loads    int32
	delay    time.Duration
	released []*stubController
}

func (l *stubLoader) Load(_ context.Context, id track.ID) (*loader.LoadedTrack, error) {
	atomic.AddInt32(&l.loads, 1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}

	if err, ok := l.errs[id]; ok {
		return nil, err
	}
	data, ok := l.data[id]
	if !ok {
		return nil, errors.New("unknown track")
	}

	ctrl := &stubController{length: int64(len(data))}
	l.mu.Lock()
	l.released = append(l.released, ctrl)
	l.mu.Unlock()

	return &loader.LoadedTrack{
		File:       bytes.NewReader(data),
		Format:     format.OggVorbis320,
		Controller: ctrl,
	}, nil
}

func (l *stubLoader) loadCount() int32 {
	return atomic.LoadInt32(&l.loads)
}

func trackID(ref string) track.ID {
	return track.ID{Ref: ref, Type: track.ItemTypeTrack}
}

func newTestRegistry(l TrackLoader) *Registry {
	return New(l, metrics.New(prometheus.NewRegistry()))
}

func TestOpen_CacheHitSkipsAcquisition(t *testing.T) {
	l := &stubLoader{data: map[track.ID][]byte{trackID("t1"): make([]byte, 5000)}}
	r := newTestRegistry(l)
	ctx := context.Background()

	first, err := r.Open(ctx, trackID("t1"))
	require.NoError(t, err)
	assert.Equal(t, int64(5000), first.Size)
	assert.Equal(t, format.OggVorbis320, first.Format)

	second, err := r.Open(ctx, trackID("t1"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), l.loadCount())

	var refs int32
	require.NoError(t, r.WithTrack(trackID("t1"), func(ot *OpenedTrack) error {
		refs = ot.RefCount()
		return nil
	}))
	assert.Equal(t, int32(2), refs)
}

func TestOpen_ConcurrentMissesLoadOnce(t *testing.T) {
	l := &stubLoader{
		data:  map[track.ID][]byte{trackID("t1"): make([]byte, 1234)},
		delay: 20 * time.Millisecond,
	}
	r := newTestRegistry(l)

	var wg sync.WaitGroup
	infos := make([]OpenInfo, 2)
	for i := range infos {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := r.Open(context.Background(), trackID("t1"))
			assert.NoError(t, err)
			infos[i] = info
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), l.loadCount())
	assert.Equal(t, infos[0], infos[1])

	require.NoError(t, r.WithTrack(trackID("t1"), func(ot *OpenedTrack) error {
		assert.Equal(t, int32(2), ot.RefCount())
		return nil
	}))
}

func TestClose_RefCountLifecycle(t *testing.T) {
	l := &stubLoader{data: map[track.ID][]byte{trackID("t1"): make([]byte, 100)}}
	r := newTestRegistry(l)
	ctx := context.Background()

	_, err := r.Open(ctx, trackID("t1"))
	require.NoError(t, err)
	_, err = r.Open(ctx, trackID("t1"))
	require.NoError(t, err)

	// First close: entry survives, stream stays open.
	require.NoError(t, r.Close(ctx, trackID("t1")))
	assert.Equal(t, 1, r.OpenCount())
	assert.False(t, l.released[0].released.Load())

	// Second close: count hits zero, entry removed, stream released.
	require.NoError(t, r.Close(ctx, trackID("t1")))
	assert.Equal(t, 0, r.OpenCount())
	assert.True(t, l.released[0].released.Load())

	// Track is gone now.
	assert.ErrorIs(t, r.Close(ctx, trackID("t1")), ErrNotOpen)
}

func TestClose_SingleOpenThenDoubleClose(t *testing.T) {
	l := &stubLoader{data: map[track.ID][]byte{trackID("t1"): make([]byte, 100)}}
	r := newTestRegistry(l)
	ctx := context.Background()

	_, err := r.Open(ctx, trackID("t1"))
	require.NoError(t, err)

	require.NoError(t, r.Close(ctx, trackID("t1")))
	assert.ErrorIs(t, r.Close(ctx, trackID("t1")), ErrNotOpen)
}

func TestOpen_LoadFailureIsOpaque(t *testing.T) {
	rootCause := errors.New("metadata backend exploded")
	l := &stubLoader{errs: map[track.ID]error{trackID("t1"): rootCause}}
	r := newTestRegistry(l)

	_, err := r.Open(context.Background(), trackID("t1"))
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.NotErrorIs(t, err, rootCause)
	assert.Equal(t, 0, r.OpenCount())
}

func TestSeek(t *testing.T) {
	l := &stubLoader{data: map[track.ID][]byte{trackID("t1"): []byte("0123456789")}}
	r := newTestRegistry(l)
	ctx := context.Background()

	_, err := r.Seek(ctx, trackID("t1"), 3)
	assert.ErrorIs(t, err, ErrNotOpen)

	_, err = r.Open(ctx, trackID("t1"))
	require.NoError(t, err)

	pos, err := r.Seek(ctx, trackID("t1"), 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), pos)

	require.NoError(t, r.WithTrack(trackID("t1"), func(ot *OpenedTrack) error {
		buf := make([]byte, 2)
		n, err := ot.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, "34", string(buf[:n]))
		return nil
	}))
}

func TestWithTrack_NotOpen(t *testing.T) {
	r := newTestRegistry(&stubLoader{})
	err := r.WithTrack(trackID("nope"), func(*OpenedTrack) error { return nil })
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestShutdown_ReleasesEverything(t *testing.T) {
	l := &stubLoader{data: map[track.ID][]byte{
		trackID("t1"): make([]byte, 10),
		trackID("t2"): make([]byte, 10),
	}}
	r := newTestRegistry(l)
	ctx := context.Background()

	_, err := r.Open(ctx, trackID("t1"))
	require.NoError(t, err)
	_, err = r.Open(ctx, trackID("t2"))
	require.NoError(t, err)

	r.Shutdown()
	assert.Equal(t, 0, r.OpenCount())
	for _, ctrl := range l.released {
		assert.True(t, ctrl.released.Load())
	}
}
