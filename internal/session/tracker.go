package session

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/javi11/trackmount/internal/track"
)

const historySize = 50

// ActiveSession is the externally visible snapshot of one read session.
type ActiveSession struct {
	ID             string    `json:"id"`
	TrackRef       string    `json:"track_ref"`
	StartedAt      time.Time `json:"started_at"`
	Limit          int64     `json:"limit"`
	BytesSent      int64     `json:"bytes_sent"`
	BytesPerSecond int64     `json:"bytes_per_second"`
	Status         string    `json:"status"`
}

type sessionInternal struct {
	id        string
	trackRef  string
	startedAt time.Time
	limit     int64

	bytesSent atomic.Int64

	mu            sync.Mutex
	lastSnapshot  time.Time
	lastBytesSent int64
	speed         int64
}

// Tracker keeps a live view of read sessions plus a bounded history of
// finished ones.
type Tracker struct {
	sessions sync.Map
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	history []ActiveSession
}

// NewTracker starts the snapshot loop and returns the tracker.
func NewTracker() *Tracker {
	t := &Tracker{
		done:    make(chan struct{}),
		history: make([]ActiveSession, 0, historySize),
	}
	go t.snapshotLoop()
	return t
}

// Stop ends the snapshot loop.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() { close(t.done) })
}

func (t *Tracker) snapshotLoop() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			now := time.Now()
			t.sessions.Range(func(_, value any) bool {
				s := value.(*sessionInternal)
				current := s.bytesSent.Load()

				s.mu.Lock()
				elapsed := now.Sub(s.lastSnapshot).Seconds()
				if elapsed > 0 {
					s.speed = int64(float64(current-s.lastBytesSent) / elapsed)
				}
				s.lastBytesSent = current
				s.lastSnapshot = now
				s.mu.Unlock()
				return true
			})
		}
	}
}

// Add registers a new session and returns its id.
func (t *Tracker) Add(id track.ID, limit int64) string {
	s := &sessionInternal{
		id:           uuid.New().String(),
		trackRef:     id.String(),
		startedAt:    time.Now(),
		limit:        limit,
		lastSnapshot: time.Now(),
	}
	t.sessions.Store(s.id, s)
	return s.id
}

// UpdateProgress adds delivered bytes to a session.
func (t *Tracker) UpdateProgress(id string, n int64) {
	if val, ok := t.sessions.Load(id); ok {
		val.(*sessionInternal).bytesSent.Add(n)
	}
}

// Remove finishes a session and records it in the history.
func (t *Tracker) Remove(id string) {
	val, ok := t.sessions.Load(id)
	if !ok {
		return
	}
	t.sessions.Delete(id)

	s := val.(*sessionInternal)
	final := s.snapshot()
	final.Status = "Completed"
	final.BytesPerSecond = 0

	t.mu.Lock()
	if len(t.history) >= historySize {
		t.history = t.history[1:]
	}
	t.history = append(t.history, final)
	t.mu.Unlock()
}

// Active returns snapshots of all running sessions, newest first.
func (t *Tracker) Active() []ActiveSession {
	var sessions []ActiveSession
	t.sessions.Range(func(_, value any) bool {
		sessions = append(sessions, value.(*sessionInternal).snapshot())
		return true
	})

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	return sessions
}

// History returns finished sessions, newest first.
func (t *Tracker) History() []ActiveSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	res := make([]ActiveSession, len(t.history))
	for i, s := range t.history {
		res[len(t.history)-1-i] = s
	}
	return res
}

func (s *sessionInternal) snapshot() ActiveSession {
	sent := s.bytesSent.Load()

	s.mu.Lock()
	speed := s.speed
	s.mu.Unlock()

	status := "Streaming"
	if sent == 0 {
		status = "Starting"
	}

	return ActiveSession{
		ID:             s.id,
		TrackRef:       s.trackRef,
		StartedAt:      s.startedAt,
		Limit:          s.limit,
		BytesSent:      sent,
		BytesPerSecond: speed,
		Status:         status,
	}
}
