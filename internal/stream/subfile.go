// Package stream provides seekable stream plumbing for the session core.
package stream

import (
	"errors"
	"fmt"
	"io"
)

// ErrSeekBeforeWindow is returned when a seek would land before the start of
// a Subfile's window.
var ErrSeekBeforeWindow = errors.New("seek target precedes subfile offset")

// SeekReader is any readable, seekable byte stream. Decrypted, plaintext and
// windowed streams all flow through this one capability type.
type SeekReader interface {
	io.Reader
	io.Seeker
}

// Subfile restricts an underlying stream to the logical byte range
// [offset, offset+len). Positions reported to callers are local: local
// position + offset equals the absolute underlying position.
type Subfile struct {
	src    SeekReader
	offset int64
	length int64
}

// NewSubfile wraps src and seeks it to offset so the window starts out
// positioned at local 0.
func NewSubfile(src SeekReader, offset, length int64) (*Subfile, error) {
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to subfile offset %d: %w", offset, err)
	}
	return &Subfile{src: src, offset: offset, length: length}, nil
}

// Read forwards to the underlying stream; the position has already been
// mapped by a prior seek.
func (s *Subfile) Read(p []byte) (int, error) {
	return s.src.Read(p)
}

// Seek translates local window coordinates to underlying coordinates.
// Start positions are shifted by the window offset, end-relative targets
// that would land before the window are rejected, and current-relative
// deltas pass through unchanged. The returned position is always local.
func (s *Subfile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		offset += s.offset
		whence = io.SeekStart
	case io.SeekEnd:
		if s.length+offset < s.offset {
			return 0, ErrSeekBeforeWindow
		}
	}

	pos, err := s.src.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	return pos - s.offset, nil
}

// Len returns the window length.
func (s *Subfile) Len() int64 {
	return s.length
}
