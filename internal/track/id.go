package track

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRef = errors.New("invalid track ref")
	ErrNotATrack  = errors.New("ref does not name a track")
)

// ItemType discriminates what kind of catalog item an ID names. Only track
// items are valid input to the session core.
type ItemType int

const (
	ItemTypeUnknown ItemType = iota
	ItemTypeTrack
	ItemTypeEpisode
)

func (t ItemType) String() string {
	switch t {
	case ItemTypeTrack:
		return "track"
	case ItemTypeEpisode:
		return "episode"
	default:
		return "unknown"
	}
}

// ID is an opaque, comparable identifier for one logical remote audio item.
type ID struct {
	Ref  string
	Type ItemType
}

func (id ID) String() string {
	return fmt.Sprintf("%s:%s", id.Type, id.Ref)
}

// FileID names one concrete remote encoded file offered for a track.
type FileID string

func (f FileID) String() string { return string(f) }

// ParseRef parses a caller-supplied track reference of the form
// "<type>:<id>". A single leading slash is tolerated because some callers
// hand over path-shaped refs.
func ParseRef(ref string) (ID, error) {
	ref = strings.TrimPrefix(ref, "/")

	typ, rest, ok := strings.Cut(ref, ":")
	if !ok || rest == "" {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	var itemType ItemType
	switch typ {
	case "track":
		itemType = ItemTypeTrack
	case "episode":
		itemType = ItemTypeEpisode
	default:
		return ID{}, fmt.Errorf("%w: unknown item type %q", ErrInvalidRef, typ)
	}

	return ID{Ref: rest, Type: itemType}, nil
}

// ParseTrackRef parses a ref and rejects anything that is not a track item.
func ParseTrackRef(ref string) (ID, error) {
	id, err := ParseRef(ref)
	if err != nil {
		return ID{}, err
	}
	if id.Type != ItemTypeTrack {
		return ID{}, fmt.Errorf("%w: %q", ErrNotATrack, ref)
	}
	return id, nil
}
