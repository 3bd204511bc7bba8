// Package format enumerates the encoded audio variants a track can be
// offered in and picks the best supported one.
package format

import (
	"errors"
	"fmt"

	"github.com/javi11/trackmount/internal/track"
)

var ErrUnsupportedFormat = errors.New("track is not available in any supported format")

// Format is one concrete container/bitrate variant of a remote audio file.
type Format int

const (
	FormatUnknown Format = iota
	OggVorbis96
	OggVorbis160
	OggVorbis320
	MP3_96
	MP3_160
	MP3_160Enc
	MP3_256
	MP3_320
	AAC24
	AAC48
	FLAC
)

func (f Format) String() string {
	switch f {
	case OggVorbis96:
		return "OGG_VORBIS_96"
	case OggVorbis160:
		return "OGG_VORBIS_160"
	case OggVorbis320:
		return "OGG_VORBIS_320"
	case MP3_96:
		return "MP3_96"
	case MP3_160:
		return "MP3_160"
	case MP3_160Enc:
		return "MP3_160_ENC"
	case MP3_256:
		return "MP3_256"
	case MP3_320:
		return "MP3_320"
	case AAC24:
		return "AAC_24"
	case AAC48:
		return "AAC_48"
	case FLAC:
		return "FLAC_FLAC"
	default:
		return "UNKNOWN"
	}
}

// IsOggVorbis reports whether the format uses the Ogg Vorbis container.
func (f Format) IsOggVorbis() bool {
	switch f {
	case OggVorbis96, OggVorbis160, OggVorbis320:
		return true
	}
	return false
}

// IsMP3 reports whether the format is an MP3 variant.
func (f Format) IsMP3() bool {
	switch f {
	case MP3_96, MP3_160, MP3_160Enc, MP3_256, MP3_320:
		return true
	}
	return false
}

// MimeType returns the media type served to callers for this format.
func (f Format) MimeType() string {
	switch {
	case f.IsOggVorbis():
		return "application/ogg"
	case f.IsMP3():
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}

// DataRate returns the nominal stream data rate in bytes per second. The
// table is informational only and plays no part in format selection.
func (f Format) DataRate() int {
	var kbps int
	switch f {
	case OggVorbis96, MP3_96:
		kbps = 12
	case OggVorbis160, MP3_160, MP3_160Enc:
		kbps = 20
	case OggVorbis320, MP3_320:
		kbps = 40
	case MP3_256:
		kbps = 32
	case AAC24:
		kbps = 3
	case AAC48:
		kbps = 6
	case FLAC:
		kbps = 112 // assume around 900 kbit/s on average
	}
	return kbps * 1024
}

// Parse maps a format name, as it appears in manifests and catalog payloads,
// back to its Format value.
func Parse(name string) (Format, error) {
	for f := OggVorbis96; f <= FLAC; f++ {
		if f.String() == name {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("unknown audio format %q", name)
}

// preferenceOrder is the fixed descending-quality selection order. Most
// podcast items only carry 96 kbps Ogg Vorbis, so it sits last as a fallback.
var preferenceOrder = []Format{
	MP3_320,
	OggVorbis320,
	MP3_256,
	MP3_160,
	OggVorbis160,
	MP3_96,
	OggVorbis96,
}

// Select picks the best supported format offered for a track. The result
// depends only on which formats are present, never on map iteration order.
func Select(files map[Format]track.FileID) (Format, track.FileID, error) {
	for _, f := range preferenceOrder {
		if fileID, ok := files[f]; ok {
			return f, fileID, nil
		}
	}
	return FormatUnknown, "", ErrUnsupportedFormat
}
