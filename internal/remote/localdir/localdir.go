// Package localdir implements the remote capabilities on top of a local
// directory: a YAML manifest describes the catalog and the encoded files sit
// next to it. It backs the serve command in development and gives tests a
// complete capability set without a network backend.
package localdir

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/javi11/trackmount/internal/format"
	"github.com/javi11/trackmount/internal/remote"
	"github.com/javi11/trackmount/internal/track"
)

var (
	ErrTrackNotFound = errors.New("track not found in manifest")
	ErrFileNotFound  = errors.New("file not found")
	ErrNoKey         = errors.New("no key material for file")
)

// Compile-time interface checks
var (
	_ remote.MetadataResolver = (*Directory)(nil)
	_ remote.ContentSource    = (*Directory)(nil)
	_ remote.KeyProvider      = (*Directory)(nil)
)

// manifest is the on-disk catalog description.
type manifest struct {
	Tracks map[string]trackEntry `yaml:"tracks"`
}

type trackEntry struct {
	Name         string            `yaml:"name"`
	Restriction  string            `yaml:"restriction,omitempty"`
	Alternatives []string          `yaml:"alternatives,omitempty"`
	Key          string            `yaml:"key,omitempty"` // hex-encoded AES-128 key
	Files        map[string]string `yaml:"files"`         // format name -> file path
}

// Directory serves catalog metadata, file content and key material from a
// local filesystem.
type Directory struct {
	fsys    afero.Fs
	log     *slog.Logger
	entries map[track.ID]trackEntry
	keys    map[track.FileID][]byte
}

// Open reads the manifest at manifestPath on fsys and indexes it.
func Open(fsys afero.Fs, manifestPath string) (*Directory, error) {
	data, err := afero.ReadFile(fsys, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	d := &Directory{
		fsys:    fsys,
		log:     slog.Default().With("component", "localdir"),
		entries: make(map[track.ID]trackEntry, len(m.Tracks)),
		keys:    make(map[track.FileID][]byte),
	}

	for ref, entry := range m.Tracks {
		id := track.ID{Ref: ref, Type: track.ItemTypeTrack}
		d.entries[id] = entry

		if entry.Key == "" {
			continue
		}
		key, err := hex.DecodeString(entry.Key)
		if err != nil {
			return nil, fmt.Errorf("track %s: decode key: %w", ref, err)
		}
		for _, path := range entry.Files {
			d.keys[track.FileID(path)] = key
		}
	}

	d.log.Info("Loaded local track manifest", "path", manifestPath, "tracks", len(d.entries))
	return d, nil
}

// Capabilities returns the directory wired as all three capabilities.
func (d *Directory) Capabilities() remote.Capabilities {
	return remote.Capabilities{Metadata: d, Content: d, Keys: d}
}

// ResolveAudioItem implements remote.MetadataResolver.
func (d *Directory) ResolveAudioItem(_ context.Context, id track.ID) (*remote.AudioItem, error) {
	entry, ok := d.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}

	files := make(map[format.Format]track.FileID, len(entry.Files))
	for name, path := range entry.Files {
		f, err := format.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", id, err)
		}
		files[f] = track.FileID(path)
	}

	alternatives := make([]track.ID, 0, len(entry.Alternatives))
	for _, ref := range entry.Alternatives {
		altID, err := track.ParseTrackRef(ref)
		if err != nil {
			return nil, fmt.Errorf("track %s: alternative: %w", id, err)
		}
		alternatives = append(alternatives, altID)
	}

	return &remote.AudioItem{
		ID:           id,
		Name:         entry.Name,
		Restriction:  entry.Restriction,
		Files:        files,
		Alternatives: alternatives,
	}, nil
}

// OpenFile implements remote.ContentSource.
func (d *Directory) OpenFile(_ context.Context, fileID track.FileID) (remote.RangeHandle, error) {
	f, err := d.fsys.Open(string(fileID))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileNotFound, fileID, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", fileID, err)
	}

	return &handle{
		file: f,
		ctrl: &controller{file: f, length: info.Size()},
	}, nil
}

// AudioKey implements remote.KeyProvider. Files without key material return
// ErrNoKey; the loader treats that as "stream without decryption".
func (d *Directory) AudioKey(_ context.Context, _ track.ID, fileID track.FileID) ([]byte, error) {
	key, ok := d.keys[fileID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoKey, fileID)
	}
	return key, nil
}

// handle adapts an afero.File to remote.RangeHandle. Local files are fully
// present, so the controller only records what was asked of it.
type handle struct {
	file afero.File
	ctrl *controller
}

func (h *handle) Read(p []byte) (int, error)                { return h.file.Read(p) }
func (h *handle) Seek(off int64, whence int) (int64, error) { return h.file.Seek(off, whence) }
func (h *handle) Controller() remote.RangeController        { return h.ctrl }

type declaredRange struct {
	start, length int64
}

type controller struct {
	mu       sync.Mutex
	file     io.Closer
	length   int64
	mode     remote.FetchMode
	ranges   []declaredRange
	released bool
}

func (c *controller) Len() int64 { return c.length }

func (c *controller) SetMode(mode remote.FetchMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
}

func (c *controller) RequestRange(start, length int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ranges = append(c.ranges, declaredRange{start: start, length: length})
}

func (c *controller) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	c.released = true
	c.ranges = nil
	_ = c.file.Close()
}

// Mode returns the last requested fetch mode.
func (c *controller) Mode() remote.FetchMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Released reports whether Release has been called.
func (c *controller) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}
