// Package labelcache persists per-file scan results between runs.
package labelcache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"fiddle/internal/label"
	"fiddle/internal/project"
)

// Current schema version - increment when Payload format changes
const schemaVersion uint16 = 1

// Disk stores scan results keyed by content digest. Thread-safe.
type Disk struct {
	mu  sync.RWMutex
	dir string
}

// Payload is one cached scan.
type Payload struct {
	Schema uint16   `msgpack:"schema"`
	Labels []record `msgpack:"labels"`
}

type record struct {
	File       string `msgpack:"file"`
	Path       string `msgpack:"path"`
	Line       int    `msgpack:"line"`
	Asm        bool   `msgpack:"asm"`
	Tag        string `msgpack:"tag"`
	Name       string `msgpack:"name"`
	Stage      string `msgpack:"stage"`
	Value      string `msgpack:"value"`
	Raw        string `msgpack:"raw"`
	RefLine    int    `msgpack:"ref_line"`
	RefContent string `msgpack:"ref_content"`
}

// DefaultDir returns $XDG_CACHE_HOME/<app>/labels, falling back to
// ~/.cache.
func DefaultDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app, "labels"), nil
}

// Open creates the cache directory if needed.
func Open(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("label cache: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Disk) Dir() string { return c.dir }

func (c *Disk) pathFor(key project.Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// fan out by the first key byte
	return filepath.Join(c.dir, hexKey[:2], hexKey+".mp")
}

// Put writes labels under key, replacing any previous entry atomically.
func (c *Disk) Put(key project.Digest, labels []label.Label) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	payload := Payload{Schema: schemaVersion, Labels: make([]record, len(labels))}
	for i, l := range labels {
		payload.Labels[i] = toRecord(l)
	}
	if err = msgpack.NewEncoder(f).Encode(&payload); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the labels stored under key. Entries written with another
// schema are reported as missing.
func (c *Disk) Get(key project.Digest) ([]label.Label, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload Payload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("label cache entry %s: %w", f.Name(), err)
	}
	if payload.Schema != schemaVersion {
		return nil, false, nil
	}
	labels := make([]label.Label, len(payload.Labels))
	for i, r := range payload.Labels {
		labels[i] = r.label()
	}
	return labels, true, nil
}

// DropAll removes every entry.
func (c *Disk) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.MkdirAll(c.dir, 0o755)
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

func toRecord(l label.Label) record {
	return record{
		File:       l.File,
		Path:       l.Path,
		Line:       l.Line,
		Asm:        l.Asm,
		Tag:        l.Tag,
		Name:       l.Name,
		Stage:      string(l.Stage),
		Value:      l.Value,
		Raw:        l.Raw,
		RefLine:    l.RefLine,
		RefContent: l.RefContent,
	}
}

func (r record) label() label.Label {
	return label.Label{
		File:       r.File,
		Path:       r.Path,
		Line:       r.Line,
		Asm:        r.Asm,
		Tag:        r.Tag,
		Name:       r.Name,
		Stage:      label.Stage(r.Stage),
		Value:      r.Value,
		Raw:        r.Raw,
		RefLine:    r.RefLine,
		RefContent: r.RefContent,
	}
}
