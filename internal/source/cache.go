package source

import (
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of files a Cache keeps in memory.
const DefaultCacheSize = 256

// Cache keeps recently read files so that repeated line lookups on the same
// file do not reopen it. Entries are revalidated against size and mtime.
// Cache is safe for concurrent use.
type Cache struct {
	files *lru.Cache[string, *File]
}

// NewCache creates a cache holding at most size files.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	files, err := lru.New[string, *File](size)
	if err != nil {
		return nil, fmt.Errorf("source cache: %w", err)
	}
	return &Cache{files: files}, nil
}

// Load returns the content of path, reading it only if the cached copy is
// missing or stale.
func (c *Cache) Load(path string) (*File, error) {
	key := normalizePath(path)
	if f, ok := c.files.Get(key); ok {
		info, err := os.Stat(path)
		if err != nil {
			c.files.Remove(key)
			return nil, err
		}
		if info.Size() == f.Size && info.ModTime().UnixNano() == f.ModTime {
			return f, nil
		}
	}
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	c.files.Add(key, f)
	return f, nil
}

// Store records a file that was just read elsewhere.
func (c *Cache) Store(f *File) {
	if f == nil || f.Flags&FileVirtual != 0 {
		return
	}
	c.files.Add(f.Path, f)
}

// Forget drops path, typically after the file was rewritten.
func (c *Cache) Forget(path string) {
	c.files.Remove(normalizePath(path))
}

// Line returns line lineNum (1-based) of path.
func (c *Cache) Line(path string, lineNum int) (string, error) {
	f, err := c.Load(path)
	if err != nil {
		return "", err
	}
	return f.GetLine(lineNum), nil
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	return c.files.Len()
}
