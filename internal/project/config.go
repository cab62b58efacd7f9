package project

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude selects C, header and assembly sources.
var DefaultInclude = []string{"**/*.c", "**/*.h", "**/*.s", "**/*.S"}

// DefaultExclude skips version control metadata.
var DefaultExclude = []string{"**/.git/**", "**/.svn/**"}

// Config is the decoded fiddle.toml.
type Config struct {
	Source SourceConfig `toml:"source"`
	Scan   ScanConfig   `toml:"scan"`
	Watch  WatchConfig  `toml:"watch"`
}

// SourceConfig locates the instrumented source tree.
type SourceConfig struct {
	// Root is the (possibly temporary) source tree, relative to the manifest.
	Root    string   `toml:"root"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// ScanConfig tunes tree-wide scans.
type ScanConfig struct {
	Jobs     int    `toml:"jobs"`
	Cache    bool   `toml:"cache"`
	CacheDir string `toml:"cache_dir"`
}

// WatchConfig tunes the watch command.
type WatchConfig struct {
	Debounce string `toml:"debounce"`
}

// Manifest is a located and decoded fiddle.toml.
type Manifest struct {
	Path   string
	Dir    string
	Config Config
}

// DefaultConfig is used when no manifest exists.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Include: append([]string(nil), DefaultInclude...),
			Exclude: append([]string(nil), DefaultExclude...),
		},
		Scan:  ScanConfig{Cache: true},
		Watch: WatchConfig{Debounce: "300ms"},
	}
}

// LoadManifest finds and decodes fiddle.toml above startDir. ok is false
// when there is none.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Dir: filepath.Dir(path), Config: cfg}, true, nil
}

// LoadConfig decodes and validates one manifest file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("source", "root") && strings.TrimSpace(cfg.Source.Root) == "" {
		return Config{}, fmt.Errorf("%s: [source].root is empty", path)
	}
	if cfg.Scan.Jobs < 0 {
		return Config{}, fmt.Errorf("%s: [scan].jobs must not be negative", path)
	}
	for _, p := range append(append([]string(nil), cfg.Source.Include...), cfg.Source.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return Config{}, fmt.Errorf("%s: invalid pattern %q", path, p)
		}
	}
	if _, err := cfg.DebounceWindow(); err != nil {
		return Config{}, fmt.Errorf("%s: [watch].debounce: %w", path, err)
	}
	return cfg, nil
}

// DebounceWindow parses [watch].debounce.
func (c Config) DebounceWindow() (time.Duration, error) {
	if c.Watch.Debounce == "" {
		return 300 * time.Millisecond, nil
	}
	return time.ParseDuration(c.Watch.Debounce)
}

// Match reports whether rel (slash-separated, relative to the source root)
// is a source file the label engine should scan.
func (c Config) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range c.Source.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	include := c.Source.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, p := range include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Excluded reports whether the directory rel is excluded entirely.
func (c Config) Excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range c.Source.Exclude {
		if ok, _ := doublestar.Match(p, rel+"/x"); ok {
			return true
		}
	}
	return false
}
