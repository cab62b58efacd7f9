package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// EnvSourceRoot overrides the manifest source root.
const EnvSourceRoot = "FIDDLE_SRC_ROOT"

// MissingPathError reports that no source tree root is configured.
type MissingPathError struct {
	Tried []string
}

func (e *MissingPathError) Error() string {
	return fmt.Sprintf("no source tree root configured (tried %s)", strings.Join(e.Tried, ", "))
}

// LoadEnv reads KEY=value pairs from dir/.env into the process environment
// without overriding variables that are already set. A missing file is
// not an error.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Resolution is the outcome of ResolveRoot.
type Resolution struct {
	Root     string
	Origin   string // "flag", "env" or "manifest"
	Manifest *Manifest
	Config   Config
}

// ResolveRoot picks the source tree root from, in order, the explicit flag
// value, $FIDDLE_SRC_ROOT and [source].root of the nearest fiddle.toml. It
// never guesses: with none of them set it returns *MissingPathError.
func ResolveRoot(flagRoot, startDir string) (*Resolution, error) {
	manifest, _, err := LoadManifest(startDir)
	if err != nil {
		return nil, err
	}
	res := &Resolution{Config: DefaultConfig(), Manifest: manifest}
	if manifest != nil {
		res.Config = manifest.Config
	}

	switch {
	case strings.TrimSpace(flagRoot) != "":
		res.Root, res.Origin = flagRoot, "flag"
	case strings.TrimSpace(os.Getenv(EnvSourceRoot)) != "":
		res.Root, res.Origin = os.Getenv(EnvSourceRoot), "env"
	case manifest != nil && manifest.Config.Source.Root != "":
		root := manifest.Config.Source.Root
		if !filepath.IsAbs(root) {
			root = filepath.Join(manifest.Dir, root)
		}
		res.Root, res.Origin = root, "manifest"
	default:
		return nil, &MissingPathError{Tried: []string{"--root", "$" + EnvSourceRoot, ManifestName + " [source].root"}}
	}

	root, err := filepath.Abs(res.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source root (%s): %w", res.Origin, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root (%s) %s is not a directory", res.Origin, root)
	}
	res.Root = root
	return res, nil
}
