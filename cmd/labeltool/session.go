package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fiddle/internal/label"
	"fiddle/internal/labelcache"
	"fiddle/internal/labeltool"
	"fiddle/internal/project"
)

// resolve locates the source root. override, when set, wins over --root.
func (a *app) resolve(cmd *cobra.Command, override string) (*project.Resolution, error) {
	idx := a.timer.Begin("resolve")
	defer a.timer.End(idx, "")

	root, err := cmd.Root().PersistentFlags().GetString("root")
	if err != nil {
		return nil, err
	}
	if override != "" {
		root = override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	res, err := project.ResolveRoot(root, cwd)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("source root resolved",
		zap.String("root", res.Root),
		zap.String("origin", res.Origin))
	return res, nil
}

// newTool builds the label engine for res. The disk cache is used unless
// disabled by flag or manifest.
func (a *app) newTool(res *project.Resolution, useCache bool) (*labeltool.Tool, error) {
	opts := []labeltool.Option{
		labeltool.WithLogger(a.logger),
		labeltool.WithConfig(res.Config),
	}
	if useCache && res.Config.Scan.Cache {
		dir, err := cacheDir(res)
		if err != nil {
			return nil, err
		}
		cache, err := labelcache.Open(dir)
		if err != nil {
			a.logger.Warn("scan cache disabled", zap.String("dir", dir), zap.Error(err))
		} else {
			opts = append(opts, labeltool.WithScanCache(cache))
		}
	}
	return labeltool.New(label.NewBuiltinRegistry(), opts...)
}

// cacheDir is the scan cache location: the manifest's cache_dir, relative
// to the manifest, or the per-user default.
func cacheDir(res *project.Resolution) (string, error) {
	dir := res.Config.Scan.CacheDir
	if dir == "" {
		return labelcache.DefaultDir("fiddle")
	}
	if !filepath.IsAbs(dir) && res.Manifest != nil {
		dir = filepath.Join(res.Manifest.Dir, dir)
	}
	return dir, nil
}

// relFile maps a file argument to a path relative to root. Relative
// arguments are taken relative to root when such a file exists there, and
// to the working directory otherwise.
func relFile(root, arg string) (string, error) {
	if !filepath.IsAbs(arg) {
		if _, err := os.Stat(filepath.Join(root, arg)); err == nil {
			return filepath.Clean(arg), nil
		}
		abs, err := filepath.Abs(arg)
		if err != nil {
			return "", err
		}
		arg = abs
	}
	rel, err := filepath.Rel(root, arg)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the source root %s", arg, root)
	}
	return rel, nil
}

// parseLabelFlags reads --type, --name, --stage and --value.
func parseLabelFlags(cmd *cobra.Command, reg *label.Registry) (label.Match, error) {
	var m label.Match
	var err error
	if m.Tag, err = cmd.Flags().GetString("type"); err != nil {
		return m, err
	}
	if m.Name, err = cmd.Flags().GetString("name"); err != nil {
		return m, err
	}
	if m.Value, err = cmd.Flags().GetString("value"); err != nil {
		return m, err
	}
	stage, err := cmd.Flags().GetString("stage")
	if err != nil {
		return m, err
	}
	if stage != "" {
		if m.Stage, err = label.ParseStage(stage); err != nil {
			return m, err
		}
	}
	if m.Tag != "" {
		typ, ok := reg.Lookup(m.Tag)
		if !ok {
			return m, &label.UnknownLabelTypeError{Tag: m.Tag}
		}
		if m.Value != "" && !typ.HasValue(m.Value) {
			return m, fmt.Errorf("%s is not a %s value (expected %s)", m.Value, m.Tag, strings.Join(typ.Values, "|"))
		}
	}
	return m, nil
}

func addLabelFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "", "label type tag (see `labeltool types`)")
	cmd.Flags().String("name", "", "label name")
	cmd.Flags().String("stage", "", "stage (spl|main|.)")
	cmd.Flags().String("value", "", "label value")
}
