package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[source]\nroot = \"src\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok, err := FindManifest(nested)
	if err != nil || !ok {
		t.Fatalf("FindManifest: ok=%v err=%v", ok, err)
	}
	want, _ := filepath.Abs(filepath.Join(root, ManifestName))
	if got != want {
		t.Errorf("FindManifest = %q, want %q", got, want)
	}
}

func TestLoadConfigValidates(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"defaults", "", false},
		{"full", "[source]\nroot = \"src\"\ninclude = [\"**/*.c\"]\n[scan]\njobs = 4\ncache = false\n[watch]\ndebounce = \"1s\"\n", false},
		{"empty root", "[source]\nroot = \"\"\n", true},
		{"negative jobs", "[scan]\njobs = -1\n", true},
		{"bad pattern", "[source]\ninclude = [\"[\"]\n", true},
		{"bad debounce", "[watch]\ndebounce = \"soon\"\n", true},
		{"unknown key", "[source]\nrot = \"src\"\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.body)
			_, err := LoadConfig(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadConfig err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigMatch(t *testing.T) {
	cfg := DefaultConfig()
	cases := map[string]bool{
		"board.c":                    true,
		"arch/arm/lib/crt0.S":        true,
		"arch/arm/lib/vectors.s":     true,
		"include/common.h":           true,
		"Makefile":                   false,
		"tools/env/fw_env.py":        false,
		".git/hooks/pre-commit.c":    false,
		"drivers/mmc/.git/objects.h": false,
	}
	for rel, want := range cases {
		if got := cfg.Match(rel); got != want {
			t.Errorf("Match(%q) = %v, want %v", rel, got, want)
		}
	}
	if !cfg.Excluded(".git") {
		t.Error(".git should be excluded")
	}
}

func TestResolveRootOrder(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.Mkdir(src, 0o755); err != nil {
		t.Fatal(err)
	}
	other := t.TempDir()

	t.Setenv(EnvSourceRoot, "")
	if _, err := ResolveRoot("", dir); err == nil {
		t.Fatal("expected MissingPathError without any configuration")
	} else {
		var missing *MissingPathError
		if !errors.As(err, &missing) {
			t.Fatalf("expected *MissingPathError, got %T: %v", err, err)
		}
	}

	writeManifest(t, dir, "[source]\nroot = \"src\"\n")
	res, err := ResolveRoot("", dir)
	if err != nil {
		t.Fatalf("ResolveRoot: %v", err)
	}
	if res.Origin != "manifest" || res.Root != src {
		t.Errorf("got %s from %s, want %s from manifest", res.Root, res.Origin, src)
	}

	t.Setenv(EnvSourceRoot, other)
	res, err = ResolveRoot("", dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Origin != "env" {
		t.Errorf("env should override manifest, got %s", res.Origin)
	}

	res, err = ResolveRoot(src, dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Origin != "flag" {
		t.Errorf("flag should win, got %s", res.Origin)
	}

	if _, err := ResolveRoot(filepath.Join(dir, "nope"), dir); err == nil {
		t.Error("expected error for missing root directory")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadEnv(dir); err != nil {
		t.Fatalf("missing .env must be ignored: %v", err)
	}

	t.Setenv(EnvSourceRoot, "")
	os.Unsetenv(EnvSourceRoot)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvSourceRoot+"=/tmp/uboot\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnv(dir); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv(EnvSourceRoot); got != "/tmp/uboot" {
		t.Errorf("%s = %q", EnvSourceRoot, got)
	}
}

func TestCombineIsOrderSensitive(t *testing.T) {
	a, b := StringDigest("a"), StringDigest("b")
	if Combine(a, b) == Combine(b, a) {
		t.Error("Combine should depend on order")
	}
	if Combine(a, b) != Combine(a, b) {
		t.Error("Combine should be deterministic")
	}
}
