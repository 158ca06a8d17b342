package main

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"tyiler/internal/uploader"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(viper.New())
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "-V")
	if err != nil {
		t.Fatal(err)
	}
	if out != "tyiler 0.0.1\n" {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestInvalidTileSize(t *testing.T) {
	dir := t.TempDir()
	for _, value := range []string{"0", "-3", "abc"} {
		_, err := execute(t, "--dir", dir, "--max-tile-size", value)
		if code := exitCode(err); code != exitConfigError {
			t.Errorf("%s: expected exit code %d, got %d (%v)", value, exitConfigError, code, err)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("nothing must be touched on configuration errors, found %d entries", len(entries))
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "lake"), 0755); err != nil {
		t.Fatal(err)
	}
	file, err := os.Create(filepath.Join(dir, "lake", "lake.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(file, image.NewNRGBA(image.Rect(0, 0, 20, 10))); err != nil {
		t.Fatal(err)
	}
	file.Close()

	metricsFile := filepath.Join(t.TempDir(), "tyiler.prom")
	out, err := execute(t, "-d", dir, "-t", "16", "-v", "--metrics-file", metricsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Tiles generated: 2") {
		t.Errorf("unexpected report:\n%s", out)
	}
	if !strings.Contains(out, "DEBUG: Created tile") {
		t.Errorf("verbose mode should print per-tile lines:\n%s", out)
	}
	for _, name := range []string{"lake_colour_tile_1_0_0.png", "lake_colour_tile_2_1_0.png"} {
		if _, err := os.Stat(filepath.Join(dir, "lake", "colour_tiles", name)); err != nil {
			t.Error(err)
		}
	}
	if _, err := os.Stat(metricsFile); err != nil {
		t.Error(err)
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(nil) != exitOK {
		t.Error("nil must map to exitOK")
	}
	if exitCode(&uploader.ExternalToolError{Tool: "tarmac", ExitCode: 1}) != exitFailure {
		t.Error("tool errors must map to exitFailure")
	}
	if exitCode(errors.New("boom")) != exitFailure {
		t.Error("generic errors must map to exitFailure")
	}
}
