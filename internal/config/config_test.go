package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newFlags(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.IntP("max-tile-size", "t", DefaultMaxTileSize, "")
	flags.BoolP("upload", "u", false, "")
	flags.BoolP("generate-tiles", "g", false, "")
	flags.StringP("dir", "d", t.TempDir(), "")
	flags.Bool("no-padding", false, "")
	if err := flags.Parse(args); err != nil {
		t.Fatal(err)
	}
	v := viper.New()
	if err := BindFlags(v, flags); err != nil {
		t.Fatal(err)
	}
	return v
}

func expectConfigError(t *testing.T, err error, field string) {
	t.Helper()
	var configErr *ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if configErr.Field != field {
		t.Errorf("expected field %s, got %s", field, configErr.Field)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newFlags(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxTileSize != 1024 || cfg.Jobs != 1 || cfg.ImageExtension != ".png" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if !cfg.Padding() || cfg.PadColour != "#000000" {
		t.Errorf("padding should default to black, got %+v", cfg)
	}
	if cfg.Uploader.CredentialKey != "TARMAC_API_KEY" || cfg.Uploader.RetryDelay != 5*time.Second {
		t.Errorf("unexpected uploader defaults %+v", cfg.Uploader)
	}
}

func TestLoadFlags(t *testing.T) {
	cfg, err := Load(newFlags(t, "-t", "256", "--no-padding", "-u"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxTileSize != 256 || cfg.Padding() || !cfg.Upload {
		t.Errorf("flags not applied: %+v", cfg)
	}
}

func TestLoadRejectsTileSize(t *testing.T) {
	for _, value := range []string{"0", "-4"} {
		_, err := Load(newFlags(t, "--max-tile-size="+value))
		expectConfigError(t, err, "max_tile_size")
	}
}

func TestLoadRejectsNonNumericEnv(t *testing.T) {
	t.Setenv("TYILER_MAX_TILE_SIZE", "big")
	v := viper.New()
	v.Set("dir", t.TempDir())
	_, err := Load(v)
	expectConfigError(t, err, "max_tile_size")
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "max_tile_size: 64\npad_colour: auto\nuploader:\n  retry_count: 7\n  retry_delay: 2s\n"
	if err := os.WriteFile(filepath.Join(dir, "tyiler.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	v := viper.New()
	v.Set("dir", dir)
	cfg, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxTileSize != 64 || cfg.PadColour != "auto" {
		t.Errorf("config file not applied: %+v", cfg)
	}
	if cfg.Uploader.RetryCount != 7 || cfg.Uploader.RetryDelay != 2*time.Second {
		t.Errorf("uploader section not applied: %+v", cfg.Uploader)
	}
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	v := viper.New()
	v.Set("config", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load(v)
	expectConfigError(t, err, "config")
}

func TestValidatePadColour(t *testing.T) {
	cfg := &Config{MaxTileSize: 1, Jobs: 1, ImageExtension: ".png", PadColour: "purple"}
	expectConfigError(t, cfg.Validate(), "pad_colour")
}

func TestTilingEnabled(t *testing.T) {
	for _, tc := range []struct {
		generate, upload, want bool
	}{
		{false, false, true},
		{true, false, true},
		{false, true, false},
		{true, true, true},
	} {
		cfg := &Config{GenerateTiles: tc.generate, Upload: tc.upload}
		if got := cfg.TilingEnabled(); got != tc.want {
			t.Errorf("generate=%v upload=%v: expected %v", tc.generate, tc.upload, tc.want)
		}
	}
}

func TestEnvFilePath(t *testing.T) {
	cfg := &Config{WorkDir: "work", Uploader: Uploader{EnvFile: ".env"}}
	if got := cfg.EnvFilePath(); got != filepath.Join("work", ".env") {
		t.Errorf("unexpected path %s", got)
	}
	cfg.Uploader.EnvFile = "/etc/tyiler.env"
	if got := cfg.EnvFilePath(); got != "/etc/tyiler.env" {
		t.Errorf("absolute path must be kept, got %s", got)
	}
}
