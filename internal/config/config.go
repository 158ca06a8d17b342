package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"tyiler/internal/imageutils"
)

const (
	DefaultMaxTileSize    = 1024
	DefaultImageExtension = ".png"
	DefaultPadColour      = "#000000"
	DefaultCredentialKey  = "TARMAC_API_KEY"
	DefaultEnvFile        = ".env"
	DefaultConfigName     = "tyiler"
)

// ConfigurationError возвращается, если значение конфигурации невалидно.
// Такие ошибки прерывают запуск до обработки первой папки.
type ConfigurationError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("invalid configuration %s=%v: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Настройки внешнего пайплайна загрузки
type Uploader struct {
	SyncBinary    string        `mapstructure:"sync_binary"`
	SyncTarget    string        `mapstructure:"sync_target"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	ConvertBinary string        `mapstructure:"convert_binary"`
	ConvertScript string        `mapstructure:"convert_script"`
	CredentialKey string        `mapstructure:"credential_key"`
	EnvFile       string        `mapstructure:"env_file"`
}

// Основная структура конфигурации
type Config struct {
	WorkDir        string   `mapstructure:"dir"`
	Verbose        bool     `mapstructure:"verbose"`
	GenerateTiles  bool     `mapstructure:"generate_tiles"`
	Upload         bool     `mapstructure:"upload"`
	MaxTileSize    int      `mapstructure:"max_tile_size"`
	NoPadding      bool     `mapstructure:"no_padding"`
	PadColour      string   `mapstructure:"pad_colour"`
	ImageExtension string   `mapstructure:"image_extension"`
	Jobs           int      `mapstructure:"jobs"`
	MetricsFile    string   `mapstructure:"metrics_file"`
	LogFilePath    string   `mapstructure:"log_file"`
	Uploader       Uploader `mapstructure:"uploader"`
}

// TilingEnabled сообщает, нужно ли нарезать тайлы в этом запуске.
// Без флагов нарезка выполняется всегда; один --upload означает загрузку уже готовых тайлов.
func (c *Config) TilingEnabled() bool {
	return c.GenerateTiles || !c.Upload
}

// Padding сообщает, нужно ли добивать крайние тайлы до полного размера
func (c *Config) Padding() bool {
	return !c.NoPadding
}

// EnvFilePath возвращает путь к .env файлу относительно рабочей директории
func (c *Config) EnvFilePath() string {
	if filepath.IsAbs(c.Uploader.EnvFile) {
		return c.Uploader.EnvFile
	}
	return filepath.Join(c.WorkDir, c.Uploader.EnvFile)
}

// Validate проверяет значения, которые нельзя исправить молча.
func (c *Config) Validate() error {
	if c.MaxTileSize <= 0 {
		return &ConfigurationError{Field: "max_tile_size", Value: c.MaxTileSize, Err: errors.New("must be a positive integer")}
	}
	if c.Jobs <= 0 {
		return &ConfigurationError{Field: "jobs", Value: c.Jobs, Err: errors.New("must be a positive integer")}
	}
	if c.ImageExtension == "" {
		return &ConfigurationError{Field: "image_extension", Err: errors.New("must not be empty")}
	}
	if _, err := imageutils.ParsePadColour(c.PadColour); err != nil {
		return &ConfigurationError{Field: "pad_colour", Value: c.PadColour, Err: err}
	}
	if c.Uploader.RetryCount < 0 {
		return &ConfigurationError{Field: "uploader.retry_count", Value: c.Uploader.RetryCount, Err: errors.New("must not be negative")}
	}
	if c.Uploader.RetryDelay < 0 {
		return &ConfigurationError{Field: "uploader.retry_delay", Value: c.Uploader.RetryDelay, Err: errors.New("must not be negative")}
	}
	return nil
}

// SetDefaults заполняет viper значениями по умолчанию
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dir", ".")
	v.SetDefault("verbose", false)
	v.SetDefault("generate_tiles", false)
	v.SetDefault("upload", false)
	v.SetDefault("max_tile_size", DefaultMaxTileSize)
	v.SetDefault("no_padding", false)
	v.SetDefault("pad_colour", DefaultPadColour)
	v.SetDefault("image_extension", DefaultImageExtension)
	v.SetDefault("jobs", 1)
	v.SetDefault("metrics_file", "")
	v.SetDefault("log_file", "")

	v.SetDefault("uploader.sync_binary", "tarmac")
	v.SetDefault("uploader.sync_target", "roblox")
	v.SetDefault("uploader.retry_count", 3)
	v.SetDefault("uploader.retry_delay", 5*time.Second)
	v.SetDefault("uploader.convert_binary", "lune")
	v.SetDefault("uploader.convert_script", filepath.Join("scripts", "tile_to_model.luau"))
	v.SetDefault("uploader.credential_key", DefaultCredentialKey)
	v.SetDefault("uploader.env_file", DefaultEnvFile)
}

// flagKeys связывает имена флагов с ключами конфигурации
var flagKeys = map[string]string{
	"dir":            "dir",
	"verbose":        "verbose",
	"generate-tiles": "generate_tiles",
	"upload":         "upload",
	"max-tile-size":  "max_tile_size",
	"no-padding":     "no_padding",
	"pad-colour":     "pad_colour",
	"jobs":           "jobs",
	"metrics-file":   "metrics_file",
	"log-file":       "log_file",
	"env-file":       "uploader.env_file",
	"config":         "config",
}

// BindFlags привязывает объявленные флаги к viper. Необъявленные флаги пропускаются.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load читает конфигурацию: значения по умолчанию, YAML файл, переменные TYILER_*, флаги.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("TYILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Числа проверяем до Unmarshal, чтобы "abc" из env или yaml давал понятную ошибку
	for _, key := range []string{"max_tile_size", "jobs", "uploader.retry_count"} {
		raw := v.Get(key)
		n, err := cast.ToIntE(raw)
		if err != nil {
			return nil, &ConfigurationError{Field: key, Value: raw, Err: errors.New("must be an integer")}
		}
		v.Set(key, n)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &ConfigurationError{Field: "config", Err: err}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func readConfigFile(v *viper.Viper) error {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return &ConfigurationError{Field: "config", Value: path, Err: err}
		}
		return nil
	}

	v.SetConfigName(DefaultConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(v.GetString("dir"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return &ConfigurationError{Field: "config", Err: err}
	}
	return nil
}
