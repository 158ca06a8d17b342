package uploader

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"tyiler/internal/config"
	"tyiler/internal/logger"
)

// ErrMissingCredential - в .env нет ключа или он пустой
var ErrMissingCredential = errors.New("credential not found")

// ExternalToolError - внешняя утилита завершилась с ошибкой
type ExternalToolError struct {
	Tool     string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, e.Output)
	}
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}

// Syncer загружает тайлы во внешний пайплайн
type Syncer interface {
	Sync(ctx context.Context, credential string, retryCount int, retryDelay time.Duration) error
}

// Converter собирает модели из загруженных тайлов
type Converter interface {
	Convert(ctx context.Context) error
}

// execCommand подменяется в тестах
var execCommand = exec.CommandContext

// outputTail - сколько последних байт вывода попадает в текст ошибки
const outputTail = 512

func run(ctx context.Context, loggerManager *logger.LoggerManager, dir, name string, args ...string) error {
	cmd := execCommand(ctx, name, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if len(output) > 0 {
		loggerManager.Debug("%s output:\n%s", name, strings.TrimRight(string(output), "\n"))
	}
	if err == nil {
		return nil
	}

	toolErr := &ExternalToolError{Tool: name, Err: err, Output: tail(string(output))}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}
	return toolErr
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= outputTail {
		return s
	}
	return "..." + s[len(s)-outputTail:]
}

// Tarmac синхронизирует ассеты через tarmac
type Tarmac struct {
	Binary  string
	Target  string
	WorkDir string
	Logger  *logger.LoggerManager
}

// SyncArgs собирает аргументы командной строки. Пустой credential не передаётся.
func (t *Tarmac) SyncArgs(credential string, retryCount int, retryDelay time.Duration) []string {
	var args []string
	if credential != "" {
		args = append(args, "--api-key", credential)
	}
	return append(args,
		"sync",
		"--target", t.Target,
		"--retry", strconv.Itoa(retryCount),
		"--retry-delay", strconv.Itoa(int(retryDelay/time.Second)),
	)
}

func (t *Tarmac) Sync(ctx context.Context, credential string, retryCount int, retryDelay time.Duration) error {
	t.Logger.Info("Syncing assets with %s (retries: %d, delay: %s)", t.Binary, retryCount, retryDelay)
	return run(ctx, t.Logger, t.WorkDir, t.Binary, t.SyncArgs(credential, retryCount, retryDelay)...)
}

// Lune запускает скрипт конвертации моделей
type Lune struct {
	Binary  string
	Script  string
	WorkDir string
	Logger  *logger.LoggerManager
}

func (l *Lune) Convert(ctx context.Context) error {
	l.Logger.Info("Running %s %s", l.Binary, l.Script)
	return run(ctx, l.Logger, l.WorkDir, l.Binary, "run", l.Script)
}

// FromConfig создает утилиты загрузки по конфигурации
func FromConfig(cfg *config.Config, loggerManager *logger.LoggerManager) (*Tarmac, *Lune) {
	tarmac := &Tarmac{
		Binary:  cfg.Uploader.SyncBinary,
		Target:  cfg.Uploader.SyncTarget,
		WorkDir: cfg.WorkDir,
		Logger:  loggerManager,
	}
	lune := &Lune{
		Binary:  cfg.Uploader.ConvertBinary,
		Script:  cfg.Uploader.ConvertScript,
		WorkDir: cfg.WorkDir,
		Logger:  loggerManager,
	}
	return tarmac, lune
}

// Pipeline - синхронизация, затем конвертация. Если синхронизация упала, конвертация не запускается.
type Pipeline struct {
	Syncer     Syncer
	Converter  Converter
	RetryCount int
	RetryDelay time.Duration
	Logger     *logger.LoggerManager
}

func (p *Pipeline) Run(ctx context.Context, credential string) error {
	if err := p.Syncer.Sync(ctx, credential, p.RetryCount, p.RetryDelay); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := p.Converter.Convert(ctx); err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	p.Logger.Info("✅ Upload finished")
	return nil
}
