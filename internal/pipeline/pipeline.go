// Package pipeline обходит подпапки рабочей директории, нарезает найденные
// изображения на тайлы и при необходимости запускает загрузку.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"tyiler/internal/config"
	"tyiler/internal/logger"
	"tyiler/internal/metrics"
	"tyiler/internal/selector"
	"tyiler/internal/tiler"
	"tyiler/internal/uploader"
)

type Pipeline struct {
	fs        afero.Fs
	cfg       *config.Config
	logger    *logger.LoggerManager
	out       io.Writer
	selector  *selector.Selector
	splitter  *tiler.Splitter
	metrics   *metrics.Collector
	syncer    uploader.Syncer
	converter uploader.Converter
	summary   *Summary
}

type Option func(*Pipeline)

// WithUploader подменяет внешние утилиты загрузки
func WithUploader(syncer uploader.Syncer, converter uploader.Converter) Option {
	return func(p *Pipeline) {
		p.syncer = syncer
		p.converter = converter
	}
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(p *Pipeline) {
		p.metrics = collector
	}
}

// WithOutput задаёт, куда печатается итоговый отчёт (по умолчанию stdout)
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) {
		p.out = w
	}
}

// New собирает пайплайн. cfg должен быть уже проверен config.Load или Validate.
func New(fs afero.Fs, cfg *config.Config, loggerManager *logger.LoggerManager, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tilerOpts, err := tiler.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	tarmac, lune := uploader.FromConfig(cfg, loggerManager)
	p := &Pipeline{
		fs:        fs,
		cfg:       cfg,
		logger:    loggerManager,
		out:       os.Stdout,
		selector:  selector.NewSelector(fs, cfg.ImageExtension, loggerManager),
		splitter:  tiler.NewSplitter(fs, tilerOpts, loggerManager),
		metrics:   metrics.New(),
		syncer:    tarmac,
		converter: lune,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run выполняет нарезку и загрузку. Возвращённая ошибка содержит ошибки всех папок
// и загрузки; Summary возвращается в любом случае, кроме ошибки чтения рабочей директории.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	p.summary = &Summary{}
	fmt.Fprintf(p.out, "--- SCRIPT START ---\n\n")

	if p.cfg.TilingEnabled() {
		if err := p.tileFolders(ctx); err != nil {
			return nil, err
		}
	}

	if p.cfg.Upload {
		p.summary.UploadErr = p.upload(ctx)
	}

	p.summary.Duration = time.Since(start)
	p.metrics.RunFinished(p.summary.Duration)
	p.summary.Print(p.out)
	return p.summary, p.summary.Err()
}

func (p *Pipeline) tileFolders(ctx context.Context) error {
	folders, err := ListFolders(p.fs, p.cfg.WorkDir)
	if err != nil {
		return err
	}

	workers := pool.New().WithMaxGoroutines(p.cfg.Jobs)
	for _, name := range folders {
		if ctx.Err() != nil {
			p.logger.Warn("Interrupted, %s and the remaining folders were not processed", name)
			break
		}
		name := name
		workers.Go(func() {
			if err := p.processFolder(name); err != nil {
				p.logger.LogError(err, fmt.Sprintf("⚠️ Folder %s", name))
				p.summary.addFolderError(name, err)
				p.metrics.FolderFailed()
			}
		})
	}
	workers.Wait()
	return nil
}

func (p *Pipeline) upload(ctx context.Context) error {
	credential, err := uploader.LoadCredential(p.fs, p.cfg.EnvFilePath(), p.cfg.Uploader.CredentialKey)
	if err != nil {
		if !errors.Is(err, uploader.ErrMissingCredential) {
			return err
		}
		p.logger.Warn("No %s found (%v), syncing without an explicit key", p.cfg.Uploader.CredentialKey, err)
	}

	up := &uploader.Pipeline{
		Syncer:     p.syncer,
		Converter:  p.converter,
		RetryCount: p.cfg.Uploader.RetryCount,
		RetryDelay: p.cfg.Uploader.RetryDelay,
		Logger:     p.logger,
	}
	if err := up.Run(ctx, credential); err != nil {
		p.logger.LogError(err, "Upload failed")
		return err
	}
	return nil
}
