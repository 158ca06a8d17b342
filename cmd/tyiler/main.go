package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tyiler/internal/config"
	"tyiler/internal/logger"
	"tyiler/internal/metrics"
	"tyiler/internal/pipeline"
)

const (
	appName        = "tyiler"
	appVersion     = "0.0.1"
	appDescription = "Splits the largest colour and contour images of every subfolder into fixed-size tiles and optionally uploads them."
)

// Коды выхода
const (
	exitOK          = 0
	exitFailure     = 1
	exitConfigError = 2
)

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         appDescription,
		Version:       appVersion,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, cmd.OutOrStdout())
		},
	}
	cmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &config.ConfigurationError{Field: "flags", Err: err}
	})

	flags := cmd.Flags()
	flags.BoolP("version", "V", false, "Displays tool version")
	flags.BoolP("verbose", "v", false, "Adds more-informative intermediate program outputs")
	flags.BoolP("generate-tiles", "g", false, "Generates tiles (default when --upload is not given)")
	flags.BoolP("upload", "u", false, "Uploads the generated tiles using the external sync tool")
	flags.IntP("max-tile-size", "t", config.DefaultMaxTileSize, "Specifies the maximum tile size per tile")
	flags.StringP("dir", "d", ".", "Working directory whose subfolders are tiled")
	flags.StringP("config", "c", "", "YAML config file (default tyiler.yaml in the working directory)")
	flags.Bool("no-padding", false, "Keeps edge tiles at their natural size instead of padding them")
	flags.String("pad-colour", config.DefaultPadColour, "Padding canvas colour as #rrggbb, or auto for the dominant image colour")
	flags.IntP("jobs", "j", 1, "Number of folders processed in parallel")
	flags.String("metrics-file", "", "Writes run counters in Prometheus text format to this file")
	flags.String("log-file", "", "Also appends log lines to this file")
	flags.String("env-file", config.DefaultEnvFile, "File holding the upload credential, relative to the working directory")

	if err := config.BindFlags(v, flags); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context, v *viper.Viper, out io.Writer) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	loggerManager, err := logger.NewLoggerManager(out, cfg.LogFilePath, cfg.Verbose)
	if err != nil {
		return &config.ConfigurationError{Field: "log_file", Value: cfg.LogFilePath, Err: err}
	}
	defer loggerManager.Close()

	collector := metrics.New()
	p, err := pipeline.New(afero.NewOsFs(), cfg, loggerManager,
		pipeline.WithMetrics(collector),
		pipeline.WithOutput(out),
	)
	if err != nil {
		return err
	}

	_, runErr := p.Run(ctx)

	if cfg.MetricsFile != "" {
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			loggerManager.LogError(err, "Error writing metrics file")
		}
	}
	return runErr
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var configErr *config.ConfigurationError
	if errors.As(err, &configErr) {
		return exitConfigError
	}
	return exitFailure
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(viper.New()).ExecuteContext(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
	}
	stop()
	os.Exit(exitCode(err))
}
