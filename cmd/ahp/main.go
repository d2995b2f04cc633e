// Command ahp derives priority weights from pairwise comparison judgments
// and aggregates them across evaluators.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-ahp/infrastructure/cache"
	"github.com/ahrav/go-ahp/infrastructure/middleware"
	"github.com/ahrav/go-ahp/internal/application"
	"github.com/ahrav/go-ahp/internal/ports"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "ahp",
		Short:         "Analytic Hierarchy Process weights and group consensus",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "engine configuration YAML (defaults when empty)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file on exit")

	rootCmd.AddCommand(evaluateCmd(opts))
	rootCmd.AddCommand(hierarchyCmd(opts))
	rootCmd.AddCommand(generateCmd(opts))
	return rootCmd
}

func newLogger(opts *globalOptions) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(opts.logFormat) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: want text or json", opts.logFormat)
	}
}

// runtime is the wired engine plus the resources to flush on exit.
type runtime struct {
	engine   *application.Engine
	logger   *slog.Logger
	registry *prometheus.Registry
}

func newRuntime(ctx context.Context, opts *globalOptions) (*runtime, error) {
	logger, err := newLogger(opts)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetricsWith(registry)
	engineOpts := []application.EngineOption{
		application.WithLogger(logger),
		application.WithMetrics(metrics),
		application.WithCache(cache.NewMemoryStore(cache.WithMaxEntries(1024))),
		application.WithUnitMiddleware(func(u ports.Unit) ports.Unit {
			return middleware.NewObservedUnit(u, metrics, logger)
		}),
	}
	units := application.NewDefaultUnitRegistry(logger)

	var engine *application.Engine
	if opts.configPath == "" {
		config := application.DefaultEngineConfig()
		// Repeated inputs on one command line are solved once.
		config.Engine.CacheTTLSeconds = 300
		engine, err = application.NewEngine(config, units, engineOpts...)
	} else {
		var loader *application.ConfigLoader
		loader, err = application.NewConfigLoader(units, engineOpts...)
		if err == nil {
			engine, err = loader.LoadFromFile(ctx, opts.configPath)
		}
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("engine ready",
		slog.String("config_hash", engine.ConfigHash()),
		slog.String("method", engine.Config().Solver.Method))
	return &runtime{engine: engine, logger: logger, registry: registry}, nil
}

// flush writes collected metrics when requested.
func (r *runtime) flush(opts *globalOptions) error {
	if opts.metricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(opts.metricsFile, r.registry); err != nil {
		return ports.NewMetricsError("*", "WriteToTextfile", err)
	}
	r.logger.Debug("metrics written", slog.String("path", opts.metricsFile))
	return nil
}
