// Package main is the entry point for the bridgehost daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bridgehost/internal/bridge"
	"bridgehost/internal/config"
	"bridgehost/internal/plugin"
	"bridgehost/internal/plugin/lua"
	"bridgehost/internal/storage"
)

// Version information (set via ldflags during build).
var (
	version = plugin.ServerVersion
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 1
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("starting bridgehost",
		zap.String("version", version),
		zap.String("name", cfg.Name))

	loaderOpts := []plugin.LoaderOption{}
	if len(cfg.PluginPaths) > 0 {
		loaderOpts = append(loaderOpts, plugin.WithPaths(cfg.PluginPaths...))
	}
	loader := plugin.NewLoader(loaderOpts...)

	infos, err := loader.Discover()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: plugin discovery failed: %v\n", err)
		return 1
	}
	logger.Info("discovered plugins", zap.Int("count", len(infos)))

	watcher, err := plugin.NewWatcher(loader.Paths(), nil, logger)
	if err != nil {
		logger.Warn("plugin watcher unavailable", zap.Error(err))
	} else {
		defer watcher.Close()
	}

	resolver := lua.NewResolver(logger)
	store := storage.NewAccessoryStore(cfg.StoragePath, logger)

	host := bridge.New(cfg, logger,
		bridge.WithResolver(resolver),
		bridge.WithStore(store),
	)

	for _, info := range infos {
		if err := host.AddPlugin(info); err != nil {
			logger.Error("skipping plugin", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		logger.Info("shutting down")
		cancel()
	}()

	if err := host.Start(ctx); err != nil {
		logger.Error("bridge started with errors", zap.Error(err))
	}
	logger.Info("bridge up", zap.Int("accessories", len(host.Accessories())))

	<-ctx.Done()

	if err := host.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
		return 1
	}
	return 0
}

type options struct {
	configPath string
	logLevel   string
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", defaultConfigPath(), "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", defaultConfigPath(), "Path to configuration file (shorthand)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Bridgehost - plugin-driven accessory bridge\n\n")
		fmt.Fprintf(os.Stderr, "Usage: bridgehost [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("Bridgehost %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	return opts
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return config.DefaultFileName
	}
	return filepath.Join(home, ".bridgehost", config.DefaultFileName)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
