package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abbank/notification-gateway/internal/channel"
	appconfig "github.com/abbank/notification-gateway/internal/config"
	"github.com/abbank/notification-gateway/internal/consumer"
	"github.com/abbank/notification-gateway/internal/dispatch"
	"github.com/abbank/notification-gateway/internal/health"
	"github.com/abbank/notification-gateway/internal/resolver"
)

const shutdownGrace = 30 * time.Second

// Version is injected at build time using ldflags.
var Version = "(unknown)"

// config holds the process-level configuration. Everything else lives in the
// YAML config file.
type config struct {
	ShowVersion bool
	ConfigFile  string
	LogFormat   string
}

func main() {
	// Quick check for version flag before full config loading
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			fmt.Printf("Notification Gateway version %s\n", Version)
			return
		}
	}

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig parses flags and environment variables with precedence: Flag > Env > Default.
func loadConfig(args []string) (config, error) {
	fs := flag.NewFlagSet("notification-gateway", flag.ContinueOnError)

	cfg := config{}
	fs.BoolVar(&cfg.ShowVersion, "version", false, "print version and exit")
	fs.StringVar(&cfg.ConfigFile, "config", getEnv("CONFIG_FILE", "config.yaml"), "path to YAML config file")
	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "json"), "log format (json or text)")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return config{}, fmt.Errorf("unsupported log format %q: must be \"json\" or \"text\"", cfg.LogFormat)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func setupLogger(format string) *slog.Logger {
	return setupLoggerWithWriter(format, os.Stdout)
}

func setupLoggerWithWriter(format string, writer io.Writer) *slog.Logger {
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(writer, nil)
	} else {
		handler = slog.NewJSONHandler(writer, nil)
	}
	return slog.New(handler)
}

// run wires the gateway together and handles graceful shutdown.
func run(ctx context.Context, cfg config) error {
	logger := setupLogger(cfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting Notification Gateway", "version", Version)

	appCfg, configErrs := appconfig.Load(cfg.ConfigFile)
	for _, e := range configErrs {
		if appCfg == nil {
			slog.Error("Config load failed", "error", e)
		} else {
			slog.Warn("Config validation warning", "error", e)
		}
	}
	if appCfg == nil {
		return fmt.Errorf("cannot start without a valid config: %s", cfg.ConfigFile)
	}

	emailAdapters, err := channel.BuildEmailAdapters(appCfg.Channels.Email.Providers, logger)
	if err != nil {
		return fmt.Errorf("build email adapters: %w", err)
	}
	smsAdapters, err := channel.BuildSMSAdapters(appCfg.Channels.SMS.Providers, logger)
	if err != nil {
		return fmt.Errorf("build SMS adapters: %w", err)
	}
	if len(emailAdapters) == 0 && len(smsAdapters) == 0 {
		return fmt.Errorf("no delivery adapters operational, refusing to consume notifications")
	}
	closeAdapters := func() {
		for _, a := range emailAdapters {
			a.Close()
		}
		for _, a := range smsAdapters {
			a.Close()
		}
	}

	var res resolver.Resolver
	switch appCfg.Resolver.Type {
	case "http":
		res = resolver.NewHTTP(
			appCfg.Resolver.HTTP.BaseURL,
			time.Duration(appCfg.Resolver.HTTP.TimeoutMs)*time.Millisecond,
			resolver.WithLogger(logger),
		)
		slog.Info("Using HTTP customer resolver", "baseUrl", appCfg.Resolver.HTTP.BaseURL)
	default:
		res = resolver.NewMock()
		slog.Info("Using mock customer resolver")
	}

	retry := dispatch.NewRetryExecutor(
		dispatch.WithMaxAttempts(appCfg.Retry.MaxAttempts),
		dispatch.WithInitialDelay(time.Duration(appCfg.Retry.InitialDelayMs)*time.Millisecond),
		dispatch.WithBackoffFactor(appCfg.Retry.BackoffFactor),
		dispatch.WithMaxDelay(time.Duration(appCfg.Retry.MaxDelayMs)*time.Millisecond),
		dispatch.WithRetryLogger(logger),
	)
	dispatcher := dispatch.NewDispatcher(emailAdapters, smsAdapters, retry,
		appCfg.Routing.ForceBothOnSeverity,
		dispatch.WithLogger(logger),
	)

	var dlq consumer.DLQPublisher
	if appCfg.Retry.OnExhausted == "kafka" {
		kafkaDLQ, err := consumer.NewKafkaDLQ(appCfg.Kafka.Bootstrap, appCfg.Retry.DLQTopic,
			consumer.WithDLQLogger(logger),
		)
		if err != nil {
			closeAdapters()
			return fmt.Errorf("create dead-letter publisher: %w", err)
		}
		dlq = kafkaDLQ
		slog.Info("Dead-letter publishing enabled", "topic", appCfg.Retry.DLQTopic)
	}

	gate := health.NewGate()
	stats := &consumer.Stats{}

	processor := consumer.NewProcessor(res, dispatcher, stats,
		consumer.WithExhaustedPolicy(appCfg.Retry.OnExhausted, dlq),
		consumer.WithProcessorLogger(logger),
	)

	cons, err := consumer.New(appCfg.Kafka, processor, stats,
		consumer.WithConsumerLogger(logger),
		consumer.WithReadyFunc(func() { gate.SetReady(true) }),
	)
	if err != nil {
		closeAdapters()
		if dlq != nil {
			dlq.Close()
		}
		return fmt.Errorf("create consumer: %w", err)
	}

	healthSrv := health.NewServer(appCfg.Health.Port, gate, stats,
		health.WithServerLogger(logger),
	)
	healthErr := make(chan error, 1)
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil {
			healthErr <- err
		}
	}()

	// Hot reload applies routing changes only; everything else needs a restart.
	watcherCtx, watcherCancel := context.WithCancel(ctx)
	defer watcherCancel()
	configWatcher := appconfig.NewWatcher(cfg.ConfigFile, func(newCfg *appconfig.Config, errs []error) {
		for _, e := range errs {
			if newCfg == nil {
				slog.Error("Config reload parse failed, keeping active settings", "error", e)
			} else {
				slog.Warn("Config reload validation warning", "error", e)
			}
		}
		if newCfg == nil {
			return
		}
		dispatcher.SetForceBoth(newCfg.Routing.ForceBothOnSeverity)
		slog.Info("Routing config reloaded", "forceBothOnSeverity", newCfg.Routing.ForceBothOnSeverity)
	}, logger)
	go func() {
		if err := configWatcher.Run(watcherCtx); err != nil && watcherCtx.Err() == nil {
			slog.Warn("config watcher stopped with error", "error", err)
		}
	}()

	consumeCtx, consumeCancel := context.WithCancel(context.Background())
	defer consumeCancel()
	loopDone := make(chan struct{})
	consumeErr := make(chan error, 1)
	go func() {
		defer close(loopDone)
		if err := cons.Run(consumeCtx); err != nil {
			consumeErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down gracefully...")
	case err := <-healthErr:
		slog.Error("health server failed", "error", err)
		runErr = err
	case err := <-consumeErr:
		slog.Error("consume loop failed, shutting down", "error", err)
		runErr = err
	}

	// Close ordering: gate, loop, bus client, adapters, health endpoint.
	gate.Stop()
	watcherCancel()
	consumeCancel()
	select {
	case <-loopDone:
	case <-time.After(shutdownGrace):
		slog.Warn("consume loop did not stop within grace period, aborting", "grace", shutdownGrace)
	}
	if err := cons.Close(); err != nil {
		slog.Warn("consumer close failed", "error", err)
	}
	if dlq != nil {
		if err := dlq.Close(); err != nil {
			slog.Warn("dead-letter publisher close failed", "error", err)
		}
	}
	closeAdapters()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("health server forced to shutdown", "error", err)
	}

	slog.Info("Notification Gateway stopped")
	return runErr
}
