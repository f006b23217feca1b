// Command captchagate runs the captcha verification bot.
//
// Usage:
//
//	export DISCORD_TOKEN="your-bot-token"
//	captchagate -config captchagate.yaml
//
// Then, in a Discord server where the bot is present, an administrator runs
//
//	/verify-channel role:@Member
//
// in the channel members should verify in, and members run /verify there.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/captchagate/captchagate/discord"
	"github.com/captchagate/captchagate/internal/bot"
	"github.com/captchagate/captchagate/internal/config"
	"github.com/captchagate/captchagate/internal/metrics"
	"github.com/captchagate/captchagate/internal/storage/sqlite"
	"github.com/captchagate/captchagate/verification"
)

func main() {
	path := flag.String("config", "", "path to a YAML configuration file")
	envFile := flag.String("env-file", ".env", "path to an optional dotenv file")
	flag.Parse()

	if err := run(*path, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "captchagate: %s\n", err)
		os.Exit(1)
	}
}

func run(path, envFile string) error {
	cfg, err := config.Load(path, envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up a context that cancels on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var registryOptions []verification.RegistryOption
	if cfg.StoragePath != "" {
		store, err := sqlite.Open(cfg.StoragePath)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer store.Close()
		registryOptions = append(registryOptions, verification.RegistryWithStore(store))
	}
	registry := verification.NewRegistry(registryOptions...)
	if err := registry.Restore(ctx); err != nil {
		return err
	}

	adapter, err := discord.NewAdapter(cfg.Discord, discord.WithApplicationCommands(bot.ApplicationCommands()...))
	if err != nil {
		return fmt.Errorf("failed to create adapter: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	renderer, err := verification.NewImageRenderer(cfg.Render)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	service, err := verification.NewService(
		cfg.Verification,
		registry,
		bot.NewInbox(adapter.Collector()),
		adapter,
		verification.WithRenderer(renderer),
		verification.WithRecorder(recorder),
	)
	if err != nil {
		return fmt.Errorf("failed to create verification service: %w", err)
	}

	// Create a Bot with the adapter and an in-memory user context storage.
	storage := sarah.NewUserContextStorage(sarah.NewCacheConfig())
	sarah.RegisterBot(sarah.NewBot(adapter, sarah.BotWithStorage(storage)))
	bot.NewCommands(registry, service, adapter).Register()

	// Start go-sarah's lifecycle management.
	if err := sarah.Run(ctx, cfg.Runner); err != nil {
		return fmt.Errorf("failed to run: %w", err)
	}
	logger.Infof("Bot is running. Press Ctrl+C to stop.")

	g, ctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		server := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Handler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Infof("Serving metrics on %s", cfg.MetricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	// Block until shutdown signal.
	g.Go(func() error {
		<-ctx.Done()
		logger.Infof("Shutting down...")
		return nil
	})

	return g.Wait()
}
