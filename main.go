// Package main provides the entry point for the Kairos Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/kairosbot/kairos/internal/activity"
	"github.com/kairosbot/kairos/internal/app"
	"github.com/kairosbot/kairos/internal/bot"
	"github.com/kairosbot/kairos/internal/checkin"
	"github.com/kairosbot/kairos/internal/config"
	"github.com/kairosbot/kairos/internal/gemini"
	"github.com/kairosbot/kairos/internal/infrastructure"
	"github.com/kairosbot/kairos/internal/patterns"
	"github.com/kairosbot/kairos/internal/session"
	"github.com/kairosbot/kairos/internal/store"
	"github.com/kairosbot/kairos/internal/telegram"
	"github.com/kairosbot/kairos/internal/triage"
	"github.com/kairosbot/kairos/internal/vault"
	pkginfra "github.com/kairosbot/kairos/pkg/infrastructure"
)

func main() {
	// The config file is optional; environment variables alone are enough.
	configPath := "config.yaml"

	application := app.New(
		// Core modules
		config.Module,
		infrastructure.LoggerModule,

		// External service modules
		store.Module,
		gemini.Module,
		telegram.Module,

		// Application modules
		vault.Module,
		triage.Module,
		patterns.Module,
		activity.Module,
		session.Module,
		checkin.Module,
		bot.Module,

		// Supply the config path
		fx.Supply(configPath),

		// Configure Fx to use our Zap logger for its own internal logging
		fx.WithLogger(pkginfra.NewFxLoggerAdapter),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go application.Run()

	sig := <-sigCh
	fmt.Printf("Received signal: %s, initiating shutdown.\n", sig)

	// Give the application 30 seconds to shut down gracefully.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := application.Stop(shutdownCtx)
	cancel()

	if err != nil {
		fmt.Printf("Error during shutdown: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Application has shut down gracefully.")
}
