package main

import (
	"context"
	"io"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"

	"klineDownloader/config"
	"klineDownloader/internal/app"
	"klineDownloader/internal/bootstrap"
)

func main() {
	os.Exit(run(os.Stdin, os.Stdout))
}

// run returns the process exit code so deferred cleanup always executes.
func run(in io.Reader, out io.Writer) int {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration: %v", err)
		return 1
	}

	// 2. Initialize Logger
	appLogger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		log.Printf("FATAL: Failed to initialize logger: %v", err)
		return 1
	}
	defer appLogger.Close()
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// Ctrl-C stops the run between windows
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Exchange Client, Collector and Writers
	pipeline, err := bootstrap.NewPipeline(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize download pipeline")
		return 1
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing writers")
		}
	}()
	appLogger.Info(ctx, "Download pipeline initialized", map[string]interface{}{"exchange": pipeline.Exchange.Name()})

	// 4. Ask the operator what to download
	choice, err := app.Prompt(out, in)
	if err != nil {
		appLogger.Error(ctx, err, "Invalid input")
		return 1
	}
	symbols, err := app.ResolveSymbols(ctx, choice, pipeline.Sampler)
	if err != nil {
		appLogger.Error(ctx, err, "Failed to select symbols")
		return 1
	}

	// 5. Run the download
	service, err := app.NewDownloadService(pipeline.Collector, pipeline.Writers.List, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize download service")
		return 1
	}
	report, err := service.Run(ctx, symbols)
	if err != nil {
		appLogger.Warn(ctx, "Download stopped early", map[string]interface{}{"completed": len(report.Results), "error": err.Error()})
		return 1
	}

	appLogger.Info(ctx, "Application finished gracefully.", map[string]interface{}{
		"symbols": len(report.Results),
		"failed":  len(report.Failed()),
	})
	return 0
}
