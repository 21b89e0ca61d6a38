package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chainpulse/internal/config"
	"chainpulse/internal/dashboard"
	"chainpulse/internal/history"
	"chainpulse/internal/logger"
	"chainpulse/internal/nse"
	"chainpulse/internal/pipeline"
	"chainpulse/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Optional .env for secrets like CHAINPULSE_TELEGRAM_BOT_TOKEN
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, logger.FileConfig{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	logger.Info("Configuration loaded from %s", *configPath)

	hist, err := history.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to open history log: %v", err)
	}
	defer func() {
		if err := hist.Close(); err != nil {
			logger.Error("Failed to close history log: %v", err)
		}
	}()

	client := nse.NewClient(cfg.NSE.BaseURL, cfg.NSE.Timeout, nse.ClientConfig{
		WarmupTimeout: cfg.NSE.WarmupTimeout,
		RatePerMinute: cfg.NSE.RatePerMinute,
		UserAgent:     cfg.NSE.UserAgent,
	})
	cache := nse.NewCache(client, cfg.NSE.CacheTTL)

	runner := pipeline.New(cache, hist, pipeline.Config{
		DisplayTopK: cfg.Monitor.DisplayTopK,
		HistoryTopK: cfg.Monitor.HistoryTopK,
		TableRows:   cfg.Monitor.TableRows,
	})

	defaultKey := nse.NewKey(cfg.NSE.Symbol, cfg.NSE.Index)
	dash := dashboard.New(dashboard.Config{
		ListenAddr:    cfg.Server.ListenAddr,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		DefaultSymbol: defaultKey.Symbol,
		DefaultIndex:  defaultKey.IsIndex,
		Refresh:       cfg.Monitor.RefreshInterval,
	}, runner, hist)

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	httpServer := dash.NewHTTPServer()
	go func() {
		logger.Info("Dashboard listening on %s", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Dashboard server failed: %v", err)
		}
	}()

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Dashboard shutdown: %v", err)
		}
		cancel()
	}()

	if cfg.Telegram.Enabled && telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
	}

	logger.Info("Starting cycles for %s (index: %v, interval: %v, display_top_k: %d, history_top_k: %d)",
		defaultKey.Symbol, defaultKey.IsIndex,
		cfg.Monitor.RefreshInterval, cfg.Monitor.DisplayTopK, cfg.Monitor.HistoryTopK)

	ticker := time.NewTicker(cfg.Monitor.RefreshInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Cycle failed: %v", err)
			if consecutiveFailures == 1 && cfg.Telegram.Enabled && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
		} else {
			if consecutiveFailures > 0 && cfg.Telegram.Enabled && telegramClient != nil {
				if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
					logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	logger.Debug("Running initial cycle")
	handleCycleResult(runCycle(ctx, runner, dash, telegramClient, cfg))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled cycle")
			handleCycleResult(runCycle(ctx, runner, dash, telegramClient, cfg))
		}
	}
}

func runCycle(
	ctx context.Context,
	runner *pipeline.Runner,
	dash *dashboard.Server,
	telegramClient *telegram.Client,
	cfg *config.Config,
) error {
	startTime := time.Now()
	logger.Info("Starting cycle for %s", cfg.NSE.Symbol)

	view, err := runner.Run(ctx, cfg.NSE.Symbol, cfg.NSE.Index, true)
	if err != nil {
		dash.SetError(err)
		return err
	}
	dash.SetView(view)

	if view.PCRRecorded.Available {
		logger.Info("Cycle metrics: pcr_oi=%v pcr_vol=%v pcr_top10=%.2f max_pain_available=%v",
			view.PCROpenInterest.Available, view.PCRVolume.Available,
			view.PCRRecorded.Value, view.MaxPainAvailable)
	} else {
		logger.Info("Cycle metrics: top-10 OI PCR unavailable this cycle")
	}

	if cfg.Telegram.Enabled && cfg.Telegram.SendSummary && telegramClient != nil {
		if sendErr := telegramClient.SendSummary(view); sendErr != nil {
			logger.Warn("Failed to send cycle summary to Telegram: %v", sendErr)
		}
	}

	logger.Info("Cycle completed in %v", time.Since(startTime))
	return nil
}
