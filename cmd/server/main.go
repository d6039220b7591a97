package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/longentry/internal/config"
	"github.com/aristath/longentry/internal/database"
	"github.com/aristath/longentry/internal/modules/activation"
	"github.com/aristath/longentry/internal/modules/backtest"
	"github.com/aristath/longentry/internal/modules/history"
	"github.com/aristath/longentry/internal/modules/scoring"
	"github.com/aristath/longentry/internal/modules/stability"
	"github.com/aristath/longentry/internal/notifier"
	"github.com/aristath/longentry/internal/scheduler"
	"github.com/aristath/longentry/internal/server"
	"github.com/aristath/longentry/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting longentry")

	analysis, err := config.LoadAnalysis(cfg.AnalysisConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load analysis configuration")
	}

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Wire up the modules
	historyDB := history.NewHistoryDB(cfg.HistoryDir, log)
	weeklyRepo := activation.NewRepository(db.Conn(), log)
	fundamentals := scoring.NewFundamentalRepository(db.Conn(), log)
	paramHistory := stability.NewRepository(db.Conn(), log)

	tracker := stability.NewTracker(paramHistory, analysis.Stability.Window, log)
	technical := scoring.NewTechnicalScorer(log)
	combiner := scoring.NewCombiner(scoring.Config{
		ReturnWeight:              analysis.Scoring.ReturnWeight,
		ProfitFactorWeight:        analysis.Scoring.ProfitFactorWeight,
		WinRateWeight:             analysis.Scoring.WinRateWeight,
		DrawdownWeight:            analysis.Scoring.DrawdownWeight,
		ProfitFactorCap:           analysis.Scoring.ProfitFactorCap,
		DrawdownMultiplier:        analysis.Scoring.DrawdownMultiplier,
		TechnicalWeight:           analysis.Scoring.TechnicalWeight,
		BacktestWeight:            analysis.Scoring.BacktestWeight,
		FundamentalWeight:         analysis.Scoring.FundamentalWeight,
		StabilityPenaltyThreshold: analysis.Stability.PenaltyThreshold,
	})
	sweeper := backtest.NewSweeper(0, log)

	activationHandlers := activation.NewHandlers(
		weeklyRepo, analysis.Markets,
		analysis.Activation.MaxActive, analysis.Activation.MinFinalScore,
		log,
	)
	scoringHandlers := scoring.NewHandlers(fundamentals, log)

	var summaryNotifier scheduler.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		summaryNotifier = notifier.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, log)
	}

	weeklyJob := scheduler.NewWeeklyAnalysisJob(scheduler.WeeklyAnalysisConfig{
		Log:          log,
		Bars:         historyDB,
		Sweeper:      sweeper,
		Technical:    technical,
		Combiner:     combiner,
		Tracker:      tracker,
		Fundamentals: fundamentals,
		WeeklyRepo:   weeklyRepo,
		Notifier:     summaryNotifier,
		Markets:      analysis.Markets,
		Grid: backtest.Grid{
			EntryHours: analysis.Grid.EntryHours,
			SLPercents: analysis.Grid.SLPercents,
			TPPercents: analysis.Grid.TPPercents,
		},
		MaxActive: activationHandlers.MaxActive,
		MinScore:  analysis.Activation.MinFinalScore,
	})

	// Initialize scheduler
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.WeeklyCron, weeklyJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register weekly analysis job")
	}
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:       cfg.Port,
		Log:        log,
		DevMode:    cfg.DevMode,
		Activation: activationHandlers,
		Scoring:    scoringHandlers,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
