package main

import (
	"context"
	"flag"
	"os"
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
	"github.com/aristath/longentry/pkg/logger"
)

// One-shot weekly analysis for external cron or manual reruns. Exits
// non-zero only on structural failure; individual markets failing is a
// logged, non-fatal condition.
func main() {
	asOfFlag := flag.String("as-of", "", "run the analysis for the week containing this date (YYYY-MM-DD, default: now)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	asOf := time.Now()
	if *asOfFlag != "" {
		asOf, err = time.Parse("2006-01-02", *asOfFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid -as-of date, expected YYYY-MM-DD")
		}
	}

	analysis, err := config.LoadAnalysis(cfg.AnalysisConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load analysis configuration")
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

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

	var summaryNotifier scheduler.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		summaryNotifier = notifier.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, log)
	}

	maxActive := analysis.Activation.MaxActive
	job := scheduler.NewWeeklyAnalysisJob(scheduler.WeeklyAnalysisConfig{
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
		MaxActive: func() int { return maxActive },
		MinScore:  analysis.Activation.MinFinalScore,
	})

	if err := job.RunWeek(context.Background(), asOf); err != nil {
		log.Error().Err(err).Msg("Weekly analysis failed")
		os.Exit(1)
	}
}
