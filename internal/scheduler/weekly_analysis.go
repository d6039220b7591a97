package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/longentry/internal/domain"
	"github.com/aristath/longentry/internal/modules/activation"
	"github.com/aristath/longentry/internal/modules/backtest"
	"github.com/aristath/longentry/internal/modules/history"
	"github.com/aristath/longentry/internal/modules/scoring"
	"github.com/aristath/longentry/internal/modules/stability"
)

// Notifier delivers the post-run summary. Delivery failures are logged
// and never fail the run.
type Notifier interface {
	Send(text string) error
}

// WeeklyAnalysisJob runs the full weekly pipeline for every instrument in
// the universe: bars -> technical score -> parameter sweep -> stability ->
// score combination, then ranks all instruments and persists the
// activation set. Failures are isolated per instrument; only structural
// problems fail the whole run.
type WeeklyAnalysisJob struct {
	log          zerolog.Logger
	bars         history.BarSource
	sweeper      *backtest.Sweeper
	technical    *scoring.TechnicalScorer
	combiner     *scoring.Combiner
	tracker      *stability.Tracker
	fundamentals *scoring.FundamentalRepository
	weeklyRepo   *activation.Repository
	notifier     Notifier // optional

	markets   []domain.Market
	grid      backtest.Grid
	maxActive func() int // current setting, may change between runs
	minScore  float64
}

// WeeklyAnalysisConfig holds the job dependencies
type WeeklyAnalysisConfig struct {
	Log          zerolog.Logger
	Bars         history.BarSource
	Sweeper      *backtest.Sweeper
	Technical    *scoring.TechnicalScorer
	Combiner     *scoring.Combiner
	Tracker      *stability.Tracker
	Fundamentals *scoring.FundamentalRepository
	WeeklyRepo   *activation.Repository
	Notifier     Notifier

	Markets   []domain.Market
	Grid      backtest.Grid
	MaxActive func() int
	MinScore  float64
}

// NewWeeklyAnalysisJob creates the weekly analysis job
func NewWeeklyAnalysisJob(cfg WeeklyAnalysisConfig) *WeeklyAnalysisJob {
	return &WeeklyAnalysisJob{
		log:          cfg.Log.With().Str("job", "weekly_analysis").Logger(),
		bars:         cfg.Bars,
		sweeper:      cfg.Sweeper,
		technical:    cfg.Technical,
		combiner:     cfg.Combiner,
		tracker:      cfg.Tracker,
		fundamentals: cfg.Fundamentals,
		weeklyRepo:   cfg.WeeklyRepo,
		notifier:     cfg.Notifier,
		markets:      cfg.Markets,
		grid:         cfg.Grid,
		maxActive:    cfg.MaxActive,
		minScore:     cfg.MinScore,
	}
}

// Name returns the job name
func (j *WeeklyAnalysisJob) Name() string {
	return "weekly_analysis"
}

// Run executes the weekly analysis for the current trading week
func (j *WeeklyAnalysisJob) Run() error {
	return j.RunWeek(context.Background(), time.Now())
}

// RunWeek executes the weekly analysis for the week containing asOf. All
// per-run state is passed through explicitly; re-running the same week
// supersedes that week's records.
func (j *WeeklyAnalysisJob) RunWeek(ctx context.Context, asOf time.Time) error {
	weekStart := domain.WeekStart(asOf)
	j.log.Info().
		Str("week_start", weekStart.Format("2006-01-02")).
		Int("markets", len(j.markets)).
		Msg("Starting weekly analysis")
	startTime := time.Now()

	var scored []*domain.WeeklyScore
	skipped := 0
	barFailures := 0

	for _, market := range j.markets {
		if err := ctx.Err(); err != nil {
			return err
		}

		ws, err := j.analyzeInstrument(ctx, market, weekStart)
		switch {
		case errors.Is(err, scoring.ErrInsufficientData):
			j.log.Warn().Str("symbol", market.Symbol).Msg("Insufficient history, market unscored this week")
			skipped++
		case err != nil:
			j.log.Error().Err(err).Str("symbol", market.Symbol).Msg("Failed to analyze market")
			skipped++
			barFailures++
		default:
			scored = append(scored, ws)
		}
	}

	// Every instrument failing to even load bars points at the history
	// store, not at the instruments. Surface it loudly.
	if barFailures == len(j.markets) && len(j.markets) > 0 {
		return fmt.Errorf("weekly analysis: history store unreachable for all %d markets", len(j.markets))
	}

	overrides, err := j.weeklyRepo.GetOverrides(weekStart)
	if err != nil {
		return fmt.Errorf("weekly analysis: %w", err)
	}

	selector := activation.NewSelector(j.maxActive(), j.minScore)
	selector.Select(scored, overrides)

	stored := 0
	for _, ws := range scored {
		if err := j.weeklyRepo.Upsert(ws); err != nil {
			j.log.Error().Err(err).Str("symbol", ws.Symbol).Msg("Failed to store weekly score")
			continue
		}
		stored++
	}

	active := 0
	for _, ws := range scored {
		if ws.IsActive {
			active++
		}
	}

	j.log.Info().
		Int("scored", len(scored)).
		Int("skipped", skipped).
		Int("stored", stored).
		Int("active", active).
		Dur("duration", time.Since(startTime)).
		Msg("Weekly analysis complete")

	j.sendSummary(weekStart, scored, skipped)

	return nil
}

// analyzeInstrument runs the full per-instrument pipeline and returns the
// unranked weekly score.
func (j *WeeklyAnalysisJob) analyzeInstrument(ctx context.Context, market domain.Market, weekStart time.Time) (*domain.WeeklyScore, error) {
	coarse, err := j.bars.GetBars(market.Symbol, domain.ResolutionH1, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load H1 bars: %w", err)
	}
	if len(coarse) == 0 {
		return nil, scoring.ErrInsufficientData
	}

	metrics, err := j.technical.Score(coarse)
	if err != nil {
		return nil, err
	}

	ws := &domain.WeeklyScore{
		Symbol:          market.Symbol,
		WeekStart:       weekStart,
		TechnicalScore:  metrics.Score,
		TechnicalScored: true,
		OptEntryMinute:  0,
	}

	// The fine series is only consulted for ambiguous bars; missing M5
	// data degrades to the conservative default instead of failing.
	fine, err := j.bars.GetBars(market.Symbol, domain.ResolutionM5, time.Time{}, time.Time{})
	if err != nil {
		j.log.Warn().Err(err).Str("symbol", market.Symbol).Msg("No M5 data, ambiguous bars resolve as losses")
		fine = nil
	}

	sweepStart := time.Now()
	result, err := j.sweeper.Sweep(ctx, coarse, fine, j.grid, market)
	switch {
	case errors.Is(err, backtest.ErrNoResult):
		j.log.Warn().Str("symbol", market.Symbol).Msg("Sweep produced no result, backtest unscored")
	case err != nil:
		return nil, fmt.Errorf("parameter sweep: %w", err)
	default:
		best := result.Best
		stabilityScore, err := j.tracker.Score(market.Symbol, weekStart, best.Combo)
		if err != nil {
			return nil, err
		}

		ws.BacktestScore = j.combiner.BacktestScore(best, stabilityScore)
		ws.BacktestScored = true
		ws.OptEntryHour = best.Combo.EntryHour
		ws.OptSLPercent = best.Combo.SLPercent
		ws.OptTPPercent = best.Combo.TPPercent
		ws.BTTotalReturn = best.TotalReturnPct
		ws.BTWinRate = best.WinRate
		ws.BTProfitFactor = best.ProfitFactor
		ws.BTTotalTrades = best.TradeCount
		ws.BTMaxDrawdown = best.MaxDrawdownPct
		ws.BTStability = stabilityScore

		j.log.Info().
			Str("symbol", market.Symbol).
			Int("entry_hour", best.Combo.EntryHour).
			Float64("sl", best.Combo.SLPercent).
			Float64("tp", best.Combo.TPPercent).
			Float64("return", best.TotalReturnPct).
			Float64("win_rate", best.WinRate).
			Float64("profit_factor", best.ProfitFactor).
			Float64("max_drawdown", best.MaxDrawdownPct).
			Float64("stability", stabilityScore).
			Int("combos", result.CombosTested).
			Dur("duration", time.Since(sweepStart)).
			Msg("Backtest sweep complete")
	}

	fundamental, err := j.fundamentals.Get(market.Symbol, weekStart)
	if err != nil {
		j.log.Warn().Err(err).Str("symbol", market.Symbol).Msg("Failed to load fundamental score")
	}
	if fundamental != nil {
		ws.FundamentalScore = *fundamental
		ws.FundamentalScored = true
	}

	ws.FinalScore = j.combiner.FinalScore(
		scoring.SubScore{Value: ws.TechnicalScore, Scored: ws.TechnicalScored},
		scoring.SubScore{Value: ws.BacktestScore, Scored: ws.BacktestScored},
		scoring.SubScore{Value: ws.FundamentalScore, Scored: ws.FundamentalScored},
	)

	return ws, nil
}

// sendSummary pushes the weekly outcome to the notifier, if configured
func (j *WeeklyAnalysisJob) sendSummary(weekStart time.Time, scored []*domain.WeeklyScore, skipped int) {
	if j.notifier == nil {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weekly analysis, week of %s\n", weekStart.Format("2006-01-02"))
	fmt.Fprintf(&b, "Scored: %d, skipped: %d\n\n", len(scored), skipped)
	for _, ws := range scored {
		status := "-"
		if ws.IsActive {
			status = "ACTIVE"
		}
		if ws.IsManuallyOverridden {
			status += " (override)"
		}
		fmt.Fprintf(&b, "#%d %s score=%.1f %s\n", ws.Rank, ws.Symbol, ws.FinalScore, status)
	}

	if err := j.notifier.Send(b.String()); err != nil {
		j.log.Warn().Err(err).Msg("Failed to send weekly summary")
	}
}
