package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ruscigno/ADRPulse/feed"
	"github.com/Ruscigno/ADRPulse/model"
	"github.com/Ruscigno/ADRPulse/pkg/config"
	"github.com/Ruscigno/ADRPulse/pkg/premium"
)

// Sink persists the final merged table.
type Sink interface {
	Save(table model.MergedTable) error
}

// HistorySink mirrors the merged table into a queryable store.
type HistorySink interface {
	ReplaceSnapshot(ctx context.Context, runID uuid.UUID, table model.MergedTable) error
}

// Notifier delivers the latest merged row to a chat endpoint.
type Notifier interface {
	NotifyLatest(ctx context.Context, rec model.AlignedRecord) error
}

// RunReport summarizes one pipeline run. Per-source row counts and gap
// months are the only visible trace of tolerated partial failures, so they
// are always logged.
type RunReport struct {
	RunID       uuid.UUID
	WindowStart time.Time
	WindowEnd   time.Time
	ADRRows     int
	FXRows      int
	HomeRows    int
	JoinedRows  int
	GapMonths   []string
	Duration    time.Duration
}

// Pipeline runs the full acquisition-reconciliation-persistence flow.
// Fetchers execute sequentially; each one finishes before the next starts.
type Pipeline struct {
	cfg      config.Config
	adr      feed.Fetcher
	fx       feed.Fetcher
	home     feed.Fetcher
	sink     Sink
	history  HistorySink
	notifier Notifier
	logger   *zap.Logger
	sleep    func(time.Duration)
	now      func() time.Time
}

// New wires a pipeline from its collaborators. History and notifier are
// optional; attach them with WithHistory and WithNotifier.
func New(cfg config.Config, adr, fx, home feed.Fetcher, sink Sink, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		adr:    adr,
		fx:     fx,
		home:   home,
		sink:   sink,
		logger: logger,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// WithHistory attaches an optional history store.
func (p *Pipeline) WithHistory(h HistorySink) *Pipeline {
	p.history = h
	return p
}

// WithNotifier attaches an optional notifier.
func (p *Pipeline) WithNotifier(n Notifier) *Pipeline {
	p.notifier = n
	return p
}

// Run executes one full pipeline pass and returns its report. The ADR and FX
// fetches are load-bearing: their failure aborts the run. The home-market
// fetch tolerates per-month gaps internally. An empty join is surfaced as
// premium.ErrEmptyReconciliation instead of silently writing an empty file.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	started := p.now()
	report := &RunReport{
		RunID:       uuid.New(),
		WindowEnd:   model.Day(started),
		WindowStart: model.Day(started).AddDate(0, 0, -p.cfg.LookbackDays),
	}
	logger := p.logger.With(zap.String("run_id", report.RunID.String()))
	logger.Info("Starting pipeline run",
		zap.String("window_start", report.WindowStart.Format(model.DateFormat)),
		zap.String("window_end", report.WindowEnd.Format(model.DateFormat)))

	adrSeries, err := p.adr.DownloadSeries(ctx, report.WindowStart, report.WindowEnd)
	if err != nil {
		return report, fmt.Errorf("ADR fetch failed: %w", err)
	}
	report.ADRRows = len(adrSeries)

	fxSeries, err := p.fx.DownloadSeries(ctx, report.WindowStart, report.WindowEnd)
	if err != nil {
		return report, fmt.Errorf("FX fetch failed: %w", err)
	}
	report.FXRows = len(fxSeries)

	// Scheduling policy, not a concurrency primitive: give the upstream a
	// breather before hammering the paginated endpoint.
	p.sleep(p.cfg.CourtesyDelay)

	homeSeries, err := p.home.DownloadSeries(ctx, report.WindowStart, report.WindowEnd)
	if err != nil {
		return report, fmt.Errorf("home-market fetch failed: %w", err)
	}
	report.HomeRows = len(homeSeries)
	if gr, ok := p.home.(feed.GapReporter); ok {
		report.GapMonths = gr.Gaps()
	}

	table := premium.Reconcile(adrSeries, fxSeries, homeSeries)
	if len(table) == 0 {
		return report, fmt.Errorf("joining %d ADR, %d FX and %d home rows: %w",
			report.ADRRows, report.FXRows, report.HomeRows, premium.ErrEmptyReconciliation)
	}
	table = premium.Derive(table, p.cfg.SharesPerADR)
	report.JoinedRows = len(table)

	if err := p.sink.Save(table); err != nil {
		return report, fmt.Errorf("persistence failed: %w", err)
	}

	if p.history != nil {
		if err := p.history.ReplaceSnapshot(ctx, report.RunID, table); err != nil {
			return report, fmt.Errorf("history snapshot failed: %w", err)
		}
	}

	if p.notifier != nil {
		if latest, ok := table.Latest(); ok {
			if err := p.notifier.NotifyLatest(ctx, latest); err != nil {
				// Fire-and-forget: a dead webhook must not fail the run.
				logger.Error("Notification failed", zap.Error(err))
			}
		}
	}

	report.Duration = time.Since(started)
	logger.Info("Pipeline run completed",
		zap.Int("adr_rows", report.ADRRows),
		zap.Int("fx_rows", report.FXRows),
		zap.Int("home_rows", report.HomeRows),
		zap.Int("joined_rows", report.JoinedRows),
		zap.Strings("gap_months", report.GapMonths),
		zap.Duration("duration", report.Duration))
	return report, nil
}
