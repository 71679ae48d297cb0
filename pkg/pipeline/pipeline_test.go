package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ruscigno/ADRPulse/feed"
	"github.com/Ruscigno/ADRPulse/model"
	"github.com/Ruscigno/ADRPulse/pkg/config"
	"github.com/Ruscigno/ADRPulse/pkg/premium"
)

type stubFetcher struct {
	series model.Series
	err    error
	gaps   []string
	calls  int
}

func (s *stubFetcher) DownloadSeries(ctx context.Context, start, end time.Time) (model.Series, error) {
	s.calls++
	return s.series, s.err
}

func (s *stubFetcher) Gaps() []string { return s.gaps }

type memorySink struct {
	table model.MergedTable
	err   error
	saves int
}

func (m *memorySink) Save(table model.MergedTable) error {
	m.saves++
	m.table = table
	return m.err
}

type stubNotifier struct {
	rec   model.AlignedRecord
	err   error
	calls int
}

func (n *stubNotifier) NotifyLatest(ctx context.Context, rec model.AlignedRecord) error {
	n.calls++
	n.rec = rec
	return n.err
}

type stubHistory struct {
	runID uuid.UUID
	rows  int
	err   error
}

func (h *stubHistory) ReplaceSnapshot(ctx context.Context, runID uuid.UUID, table model.MergedTable) error {
	h.runID = runID
	h.rows = len(table)
	return h.err
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func single(d int, v string) model.Series {
	return model.Series{{Date: day(d), Close: decimal.RequireFromString(v)}}
}

func testConfig() config.Config {
	return config.Config{
		LookbackDays:  30,
		SharesPerADR:  decimal.NewFromInt(5),
		CourtesyDelay: 10 * time.Second,
	}
}

func newTestPipeline(adr, fx, home feed.Fetcher, sink Sink) (*Pipeline, *[]time.Duration) {
	p := New(testConfig(), adr, fx, home, sink, zap.NewNop())
	var slept []time.Duration
	p.sleep = func(d time.Duration) { slept = append(slept, d) }
	p.now = func() time.Time { return day(15) }
	return p, &slept
}

func TestRunEndToEnd(t *testing.T) {
	adr := &stubFetcher{series: single(2, "100")}
	fx := &stubFetcher{series: single(2, "30")}
	home := &stubFetcher{series: single(2, "590"), gaps: []string{"202312"}}
	sink := &memorySink{}

	p, slept := newTestPipeline(adr, fx, home, sink)
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, sink.saves)
	require.Len(t, sink.table, 1)
	rec := sink.table[0]
	assert.Equal(t, day(2), rec.Date)
	assert.True(t, rec.ADRInTWD.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, "1.695", rec.Premium.Round(3).String())

	assert.Equal(t, 1, report.ADRRows)
	assert.Equal(t, 1, report.FXRows)
	assert.Equal(t, 1, report.HomeRows)
	assert.Equal(t, 1, report.JoinedRows)
	assert.Equal(t, []string{"202312"}, report.GapMonths)
	assert.NotEqual(t, uuid.Nil, report.RunID)

	// The courtesy delay runs once, between the FX and home-market fetches.
	assert.Equal(t, []time.Duration{10 * time.Second}, *slept)
}

func TestRunAbortsWhenADRSourceUnavailable(t *testing.T) {
	adr := &stubFetcher{err: feed.ErrSourceUnavailable}
	fx := &stubFetcher{series: single(2, "30")}
	home := &stubFetcher{series: single(2, "590")}
	sink := &memorySink{}

	p, _ := newTestPipeline(adr, fx, home, sink)
	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, feed.ErrSourceUnavailable)
	assert.Zero(t, fx.calls, "FX fetch must not run after ADR failure")
	assert.Zero(t, home.calls)
	assert.Zero(t, sink.saves)
}

func TestRunAbortsWhenFXSourceUnavailable(t *testing.T) {
	adr := &stubFetcher{series: single(2, "100")}
	fx := &stubFetcher{err: feed.ErrSourceUnavailable}
	home := &stubFetcher{series: single(2, "590")}
	sink := &memorySink{}

	p, _ := newTestPipeline(adr, fx, home, sink)
	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, feed.ErrSourceUnavailable)
	assert.Zero(t, home.calls)
	assert.Zero(t, sink.saves)
}

func TestRunSurfacesEmptyReconciliation(t *testing.T) {
	// ADR and FX cover January, home covers February: the join is empty and
	// nothing may be written.
	adr := &stubFetcher{series: single(2, "100")}
	fx := &stubFetcher{series: single(2, "30")}
	home := &stubFetcher{series: model.Series{{Date: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), Close: decimal.NewFromInt(590)}}}
	sink := &memorySink{}

	p, _ := newTestPipeline(adr, fx, home, sink)
	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, premium.ErrEmptyReconciliation)
	assert.Zero(t, sink.saves, "an empty table must not be persisted")
}

func TestRunPersistenceFailureIsFatal(t *testing.T) {
	adr := &stubFetcher{series: single(2, "100")}
	fx := &stubFetcher{series: single(2, "30")}
	home := &stubFetcher{series: single(2, "590")}
	sink := &memorySink{err: errors.New("disk full")}

	p, _ := newTestPipeline(adr, fx, home, sink)
	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistence failed")
}

func TestRunNotifierFailureDoesNotFailRun(t *testing.T) {
	adr := &stubFetcher{series: single(2, "100")}
	fx := &stubFetcher{series: single(2, "30")}
	home := &stubFetcher{series: single(2, "590")}
	sink := &memorySink{}
	notifier := &stubNotifier{err: errors.New("webhook down")}

	p, _ := newTestPipeline(adr, fx, home, sink)
	p.WithNotifier(notifier)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, 1, sink.saves)
}

func TestRunNotifiesLatestRecord(t *testing.T) {
	adr := &stubFetcher{series: model.Series{
		{Date: day(2), Close: decimal.NewFromInt(100)},
		{Date: day(3), Close: decimal.NewFromInt(101)},
	}}
	fx := &stubFetcher{series: model.Series{
		{Date: day(2), Close: decimal.NewFromInt(30)},
		{Date: day(3), Close: decimal.NewFromInt(30)},
	}}
	home := &stubFetcher{series: model.Series{
		{Date: day(2), Close: decimal.NewFromInt(590)},
		{Date: day(3), Close: decimal.NewFromInt(592)},
	}}
	sink := &memorySink{}
	notifier := &stubNotifier{}

	p, _ := newTestPipeline(adr, fx, home, sink)
	p.WithNotifier(notifier)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, day(3), notifier.rec.Date)
}

func TestRunSnapshotsHistory(t *testing.T) {
	adr := &stubFetcher{series: single(2, "100")}
	fx := &stubFetcher{series: single(2, "30")}
	home := &stubFetcher{series: single(2, "590")}
	sink := &memorySink{}
	history := &stubHistory{}

	p, _ := newTestPipeline(adr, fx, home, sink)
	p.WithHistory(history)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.RunID, history.runID)
	assert.Equal(t, 1, history.rows)
}

func TestRunHistoryFailureIsFatal(t *testing.T) {
	adr := &stubFetcher{series: single(2, "100")}
	fx := &stubFetcher{series: single(2, "30")}
	home := &stubFetcher{series: single(2, "590")}
	sink := &memorySink{}
	history := &stubHistory{err: errors.New("connection lost")}

	p, _ := newTestPipeline(adr, fx, home, sink)
	p.WithHistory(history)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history snapshot failed")
}

func TestRunWindowRespectsLookback(t *testing.T) {
	adr := &stubFetcher{series: single(2, "100")}
	fx := &stubFetcher{series: single(2, "30")}
	home := &stubFetcher{series: single(2, "590")}

	p, _ := newTestPipeline(adr, fx, home, &memorySink{})
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, day(15), report.WindowEnd)
	assert.Equal(t, report.WindowEnd.AddDate(0, 0, -30), report.WindowStart)
}
