package feed

import (
	"context"
	"errors"
	"time"

	"github.com/Ruscigno/ADRPulse/model"
)

// ErrSourceUnavailable is returned when a load-bearing provider cannot
// deliver any data for the requested range. Callers are expected to abort
// the run: the premium is meaningless without the ADR close or the FX rate.
var ErrSourceUnavailable = errors.New("data source unavailable")

// MaxLookback bounds every fetch range. Requests further back are clamped.
const MaxLookback = 10 * 365 * 24 * time.Hour

// Fetcher retrieves a normalized daily series for an inclusive date range.
type Fetcher interface {
	DownloadSeries(ctx context.Context, start, end time.Time) (model.Series, error)
}

// GapReporter is implemented by fetchers that tolerate partial failure and
// can report which months contributed no data on the last download.
type GapReporter interface {
	Gaps() []string
}

// ClampRange applies the lookback bound and normalizes both ends to UTC days.
func ClampRange(start, end time.Time) (time.Time, time.Time) {
	start, end = model.Day(start), model.Day(end)
	if horizon := model.Day(end.Add(-MaxLookback)); start.Before(horizon) {
		start = horizon
	}
	return start, end
}
