package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Ruscigno/ADRPulse/model"
)

const (
	TWSEStockDayURL = "https://www.twse.com.tw/exchangeReport/STOCK_DAY"

	// stockDayDateCol and stockDayCloseCol are fixed positions in the
	// STOCK_DAY row layout: date, volume, value, open, high, low, close, ...
	stockDayDateCol  = 0
	stockDayCloseCol = 6
)

// stockDayResponse is the TWSE STOCK_DAY payload. The Data key is absent
// when the month has no trading days or the query is malformed.
type stockDayResponse struct {
	Stat   string     `json:"stat"`
	Date   string     `json:"date"`
	Fields []string   `json:"fields"`
	Data   [][]string `json:"data"`
}

// TWSEFetcher downloads the home-market close series month by month from
// the TWSE STOCK_DAY endpoint. A month that fails or carries no data is
// skipped and recorded as a gap; it never aborts the download.
type TWSEFetcher struct {
	stockNo    string
	baseURL    string
	client     *http.Client
	monthDelay time.Duration
	sleep      func(time.Duration)
	gaps       []string
}

// NewTWSEFetcher returns a fetcher for one TWSE security code.
func NewTWSEFetcher(stockNo string, monthDelay time.Duration) *TWSEFetcher {
	return &TWSEFetcher{
		stockNo:    stockNo,
		baseURL:    TWSEStockDayURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		monthDelay: monthDelay,
		sleep:      time.Sleep,
	}
}

func (t *TWSEFetcher) DownloadSeries(ctx context.Context, start, end time.Time) (model.Series, error) {
	start, end = ClampRange(start, end)
	t.gaps = nil

	var all model.Series
	first := true
	for month := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); !month.After(end); month = month.AddDate(0, 1, 0) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !first {
			t.sleep(t.monthDelay)
		}
		first = false

		key := month.Format("200601")
		points, err := t.fetchMonth(ctx, month)
		if err != nil {
			// Per-month failure is isolated: skip and keep going.
			zap.L().Warn("Skipping month after fetch failure",
				zap.String("stock_no", t.stockNo),
				zap.String("month", key),
				zap.Error(err))
			t.gaps = append(t.gaps, key)
			continue
		}
		if len(points) == 0 {
			zap.L().Info("No trading data for month",
				zap.String("stock_no", t.stockNo),
				zap.String("month", key))
			t.gaps = append(t.gaps, key)
			continue
		}
		all = append(all, points...)
	}

	// Overlapping monthly windows can repeat a date; the later fetch wins.
	series := all.Normalize()
	filtered := make(model.Series, 0, len(series))
	for _, p := range series {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		filtered = append(filtered, p)
	}
	zap.L().Info("Downloaded home-market closes",
		zap.String("stock_no", t.stockNo),
		zap.Int("rows", len(filtered)),
		zap.Strings("gap_months", t.gaps))
	return filtered, nil
}

// Gaps reports the months that contributed no data on the last download.
func (t *TWSEFetcher) Gaps() []string { return t.gaps }

func (t *TWSEFetcher) fetchMonth(ctx context.Context, month time.Time) (model.Series, error) {
	url := fmt.Sprintf("%s?response=json&date=%s01&stockNo=%s",
		t.baseURL, month.Format("200601"), t.stockNo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch month: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload stockDayResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}
	return t.parseRows(payload.Data), nil
}

// parseRows converts raw STOCK_DAY rows to points. Rows with an unparseable
// date or close are dropped here so they never reach the reconciler.
func (t *TWSEFetcher) parseRows(rows [][]string) model.Series {
	points := make(model.Series, 0, len(rows))
	for _, row := range rows {
		if len(row) <= stockDayCloseCol {
			continue
		}
		date, err := time.Parse(model.DateFormat, NormalizeROCDate(row[stockDayDateCol]))
		if err != nil {
			continue
		}
		raw := strings.ReplaceAll(strings.TrimSpace(row[stockDayCloseCol]), ",", "")
		close, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		points = append(points, model.Point{Date: model.Day(date), Close: close})
	}
	return points
}
