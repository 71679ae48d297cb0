package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Ruscigno/ADRPulse/model"
	"github.com/Ruscigno/ADRPulse/pkg/retry"
)

const (
	YahooChartURL = "https://query2.finance.yahoo.com/v8/finance/chart"
	UserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/91.0.4472.124"
)

// yahooChartResponse represents the structure of Yahoo's chart API response
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

type yahooFetcher struct {
	symbol  string
	baseURL string
	client  *http.Client
	retry   retry.Config
}

// NewYahooFetcher returns a Fetcher that downloads daily closes for symbol
// from the Yahoo v8 chart API in a single request per call. It is used for
// both the ADR ticker and the currency-pair ticker. Failures are not
// recovered here beyond a bounded retry: the caller gets ErrSourceUnavailable.
func NewYahooFetcher(symbol string) Fetcher {
	return &yahooFetcher{
		symbol:  symbol,
		baseURL: YahooChartURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		retry:   retry.DefaultConfig(),
	}
}

func (y *yahooFetcher) DownloadSeries(ctx context.Context, start, end time.Time) (model.Series, error) {
	start, end = ClampRange(start, end)

	var chart yahooChartResponse
	err := retry.Do(ctx, y.retry, func() error {
		return y.fetchChart(ctx, start, end, &chart)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, y.symbol, err)
	}

	series, err := y.extractSeries(&chart, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, y.symbol, err)
	}
	zap.L().Info("Downloaded daily closes",
		zap.String("symbol", y.symbol),
		zap.Int("rows", len(series)))
	return series, nil
}

func (y *yahooFetcher) fetchChart(ctx context.Context, start, end time.Time, chart *yahooChartResponse) error {
	// period2 is exclusive upstream, so push it past the end day to keep the
	// requested range inclusive on both ends.
	url := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d",
		y.baseURL, y.symbol, start.Unix(), end.Add(24*time.Hour).Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch data for %s: %v", y.symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	*chart = yahooChartResponse{}
	if err := json.NewDecoder(resp.Body).Decode(chart); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	if chart.Chart.Error != nil {
		return fmt.Errorf("API error: %v", chart.Chart.Error)
	}
	return nil
}

func (y *yahooFetcher) extractSeries(chart *yahooChartResponse, start, end time.Time) (model.Series, error) {
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("no data returned for %s", y.symbol)
	}
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data returned for %s", y.symbol)
	}
	quote := result.Indicators.Quote[0]

	series := make(model.Series, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) {
			break
		}
		close := quote.Close[i]
		// Null samples decode as 0 or NaN; a zero close is never a real quote.
		if close == 0 || close != close {
			continue
		}
		day := model.Day(time.Unix(ts, 0).UTC())
		if day.Before(start) || day.After(end) {
			continue
		}
		series = append(series, model.Point{Date: day, Close: decimal.NewFromFloat(close)})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no usable samples returned for %s", y.symbol)
	}
	return series.Normalize(), nil
}
