package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the canonical on-disk and log representation of a trading day.
const DateFormat = "2006-01-02"

// Point is a single daily observation from one data source.
type Point struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// Series is a daily closing-price series for one instrument.
type Series []Point

// Day truncates t to midnight UTC. All series dates are stored this way so
// that observations from providers in different time zones join correctly.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Normalize deduplicates the series by date and sorts it ascending.
// When the same date appears more than once the last occurrence wins,
// so revisions fetched later override earlier values.
func (s Series) Normalize() Series {
	byDate := make(map[time.Time]decimal.Decimal, len(s))
	for _, p := range s {
		byDate[Day(p.Date)] = p.Close
	}
	out := make(Series, 0, len(byDate))
	for d, c := range byDate {
		out = append(out, Point{Date: d, Close: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ByDate returns a lookup map of the series keyed by trading day.
func (s Series) ByDate() map[time.Time]decimal.Decimal {
	m := make(map[time.Time]decimal.Decimal, len(s))
	for _, p := range s {
		m[Day(p.Date)] = p.Close
	}
	return m
}
