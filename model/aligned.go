package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlignedRecord is one joined row: same-day ADR close, FX rate and
// home-market close, plus the values derived from them.
type AlignedRecord struct {
	Date      time.Time       `json:"date"`
	ADRClose  decimal.Decimal `json:"adr_close"`  // ADR close in USD
	FXRate    decimal.Decimal `json:"fx_rate"`    // USD/TWD spot rate
	HomeClose decimal.Decimal `json:"home_close"` // home-market close in TWD
	ADRInTWD  decimal.Decimal `json:"adr_in_twd"` // per-share ADR value in TWD
	Premium   decimal.Decimal `json:"premium"`    // premium over home close, percent
}

// MergedTable is the pipeline's final output, sorted ascending by date.
// It is rebuilt in full on every run.
type MergedTable []AlignedRecord

// Latest returns the most recent record and whether the table is non-empty.
func (t MergedTable) Latest() (AlignedRecord, bool) {
	if len(t) == 0 {
		return AlignedRecord{}, false
	}
	return t[len(t)-1], true
}
