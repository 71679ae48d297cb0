package premium

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Ruscigno/ADRPulse/model"
)

// ErrEmptyReconciliation is returned by the pipeline when the inner join
// yields zero rows. An empty table is never written silently.
var ErrEmptyReconciliation = errors.New("reconciliation produced no aligned rows")

var hundred = decimal.NewFromInt(100)

// Reconcile inner-joins the three series on date: a row is produced only for
// dates present in all three inputs. Mismatched market holidays drop out here
// by design. Rows with a zero home close are a data-quality defect and are
// excluded before any division happens. The result is sorted ascending.
func Reconcile(adr, fx, home model.Series) model.MergedTable {
	fxByDate := fx.ByDate()
	homeByDate := home.ByDate()

	table := make(model.MergedTable, 0, len(adr))
	for _, p := range adr.Normalize() {
		rate, ok := fxByDate[p.Date]
		if !ok {
			continue
		}
		homeClose, ok := homeByDate[p.Date]
		if !ok {
			continue
		}
		if homeClose.IsZero() {
			continue
		}
		table = append(table, model.AlignedRecord{
			Date:      p.Date,
			ADRClose:  p.Close,
			FXRate:    rate,
			HomeClose: homeClose,
		})
	}
	return table
}

// Derive fills in the per-share ADR value in home currency and the premium
// percentage for every record. sharesPerADR is the number of home-market
// shares one ADR represents. Pure function, no I/O.
//
//	ADRInTWD = ADRClose * FXRate / sharesPerADR
//	Premium  = (ADRInTWD / HomeClose - 1) * 100
func Derive(table model.MergedTable, sharesPerADR decimal.Decimal) model.MergedTable {
	for i := range table {
		rec := &table[i]
		rec.ADRInTWD = rec.ADRClose.Mul(rec.FXRate).Div(sharesPerADR)
		rec.Premium = rec.ADRInTWD.Div(rec.HomeClose).Sub(decimal.NewFromInt(1)).Mul(hundred)
	}
	return table
}
