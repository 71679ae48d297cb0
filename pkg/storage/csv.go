package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Ruscigno/ADRPulse/model"
)

// csvHeader identifies every column of the merged table on disk.
var csvHeader = []string{"Date", "ADR_Close", "USD_TWD", "TWS_Close", "ADR_TWD", "Premium"}

// CSVStore persists the merged table to a single CSV file with full
// overwrite semantics. The write goes through a temp file and a rename, so
// a failed run leaves the previous file generation untouched.
type CSVStore struct {
	path   string
	logger *zap.Logger
}

// NewCSVStore creates a store writing to path. The containing directory is
// created on first save.
func NewCSVStore(path string, logger *zap.Logger) *CSVStore {
	return &CSVStore{path: path, logger: logger}
}

// Path returns the location of the persisted table.
func (s *CSVStore) Path() string { return s.path }

// Save writes the full table, header first, replacing any previous file.
func (s *CSVStore) Save(table model.MergedTable) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".merged-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	writeErr := w.Write(csvHeader)
	for _, rec := range table {
		if writeErr != nil {
			break
		}
		writeErr = w.Write([]string{
			rec.Date.Format(model.DateFormat),
			rec.ADRClose.String(),
			rec.FXRate.String(),
			rec.HomeClose.String(),
			rec.ADRInTWD.String(),
			rec.Premium.String(),
		})
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", s.path, writeErr)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	s.logger.Info("Persisted merged table",
		zap.String("path", s.path),
		zap.Int("rows", len(table)))
	return nil
}

// Load reads the persisted table back. Consumers that only need the most
// recent row should use Latest.
func (s *CSVStore) Load() (model.MergedTable, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: missing header", s.path)
	}

	table := make(model.MergedTable, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec, err := parseCSVRecord(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.path, err)
		}
		table = append(table, rec)
	}
	return table, nil
}

// Latest returns the most recent persisted record.
func (s *CSVStore) Latest() (model.AlignedRecord, error) {
	table, err := s.Load()
	if err != nil {
		return model.AlignedRecord{}, err
	}
	latest, ok := table.Latest()
	if !ok {
		return model.AlignedRecord{}, fmt.Errorf("%s: no data rows", s.path)
	}
	return latest, nil
}

func parseCSVRecord(row []string) (model.AlignedRecord, error) {
	if len(row) != len(csvHeader) {
		return model.AlignedRecord{}, fmt.Errorf("malformed row: %d columns", len(row))
	}
	date, err := time.Parse(model.DateFormat, row[0])
	if err != nil {
		return model.AlignedRecord{}, fmt.Errorf("malformed date %q: %v", row[0], err)
	}
	values := make([]decimal.Decimal, len(row)-1)
	for i, raw := range row[1:] {
		if values[i], err = decimal.NewFromString(raw); err != nil {
			return model.AlignedRecord{}, fmt.Errorf("malformed value %q: %v", raw, err)
		}
	}
	return model.AlignedRecord{
		Date:      model.Day(date),
		ADRClose:  values[0],
		FXRate:    values[1],
		HomeClose: values[2],
		ADRInTWD:  values[3],
		Premium:   values[4],
	}, nil
}
