package cache

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/supermms/betfair-tips/internal/domain"
)

// csvHeader is the persisted column layout, shared by the file, S3, and
// Redis stores. The key column is stored redundantly with the rounded odds
// so the file stays greppable and diff-friendly.
var csvHeader = []string{"home_odd", "draw_odd", "away_odd", "back_result", "indicators_result", "key"}

// encodeCSV serializes records into the flat CSV document format. Absent
// prediction fields are written as empty cells; null-like sentinels never
// leave the serialization boundary in either direction.
func encodeCSV(records []domain.CacheRecord, precision int) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("cache: write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.FormatFloat(r.Triple.Home, 'f', precision, 64),
			strconv.FormatFloat(r.Triple.Draw, 'f', precision, 64),
			strconv.FormatFloat(r.Triple.Away, 'f', precision, 64),
			r.Prediction.Back,
			r.Prediction.Indicators,
			r.Key,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("cache: write record %s: %w", r.Key, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("cache: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeCSV parses a persisted cache document. Rows with unparseable odds
// are dropped rather than failing the whole load; sentinel strings in the
// result columns are collapsed to the empty string on the way in.
func decodeCSV(r io.Reader, precision int) ([]domain.CacheRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged historical rows

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cache: parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := columnIndex(rows[0])
	records := make([]domain.CacheRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec, ok := decodeRow(row, cols, precision)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}

func decodeRow(row []string, cols map[string]int, precision int) (domain.CacheRecord, bool) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	triple, key, err := domain.NormalizeOdds(
		field("home_odd"), field("draw_odd"), field("away_odd"), precision)
	if err != nil {
		return domain.CacheRecord{}, false
	}

	return domain.CacheRecord{
		Key:    key,
		Triple: triple,
		Prediction: domain.Prediction{
			Back:       domain.CleanText(field("back_result")),
			Indicators: domain.CleanText(field("indicators_result")),
		},
	}, true
}
