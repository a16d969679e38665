package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/supermms/betfair-tips/internal/domain"
)

// Input and output column names, as produced by the upstream odds collector.
const (
	colDate   = "Date"
	colLeague = "League"
	colHome   = "Home"
	colAway   = "Away"
	colOddsH  = "Odd_Back_H"
	colOddsD  = "Odd_Back_D"
	colOddsA  = "Odd_Back_A"

	colBack       = "Back_Model"
	colIndicators = "Indicators_Model"
)

// LoadItems parses the daily fixtures CSV into work items. Rows whose odds
// cannot be normalized into a valid key are dropped with a warning rather
// than failing the run. maxRows <= 0 means no cap.
func LoadItems(ctx context.Context, r io.Reader, precision, maxRows int, logger *slog.Logger) ([]domain.WorkItem, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline: read input header: %w", err)
	}

	idx, err := columnIndex(header, colDate, colLeague, colHome, colAway, colOddsH, colOddsD, colOddsA)
	if err != nil {
		return nil, err
	}

	var items []domain.WorkItem
	line := 1
	for {
		if maxRows > 0 && len(items) >= maxRows {
			logger.WarnContext(ctx, "input truncated at row cap", slog.Int("max_rows", maxRows))
			break
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			logger.WarnContext(ctx, "skipping malformed input row",
				slog.Int("line", line),
				slog.String("error", err.Error()),
			)
			continue
		}

		triple, key, err := domain.NormalizeOdds(rec[idx[colOddsH]], rec[idx[colOddsD]], rec[idx[colOddsA]], precision)
		if err != nil {
			logger.WarnContext(ctx, "skipping row with unusable odds",
				slog.Int("line", line),
				slog.String("home", rec[idx[colHome]]),
				slog.String("away", rec[idx[colAway]]),
				slog.String("error", err.Error()),
			)
			continue
		}

		items = append(items, domain.WorkItem{
			Date:   strings.TrimSpace(rec[idx[colDate]]),
			League: strings.TrimSpace(rec[idx[colLeague]]),
			Home:   strings.TrimSpace(rec[idx[colHome]]),
			Away:   strings.TrimSpace(rec[idx[colAway]]),
			Triple: triple,
			Key:    key,
		})
	}

	return items, nil
}

// WriteResults writes the enriched fixtures as CSV: the input columns plus
// the two model predictions. Only rows handed to it are written; skipped
// fixtures never appear.
func WriteResults(w io.Writer, rows []domain.ResultRow, precision int) error {
	cw := csv.NewWriter(w)

	header := []string{colDate, colLeague, colHome, colAway, colOddsH, colOddsD, colOddsA, colBack, colIndicators}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("pipeline: write output header: %w", err)
	}

	for _, row := range rows {
		rec := []string{
			row.Date,
			row.League,
			row.Home,
			row.Away,
			formatOdd(row.Triple.Home, precision),
			formatOdd(row.Triple.Draw, precision),
			formatOdd(row.Triple.Away, precision),
			row.Prediction.Back,
			row.Prediction.Indicators,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("pipeline: write output row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("pipeline: flush output: %w", err)
	}
	return nil
}

func formatOdd(v float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, v)
}

// columnIndex maps required column names to their positions in the header,
// matching case-insensitively.
func columnIndex(header []string, required ...string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(strings.TrimSpace(h))] = i
	}

	idx := make(map[string]int, len(required))
	var missing []string
	for _, name := range required {
		i, ok := byName[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		idx[name] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("pipeline: input missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}
