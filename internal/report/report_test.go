package report

import (
	"strings"
	"testing"

	"github.com/supermms/betfair-tips/internal/domain"
)

func row(home, away string, h, d, a float64, back, ind string) domain.ResultRow {
	return domain.ResultRow{
		WorkItem: domain.WorkItem{
			Date:   "2026-08-23",
			League: "E0",
			Home:   home,
			Away:   away,
			Triple: domain.OddsTriple{Home: h, Draw: d, Away: a},
		},
		Prediction: domain.Prediction{Back: back, Indicators: ind},
	}
}

func TestRender_IncludesRowsAndOdds(t *testing.T) {
	var buf strings.Builder
	rows := []domain.ResultRow{
		row("Arsenal", "Chelsea", 1.85, 3.6, 4.2, "Back Home", "Strong"),
		row("Leeds", "Everton", 2.5, 3.2, 2.9, "Back Away", "Weak"),
	}
	if err := Render(&buf, "2026-08-23", rows); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"Predictions for 2026-08-23",
		"2 fixtures",
		"Arsenal", "Chelsea", "1.85", "3.60", "4.20",
		"Back Home", "Strong",
		"Leeds", "Back Away",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
}

func TestRender_EscapesHTML(t *testing.T) {
	var buf strings.Builder
	rows := []domain.ResultRow{row("<script>x</script>", "Away", 2, 3, 4, "b", "i")}
	if err := Render(&buf, "2026-08-23", rows); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "<script>x</script>") {
		t.Error("team names must be HTML-escaped")
	}
}

func TestRender_MissingPredictionShowsPlaceholder(t *testing.T) {
	var buf strings.Builder
	rows := []domain.ResultRow{row("H", "A", 2, 3, 4, "", "")}
	if err := Render(&buf, "2026-08-23", rows); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "n/a") {
		t.Error("empty prediction fields should render as n/a")
	}
}
