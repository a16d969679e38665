package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultKeyPrecision is the number of decimals used when rounding odds into
// a cache key. A cache store is bound to a single precision for its lifetime;
// keys written under a different precision are simply never matched again.
const DefaultKeyPrecision = 2

// OddsTriple holds the three decimal back prices of a match outcome market.
type OddsTriple struct {
	Home float64
	Draw float64
	Away float64
}

// Less orders triples numerically by home, then draw, then away price. The
// cache uses it to keep persisted records in a deterministic order.
func (t OddsTriple) Less(o OddsTriple) bool {
	if t.Home != o.Home {
		return t.Home < o.Home
	}
	if t.Draw != o.Draw {
		return t.Draw < o.Draw
	}
	return t.Away < o.Away
}

// Key renders the triple as its canonical cache key at the given precision,
// e.g. "2.10-3.40-3.20". The triple must already be rounded; Key does not
// round again.
func (t OddsTriple) Key(precision int) string {
	return fmt.Sprintf("%.*f-%.*f-%.*f", precision, t.Home, precision, t.Draw, precision, t.Away)
}

// NormalizeOdds parses the three textual prices, rounds each to the given
// number of decimals, and returns the rounded triple together with its
// canonical key. Two inputs that round identically always yield an identical
// key, whatever their original textual form. Decimal commas are accepted.
//
// It returns ErrInvalidKey when any value is missing, not a number, not
// finite, or not positive. Callers treat that as "skip this item", never as
// a fatal condition.
func NormalizeOdds(home, draw, away string, precision int) (OddsTriple, string, error) {
	if precision < 0 {
		precision = DefaultKeyPrecision
	}

	vals := [3]float64{}
	for i, raw := range [3]string{home, draw, away} {
		v, err := parsePrice(raw)
		if err != nil {
			return OddsTriple{}, "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		vals[i] = roundTo(v, precision)
	}

	triple := OddsTriple{Home: vals[0], Draw: vals[1], Away: vals[2]}
	return triple, triple.Key(precision), nil
}

// parsePrice converts a textual price to a float64, tolerating a decimal
// comma. Non-finite and non-positive values are rejected.
func parsePrice(raw string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("price %q is not a number", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("price %q is not finite", raw)
	}
	if v <= 0 {
		return 0, fmt.Errorf("price %q is not positive", raw)
	}
	return v, nil
}

// roundTo rounds half away from zero at the given number of decimals.
func roundTo(v float64, precision int) float64 {
	shift := math.Pow(10, float64(precision))
	return math.Round(v*shift) / shift
}
