package domain

import "strings"

// Prediction is the pair of free-text model outputs produced by one form
// submission: the Back Model alert and the Indicators Model alert.
type Prediction struct {
	Back       string
	Indicators string
}

// Complete reports whether both texts carry a real value. Inside the core an
// absent value is always the empty string; sentinel strings only exist at
// serialization boundaries (see IsFilled).
func (p Prediction) Complete() bool {
	return p.Back != "" && p.Indicators != ""
}

// IsFilled reports whether a boundary string carries a real value. The
// upstream form and the persisted CSV both use null-like sentinels for
// "no value"; those count as absent, case-insensitively.
func IsFilled(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "null", "none":
		return false
	}
	return true
}

// CleanText trims a boundary string and collapses null-like sentinels to the
// empty string, the core's only representation of absence.
func CleanText(s string) string {
	if !IsFilled(s) {
		return ""
	}
	return strings.TrimSpace(s)
}
