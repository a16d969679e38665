package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeOdds_RepresentationStable(t *testing.T) {
	tests := []struct {
		name string
		h    [2]string
		d    [2]string
		a    [2]string
	}{
		{"integers vs decimals", [2]string{"2", "2.00"}, [2]string{"2.0", "2"}, [2]string{"2", "2.0"}},
		{"trailing zeros", [2]string{"2.10", "2.1"}, [2]string{"3.40", "3.4"}, [2]string{"3.20", "3.2"}},
		{"decimal comma", [2]string{"2,10", "2.10"}, [2]string{"3,40", "3.40"}, [2]string{"3,20", "3.20"}},
		{"extra precision rounds same", [2]string{"2.004", "2.0"}, [2]string{"3.401", "3.399"}, [2]string{"3.2", "3.20"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, key1, err1 := NormalizeOdds(tt.h[0], tt.d[0], tt.a[0], 2)
			_, key2, err2 := NormalizeOdds(tt.h[1], tt.d[1], tt.a[1], 2)
			if err1 != nil || err2 != nil {
				t.Fatalf("unexpected errors: %v, %v", err1, err2)
			}
			if key1 != key2 {
				t.Errorf("keys differ: %q vs %q", key1, key2)
			}
		})
	}
}

func TestNormalizeOdds_Idempotent(t *testing.T) {
	_, key, err := NormalizeOdds("2.005", "1.995", "4.01", 2)
	if err != nil {
		t.Fatal(err)
	}

	// Feeding the canonical key components back through NormalizeOdds must
	// reproduce the key exactly.
	parts := strings.Split(key, "-")
	if len(parts) != 3 {
		t.Fatalf("malformed key %q", key)
	}
	_, rekey, err := NormalizeOdds(parts[0], parts[1], parts[2], 2)
	if err != nil {
		t.Fatal(err)
	}
	if rekey != key {
		t.Errorf("normalize not idempotent: first %q, second %q", key, rekey)
	}
}

func TestNormalizeOdds_Key(t *testing.T) {
	_, key, err := NormalizeOdds("2.10", "3.40", "3.20", 2)
	if err != nil {
		t.Fatal(err)
	}
	if key != "2.10-3.40-3.20" {
		t.Errorf("key = %q, want %q", key, "2.10-3.40-3.20")
	}
}

func TestNormalizeOdds_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		h, d, a string
	}{
		{"empty", "", "3.4", "3.2"},
		{"text", "abc", "3.4", "3.2"},
		{"zero", "2.1", "0", "3.2"},
		{"negative", "2.1", "3.4", "-1.5"},
		{"nan", "NaN", "3.4", "3.2"},
		{"inf", "2.1", "Inf", "3.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NormalizeOdds(tt.h, tt.d, tt.a, 2)
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("err = %v, want ErrInvalidKey", err)
			}
		})
	}
}

func TestOddsTriple_Less(t *testing.T) {
	a := OddsTriple{Home: 1.5, Draw: 4.0, Away: 6.0}
	b := OddsTriple{Home: 1.5, Draw: 4.2, Away: 5.0}
	if !a.Less(b) {
		t.Error("a should sort before b on draw price")
	}
	if b.Less(a) {
		t.Error("ordering must be asymmetric")
	}
}

func TestIsFilled(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"BACK OK", true},
		{"", false},
		{"   ", false},
		{"nan", false},
		{"NaN", false},
		{"NULL", false},
		{"None", false},
		{"0", true},
	}

	for _, tt := range tests {
		if got := IsFilled(tt.in); got != tt.want {
			t.Errorf("IsFilled(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
