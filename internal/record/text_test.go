package record

import (
	"math"
	"testing"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-42, "-42"},
		{0.1, "0.1"},
		{2.5, "2.5"},
		{1.0 / 3, "0.333333333333333"},
		{123456789012345678, "1.23456789012346E+17"},
		{1e20, "1E+20"},
		{1.5e-7, "1.5E-07"},
		{math.NaN(), "#NUM!"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	euro := Separators{Decimal: ',', Group: '.'}
	tests := []struct {
		in   string
		sep  Separators
		want float64
		ok   bool
	}{
		{"42", DefaultSeparators, 42, true},
		{"  -3.5 ", DefaultSeparators, -3.5, true},
		{"1,234.5", DefaultSeparators, 1234.5, true},
		{"1e3", DefaultSeparators, 1000, true},
		{"50%", DefaultSeparators, 0.5, true},
		{"1.234,5", euro, 1234.5, true},
		{"3,25", euro, 3.25, true},
		{"", DefaultSeparators, 0, false},
		{"abc", DefaultSeparators, 0, false},
		{"1.2.3", DefaultSeparators, 0, false},
		{"0x10", DefaultSeparators, 0, false},
		{"inf", DefaultSeparators, 0, false},
		{"NaN", DefaultSeparators, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in, tt.sep)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"TRUE": true, "false": false, " True ": true} {
		got, ok := ParseBool(in)
		if !ok || got != want {
			t.Errorf("ParseBool(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseBool("yes"); ok {
		t.Error("ParseBool(yes) accepted")
	}
}

func TestUnits(t *testing.T) {
	u := StringToUnits("a😀")
	if len(u) != 3 {
		t.Fatalf("units = %v", u)
	}
	if UnitsToString(u) != "a😀" {
		t.Error("round trip failed")
	}
}
