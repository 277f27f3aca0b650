package core

import "testing"

func TestParseDecimalToFen(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"12.50", 1250, true},
		{"12,50", 1250, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 7.30 ", 730, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToFen(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestFormatYuan(t *testing.T) {
	cases := []struct {
		fen  int64
		want string
	}{
		{1980, "¥19.80"},
		{5, "¥0.05"},
		{0, "¥0.00"},
		{-1234, "-¥12.34"},
	}
	for _, tc := range cases {
		if got := FormatYuan(tc.fen); got != tc.want {
			t.Fatalf("FormatYuan(%d) = %q, want %q", tc.fen, got, tc.want)
		}
	}
}
