package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"42.50", 4250, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", -100, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"4.25e1", 4250, true},
		{"0e999999999", 0, true},
		{"92233720368547758.07", 9223372036854775807, true},
		{"-92233720368547758.08", -9223372036854775808, true},
		{"92233720368547758.08", 0, false},
		{"100000000000000000000", 0, false},
		{"-100000000000000000000", 0, false},
		{"1e30", 0, false},
		{"1e999999999", 0, false},
		{"1e-999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseAmountLenient(t *testing.T) {
	if got := ParseAmountLenient("nope"); got.Cents != 0 {
		t.Fatalf("expected 0, got %d", got.Cents)
	}
	if got := ParseAmountLenient("12.5"); got.Cents != 1250 {
		t.Fatalf("expected 1250, got %d", got.Cents)
	}
	if got := ParseAmountLenient("100000000000000000000"); got.Cents != 0 {
		t.Fatalf("out-of-range amount should be 0, got %d", got.Cents)
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		4250: "42.5",
		4200: "42",
		5:    "0.05",
		0:    "0",
		-150: "-1.5",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyDisplay(t *testing.T) {
	if got := (Money{Cents: 4250}).Display("USD"); got != "$42.50" {
		t.Fatalf("Display = %q", got)
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		part, whole   int64
		want, capped int64
	}{
		{25000, 20000, 125, 100},
		{10000, 20000, 50, 50},
		{1, 300, 0, 0},
		{2, 300, 1, 1}, // 0.666 rounds up
		{500, 0, 0, 0},
	}
	for _, tc := range cases {
		p := Percent(Money{Cents: tc.part}, Money{Cents: tc.whole})
		c := CappedPercent(Money{Cents: tc.part}, Money{Cents: tc.whole})
		if p != tc.want || c != tc.capped {
			t.Fatalf("Percent(%d,%d) = %d/%d, want %d/%d", tc.part, tc.whole, p, c, tc.want, tc.capped)
		}
	}
}
