package money

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Money
	}{
		{"50.00", 5000},
		{"50", 5000},
		{"7.5", 750},
		{"0.07", 7},
		{"80.25", 8025},
		{"-1.25", -125},
		{" 19.75 ", 1975},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	for _, in := range []string{
		"", "abc", "1.234", "1..2", "1,50",
		// signs are only valid as a single leading character
		"5.-5", "--5.50", "+-2.00", "1-0", "1.+5", ".", "-",
	} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("Parse(%q) should fail", in)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, m := range []Money{0, 1, 99, 100, 8025, 1975, 123456789} {
		got, err := Parse(Format(m))
		if err != nil {
			t.Fatalf("round trip %d: %v", m, err)
		}
		if got != m {
			t.Fatalf("round trip %d = %d", m, got)
		}
	}
	if Format(-125) != "-1.25" {
		t.Fatalf("Format(-125) = %s", Format(-125))
	}
}

func TestPercentBps(t *testing.T) {
	if got := PercentBps(10000, 700); got != 700 {
		t.Fatalf("7%% of 100.00 = %d, want 700", got)
	}
	if got := PercentBps(7500, 700); got != 525 {
		t.Fatalf("7%% of 75.00 = %d, want 525", got)
	}
	if got := PercentBps(-100, 700); got != 0 {
		t.Fatalf("negative base should yield 0, got %d", got)
	}
}
