package matching

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  Mehmet  ", "mehmet"},
		{"Çağla", "cagla"},
		{"YILMAZ", "yilmaz"},
		{"İstanbul", "istanbul"},
		{"ŞÖĞÜÇI", "soguci"},
		{"gülşen öztürk", "gulsen ozturk"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"0555 123 45 67", "5551234567"},
		{"(0212) 555-44-33", "2125554433"},
		{"+905551234567", "5551234567"},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizePhoneEquivalence(t *testing.T) {
	// International and local trunk forms of the same number must collapse to
	// the same canonical string for the fallback comparison to catch them.
	a := NormalizePhone("+90 555 123 45 67")
	b := NormalizePhone("05551234567")
	if a != b {
		t.Fatalf("equivalent numbers normalize differently: %q vs %q", a, b)
	}
}
