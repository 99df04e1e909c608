package matching

import "testing"

func TestSimilarityIdentityAndSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"Mehmet", "Mehmet"},
		{"Ayşe", "Ayse"},
		{"kitten", "sitting"},
		{"", "anything"},
	}
	for _, pair := range pairs {
		if got, want := Similarity(pair[0], pair[0]), 100; got != want {
			t.Fatalf("Similarity(%q, %q) = %d, want %d", pair[0], pair[0], got, want)
		}
		ab := Similarity(pair[0], pair[1])
		ba := Similarity(pair[1], pair[0])
		if ab != ba {
			t.Fatalf("Similarity not symmetric for %q/%q: %d vs %d", pair[0], pair[1], ab, ba)
		}
	}
}

func TestSimilarityEmptyInputs(t *testing.T) {
	if got := Similarity("", ""); got != 100 {
		t.Fatalf("Similarity of two empties = %d, want 100", got)
	}
	if got := Similarity("", "Mehmet"); got != 0 {
		t.Fatalf("Similarity against empty = %d, want 0", got)
	}
}

func TestSimilarityCaseInsensitiveShortCircuit(t *testing.T) {
	if got := Similarity("  MEHMET ", "mehmet"); got != 100 {
		t.Fatalf("case-insensitive equal inputs = %d, want 100", got)
	}
}

func TestSimilarityDistanceRatio(t *testing.T) {
	// kitten→sitting: distance 3, max length 7 → round(4/7*100) = 57.
	if got := Similarity("kitten", "sitting"); got != 57 {
		t.Fatalf("Similarity(kitten, sitting) = %d, want 57", got)
	}
}

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"yılmaz", "yilmaz", 1},
	}
	for _, tc := range cases {
		if got := Distance(tc.a, tc.b); got != tc.want {
			t.Fatalf("Distance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestNameSimilarityDiacriticInvariant(t *testing.T) {
	if got := NameSimilarity("Çağla", "Yılmaz", "cagla", "yilmaz"); got != 100 {
		t.Fatalf("diacritic variants should score 100, got %d", got)
	}
	if got := NameSimilarity("Mehmet", "Yılmaz", "Mehmet", "Yilmaz"); got != 100 {
		t.Fatalf("ASCII surname variant should score 100, got %d", got)
	}
}

func TestNameSimilarityWeightsSurnameHigher(t *testing.T) {
	// Same surname, different first name should outscore the reverse.
	sameLast := NameSimilarity("Mehmet", "Yılmaz", "Ahmet", "Yılmaz")
	sameFirst := NameSimilarity("Mehmet", "Yılmaz", "Mehmet", "Demir")
	if sameLast <= sameFirst {
		t.Fatalf("surname match should dominate: sameLast=%d sameFirst=%d", sameLast, sameFirst)
	}
}
