package sync

import "testing"

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSimilarityRatio(t *testing.T) {
	if got := similarityRatio("abc", "abc"); got != 1.0 {
		t.Fatalf("identical strings expected ratio 1.0, got %f", got)
	}
	if got := similarityRatio("", ""); got != 1.0 {
		t.Fatalf("two empty strings expected ratio 1.0, got %f", got)
	}
	if got := similarityRatio("abcd", "wxyz"); got != 0.0 {
		t.Fatalf("disjoint strings expected ratio 0.0, got %f", got)
	}

	long := "Add a nested comment explaining why this method is empty"
	if got := similarityRatio(long, long+"."); got < nearEqualThreshold {
		t.Fatalf("one-character edit expected to stay near-equal, got %f", got)
	}
	if a, b := similarityRatio("kitten", "sitting"), similarityRatio("sitting", "kitten"); a != b {
		t.Fatalf("ratio must be symmetric: %f vs %f", a, b)
	}
}
