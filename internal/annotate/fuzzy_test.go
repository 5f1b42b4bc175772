package annotate

import (
	"strings"
	"testing"
)

func TestMaxEditDistance(t *testing.T) {
	tests := []struct {
		name     string
		needle   string
		expected int
	}{
		{"short word floors at 1", "cat", 1},
		{"exactly ten runes", "abcdefghij", 1},
		{"forty runes", strings.Repeat("a", 40), 4},
		{"rounds up", strings.Repeat("a", 25), 3},
		{"rounds down", strings.Repeat("a", 24), 2},
		{"very long text ceilings at 100", strings.Repeat("a", 5000), 100},
		{"empty still allows one edit", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maxEditDistance(tt.needle); got != tt.expected {
				t.Errorf("maxEditDistance(len %d) = %d, expected %d", len(tt.needle), got, tt.expected)
			}
		})
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"", "abc", 3},
		{"abc", "", 3},
		{"same", "same", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			if got := levenshtein([]rune(tt.a), []rune(tt.b)); got != tt.expected {
				t.Errorf("levenshtein(%q, %q) = %d, expected %d", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestSimilarityRatio(t *testing.T) {
	if got := similarityRatio("same", "same"); got != 100 {
		t.Errorf("identical strings: ratio = %d, expected 100", got)
	}
	if got := similarityRatio("", ""); got != 100 {
		t.Errorf("empty strings: ratio = %d, expected 100", got)
	}
	if got := similarityRatio("abcd", "wxyz"); got != 0 {
		t.Errorf("disjoint strings: ratio = %d, expected 0", got)
	}
	// 1 edit over 10 runes leaves 90.
	if got := similarityRatio("abcdefghij", "abcdefghiX"); got != 90 {
		t.Errorf("one edit in ten: ratio = %d, expected 90", got)
	}
}

func TestFindNearMatchesExact(t *testing.T) {
	matches := findNearMatches("quick fox", "the quick fox jumps", 1)
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}
	var exact *fuzzyMatch
	for i := range matches {
		if matches[i].Dist == 0 {
			exact = &matches[i]
		}
	}
	if exact == nil {
		t.Fatalf("no zero-distance match among %v", matches)
	}
	if exact.Text != "quick fox" {
		t.Errorf("matched %q, expected %q", exact.Text, "quick fox")
	}
}

func TestFindNearMatchesWithTypo(t *testing.T) {
	// The page says "quikc" where the device exported "quick".
	matches := findNearMatches("the quick fox", "intro text the quikc fox outro", 2)
	if len(matches) == 0 {
		t.Fatal("expected a near match")
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Dist < best.Dist {
			best = m
		}
	}
	if best.Dist > 2 {
		t.Errorf("best distance = %d, expected at most 2", best.Dist)
	}
	if !strings.Contains(best.Text, "quikc fox") {
		t.Errorf("best match %q does not cover the typo span", best.Text)
	}
}

func TestFindNearMatchesCaseInsensitive(t *testing.T) {
	matches := findNearMatches("L0rem Ipsum", "begin l0rem ipsum end", 1)
	if len(matches) == 0 {
		t.Fatal("expected a case-folded match")
	}
	if matches[0].Dist != 0 {
		t.Errorf("distance = %d, expected 0 for pure case differences", matches[0].Dist)
	}
}

func TestFindNearMatchesBudgetExceeded(t *testing.T) {
	matches := findNearMatches("completely different words", "nothing here resembles it", 2)
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %v", matches)
	}
}

func TestFindNearMatchesEmptyInputs(t *testing.T) {
	if m := findNearMatches("", "haystack", 1); m != nil {
		t.Errorf("empty needle: expected nil, got %v", m)
	}
	if m := findNearMatches("needle", "", 1); m != nil {
		t.Errorf("empty haystack: expected nil, got %v", m)
	}
}

func TestStrokeColor(t *testing.T) {
	yellow := [3]float64{1.0, 1.0, 0.0}
	if strokeColor(0) != yellow {
		t.Error("code 0 should be yellow")
	}
	if strokeColor(3) != yellow {
		t.Error("code 3 should be yellow")
	}
	if strokeColor(4) != [3]float64{0.0, 1.0, 0.3} {
		t.Error("code 4 should be green")
	}
	if strokeColor(5) != [3]float64{1.0, 0.0, 0.7} {
		t.Error("code 5 should be pink")
	}
	if strokeColor(8) != [3]float64{0.6, 0.6, 0.6} {
		t.Error("code 8 should be grey")
	}
	if strokeColor(9) != yellow {
		t.Error("unknown codes should fall back to yellow")
	}
	if strokeColor(-1) != yellow {
		t.Error("negative codes should fall back to yellow")
	}
}
