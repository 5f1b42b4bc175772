package annotate

import "math"

// fuzzyMatch is one approximate occurrence of a needle inside a larger text.
type fuzzyMatch struct {
	Start, End int // rune offsets into the haystack
	Dist       int
	Text       string
}

// maxEditDistance is the edit budget for a needle: 10% of its length,
// floored at 1 and ceilinged at 100.
func maxEditDistance(needle string) int {
	n := int(math.Round(0.1 * float64(len([]rune(needle)))))
	if n < 1 {
		return 1
	}
	if n > 100 {
		return 100
	}
	return n
}

// similarityRatio is a normalized edit similarity on a 0–100 scale, used only
// to rank candidate matches, never as the acceptance threshold.
func similarityRatio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	if longer == 0 {
		return 100
	}
	dist := levenshtein(ra, rb)
	return int(math.Round(100 * float64(longer-dist) / float64(longer)))
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// findNearMatches locates substrings of haystack within maxDist edits of
// needle, using the bounded approximate substring variant of the edit
// distance DP: match starts are free, so column j of the matrix is the
// cheapest way to consume the whole needle ending at haystack position j.
func findNearMatches(needle, haystack string, maxDist int) []fuzzyMatch {
	n := []rune(needle)
	h := []rune(haystack)
	if len(n) == 0 || len(h) == 0 {
		return nil
	}

	// dp[i][j]: min edits matching needle[:i] against a substring of
	// haystack ending at j.
	dp := make([][]int, len(n)+1)
	for i := range dp {
		dp[i] = make([]int, len(h)+1)
		dp[i][0] = i
	}
	for i := 1; i <= len(n); i++ {
		for j := 1; j <= len(h); j++ {
			cost := 1
			if foldEq(n[i-1], h[j-1]) {
				cost = 0
			}
			dp[i][j] = min3(dp[i-1][j]+1, dp[i][j-1]+1, dp[i-1][j-1]+cost)
		}
	}

	var out []fuzzyMatch
	last := dp[len(n)]
	for j := 1; j <= len(h); j++ {
		if last[j] > maxDist {
			continue
		}
		// Keep local minima only: a run of qualifying end positions
		// describes one underlying match.
		if j < len(h) && last[j+1] <= last[j] {
			continue
		}
		start := traceStart(dp, n, h, j)
		out = append(out, fuzzyMatch{
			Start: start,
			End:   j,
			Dist:  last[j],
			Text:  string(h[start:j]),
		})
	}
	return out
}

// traceStart walks the DP matrix back from an end position to the start of
// the matched substring.
func traceStart(dp [][]int, n, h []rune, end int) int {
	i, j := len(n), end
	for i > 0 {
		switch {
		case j > 0 && dp[i][j] == dp[i-1][j-1]+diffCost(n[i-1], h[j-1]):
			i--
			j--
		case dp[i][j] == dp[i-1][j]+1:
			i--
		case j > 0 && dp[i][j] == dp[i][j-1]+1:
			j--
		default:
			i--
		}
	}
	return j
}

func diffCost(a, b rune) int {
	if foldEq(a, b) {
		return 0
	}
	return 1
}

func foldEq(a, b rune) bool {
	if a == b {
		return true
	}
	if 'A' <= a && a <= 'Z' {
		a += 'a' - 'A'
	}
	if 'A' <= b && b <= 'Z' {
		b += 'a' - 'A'
	}
	return a == b
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
