package verify

// levenshtein computes the edit distance between two strings over runes.
// Two rows of the DP table are kept; inputs here are citation-sized.
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
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// similarity is the normalized edit-distance similarity of two strings:
// 1 - distance/maxLen, in [0,1].
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein(ra, rb)
	return 1 - float64(dist)/float64(maxLen)
}

// bestWindowSimilarity slides substrings of comparable length to the quote
// across the window and returns the highest similarity found. Comparable
// means within one character of the quote length, so a single insertion or
// deletion inside the quote still aligns.
func bestWindowSimilarity(quote, window string) float64 {
	q := []rune(quote)
	w := []rune(window)
	if len(q) == 0 || len(w) == 0 {
		return 0
	}

	best := 0.0
	for _, length := range []int{len(q) - 1, len(q), len(q) + 1} {
		if length <= 0 || length > len(w) {
			continue
		}
		for start := 0; start+length <= len(w); start++ {
			sim := similarity(string(q), string(w[start:start+length]))
			if sim > best {
				best = sim
				if best == 1 {
					return best
				}
			}
		}
	}

	// Window shorter than the quote: compare whole window directly.
	if len(w) < len(q)-1 {
		if sim := similarity(quote, window); sim > best {
			best = sim
		}
	}
	return best
}
