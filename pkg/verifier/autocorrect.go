package verifier

import "strings"

// Overlap returns the percentage of the runes of wrong that occur anywhere in
// candidate. An empty wrong token scores 0.
func Overlap(candidate, wrong string) float64 {
	runes := []rune(wrong)
	if len(runes) == 0 {
		return 0
	}
	hits := 0
	for _, r := range runes {
		if strings.ContainsRune(candidate, r) {
			hits++
		}
	}
	return float64(hits) * 100 / float64(len(runes))
}

// AutoCorrect picks the vocabulary entry closest to wrong. It starts at
// threshold percent and lowers it by step until some entry qualifies. It
// returns false when nothing qualifies even at 0.
func AutoCorrect(wrong string, vocab []string, threshold, step int) (string, bool) {
	if step <= 0 {
		step = 1
	}

	for t := threshold; t >= 0; t -= step {
		var candidates []string
		for _, word := range vocab {
			if Overlap(word, wrong) >= float64(t) {
				candidates = append(candidates, word)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		for _, c := range candidates {
			if strings.Contains(c, wrong) || strings.HasPrefix(c, wrong) || strings.HasSuffix(c, wrong) {
				return c, true
			}
		}
		return candidates[0], true
	}
	return "", false
}
