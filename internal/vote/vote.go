// Package vote reduces a set of candidate answers to one by majority vote.
package vote

import "strings"

// Count is the number of candidates sharing one normalized form.
type Count struct {
	Key   string `json:"answer"`
	Count int    `json:"count"`
}

// Normalize is the comparison form of a candidate: lowercased with leading
// and trailing whitespace removed. It is never returned as an answer.
func Normalize(candidate string) string {
	return strings.ToLower(strings.TrimSpace(candidate))
}

// Tally counts candidates by normalized form, in order of first appearance.
func Tally(candidates []string) []Count {
	index := make(map[string]int, len(candidates))
	var counts []Count
	for _, c := range candidates {
		key := Normalize(c)
		if i, ok := index[key]; ok {
			counts[i].Count++
			continue
		}
		index[key] = len(counts)
		counts = append(counts, Count{Key: key, Count: 1})
	}
	return counts
}

// Majority returns the most frequent candidate, compared by normalized form.
// Ties go to the form that was seen first. The returned string is the first
// candidate with the winning form, exactly as it appeared in the input.
// An empty input yields "".
func Majority(candidates []string) string {
	counts := Tally(candidates)
	if len(counts) == 0 {
		return ""
	}

	// Scan in first-seen order; only a strictly larger count displaces the
	// current winner.
	winner, best := "", -1
	for _, c := range counts {
		if c.Count > best {
			winner, best = c.Key, c.Count
		}
	}

	for _, c := range candidates {
		if Normalize(c) == winner {
			return c
		}
	}
	return candidates[0]
}
