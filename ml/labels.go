package ml

import (
	"sort"
	"strconv"
)

// SortLabels returns the distinct labels in order: numerically when every
// label parses as a number, lexicographically otherwise.
func SortLabels(labels ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, group := range labels {
		for _, l := range group {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}

	numbers := make(map[string]float64, len(out))
	numeric := true
	for _, l := range out {
		f, err := strconv.ParseFloat(l, 64)
		if err != nil {
			numeric = false
			break
		}
		numbers[l] = f
	}
	if numeric {
		sort.SliceStable(out, func(i, j int) bool {
			if numbers[out[i]] != numbers[out[j]] {
				return numbers[out[i]] < numbers[out[j]]
			}
			return out[i] < out[j]
		})
	} else {
		sort.Strings(out)
	}
	return out
}

// NumericLabels reports whether every label parses as a number.
func NumericLabels(labels []string) bool {
	for _, l := range labels {
		if _, err := strconv.ParseFloat(l, 64); err != nil {
			return false
		}
	}
	return len(labels) > 0
}

func labelIndex(classes []string) map[string]int {
	idx := make(map[string]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return idx
}
