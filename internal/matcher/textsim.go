package matcher

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Similarity scores two free-text descriptions in [0,1] using the selected
// algorithm. Inputs are lower-cased and whitespace-trimmed first so the
// strategies agree on normalization.
func Similarity(algorithm SimilarityAlgorithm, s1, s2 string) float64 {
	s1 = strings.ToLower(strings.TrimSpace(s1))
	s2 = strings.ToLower(strings.TrimSpace(s2))

	switch algorithm {
	case SimilarityJaccard:
		return jaccardSimilarity(s1, s2)
	case SimilarityLevenshtein:
		return levenshteinSimilarity(s1, s2)
	case SimilarityJaroWinkler:
		return jaroWinklerSimilarity(s1, s2)
	case SimilarityComposite:
		return compositeSimilarity(s1, s2)
	default:
		return 0
	}
}

// jaccardSimilarity is |A∩B| / |A∪B| over word sets, 0 if either side is empty
func jaccardSimilarity(s1, s2 string) float64 {
	words1 := strings.Fields(s1)
	words2 := strings.Fields(s2)
	if len(words1) == 0 || len(words2) == 0 {
		return 0
	}

	set1 := make(map[string]struct{}, len(words1))
	for _, w := range words1 {
		set1[w] = struct{}{}
	}
	set2 := make(map[string]struct{}, len(words2))
	for _, w := range words2 {
		set2[w] = struct{}{}
	}

	intersection := 0
	for w := range set1 {
		if _, ok := set2[w]; ok {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}

// levenshteinSimilarity is 1 - editDistance/maxLen, 1.0 when both are empty
func levenshteinSimilarity(s1, s2 string) float64 {
	r1 := []rune(s1)
	r2 := []rune(s2)

	maxLen := len(r1)
	if len(r2) > maxLen {
		maxLen = len(r2)
	}
	if maxLen == 0 {
		return 1.0
	}

	distance := levenshtein.DistanceForStrings(r1, r2, levenshtein.DefaultOptions)
	return 1.0 - float64(distance)/float64(maxLen)
}

// jaroWinklerSimilarity is the standard Jaro-Winkler similarity with the
// usual prefix scale of 0.1 over at most 4 common leading characters.
func jaroWinklerSimilarity(s1, s2 string) float64 {
	jaro := jaroSimilarity([]rune(s1), []rune(s2))
	if jaro == 0 {
		return 0
	}

	prefix := 0
	r1 := []rune(s1)
	r2 := []rune(s2)
	for prefix < len(r1) && prefix < len(r2) && prefix < 4 && r1[prefix] == r2[prefix] {
		prefix++
	}

	return jaro + 0.1*float64(prefix)*(1.0-jaro)
}

func jaroSimilarity(r1, r2 []rune) float64 {
	if len(r1) == 0 && len(r2) == 0 {
		return 1.0
	}
	if len(r1) == 0 || len(r2) == 0 {
		return 0
	}

	matchWindow := len(r1)
	if len(r2) > matchWindow {
		matchWindow = len(r2)
	}
	matchWindow = matchWindow/2 - 1
	if matchWindow < 0 {
		matchWindow = 0
	}

	matched1 := make([]bool, len(r1))
	matched2 := make([]bool, len(r2))

	matches := 0
	for i := range r1 {
		low := i - matchWindow
		if low < 0 {
			low = 0
		}
		high := i + matchWindow
		if high >= len(r2) {
			high = len(r2) - 1
		}
		for j := low; j <= high; j++ {
			if matched2[j] || r1[i] != r2[j] {
				continue
			}
			matched1[i] = true
			matched2[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0
	for i := range r1 {
		if !matched1[i] {
			continue
		}
		for !matched2[j] {
			j++
		}
		if r1[i] != r2[j] {
			transpositions++
		}
		j++
	}
	transpositions /= 2

	m := float64(matches)
	return (m/float64(len(r1)) + m/float64(len(r2)) + (m-float64(transpositions))/m) / 3.0
}

// compositeSimilarity blends the base algorithms by taking their maximum.
// Bank labels are short and noisy; whichever view of similarity fires
// strongest is the one a human reviewer would recognize.
func compositeSimilarity(s1, s2 string) float64 {
	best := jaccardSimilarity(s1, s2)
	if v := levenshteinSimilarity(s1, s2); v > best {
		best = v
	}
	if v := jaroWinklerSimilarity(s1, s2); v > best {
		best = v
	}
	return best
}
