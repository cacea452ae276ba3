package scanner

import "github.com/Adithya-Monish-Kumar-K/textmatcher/internal/matcher"

// Merge combines per-batch match sets given in submission order. Each
// term's locations are appended batch by batch, so lists that are ascending
// within every batch come out ascending overall.
func Merge(sets []matcher.MatchSet) matcher.MatchSet {
	merged := make(matcher.MatchSet)
	for _, set := range sets {
		for term, locs := range set {
			merged[term] = append(merged[term], locs...)
		}
	}
	return merged
}
