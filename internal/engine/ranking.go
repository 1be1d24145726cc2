package engine

import (
	"sort"

	"assessment-engine/internal/domain"
)

// Rank orders results into a merit list. Sort keys, in priority order:
// effective score descending, time taken ascending (faster wins ties),
// accuracy descending. User ID ascending is the final key so repeated
// ranking of the same result set is byte-stable.
//
// Ranks are dense and strictly increasing: exact ties still get distinct
// consecutive ranks (1,2,3,...), matching the existing leaderboard
// semantics downstream consumers depend on.
func Rank(results []domain.Result) []domain.MeritListEntry {
	ordered := make([]domain.Result, len(results))
	copy(ordered, results)

	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.EffectiveScore() != b.EffectiveScore() {
			return a.EffectiveScore() > b.EffectiveScore()
		}
		if a.TimeTakenSeconds != b.TimeTakenSeconds {
			return a.TimeTakenSeconds < b.TimeTakenSeconds
		}
		if a.Accuracy != b.Accuracy {
			return a.Accuracy > b.Accuracy
		}
		return a.UserID < b.UserID
	})

	entries := make([]domain.MeritListEntry, 0, len(ordered))
	for i, r := range ordered {
		entries = append(entries, domain.MeritListEntry{
			Rank:             i + 1,
			UserID:           r.UserID,
			TotalScore:       r.EffectiveScore(),
			Accuracy:         r.Accuracy,
			TimeTakenSeconds: r.TimeTakenSeconds,
		})
	}
	return entries
}
