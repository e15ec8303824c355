package scoring

import (
	"sort"

	"github.com/ctfer-io/covalic/pkg/model"
)

// Entry is a ranked submission of a leaderboard.
type Entry struct {
	Rank       int               `json:"rank"`
	Submission *model.Submission `json:"submission"`
}

// Rank orders the scored submissions by overall score descending, then
// by creation date ascending, and ranks them with competition ranking:
// ties share a rank and the following rank is skipped.
// Unscored submissions are left out.
func Rank(subs []*model.Submission) []Entry {
	scored := make([]*model.Submission, 0, len(subs))
	for _, s := range subs {
		if s.Scored() {
			scored = append(scored, s)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if *a.OverallScore != *b.OverallScore {
			return *a.OverallScore > *b.OverallScore
		}
		return a.Created.Before(b.Created)
	})

	out := make([]Entry, len(scored))
	for i, s := range scored {
		rank := i + 1
		if i > 0 && *s.OverallScore == *scored[i-1].OverallScore {
			rank = out[i-1].Rank
		}
		out[i] = Entry{Rank: rank, Submission: s}
	}
	return out
}
