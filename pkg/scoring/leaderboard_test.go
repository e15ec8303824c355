package scoring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ctfer-io/covalic/pkg/model"
	"github.com/ctfer-io/covalic/pkg/scoring"
)

func sub(id string, score *float64, created int) *model.Submission {
	return &model.Submission{
		ID:           id,
		OverallScore: score,
		Created:      time.Unix(int64(created), 0),
	}
}

func ptr(f float64) *float64 {
	return &f
}

func Test_U_Rank(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		Submissions []*model.Submission
		ExpectedIDs []string
		ExpectedRks []int
	}{
		"empty": {
			Submissions: nil,
			ExpectedIDs: []string{},
			ExpectedRks: []int{},
		},
		"competition-ranking": {
			Submissions: []*model.Submission{
				sub("c", ptr(0.5), 3),
				sub("a", ptr(0.9), 1),
				sub("b", ptr(0.9), 2),
				sub("d", ptr(0.1), 4),
			},
			ExpectedIDs: []string{"a", "b", "c", "d"},
			ExpectedRks: []int{1, 1, 3, 4},
		},
		"tie-broken-by-date": {
			Submissions: []*model.Submission{
				sub("late", ptr(1), 10),
				sub("early", ptr(1), 5),
			},
			ExpectedIDs: []string{"early", "late"},
			ExpectedRks: []int{1, 1},
		},
		"unscored-excluded": {
			Submissions: []*model.Submission{
				sub("pending", nil, 1),
				sub("done", ptr(0), 2),
			},
			ExpectedIDs: []string{"done"},
			ExpectedRks: []int{1},
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()

			out := scoring.Rank(tt.Submissions)

			ids := []string{}
			rks := []int{}
			for _, e := range out {
				ids = append(ids, e.Submission.ID)
				rks = append(rks, e.Rank)
			}
			assert.Equal(t, tt.ExpectedIDs, ids)
			assert.Equal(t, tt.ExpectedRks, rks)
		})
	}
}
