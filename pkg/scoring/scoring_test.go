package scoring_test

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctfer-io/covalic/pkg/model"
	"github.com/ctfer-io/covalic/pkg/scoring"
)

func parseScore(t *testing.T, raw string) model.Score {
	var score model.Score
	require.NoError(t, json.Unmarshal([]byte(raw), &score))
	return score
}

func Test_U_ComputeAverageScores(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		Score    string
		Expected string
	}{
		"empty": {
			Score:    `[]`,
			Expected: `[{"dataset":"Average","metrics":[]}]`,
		},
		"numbers": {
			Score: `[
				{"dataset":"d1","metrics":[{"name":"dice","value":1},{"name":"hd","value":4}]},
				{"dataset":"d2","metrics":[{"name":"dice","value":0.5},{"name":"hd","value":2}]}
			]`,
			Expected: `[
				{"dataset":"Average","metrics":[{"name":"dice","value":0.75},{"name":"hd","value":3}]},
				{"dataset":"d1","metrics":[{"name":"dice","value":1},{"name":"hd","value":4}]},
				{"dataset":"d2","metrics":[{"name":"dice","value":0.5},{"name":"hd","value":2}]}
			]`,
		},
		"strings-and-nulls": {
			Score: `[
				{"dataset":"d1","metrics":[{"name":"a","value":"2"},{"name":"b","value":null},{"name":"c","value":"n/a"}]},
				{"dataset":"d2","metrics":[{"name":"a","value":4},{"name":"c","value":"NaN"}]}
			]`,
			Expected: `[
				{"dataset":"Average","metrics":[{"name":"a","value":3},{"name":"b","value":null},{"name":"c","value":null}]},
				{"dataset":"d1","metrics":[{"name":"a","value":"2"},{"name":"b","value":null},{"name":"c","value":"n/a"}]},
				{"dataset":"d2","metrics":[{"name":"a","value":4},{"name":"c","value":"NaN"}]}
			]`,
		},
		"replaces-average": {
			Score: `[
				{"dataset":"d1","metrics":[{"name":"a","value":1}]},
				{"dataset":"Average","metrics":[{"name":"a","value":42}]}
			]`,
			Expected: `[
				{"dataset":"Average","metrics":[{"name":"a","value":1}]},
				{"dataset":"d1","metrics":[{"name":"a","value":1}]}
			]`,
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()

			out := scoring.ComputeAverageScores(parseScore(t, tt.Score))

			b, err := json.Marshal(out)
			require.NoError(t, err)
			assert.JSONEq(t, tt.Expected, string(b))
		})
	}
}

func Test_U_ComputeOverallScore(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		Score    string
		Metrics  map[string]model.Metric
		Expected float64
	}{
		"no-average": {
			Score:    `[]`,
			Expected: 0,
		},
		"unweighted-mean": {
			Score:    `[{"dataset":"Average","metrics":[{"name":"a","value":1},{"name":"b","value":3},{"name":"c","value":null}]}]`,
			Expected: 2,
		},
		"weighted-sum": {
			Score: `[{"dataset":"Average","metrics":[{"name":"a","value":1},{"name":"b","value":3}]}]`,
			Metrics: map[string]model.Metric{
				"a": {Weight: 0.25},
				"b": {Weight: 0.5},
			},
			Expected: 1.75,
		},
		"weighted-ignores-unweighted": {
			Score: `[{"dataset":"Average","metrics":[{"name":"a","value":2},{"name":"b","value":100}]}]`,
			Metrics: map[string]model.Metric{
				"a": {Weight: 1},
				"b": {Title: "B"},
			},
			Expected: 2,
		},
		"all-null": {
			Score:    `[{"dataset":"Average","metrics":[{"name":"a","value":null}]}]`,
			Expected: 0,
		},
	}

	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()

			phase := &model.Phase{Metrics: tt.Metrics}
			out := scoring.ComputeOverallScore(parseScore(t, tt.Score), phase)

			assert.InDelta(t, tt.Expected, out, 1e-9)
		})
	}
}
