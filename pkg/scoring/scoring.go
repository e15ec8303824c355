// Package scoring computes the aggregated scores of a submission out of
// the per-dataset metrics reported by a scoring task, and ranks the
// submissions of a phase.
package scoring

import (
	"github.com/ctfer-io/covalic/pkg/model"
)

// ComputeAverageScores returns the score with its Average dataset first.
// An existing Average dataset is replaced. Each metric, in first-seen
// order, averages the numeric values reported for it across datasets,
// or is null when none is numeric.
func ComputeAverageScores(score model.Score) model.Score {
	type acc struct {
		sum float64
		n   int
	}
	names := []string{}
	accs := map[string]*acc{}

	out := make(model.Score, 1, len(score)+1)
	for _, ds := range score {
		if ds.Dataset == model.AverageDataset {
			continue
		}
		out = append(out, ds)

		for _, m := range ds.Metrics {
			a, ok := accs[m.Name]
			if !ok {
				a = &acc{}
				accs[m.Name] = a
				names = append(names, m.Name)
			}
			if f, ok := m.Value.Float(); ok {
				a.sum += f
				a.n++
			}
		}
	}

	avg := model.DatasetScore{
		Dataset: model.AverageDataset,
		Metrics: make([]model.MetricValue, 0, len(names)),
	}
	for _, name := range names {
		mv := model.MetricValue{Name: name}
		if a := accs[name]; a.n != 0 {
			mv.Value = model.Number(a.sum / float64(a.n))
		}
		avg.Metrics = append(avg.Metrics, mv)
	}
	out[0] = avg
	return out
}

// Averages returns the metrics of the Average dataset, nil when absent.
func Averages(score model.Score) []model.MetricValue {
	for _, ds := range score {
		if ds.Dataset == model.AverageDataset {
			return ds.Metrics
		}
	}
	return nil
}

// ComputeOverallScore reduces the averages of a score to a single value.
// When the phase weights some metrics, it is the weighted sum of their
// averages. Otherwise it is the mean of every non-null average, 0 if none.
func ComputeOverallScore(score model.Score, phase *model.Phase) float64 {
	avgs := Averages(score)

	weighted := false
	total := 0.
	for _, mv := range avgs {
		metric, ok := phase.Metrics[mv.Name]
		if !ok || metric.Weight == 0 {
			continue
		}
		weighted = true
		if f, ok := mv.Value.Float(); ok {
			total += metric.Weight * f
		}
	}
	if weighted {
		return total
	}

	n := 0
	for _, mv := range avgs {
		if f, ok := mv.Value.Float(); ok {
			total += f
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
