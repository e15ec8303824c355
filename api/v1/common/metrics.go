package common

import (
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/ctfer-io/covalic/global"
)

var (
	challengesUDCounter     metric.Int64UpDownCounter
	challengesUDCounterOnce sync.Once

	phasesUDCounter     metric.Int64UpDownCounter
	phasesUDCounterOnce sync.Once

	submissionsUDCounter     metric.Int64UpDownCounter
	submissionsUDCounterOnce sync.Once

	scoringJobsCounter     metric.Int64Counter
	scoringJobsCounterOnce sync.Once
)

func ChallengesUDCounter() metric.Int64UpDownCounter {
	challengesUDCounterOnce.Do(func() {
		cnt, err := global.Meter.Int64UpDownCounter("challenges",
			metric.WithDescription("The number of registered challenges"),
		)
		if err != nil {
			panic(err)
		}
		challengesUDCounter = cnt
	})
	return challengesUDCounter
}

func PhasesUDCounter() metric.Int64UpDownCounter {
	phasesUDCounterOnce.Do(func() {
		cnt, err := global.Meter.Int64UpDownCounter("phases",
			metric.WithDescription("The number of registered challenge phases"),
		)
		if err != nil {
			panic(err)
		}
		phasesUDCounter = cnt
	})
	return phasesUDCounter
}

func SubmissionsUDCounter() metric.Int64UpDownCounter {
	submissionsUDCounterOnce.Do(func() {
		cnt, err := global.Meter.Int64UpDownCounter("submissions",
			metric.WithDescription("The number of registered submissions"),
		)
		if err != nil {
			panic(err)
		}
		submissionsUDCounter = cnt
	})
	return submissionsUDCounter
}

// ScoringJobsCounter counts the scoring jobs scheduled, rescoring included.
func ScoringJobsCounter() metric.Int64Counter {
	scoringJobsCounterOnce.Do(func() {
		cnt, err := global.Meter.Int64Counter("scoring_jobs",
			metric.WithDescription("The number of scheduled scoring jobs"),
		)
		if err != nil {
			panic(err)
		}
		scoringJobsCounter = cnt
	})
	return scoringJobsCounter
}
