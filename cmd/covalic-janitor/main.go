package main

import (
	"context"
	"net/mail"
	"os"
	"sync"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/client"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/model"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
	builtBy = ""
)

func main() {
	cmd := &cli.Command{
		Name:  "Covalic-Janitor",
		Usage: "Covalic-Janitor is an utility that fails stale scoring jobs and purges expired tokens.",
		Flags: []cli.Flag{
			cli.VersionFlag,
			cli.HelpFlag,
			&cli.StringFlag{
				Name:     "url",
				Sources:  cli.EnvVars("URL"),
				Required: true,
				Usage:    "The Covalic API URL to reach out, e.g. http://covalic:8080/api/v1.",
			},
			&cli.StringFlag{
				Name:     "token",
				Sources:  cli.EnvVars("TOKEN"),
				Required: true,
				Usage:    "An administrator token.",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Sources: cli.EnvVars("TIMEOUT"),
				Value:   24 * time.Hour,
				Usage:   "Define how long a job may stay queued or running without update.",
			},
		},
		Action: run,
		Authors: []any{
			mail.Address{
				Name:    "Lucas Tesson - PandatiX",
				Address: "lucastesson@protonmail.com",
			},
		},
		Version: version,
		Metadata: map[string]any{
			"version": version,
			"commit":  commit,
			"date":    date,
			"builtBy": builtBy,
		},
	}

	ctx := context.Background()
	if err := cmd.Run(ctx, os.Args); err != nil {
		global.Log().Error(ctx, "fatal error",
			zap.Error(err),
		)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger := global.Log()

	cli := client.New(cmd.String("url"), client.WithToken(cmd.String("token")))
	timeout := cmd.Duration("timeout")

	// Janitor stale jobs
	for _, status := range []model.JobStatus{model.JobQueued, model.JobRunning} {
		js, err := cli.ListJobs(ctx, status, timeout)
		if err != nil {
			return err
		}

		wg := &sync.WaitGroup{}
		for _, job := range js {
			ctx := global.WithJobID(ctx, job.ID)
			logger.Info(ctx, "janitoring job",
				zap.Stringer("status", job.Status),
				zap.Time("updated", job.Updated),
			)
			wg.Add(1)

			go func(job *model.Job) {
				defer wg.Done()

				st := model.JobError
				if _, err := cli.UpdateJob(ctx, job.ID, client.JobUpdate{
					Status: &st,
					Log:    "Job timed out after " + timeout.String() + " without update.\n",
				}); err != nil {
					logger.Error(ctx, "failing stale job",
						zap.Error(err),
					)
				}
			}(job)
		}
		wg.Wait()
	}

	// Purge expired tokens
	res, err := cli.PurgeExpiredTokens(ctx)
	if err != nil {
		return err
	}
	logger.Info(ctx, "purged expired tokens", zap.Int("removed", res.Removed))
	return nil
}
