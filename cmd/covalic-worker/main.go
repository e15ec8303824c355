package main

import (
	"context"
	"net/http"
	"net/mail"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/jobs"
	"github.com/ctfer-io/covalic/pkg/worker"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
	BuiltBy = ""
)

func main() {
	cmd := &cli.Command{
		Name:  "Covalic-Worker",
		Usage: "Covalic-Worker runs the scoring jobs published on Kafka.",
		Flags: []cli.Flag{
			cli.VersionFlag,
			cli.HelpFlag,
			&cli.StringFlag{
				Name:     "log-level",
				Sources:  cli.EnvVars("LOG_LEVEL"),
				Category: "global",
				Value:    "info",
				Action: func(_ context.Context, _ *cli.Command, lvl string) error {
					_, err := zapcore.ParseLevel(lvl)
					return err
				},
				Destination: &global.Conf.LogLevel,
				Usage:       "Use to specify the level of logging.",
			},
			&cli.StringFlag{
				Name:      "scratch",
				Sources:   cli.EnvVars("SCRATCH"),
				Category:  "global",
				Value:     os.TempDir(),
				Usage:     "Define the directory job inputs are downloaded to.",
				TakesFile: true,
			},
			&cli.BoolFlag{
				Name:        "tracing",
				Sources:     cli.EnvVars("TRACING"),
				Category:    "otel",
				Destination: &global.Conf.Otel.Tracing,
				Usage:       "If set, turns on tracing through OpenTelemetry (see https://opentelemetry.io for more info).",
			},
			&cli.StringFlag{
				Name:        "service-name",
				Sources:     cli.EnvVars("OTEL_SERVICE_NAME"),
				Category:    "otel",
				Value:       "covalic-worker",
				Destination: &global.Conf.Otel.ServiceName,
				Usage:       "Override the service name. Useful when deploying multiple instances to filter signals.",
			},
			&cli.StringSliceFlag{
				Name:        "kafka.brokers",
				Sources:     cli.EnvVars("KAFKA_BROKERS"),
				Category:    "jobs",
				Required:    true,
				Destination: &global.Conf.Jobs.Kafka.Brokers,
				Usage:       "Define the Kafka brokers to consume jobs from.",
			},
			&cli.StringFlag{
				Name:        "kafka.topic",
				Sources:     cli.EnvVars("KAFKA_TOPIC"),
				Category:    "jobs",
				Value:       "covalic-jobs",
				Destination: &global.Conf.Jobs.Kafka.Topic,
				Usage:       "Define the Kafka topic to consume jobs from.",
			},
			&cli.StringFlag{
				Name:        "kafka.group-id",
				Sources:     cli.EnvVars("KAFKA_GROUP_ID"),
				Category:    "jobs",
				Value:       "covalic-workers",
				Destination: &global.Conf.Jobs.Kafka.GroupID,
				Usage:       "Define the consumer group workers share jobs within.",
			},
			&cli.StringFlag{
				Name:     "docker",
				Sources:  cli.EnvVars("DOCKER"),
				Category: "jobs",
				Value:    "docker",
				Usage:    "Define the Docker CLI binary to run scoring containers with.",
			},
			&cli.BoolFlag{
				Name:     "pull",
				Sources:  cli.EnvVars("PULL"),
				Category: "jobs",
				Value:    true,
				Usage:    "If set, pulls the scoring image before each run.",
			},
		},
		Action: run,
		Authors: []any{
			mail.Address{
				Name:    "Lucas Tesson - PandatiX",
				Address: "lucastesson@protonmail.com",
			},
		},
		Version: Version,
		Metadata: map[string]any{
			"version": Version,
			"commit":  Commit,
			"date":    Date,
			"builtBy": BuiltBy,
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

func run(ctx context.Context, cmd *cli.Command) (err error) {
	global.Version = Version

	otelShutdown, err := global.SetupOTelSDK(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, otelShutdown(context.WithoutCancel(ctx)))
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := jobs.NewKafkaSource(jobs.KafkaConfig{
		Brokers: global.Conf.Jobs.Kafka.Brokers,
		Topic:   global.Conf.Jobs.Kafka.Topic,
		GroupID: global.Conf.Jobs.Kafka.GroupID,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, src.Close())
	}()

	w := worker.New(worker.Options{
		Scratch: cmd.String("scratch"),
		Runner:  &worker.DockerRunner{Binary: cmd.String("docker"), Pull: cmd.Bool("pull")},
		Client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	})

	logger := global.Log()
	logger.Info(ctx, "consuming jobs",
		zap.Strings("brokers", global.Conf.Jobs.Kafka.Brokers),
		zap.String("topic", global.Conf.Jobs.Kafka.Topic),
		zap.String("group_id", global.Conf.Jobs.Kafka.GroupID),
	)
	if err := w.Run(ctx, src); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info(ctx, "shutting down gracefully")
	return nil
}
