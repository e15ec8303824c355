package main

import (
	"context"
	"net/http"
	"net/mail"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/jobs"
	"github.com/ctfer-io/covalic/pkg/store"
	"github.com/ctfer-io/covalic/pkg/worker"
	"github.com/ctfer-io/covalic/server"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
	BuiltBy = ""
)

func main() {
	cmd := &cli.Command{
		Name:  "Covalic",
		Usage: "Medical imaging challenges, their phases, submissions and leaderboards.",
		Flags: []cli.Flag{
			cli.VersionFlag,
			cli.HelpFlag,
			&cli.IntFlag{
				Name:     "port",
				Aliases:  []string{"p"},
				Sources:  cli.EnvVars("PORT"),
				Category: "global",
				Value:    8080,
				Usage:    "Define the API server port to listen on.",
			},
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Sources:     cli.EnvVars("DIR"),
				Category:    "global",
				Value:       "/tmp/covalic",
				Destination: &global.Conf.Directory,
				Usage:       "Define the volume to store documents, assets and scratch directories to.",
				TakesFile:   true,
			},
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
				Name:        "api-url",
				Sources:     cli.EnvVars("API_URL"),
				Category:    "global",
				Destination: &global.Conf.APIURL,
				Usage:       "Override the API root URL given to scoring workers. Derived from requests when empty.",
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
				Value:       "covalic",
				Destination: &global.Conf.Otel.ServiceName,
				Usage:       "Override the service name. Useful when deploying multiple instances to filter signals.",
			},
			&cli.StringFlag{
				Name:        "store.driver",
				Sources:     cli.EnvVars("STORE_DRIVER"),
				Category:    "store",
				Value:       "fs",
				Destination: &global.Conf.Store.Driver,
				Usage:       "Define the document store driver: fs, sqlite or postgres.",
				Action: func(_ context.Context, _ *cli.Command, drv string) error {
					switch drv {
					case "fs", "sqlite", "postgres":
						return nil
					}
					return errors.Errorf("unsupported store driver %q", drv)
				},
			},
			&cli.StringFlag{
				Name:        "store.dsn",
				Sources:     cli.EnvVars("STORE_DSN"),
				Category:    "store",
				Destination: &global.Conf.Store.DSN,
				Usage:       "Define the data source name of SQL stores. Defaults to a SQLite file in the directory.",
			},
			&cli.StringFlag{
				Name:        "lock.kind",
				Sources:     cli.EnvVars("LOCK_KIND"),
				Category:    "lock",
				Value:       "local",
				Destination: &global.Conf.Lock.Kind,
				Usage:       "Define the lock kind to use: local for a single replica, etcd for a cluster.",
				Action: func(_ context.Context, cmd *cli.Command, kind string) error {
					switch kind {
					case "local":
						return nil
					case "etcd":
						if len(cmd.StringSlice("etcd.endpoints")) == 0 {
							return errors.New("etcd lock requires at least one endpoint")
						}
						return nil
					}
					return errors.Errorf("unsupported lock kind %q", kind)
				},
			},
			&cli.StringSliceFlag{
				Name:        "etcd.endpoints",
				Sources:     cli.EnvVars("ETCD_ENDPOINTS"),
				Category:    "lock",
				Destination: &global.Conf.Lock.EtcdEndpoints,
				Usage:       "Define the etcd endpoints to reach for locks.",
			},
			&cli.StringFlag{
				Name:        "etcd.username",
				Sources:     cli.EnvVars("ETCD_USERNAME"),
				Category:    "lock",
				Destination: &global.Conf.Lock.EtcdUsername,
				Usage:       "If lock is etcd, define the username to use to connect to the etcd cluster.",
			},
			&cli.StringFlag{
				Name:        "etcd.password",
				Sources:     cli.EnvVars("ETCD_PASSWORD"),
				Category:    "lock",
				Destination: &global.Conf.Lock.EtcdPassword,
				Usage:       "If lock is etcd, define the password to use to connect to the etcd cluster.",
			},
			&cli.StringFlag{
				Name:        "auth.secret",
				Sources:     cli.EnvVars("AUTH_SECRET"),
				Category:    "auth",
				Required:    true,
				Destination: &global.Conf.Auth.Secret,
				Usage:       "Define the secret tokens are signed with.",
			},
			&cli.DurationFlag{
				Name:        "auth.token-ttl",
				Sources:     cli.EnvVars("AUTH_TOKEN_TTL"),
				Category:    "auth",
				Value:       180 * 24 * time.Hour,
				Destination: &global.Conf.Auth.TokenTTL,
				Usage:       "Define the lifetime of login tokens.",
			},
			&cli.StringFlag{
				Name:        "admin.login",
				Sources:     cli.EnvVars("ADMIN_LOGIN"),
				Category:    "auth",
				Destination: &global.Conf.Admin.Login,
				Usage:       "If set along a password, creates this administrator on an empty store.",
			},
			&cli.StringFlag{
				Name:        "admin.email",
				Sources:     cli.EnvVars("ADMIN_EMAIL"),
				Category:    "auth",
				Destination: &global.Conf.Admin.Email,
				Usage:       "Define the bootstrapped administrator email.",
			},
			&cli.StringFlag{
				Name:        "admin.password",
				Sources:     cli.EnvVars("ADMIN_PASSWORD"),
				Category:    "auth",
				Destination: &global.Conf.Admin.Password,
				Usage:       "Define the bootstrapped administrator password.",
			},
			&cli.StringFlag{
				Name:        "scoring.user-id",
				Sources:     cli.EnvVars("SCORING_USER_ID"),
				Category:    "scoring",
				Destination: &global.Conf.Scoring.UserID,
				Usage:       "Define the user scoring jobs run on behalf of.",
			},
			&cli.StringFlag{
				Name:        "scoring.default-image",
				Sources:     cli.EnvVars("SCORING_DEFAULT_IMAGE"),
				Category:    "scoring",
				Destination: &global.Conf.Scoring.DefaultImage,
				Usage:       "Override the scoring image used by phases that do not define one.",
			},
			&cli.DurationFlag{
				Name:        "scoring.token-ttl",
				Sources:     cli.EnvVars("SCORING_TOKEN_TTL"),
				Category:    "scoring",
				Value:       7 * 24 * time.Hour,
				Destination: &global.Conf.Scoring.TokenTTL,
				Usage:       "Define the lifetime of scoring job tokens.",
			},
			&cli.StringFlag{
				Name:        "jobs.kind",
				Sources:     cli.EnvVars("JOBS_KIND"),
				Category:    "jobs",
				Value:       "local",
				Destination: &global.Conf.Jobs.Kind,
				Usage:       "Define how scoring jobs are scheduled: local to embedded workers, kafka to remote ones.",
				Action: func(_ context.Context, cmd *cli.Command, kind string) error {
					switch kind {
					case "local":
						return nil
					case "kafka":
						if len(cmd.StringSlice("kafka.brokers")) == 0 {
							return errors.New("kafka jobs require at least one broker")
						}
						return nil
					}
					return errors.Errorf("unsupported jobs kind %q", kind)
				},
			},
			&cli.IntFlag{
				Name:        "workers",
				Sources:     cli.EnvVars("WORKERS"),
				Category:    "jobs",
				Value:       1,
				Destination: &global.Conf.Jobs.Workers,
				Usage:       "If jobs are local, define the number of embedded scoring workers.",
			},
			&cli.StringSliceFlag{
				Name:        "kafka.brokers",
				Sources:     cli.EnvVars("KAFKA_BROKERS"),
				Category:    "jobs",
				Destination: &global.Conf.Jobs.Kafka.Brokers,
				Usage:       "Define the Kafka brokers jobs are published to.",
			},
			&cli.StringFlag{
				Name:        "kafka.topic",
				Sources:     cli.EnvVars("KAFKA_TOPIC"),
				Category:    "jobs",
				Value:       "covalic-jobs",
				Destination: &global.Conf.Jobs.Kafka.Topic,
				Usage:       "Define the Kafka topic jobs are published to.",
			},
			&cli.BoolFlag{
				Name:        "oci.resolve",
				Sources:     cli.EnvVars("OCI_RESOLVE"),
				Category:    "scoring",
				Destination: &global.Conf.OCI.Resolve,
				Usage:       "If set, pins scoring images to their digest before scheduling.",
			},
			&cli.BoolFlag{
				Name:        "oci.insecure",
				Sources:     cli.EnvVars("OCI_INSECURE"),
				Category:    "scoring",
				Destination: &global.Conf.OCI.Insecure,
				Usage:       "If set to true, use HTTP rather than HTTPS.",
			},
			&cli.StringFlag{
				Name:        "oci.username",
				Sources:     cli.EnvVars("OCI_USERNAME"),
				Category:    "scoring",
				Destination: &global.Conf.OCI.Username,
				Usage:       "Configure the OCI registry username to resolve scoring images from.",
			},
			&cli.StringFlag{
				Name:        "oci.password",
				Sources:     cli.EnvVars("OCI_PASSWORD"),
				Category:    "scoring",
				Destination: &global.Conf.OCI.Password,
				Usage:       "Configure the OCI registry password to resolve scoring images from.",
			},
			&cli.StringFlag{
				Name:     "docker",
				Sources:  cli.EnvVars("DOCKER"),
				Category: "jobs",
				Value:    "docker",
				Usage:    "Define the Docker CLI binary embedded workers run scoring containers with.",
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
	// Pre-flight global configuration
	global.Version = Version

	port := cmd.Int("port")

	// Set up OpenTelemetry
	otelShutdown, err := global.SetupOTelSDK(ctx)
	if err != nil {
		return err
	}
	// Handle shutdown properly so nothing leaks
	defer func() {
		err = multierr.Append(err, otelShutdown(context.WithoutCancel(ctx)))
	}()

	logger := global.Log()
	logger.Info(ctx, "starting API server",
		zap.Int("port", port),
		zap.String("directory", global.Conf.Directory),
		zap.String("store", global.Conf.Store.Driver),
		zap.String("jobs", global.Conf.Jobs.Kind),
	)

	// Create context that listens for the interrupt signal from the OS
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(global.Conf.Directory, os.ModePerm); err != nil {
		return errors.Wrapf(err, "during mkdir of directory %s", global.Conf.Directory)
	}

	db, err := store.Open(ctx, global.Conf.Store.Driver, global.Conf.Store.DSN, global.Conf.Directory)
	if err != nil {
		return errors.Wrap(err, "opening store")
	}
	defer func() {
		err = multierr.Append(err, db.Close())
	}()

	sched, wg, err := scheduler(ctx, cmd.String("docker"))
	if err != nil {
		return err
	}

	// Launch API server
	srv := server.NewServer(server.Options{
		Port:      port,
		DB:        db,
		Scheduler: sched,
	})
	if err := srv.Bootstrap(ctx); err != nil {
		return errors.Wrap(err, "bootstrapping administrator")
	}
	if err := srv.Run(ctx); err != nil {
		return err
	}

	// Listen for the interrupt signal
	<-ctx.Done()

	// Restore default behavior on the interrupt signal
	stop()
	logger.Info(ctx, "shutting down gracefully")

	ctx = context.WithoutCancel(ctx)
	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error(ctx, "shutting down API server", zap.Error(err))
	}
	if err := sched.Close(); err != nil {
		logger.Error(ctx, "closing scheduler", zap.Error(err))
	}
	wg.Wait()

	if global.Conf.Lock.Kind == "etcd" {
		if err := global.GetEtcdManager().Close(); err != nil {
			logger.Error(ctx, "closing connection to etcd",
				zap.Error(err),
			)
		}
	}

	return nil
}

// scheduler builds the configured job scheduler. Local jobs are drained
// by embedded workers, tracked by the returned wait group.
func scheduler(ctx context.Context, docker string) (jobs.Scheduler, *sync.WaitGroup, error) {
	logger := global.Log()
	wg := &sync.WaitGroup{}

	if global.Conf.Jobs.Kind == "kafka" {
		k, err := jobs.NewKafka(jobs.KafkaConfig{
			Brokers: global.Conf.Jobs.Kafka.Brokers,
			Topic:   global.Conf.Jobs.Kafka.Topic,
			CBOnStateChange: func(name string, from, to gobreaker.State) {
				logger.Info(ctx, "circuit breaker state changed",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
		return k, wg, err
	}

	n := global.Conf.Jobs.Workers
	if n < 1 {
		n = 1
	}
	local := jobs.NewLocal(16 * n)
	for i := 0; i < n; i++ {
		w := worker.New(worker.Options{
			Scratch: filepath.Join(global.Conf.Directory, "scratch"),
			Runner:  &worker.DockerRunner{Binary: docker, Pull: true},
			Client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx, local); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, jobs.ErrClosed) {
				logger.Error(ctx, "embedded worker stopped", zap.Error(err))
			}
		}()
	}
	logger.Info(ctx, "embedded workers started", zap.Int("workers", n))
	return local, wg, nil
}
