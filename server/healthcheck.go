package server

import (
	"context"
	"net/http"
	"time"

	"github.com/hellofresh/health-go/v5"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/jobs"
	"github.com/ctfer-io/covalic/pkg/store"
)

func healthcheck(ctx context.Context, db *store.DB) http.Handler {
	opts := []health.Option{
		health.WithComponent(health.Component{
			Name:    "covalic",
			Version: global.Version,
		}),
		health.WithSystemInfo(),
		health.WithChecks(health.Config{
			Name:    "store",
			Timeout: time.Second,
			Check:   db.Backend.Ping,
		}),
	}
	h, err := health.New(opts...)
	if err != nil {
		panic(err)
	}

	if global.Conf.Lock.Kind == "etcd" {
		global.Log().Info(ctx, "registering healthcheck config",
			zap.String("service", "etcd"),
		)
		_ = h.Register(health.Config{
			Name:      "etcd",
			Timeout:   time.Second,
			Check:     global.GetEtcdManager().Healthcheck,
			SkipOnErr: true,
		})
	}

	if global.Conf.Jobs.Kind == "kafka" {
		global.Log().Info(ctx, "registering healthcheck config",
			zap.String("service", "kafka"),
		)
		brokers := global.Conf.Jobs.Kafka.Brokers
		_ = h.Register(health.Config{
			Name:    "kafka",
			Timeout: 2 * time.Second,
			Check: func(ctx context.Context) error {
				return jobs.Ping(ctx, brokers)
			},
			SkipOnErr: true,
		})
	}

	return h.Handler()
}
