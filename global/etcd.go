package global

import (
	"sync"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/pkg/services/etcd"
)

var (
	etcdInstance *etcd.Manager
	etcdOnce     sync.Once
)

// GetEtcdManager returns the process-wide etcd manager, built upon
// the lock configuration.
func GetEtcdManager() *etcd.Manager {
	etcdOnce.Do(func() {
		etcdInstance = etcd.NewManager(etcd.Config{
			Endpoints: Conf.Lock.EtcdEndpoints,
			Username:  Conf.Lock.EtcdUsername,
			Password:  Conf.Lock.EtcdPassword,
			Logger:    Log().Sub,
			CBOnStateChange: func(name string, from, to gobreaker.State) {
				Log().Sub.Warn("circuit breaker state change",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	})
	return etcdInstance
}
