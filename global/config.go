package global

import "time"

var (
	Version = ""
)

// Configuration holds the parameters that are shared across submodules.
type Configuration struct {
	Directory string
	LogLevel  string

	// APIURL overrides the API root advertised to scoring workers.
	// When empty, it is derived from the incoming request.
	APIURL string

	Otel struct {
		Tracing     bool
		ServiceName string
	}

	Store struct {
		Driver string // fs, sqlite or postgres
		DSN    string
	}

	Lock struct {
		Kind          string // local or etcd
		EtcdEndpoints []string
		EtcdUsername  string
		EtcdPassword  string //nolint:gosec // never marshalled
	}

	Auth struct {
		Secret   string //nolint:gosec // never marshalled
		TokenTTL time.Duration
	}

	Admin struct {
		Login    string
		Email    string
		Password string //nolint:gosec // never marshalled
	}

	Scoring struct {
		UserID       string
		DefaultImage string
		TokenTTL     time.Duration
	}

	Jobs struct {
		Kind    string // local or kafka
		Workers int

		Kafka struct {
			Brokers []string
			Topic   string
			GroupID string
		}
	}

	OCI struct {
		Resolve  bool
		Insecure bool
		Username string
		Password string //nolint:gosec // never marshalled
	}
}

var (
	Conf Configuration
)
