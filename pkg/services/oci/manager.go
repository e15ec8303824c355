package oci

import (
	"sync"
)

// Manager normalizes the Docker images references scoring tasks run,
// and optionally pins them to the digest the registry currently serves
// so every submission of a phase is scored by the same image.
type Manager struct {
	mu       sync.Mutex
	digCache map[string]string

	opts Options
}

type Options struct {
	// Resolve turns on the digest pinning, which requires reaching out
	// the registry.
	Resolve  bool
	Insecure bool
	Username string
	Password string //nolint:gosec // never marshalled
}

func NewManager(opts Options) *Manager {
	return &Manager{
		digCache: map[string]string{},
		opts:     opts,
	}
}
