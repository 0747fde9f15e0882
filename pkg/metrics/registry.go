// Package metrics provides Prometheus metrics for the file system.
//
// All metrics are optional. When the registry is never initialized the
// constructors return no-op implementations, so components accept a
// metrics instance unconditionally and pay nothing when collection is
// disabled.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry. Call it once
// from main before constructing metrics instances; safe to call again.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global registry, or nil when metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
