package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// SetupPrometheus creates the registry with the runtime collectors plus any extra ones
// (e.g. the pgx pool collector when the postgres backend is used).
func SetupPrometheus(extraCollectors ...prometheus.Collector) *prometheus.Registry {
	promRegistry := prometheus.NewRegistry()

	// Add Go module build info, runtime metrics and process collectors.
	promRegistry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, c := range extraCollectors {
		if c != nil {
			promRegistry.MustRegister(c)
		}
	}

	return promRegistry
}
