package eligibility

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// readsByLayer tracks which layer answered each eligibility read.
	readsByLayer = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eligibility_reads_total",
		Help: "Eligibility reads by serving layer",
	}, []string{"layer"}) // layer: redis, postgres, memory

	// saveFailures tracks save degradations per backend. The in-memory
	// mirror cannot fail, so it never appears here.
	saveFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eligibility_save_failures_total",
		Help: "Eligibility save failures by backend",
	}, []string{"backend"}) // backend: postgres, redis

	// warmedTasks counts tasks loaded during cache warming.
	warmedTasks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eligibility_warmed_tasks_total",
		Help: "Tasks loaded from the store during cache warming",
	})
)
