package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"corral/internal/events"
)

var (
	FleetStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "corral_fleet_status",
		Help: "1 if the cluster's compute fleet is in the given status",
	}, []string{"cluster", "status"})

	FleetTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corral_fleet_transitions_total",
		Help: "Requested fleet transitions per cluster and outcome",
	}, []string{"cluster", "transition", "outcome"})

	FleetDescribesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corral_fleet_describes_total",
		Help: "Fleet describe calls per cluster",
	}, []string{"cluster"})

	BackendProbesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corral_backend_probes_total",
		Help: "Backend status probe results per scheduler kind",
	}, []string{"scheduler", "result"})

	StoreConflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corral_store_conflicts_total",
		Help: "Stale-revision write conflicts per cluster",
	}, []string{"cluster"})

	FleetEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "corral_fleet_events_total",
		Help: "Lifecycle events per cluster and type",
	}, []string{"cluster", "type"})
)

func init() {
	prometheus.MustRegister(
		FleetStatus,
		FleetTransitionsTotal,
		FleetDescribesTotal,
		BackendProbesTotal,
		StoreConflictsTotal,
		FleetEventsTotal,
	)
}

// RegisterEventHandler wires the emitter into the event counter.
func RegisterEventHandler(emitter *events.Emitter) {
	emitter.OnEvent(func(ev events.Event) {
		FleetEventsTotal.WithLabelValues(ev.Cluster, ev.Type).Inc()
	})
}

// SetFleetStatus switches the per-cluster status gauge to the given value.
func SetFleetStatus(cluster, status string, allStatuses []string) {
	for _, s := range allStatuses {
		v := 0.0
		if s == status {
			v = 1.0
		}
		FleetStatus.WithLabelValues(cluster, s).Set(v)
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
