package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TenantResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_resolutions_total",
			Help: "Total tenant resolutions by source signal",
		},
		[]string{"source"},
	)

	AccessDenied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_access_denied_total",
			Help: "Total explicit tenant selections denied by the access guard",
		},
	)

	InvitationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invitations_created_total",
			Help: "Total tenant invitations created",
		},
	)

	InvitationsAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invitations_accepted_total",
			Help: "Total tenant invitations accepted",
		},
	)

	NotifierQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "invitation_notifier_queue_depth",
			Help: "Current depth of the invitation notifier queue",
		},
	)
)

// Init registers metrics with Prometheus
func Init() {
	prometheus.MustRegister(TenantResolutions)
	prometheus.MustRegister(AccessDenied)
	prometheus.MustRegister(InvitationsCreated)
	prometheus.MustRegister(InvitationsAccepted)
	prometheus.MustRegister(NotifierQueueDepth)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
