package metricsvc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
)

const namespace = "schoolmed"

// Metrics holds Prometheus collectors for the vaccination workflow.
type Metrics struct {
	CampaignsCreatedTotal    prometheus.Counter
	StudentsEnrolledTotal    prometheus.Counter
	ConsentDecisionsTotal    *prometheus.CounterVec
	VaccinationOutcomesTotal *prometheus.CounterVec
	RejectionsTotal          *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

var _ vaccination.MetricsRecorder = (*Metrics)(nil)

// New registers the workflow collectors, along with the go and process ones, on a new registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		CampaignsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaigns_created_total",
			Help:      "Total number of vaccination campaigns created",
		}),
		StudentsEnrolledTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "students_enrolled_total",
			Help:      "Total number of students added to vaccination campaigns",
		}),
		ConsentDecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consent_decisions_total",
			Help:      "Total number of parent consent decisions, labeled by consent",
		}, []string{"consent"}),
		VaccinationOutcomesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vaccination_outcomes_total",
			Help:      "Total number of vaccination outcomes recorded by nurses, labeled by status",
		}, []string{"status"}),
		RejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_rejections_total",
			Help:      "Total number of rejected workflow operations, labeled by operation and error kind",
		}, []string{"operation", "kind"}),
		gatherer: reg,
	}
}

func (m *Metrics) CampaignCreated() {
	m.CampaignsCreatedTotal.Inc()
}

func (m *Metrics) StudentsEnrolled(count int) {
	m.StudentsEnrolledTotal.Add(float64(count))
}

func (m *Metrics) ConsentDecided(consent string) {
	m.ConsentDecisionsTotal.WithLabelValues(consent).Inc()
}

func (m *Metrics) VaccinationRecorded(status string) {
	m.VaccinationOutcomesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) Rejected(operation string, err error) {
	m.RejectionsTotal.WithLabelValues(operation, core.ErrorKind(err)).Inc()
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
