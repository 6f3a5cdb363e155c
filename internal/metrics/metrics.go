package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	AdmissionsAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "festio_admissions_accepted_total", Help: "Registrations admitted"},
	)
	AdmissionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "festio_admissions_rejected_total", Help: "Registrations rejected, by reason"},
		[]string{"reason"},
	)
	RegistrationsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "festio_registrations_cancelled_total", Help: "Registrations cancelled by their owner"},
	)
	RegistrationsAttended = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "festio_registrations_attended_total", Help: "Registrations marked attended"},
	)

	SyncProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "festio_sync_processed_total", Help: "Outbox records applied to the search index"},
	)
	SyncFailed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "festio_sync_failed_total", Help: "Outbox records that failed to apply"},
	)
	SyncDLQ = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "festio_sync_dlq_total", Help: "Outbox records moved to the DLQ"},
	)
)

func Register() {
	prometheus.MustRegister(
		AdmissionsAccepted, AdmissionsRejected,
		RegistrationsCancelled, RegistrationsAttended,
		SyncProcessed, SyncFailed, SyncDLQ,
	)
}
