package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	admissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookflow",
			Name:      "admissions_total",
			Help:      "Count of admitted bookings by outcome.",
		},
		[]string{"outcome"},
	)

	rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookflow",
			Name:      "rejections_total",
			Help:      "Count of rejected booking requests by reason.",
		},
		[]string{"reason"},
	)

	cancellations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bookflow",
			Name:      "cancellations_total",
			Help:      "Count of cancelled bookings.",
		},
	)

	quotes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bookflow",
			Name:      "quotes_total",
			Help:      "Count of price quotes served.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(admissions, rejections, cancellations, quotes)
	})
}

func IncAdmission(outcome string) {
	admissions.WithLabelValues(outcome).Inc()
}

func IncRejection(reason string) {
	rejections.WithLabelValues(reason).Inc()
}

func IncCancellation() {
	cancellations.Inc()
}

func IncQuote() {
	quotes.Inc()
}
