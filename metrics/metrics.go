package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "number of payment orders created with the gateway",
		},
	)

	PaymentsVerified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_verified_total",
			Help: "payment verifications by result",
		},
		[]string{"result"},
	)

	FailedPaymentsLogged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registrations_failed_logged_total",
			Help: "number of failed payment attempts recorded",
		},
	)
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(OrdersCreated, PaymentsVerified, FailedPaymentsLogged)
	})
}
