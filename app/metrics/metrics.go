package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_payments_created_total",
		Help: "Payment attempts accepted by the gateway.",
	})

	CallbacksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_payment_callbacks_total",
		Help: "Gateway feedback callbacks by observed result.",
	}, []string{"result"})

	CallbackFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_payment_callback_failures_total",
		Help: "Callback handler errors swallowed behind the fixed SUCCESS ack.",
	})

	DispatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_payment_dispatch_total",
		Help: "Side-effect dispatch attempts by outcome (won, lost, skipped).",
	}, []string{"outcome"})

	PollOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_payment_poll_total",
		Help: "Status poll loops by terminal outcome.",
	}, []string{"outcome"})
)
