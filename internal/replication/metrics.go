package replication

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replication_messages_sent_total",
		Help: "Messages handed to the transport by type",
	}, []string{"type"})

	targetedMissed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replication_targeted_missed_total",
		Help: "Targeted messages whose connection was gone",
	}, []string{"type"})

	encodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replication_encode_errors_total",
		Help: "Messages dropped because they failed to encode",
	})
)
