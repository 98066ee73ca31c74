package receiver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exposed on /metrics alongside the default process collectors.
var (
	capturesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glimpse_captures_received_total",
		Help: "Capture uploads accepted and stored.",
	})

	captureBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glimpse_capture_bytes_total",
		Help: "Decoded PNG bytes accepted.",
	})

	capturesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glimpse_captures_rejected_total",
		Help: "Capture uploads rejected before storage, by reason.",
	}, []string{"reason"})
)
