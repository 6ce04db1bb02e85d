package app

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bpmnstudio_auth_attempts_total",
			Help: "Total auth attempts by event and outcome",
		},
		[]string{"event", "success"},
	)
	diagramSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bpmnstudio_diagram_saves_total",
			Help: "Diagram saves by outcome (created, updated, rejected)",
		},
		[]string{"outcome"},
	)
)

func recordAuthAttempt(event string, success bool) {
	authAttempts.WithLabelValues(event, strconv.FormatBool(success)).Inc()
}
