package service

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/errwatch/errwatch-backend/internal/domain"
)

var (
	eventsCapturedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errwatch_events_captured_total",
			Help: "Total number of error events captured",
		},
		[]string{"severity", "new_group"},
	)

	alertsFiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "errwatch_alerts_fired_total",
			Help: "Total number of alerts emitted by the rule engine",
		},
	)

	groupsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "errwatch_groups_active",
			Help: "Number of error groups currently tracked",
		},
	)

	eventsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "errwatch_events_stored",
			Help: "Number of error events held in the in-memory store",
		},
	)
)

func observeCapture(severity domain.Severity, alertCount int, isNew bool) {
	eventsCapturedTotal.WithLabelValues(string(severity), strconv.FormatBool(isNew)).Inc()
	if alertCount > 0 {
		alertsFiredTotal.Add(float64(alertCount))
	}
}

func setGroupGauges(groups, events int) {
	groupsActive.Set(float64(groups))
	eventsStored.Set(float64(events))
}
