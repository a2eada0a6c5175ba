package metrics

import (
	"strconv"
	"time"
)

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.HTTPInFlight.Add(delta)
}

func (m *Metrics) ObservePipeline(status string, seconds float64) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(status).Inc()
	m.PipelineDuration.WithLabelValues(status).Observe(seconds)
}

func (m *Metrics) ObserveStage(stage string, seconds float64, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StageDuration.WithLabelValues(stage, result).Observe(seconds)
}

func (m *Metrics) ObserveCacheLookup(kind, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveCacheFallback(op string) {
	if m == nil {
		return
	}
	m.CacheFallbacks.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveProbe(kind, outcome string) {
	if m == nil {
		return
	}
	m.ProbeAttempts.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveModelCall(schema, outcome string) {
	if m == nil {
		return
	}
	m.ModelCalls.WithLabelValues(schema, outcome).Inc()
}

func (m *Metrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.Notifications.WithLabelValues(result).Inc()
}
