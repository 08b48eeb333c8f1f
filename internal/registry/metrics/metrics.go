// Package metrics records registry counters and histograms with
// VictoriaMetrics/metrics and exposes them in Prometheus text format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Labels are embedded in the metric name, as VictoriaMetrics/metrics expects.
func operationsName(operation, kind string) string {
	return `redflag_operations_total{operation="` + operation + `",result="` + kind + `"}`
}

func durationName(operation string) string {
	return `redflag_operation_duration_seconds{operation="` + operation + `"}`
}

func eventsName(eventType string, delivered bool) string {
	return `redflag_events_total{type="` + eventType + `",delivered="` + strconv.FormatBool(delivered) + `"}`
}

func droppedName(eventType string) string {
	return `redflag_events_dropped_total{type="` + eventType + `"}`
}

func rateLimitedName(route string) string {
	return `redflag_rate_limited_total{route="` + route + `"}`
}

func mailsName(template string, success bool) string {
	return `redflag_mails_total{template="` + template + `",success="` + strconv.FormatBool(success) + `"}`
}

// RecordOperation counts one service operation outcome. kind is "OK" or an
// error kind such as "NotAuthorized".
func RecordOperation(operation, kind string) {
	metrics.GetOrCreateCounter(operationsName(operation, kind)).Inc()
}

// ObserveDuration records the time elapsed since start for operation.
func ObserveDuration(operation string, start time.Time) {
	metrics.GetOrCreateHistogram(durationName(operation)).UpdateDuration(start)
}

func RecordEvent(eventType string, delivered bool) {
	metrics.GetOrCreateCounter(eventsName(eventType, delivered)).Inc()
}

func RecordEventDropped(eventType string) {
	metrics.GetOrCreateCounter(droppedName(eventType)).Inc()
}

func RecordRateLimited(route string) {
	metrics.GetOrCreateCounter(rateLimitedName(route)).Inc()
}

func RecordMail(template string, success bool) {
	metrics.GetOrCreateCounter(mailsName(template, success)).Inc()
}

// Handler serves every registered metric, including process metrics.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
}
