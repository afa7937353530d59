package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "maintenance_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	monitoringActive  prometheus.Gauge
	batchesProcessed  *prometheus.CounterVec
	batchLatency      *prometheus.HistogramVec
	branchFailures    *prometheus.CounterVec
	alertsTotal       *prometheus.CounterVec
	alertsDeduped     prometheus.Counter
	anomaliesDetected prometheus.Counter

	eventsProcessed *prometheus.CounterVec
	eventQueueDepth prometheus.GaugeFunc
	patternMatches  *prometheus.CounterVec

	healthScore *prometheus.GaugeVec

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges. queueDepth, when
// non-nil, is sampled on every scrape for the event queue gauge.
func Init(db *sql.DB, queueDepth func() int) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		monitoringActive = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "monitoring_active_equipment",
				Help: "Number of equipment currently monitored",
			},
		)
		batchesProcessed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sensor_batches_total",
				Help: "Total processed sensor batches by result",
			},
			[]string{"result"},
		)
		batchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "sensor_batch_latency_seconds",
				Help:    "Sensor batch processing latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		branchFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "processing_branch_failures_total",
				Help: "Total failures per sensor-processing branch",
			},
			[]string{"branch"},
		)
		alertsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_total",
				Help: "Total created alerts by type and severity",
			},
			[]string{"type", "severity"},
		)
		alertsDeduped = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_deduplicated_total",
				Help: "Total alerts suppressed by the dedup window",
			},
		)
		anomaliesDetected = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "anomalies_detected_total",
				Help: "Total anomalous readings detected",
			},
		)

		eventsProcessed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_processed_total",
				Help: "Total stream events processed by kind",
			},
			[]string{"kind"},
		)
		patternMatches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "event_pattern_matches_total",
				Help: "Total event pattern matches by pattern",
			},
			[]string{"pattern"},
		)

		healthScore = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "equipment_health_score",
				Help: "Current health score per equipment",
			},
			[]string{"equipment_id"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			monitoringActive,
			batchesProcessed,
			batchLatency,
			branchFailures,
			alertsTotal,
			alertsDeduped,
			anomaliesDetected,
			eventsProcessed,
			patternMatches,
			healthScore,
			reportExportTotal,
			reportExportLatency,
		)

		if queueDepth != nil {
			eventQueueDepth = prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: metricPrefix + "event_queue_depth",
					Help: "Events awaiting dispatch in the stream queue",
				},
				func() float64 { return float64(queueDepth()) },
			)
			prometheus.MustRegister(eventQueueDepth)
		}
		if db != nil {
			registerDBMetrics(db)
		}
	})
}

func registerDBMetrics(db *sql.DB) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "db_open_connections",
			Help: "Open connections in the database pool",
		},
		func() float64 { return float64(db.Stats().OpenConnections) },
	))
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "db_connections_in_use",
			Help: "Database connections currently in use",
		},
		func() float64 { return float64(db.Stats().InUse) },
	))
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments ingest error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// SetMonitoredEquipment sets the monitored-equipment gauge.
func SetMonitoredEquipment(count int) {
	if monitoringActive != nil {
		monitoringActive.Set(float64(count))
	}
}

// ObserveSensorBatch records batch processing latency and result.
func ObserveSensorBatch(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if batchesProcessed != nil {
		batchesProcessed.WithLabelValues(result).Inc()
	}
	if batchLatency != nil {
		batchLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncBranchFailure increments the per-branch failure counter.
func IncBranchFailure(branch string) {
	if branch == "" {
		branch = "unknown"
	}
	if branchFailures != nil {
		branchFailures.WithLabelValues(branch).Inc()
	}
}

// IncAlert increments the created-alert counter.
func IncAlert(alertType, severity string) {
	if alertsTotal != nil {
		alertsTotal.WithLabelValues(alertType, severity).Inc()
	}
}

// IncAlertDeduplicated increments the dedup-suppression counter.
func IncAlertDeduplicated() {
	if alertsDeduped != nil {
		alertsDeduped.Inc()
	}
}

// IncAnomalyDetected increments the anomaly counter.
func IncAnomalyDetected() {
	if anomaliesDetected != nil {
		anomaliesDetected.Inc()
	}
}

// IncEventProcessed increments the stream-event counter.
func IncEventProcessed(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if eventsProcessed != nil {
		eventsProcessed.WithLabelValues(kind).Inc()
	}
}

// IncPatternMatch increments the pattern-match counter.
func IncPatternMatch(pattern string) {
	if pattern == "" {
		pattern = "unknown"
	}
	if patternMatches != nil {
		patternMatches.WithLabelValues(pattern).Inc()
	}
}

// SetHealthScore sets the per-equipment health gauge.
func SetHealthScore(equipmentID string, score float64) {
	if healthScore != nil {
		healthScore.WithLabelValues(equipmentID).Set(score)
	}
}

// ObserveReportExport records report export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
