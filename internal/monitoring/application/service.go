package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"maintenance-cloud/internal/alerts"
	equipment "maintenance-cloud/internal/equipment/domain"
	"maintenance-cloud/internal/events"
	monitoring "maintenance-cloud/internal/monitoring/domain"
	"maintenance-cloud/internal/notify"
	"maintenance-cloud/internal/observability/metrics"
	telemetry "maintenance-cloud/internal/telemetry/domain"
	"maintenance-cloud/internal/trends"
)

// ErrNotMonitored is returned for queries against equipment that has no
// active monitoring state.
var ErrNotMonitored = errors.New("monitoring: equipment not monitored")

const anomalyHistoryWindow = 24 * time.Hour

// AnomalyDetector is the external anomaly-detection capability.
type AnomalyDetector interface {
	DetectAnomaly(ctx context.Context, reading telemetry.SensorReading, history []telemetry.SensorReading) (bool, error)
	AnomalyScore(ctx context.Context, reading telemetry.SensorReading, history []telemetry.SensorReading) (float64, error)
}

// MaintenancePredictor is the external maintenance-prediction capability.
type MaintenancePredictor interface {
	ShouldScheduleMaintenance(ctx context.Context, equipmentID int) (bool, error)
	PredictRemainingUsefulLife(ctx context.Context, equipmentID int) (float64, error)
}

// DigitalTwin is the external digital-twin capability.
type DigitalTwin interface {
	SyncWithPhysicalAsset(ctx context.Context, equipmentID int) error
	UpdateTwinState(ctx context.Context, equipmentID int, sensors map[string]float64) error
}

// EventSink receives readings and events for independent stream analysis.
type EventSink interface {
	ProcessSensorData(ctx context.Context, reading telemetry.SensorReading) error
	ProcessEquipmentEvent(ctx context.Context, event events.Event) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// monitored is the full monitoring state for one piece of equipment. Its
// mutex serializes profile read-modify-write sequences so concurrent batches
// for the same equipment cannot lose health-score updates.
type monitored struct {
	mu      sync.Mutex
	state   monitoring.State
	profile *monitoring.HealthProfile
	rules   []monitoring.Rule
	equip   equipment.Equipment
	perf    *PerformanceTracker

	anomalyTimes []time.Time
}

func (m *monitored) recordAnomaly(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anomalyTimes = append(m.anomalyTimes, now)
}

// anomaliesSince prunes the anomaly log and returns how many remain.
// Caller must hold m.mu.
func (m *monitored) anomaliesSince(cutoff time.Time) int {
	kept := m.anomalyTimes[:0]
	for _, at := range m.anomalyTimes {
		if !at.Before(cutoff) {
			kept = append(kept, at)
		}
	}
	m.anomalyTimes = kept
	return len(kept)
}

// Service is the monitoring orchestrator: per-equipment lifecycle, sensor
// batch processing, health scoring, and dashboard aggregates.
type Service struct {
	repo       equipment.Repository
	readings   telemetry.ReadingStore
	alerts     *alerts.Store
	trends     *trends.Tracker
	detector   AnomalyDetector
	predictor  MaintenancePredictor
	twin       DigitalTwin
	sink       EventSink
	notifier   notify.Notifier
	thresholds monitoring.ThresholdSet

	mu        sync.RWMutex
	monitored map[int]*monitored

	clock  Clock
	logger *zap.Logger
}

// ServiceOption customizes the monitoring service.
type ServiceOption func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithThresholds assigns the threshold table.
func WithThresholds(thresholds monitoring.ThresholdSet) ServiceOption {
	return func(s *Service) {
		if len(thresholds) > 0 {
			s.thresholds = thresholds
		}
	}
}

// WithNotifier assigns a notification channel.
func WithNotifier(notifier notify.Notifier) ServiceOption {
	return func(s *Service) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// NewService constructs a monitoring orchestrator.
func NewService(
	repo equipment.Repository,
	readings telemetry.ReadingStore,
	alertStore *alerts.Store,
	trendTracker *trends.Tracker,
	detector AnomalyDetector,
	predictor MaintenancePredictor,
	twin DigitalTwin,
	sink EventSink,
	logger *zap.Logger,
	opts ...ServiceOption,
) (*Service, error) {
	if repo == nil {
		return nil, errors.New("monitoring: nil equipment repository")
	}
	if readings == nil {
		return nil, errors.New("monitoring: nil reading store")
	}
	if alertStore == nil || trendTracker == nil {
		return nil, errors.New("monitoring: nil alert store or trend tracker")
	}
	if detector == nil || predictor == nil {
		return nil, errors.New("monitoring: nil anomaly detector or maintenance predictor")
	}
	if twin == nil {
		return nil, errors.New("monitoring: nil digital twin")
	}
	if sink == nil {
		return nil, errors.New("monitoring: nil event sink")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &Service{
		repo:       repo,
		readings:   readings,
		alerts:     alertStore,
		trends:     trendTracker,
		detector:   detector,
		predictor:  predictor,
		twin:       twin,
		sink:       sink,
		notifier:   notify.NopNotifier{},
		thresholds: monitoring.DefaultThresholds(),
		monitored:  make(map[int]*monitored),
		clock:      systemClock{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// StartMonitoring begins monitoring for known equipment. Mode and sampling
// interval are derived once from criticality and stored health; restarting
// overwrites any prior state.
func (s *Service) StartMonitoring(ctx context.Context, equipmentID int) error {
	equip, err := s.repo.GetByID(ctx, equipmentID)
	if err != nil {
		return fmt.Errorf("monitoring: start %d: %w", equipmentID, err)
	}
	now := s.clock.Now().UTC()

	m := &monitored{
		state: monitoring.State{
			EquipmentID:      equipmentID,
			Active:           true,
			StartedAt:        now,
			Mode:             monitoring.ModeFor(equip.Criticality, equip.HealthScore),
			SamplingInterval: monitoring.SamplingIntervalFor(equip.Criticality),
		},
		profile: monitoring.NewHealthProfile(equipmentID, equip.HealthScore, now),
		rules:   monitoring.RulesFor(equip.Type),
		equip:   *equip,
		perf:    NewPerformanceTracker(now, monitoring.SamplingIntervalFor(equip.Criticality)),
	}

	s.mu.Lock()
	s.monitored[equipmentID] = m
	count := s.activeCountLocked()
	s.mu.Unlock()
	metrics.SetMonitoredEquipment(count)

	if err := s.twin.SyncWithPhysicalAsset(ctx, equipmentID); err != nil {
		s.logger.Warn("digital twin sync failed",
			zap.Int("equipment_id", equipmentID), zap.Error(err))
	}

	s.logger.Info("monitoring started",
		zap.Int("equipment_id", equipmentID),
		zap.String("mode", string(m.state.Mode)),
		zap.Duration("sampling_interval", m.state.SamplingInterval))
	return nil
}

// StopMonitoring marks the equipment inactive and discards its trackers.
// No-op when the equipment was never started.
func (s *Service) StopMonitoring(equipmentID int) {
	s.mu.Lock()
	m, ok := s.monitored[equipmentID]
	var count int
	if ok {
		m.mu.Lock()
		m.state.Active = false
		m.state.StoppedAt = s.clock.Now().UTC()
		m.perf = nil
		m.mu.Unlock()
	}
	count = s.activeCountLocked()
	s.mu.Unlock()

	if !ok {
		return
	}
	s.trends.Reset(equipmentID)
	metrics.SetMonitoredEquipment(count)
	s.logger.Info("monitoring stopped", zap.Int("equipment_id", equipmentID))
}

// IsMonitoring reports whether the equipment is actively monitored.
func (s *Service) IsMonitoring(equipmentID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.monitored[equipmentID]
	if !ok {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Active
}

func (s *Service) activeCountLocked() int {
	count := 0
	for _, m := range s.monitored {
		m.mu.Lock()
		if m.state.Active {
			count++
		}
		m.mu.Unlock()
	}
	return count
}

func (s *Service) lookup(equipmentID int) (*monitored, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.monitored[equipmentID]
	if !ok {
		return nil, false
	}
	m.mu.Lock()
	active := m.state.Active
	m.mu.Unlock()
	return m, active
}

// ProcessSensorData routes one sensor batch through the five processing
// branches (real-time metrics, thresholds, anomaly detection, custom rules,
// trends), then recomputes the health score and checks maintenance need.
// A failure in one branch is logged and converted into a system-error alert;
// it never aborts the siblings. No-op with a warning when not monitoring.
func (s *Service) ProcessSensorData(ctx context.Context, equipmentID int, sensors map[string]float64) error {
	m, active := s.lookup(equipmentID)
	if !active {
		s.logger.Warn("sensor data for unmonitored equipment",
			zap.Int("equipment_id", equipmentID))
		return nil
	}
	if len(sensors) == 0 {
		return nil
	}
	started := s.clock.Now().UTC()

	readings := make([]telemetry.SensorReading, 0, len(sensors))
	for sensorType, value := range sensors {
		reading := telemetry.SensorReading{
			EquipmentID: equipmentID,
			SensorType:  sensorType,
			Value:       value,
			Timestamp:   started,
		}
		readings = append(readings, reading)
		if err := s.readings.WriteReading(ctx, reading); err != nil {
			s.logger.Warn("reading write failed",
				zap.Int("equipment_id", equipmentID),
				zap.String("sensor_type", sensorType), zap.Error(err))
		}
	}
	sort.Slice(readings, func(i, j int) bool { return readings[i].SensorType < readings[j].SensorType })

	branches := []struct {
		name string
		run  func(context.Context) error
	}{
		{"realtime", func(ctx context.Context) error { return s.updateRealtime(ctx, m, readings, sensors, started) }},
		{"threshold", func(ctx context.Context) error { return s.checkThresholds(ctx, m, sensors, started) }},
		{"anomaly", func(ctx context.Context) error { return s.detectAnomalies(ctx, m, readings, started) }},
		{"rules", func(ctx context.Context) error { return s.evaluateRules(ctx, m, sensors, started) }},
		{"trend", func(ctx context.Context) error { return s.updateTrends(ctx, m, sensors, started) }},
	}

	var wg sync.WaitGroup
	for _, branch := range branches {
		wg.Add(1)
		go func(name string, run func(context.Context) error) {
			defer wg.Done()
			if err := run(ctx); err != nil {
				s.logger.Error("sensor processing branch failed",
					zap.Int("equipment_id", equipmentID),
					zap.String("branch", name), zap.Error(err))
				metrics.IncBranchFailure(name)
				s.createAlert(ctx, alerts.Alert{
					EquipmentID: equipmentID,
					Type:        alerts.TypeSystemError,
					Severity:    alerts.SeverityMedium,
					Title:       fmt.Sprintf("Processing failure in %s check", name),
					Description: err.Error(),
					SensorType:  name,
					CreatedAt:   started,
				})
			}
		}(branch.name, branch.run)
	}
	wg.Wait()

	s.recomputeHealth(ctx, m, s.clock.Now().UTC())
	s.checkMaintenanceNeed(ctx, m)

	metrics.ObserveSensorBatch(metrics.ResultSuccess, s.clock.Now().UTC().Sub(started))
	return nil
}

// updateRealtime refreshes the performance tracker, pushes twin state, and
// forwards each reading to the event stream.
func (s *Service) updateRealtime(ctx context.Context, m *monitored, readings []telemetry.SensorReading, sensors map[string]float64, now time.Time) error {
	m.mu.Lock()
	if m.perf != nil {
		m.perf.RecordBatch(now, sensors)
	}
	m.mu.Unlock()

	if err := s.twin.UpdateTwinState(ctx, m.state.EquipmentID, sensors); err != nil {
		s.logger.Warn("digital twin update failed",
			zap.Int("equipment_id", m.state.EquipmentID), zap.Error(err))
	}
	for _, reading := range readings {
		if err := s.sink.ProcessSensorData(ctx, reading); err != nil {
			return fmt.Errorf("forward reading %s: %w", reading.SensorType, err)
		}
	}
	return nil
}

// checkThresholds evaluates each sensor against its threshold configuration.
// Sensors without a configuration are skipped.
func (s *Service) checkThresholds(ctx context.Context, m *monitored, sensors map[string]float64, now time.Time) error {
	for sensorType, value := range sensors {
		config, ok := s.thresholds.Lookup(sensorType)
		if !ok {
			continue
		}
		breach := config.Check(value, m.equip.RatedCapacity)
		switch breach.Level {
		case monitoring.BreachCritical:
			s.createAlert(ctx, alerts.Alert{
				EquipmentID: m.state.EquipmentID,
				Type:        alerts.TypeThresholdExceeded,
				Severity:    alerts.SeverityCritical,
				Title:       fmt.Sprintf("%s Critical Threshold Exceeded", sensorType),
				Description: fmt.Sprintf("%s reading %.2f%s exceeds critical threshold %.2f%s", sensorType, value, config.Unit, breach.Limit, config.Unit),
				SensorType:  sensorType,
				Value:       value,
				Threshold:   breach.Limit,
				CreatedAt:   now,
			})
		case monitoring.BreachWarning:
			s.createAlert(ctx, alerts.Alert{
				EquipmentID: m.state.EquipmentID,
				Type:        alerts.TypeThresholdExceeded,
				Severity:    alerts.SeverityHigh,
				Title:       fmt.Sprintf("%s Warning Threshold Exceeded", sensorType),
				Description: fmt.Sprintf("%s reading %.2f%s exceeds warning threshold %.2f%s", sensorType, value, config.Unit, breach.Limit, config.Unit),
				SensorType:  sensorType,
				Value:       value,
				Threshold:   breach.Limit,
				CreatedAt:   now,
			})
		}
	}
	return nil
}

// detectAnomalies asks the external capability about each reading against the
// last 24 hours of history.
func (s *Service) detectAnomalies(ctx context.Context, m *monitored, readings []telemetry.SensorReading, now time.Time) error {
	equipmentID := m.state.EquipmentID
	history, err := s.readings.ReadingsForEquipment(ctx, equipmentID, now.Add(-anomalyHistoryWindow), now)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	for _, reading := range readings {
		sensorHistory := telemetry.FilterBySensor(history, reading.SensorType)
		anomalous, err := s.detector.DetectAnomaly(ctx, reading, sensorHistory)
		if err != nil {
			return fmt.Errorf("detect %s: %w", reading.SensorType, err)
		}
		if !anomalous {
			continue
		}
		score, err := s.detector.AnomalyScore(ctx, reading, sensorHistory)
		if err != nil {
			s.logger.Warn("anomaly score failed",
				zap.Int("equipment_id", equipmentID),
				zap.String("sensor_type", reading.SensorType), zap.Error(err))
		}

		m.recordAnomaly(now)
		m.mu.Lock()
		if m.perf != nil {
			m.perf.RecordAnomaly()
		}
		m.mu.Unlock()
		metrics.IncAnomalyDetected()

		reading.Anomalous = true
		if err := s.readings.WriteReading(ctx, reading); err != nil {
			s.logger.Warn("anomalous reading write failed",
				zap.Int("equipment_id", equipmentID), zap.Error(err))
		}

		s.createAlert(ctx, alerts.Alert{
			EquipmentID: equipmentID,
			Type:        alerts.TypeAnomalyDetected,
			Severity:    alerts.SeverityHigh,
			Title:       fmt.Sprintf("%s Anomaly Detected", reading.SensorType),
			Description: fmt.Sprintf("%s reading %.2f flagged as anomalous (score %.2f)", reading.SensorType, reading.Value, score),
			SensorType:  reading.SensorType,
			Value:       reading.Value,
			CreatedAt:   now,
		})
		event := events.NewAnomalyEvent(equipmentID, reading.SensorType, score,
			fmt.Sprintf("%s reading %.2f flagged as anomalous", reading.SensorType, reading.Value), now)
		if err := s.sink.ProcessEquipmentEvent(ctx, event); err != nil {
			s.logger.Warn("anomaly event publish failed",
				zap.Int("equipment_id", equipmentID), zap.Error(err))
		}
	}
	return nil
}

// evaluateRules runs the equipment-type rule set over the full sensor map.
func (s *Service) evaluateRules(ctx context.Context, m *monitored, sensors map[string]float64, now time.Time) error {
	for _, rule := range m.rules {
		violated, detail := rule.Evaluate(sensors)
		if !violated {
			continue
		}
		s.createAlert(ctx, alerts.Alert{
			EquipmentID: m.state.EquipmentID,
			Type:        alerts.TypePerformanceDegradation,
			Severity:    rule.Severity(),
			Title:       fmt.Sprintf("Rule Violation: %s", rule.Name()),
			Description: detail,
			SensorType:  rule.Name(),
			CreatedAt:   now,
		})
	}
	return nil
}

// updateTrends records each sensor value and raises trend alerts for
// concerning series.
func (s *Service) updateTrends(ctx context.Context, m *monitored, sensors map[string]float64, now time.Time) error {
	equipmentID := m.state.EquipmentID
	for sensorType, value := range sensors {
		s.trends.Record(equipmentID, sensorType, value)
		analysis, ok := s.trends.Analyze(equipmentID, sensorType)
		if !ok || !analysis.IsConcerning {
			continue
		}
		s.createAlert(ctx, alerts.Alert{
			EquipmentID: equipmentID,
			Type:        alerts.TypeTrendAlert,
			Severity:    alerts.SeverityMedium,
			Title:       fmt.Sprintf("%s Trend Alert", sensorType),
			Description: fmt.Sprintf("%s: %s (slope %.2f, volatility %.2f)", sensorType, analysis.Message, analysis.Slope, analysis.Volatility),
			SensorType:  sensorType,
			Value:       value,
			CreatedAt:   now,
		})
	}
	return nil
}

// recomputeHealth applies the health-score algorithm under the equipment's
// single-writer lock and persists the result.
func (s *Service) recomputeHealth(ctx context.Context, m *monitored, now time.Time) {
	equipmentID := m.state.EquipmentID

	m.mu.Lock()
	score := 100.0
	if avg, ok := m.profile.ComponentAverage(); ok {
		score *= avg / 100
	}
	score -= 2 * float64(m.anomaliesSince(now.Add(-anomalyHistoryWindow)))
	for severity, count := range s.alerts.CountActiveBySeverity(equipmentID) {
		switch severity {
		case alerts.SeverityCritical:
			score -= 10 * float64(count)
		case alerts.SeverityHigh:
			score -= 5 * float64(count)
		case alerts.SeverityMedium:
			score -= 2 * float64(count)
		default:
			score -= float64(count)
		}
	}
	if m.perf != nil {
		if oee, ok := m.perf.OEE(); ok {
			score *= oee / 100
		}
	}
	m.profile.ApplyScore(score, now)
	final := m.profile.CurrentScore
	m.mu.Unlock()

	metrics.SetHealthScore(strconv.Itoa(equipmentID), final)
	if err := s.repo.UpdateHealthScore(ctx, equipmentID, final); err != nil {
		s.logger.Warn("health score persist failed",
			zap.Int("equipment_id", equipmentID), zap.Error(err))
	}
}

// checkMaintenanceNeed consults the prediction capability and raises a
// maintenance alert plus a maintenance event when scheduling is advised.
func (s *Service) checkMaintenanceNeed(ctx context.Context, m *monitored) {
	equipmentID := m.state.EquipmentID
	needed, err := s.predictor.ShouldScheduleMaintenance(ctx, equipmentID)
	if err != nil {
		s.logger.Warn("maintenance prediction failed",
			zap.Int("equipment_id", equipmentID), zap.Error(err))
		return
	}
	if !needed {
		return
	}
	now := s.clock.Now().UTC()

	description := "predictive model recommends scheduling maintenance"
	if rul, err := s.predictor.PredictRemainingUsefulLife(ctx, equipmentID); err == nil {
		description = fmt.Sprintf("predicted remaining useful life %.0f hours", rul)
	}
	s.createAlert(ctx, alerts.Alert{
		EquipmentID: equipmentID,
		Type:        alerts.TypeMaintenanceRequired,
		Severity:    alerts.SeverityMedium,
		Title:       "Maintenance Required",
		Description: description,
		CreatedAt:   now,
	})
	event := events.NewMaintenanceEvent(equipmentID, "schedule", time.Time{}, description, now)
	if err := s.sink.ProcessEquipmentEvent(ctx, event); err != nil {
		s.logger.Warn("maintenance event publish failed",
			zap.Int("equipment_id", equipmentID), zap.Error(err))
	}
}

// createAlert stores an alert through the dedup window and, when stored,
// dispatches notifications and an alert event.
func (s *Service) createAlert(ctx context.Context, alert alerts.Alert) {
	stored, created := s.alerts.Add(alert)
	if !created {
		metrics.IncAlertDeduplicated()
		return
	}
	metrics.IncAlert(string(stored.Type), string(stored.Severity))

	message := notify.Message{
		Type:        "alert",
		EquipmentID: stored.EquipmentID,
		Severity:    string(stored.Severity),
		Title:       stored.Title,
		Body:        stored.Description,
		At:          stored.CreatedAt,
	}
	s.notifier.Broadcast(ctx, message)
	s.notifier.BroadcastToEquipment(ctx, stored.EquipmentID, message)

	event := events.NewAlertEvent(stored.EquipmentID, stored.ID, string(stored.Type),
		string(stored.Severity), stored.Title, stored.CreatedAt)
	if err := s.sink.ProcessEquipmentEvent(ctx, event); err != nil {
		s.logger.Warn("alert event publish failed",
			zap.Int("equipment_id", stored.EquipmentID), zap.Error(err))
	}

	s.logger.Info("alert created",
		zap.Int("equipment_id", stored.EquipmentID),
		zap.String("alert_id", stored.ID),
		zap.String("type", string(stored.Type)),
		zap.String("severity", string(stored.Severity)),
		zap.String("title", stored.Title))
}

// GetEquipmentStatus derives the operational status. Active unacknowledged
// alerts dominate; otherwise the health score decides.
func (s *Service) GetEquipmentStatus(equipmentID int) monitoring.Status {
	m, active := s.lookup(equipmentID)
	if !active {
		return monitoring.StatusOffline
	}
	if s.alerts.HasActiveUnacknowledged(equipmentID, alerts.SeverityCritical) {
		return monitoring.StatusCritical
	}
	if s.alerts.HasActiveUnacknowledged(equipmentID, alerts.SeverityHigh) {
		return monitoring.StatusWarning
	}

	m.mu.Lock()
	score := m.profile.CurrentScore
	m.mu.Unlock()
	switch {
	case score < 30:
		return monitoring.StatusCritical
	case score < 60:
		return monitoring.StatusWarning
	default:
		return monitoring.StatusOperational
	}
}

// Dashboard is the aggregate monitoring snapshot, recomputed on each call.
type Dashboard struct {
	GeneratedAt     time.Time                 `json:"generated_at"`
	MonitoredCount  int                       `json:"monitored_count"`
	StatusCounts    map[monitoring.Status]int `json:"status_counts"`
	EquipmentByType map[equipment.Type]int    `json:"equipment_by_type"`
	AverageHealth   float64                   `json:"average_health"`
	ActiveAlerts    []alerts.Alert            `json:"active_alerts"`
}

// GetMonitoringDashboard aggregates status counts, alerts, and health across
// all active equipment. Equipment known to persistence but not monitored
// shows up as Offline.
func (s *Service) GetMonitoringDashboard(ctx context.Context) Dashboard {
	dashboard := Dashboard{
		GeneratedAt:     s.clock.Now().UTC(),
		StatusCounts:    make(map[monitoring.Status]int),
		EquipmentByType: make(map[equipment.Type]int),
		ActiveAlerts:    s.alerts.ActiveAll(),
	}

	counted := make(map[int]bool)
	known, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Warn("dashboard: list active equipment", zap.Error(err))
	}
	for _, eq := range known {
		counted[eq.ID] = true
		dashboard.StatusCounts[s.GetEquipmentStatus(eq.ID)]++
		dashboard.EquipmentByType[eq.Type]++
	}

	s.mu.RLock()
	ids := make([]int, 0, len(s.monitored))
	for id := range s.monitored {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Ints(ids)

	var healthSum float64
	for _, id := range ids {
		m, active := s.lookup(id)
		if !active {
			continue
		}
		dashboard.MonitoredCount++
		// Monitored equipment missing from the persistence listing (e.g.
		// deactivated after StartMonitoring) still counts once.
		if !counted[id] {
			dashboard.StatusCounts[s.GetEquipmentStatus(id)]++
			dashboard.EquipmentByType[m.equip.Type]++
		}

		m.mu.Lock()
		healthSum += m.profile.CurrentScore
		m.mu.Unlock()
	}
	if dashboard.MonitoredCount > 0 {
		dashboard.AverageHealth = healthSum / float64(dashboard.MonitoredCount)
	}
	return dashboard
}

// GetLatestReadings returns the most recent sensor readings across all
// equipment, newest first.
func (s *Service) GetLatestReadings(ctx context.Context, limit int) ([]telemetry.SensorReading, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.readings.LatestReadings(ctx, limit)
}

// HealthDetail is the per-equipment health view.
type HealthDetail struct {
	Profile      monitoring.HealthProfile `json:"profile"`
	State        monitoring.State         `json:"state"`
	Status       monitoring.Status        `json:"status"`
	Trends       []trends.Analysis        `json:"trends,omitempty"`
	ActiveAlerts []alerts.Alert           `json:"active_alerts,omitempty"`
}

// GetEquipmentHealth returns the health profile, trend analyses, and active
// alerts for monitored equipment.
func (s *Service) GetEquipmentHealth(equipmentID int) (HealthDetail, error) {
	m, active := s.lookup(equipmentID)
	if !active {
		return HealthDetail{}, ErrNotMonitored
	}

	m.mu.Lock()
	profile := *m.profile
	state := m.state
	m.mu.Unlock()

	return HealthDetail{
		Profile:      profile,
		State:        state,
		Status:       s.GetEquipmentStatus(equipmentID),
		Trends:       s.trends.AnalyzeAll(equipmentID),
		ActiveAlerts: s.alerts.ActiveForEquipment(equipmentID),
	}, nil
}

// GetActiveAlerts returns active alerts for one equipment, or across all
// equipment when equipmentID is zero or negative.
func (s *Service) GetActiveAlerts(equipmentID int) []alerts.Alert {
	if equipmentID <= 0 {
		return s.alerts.ActiveAll()
	}
	return s.alerts.ActiveForEquipment(equipmentID)
}

// AcknowledgeAlert marks an alert acknowledged. Unknown ids are logged and
// otherwise ignored.
func (s *Service) AcknowledgeAlert(alertID, by string) {
	if _, ok := s.alerts.Acknowledge(alertID, by); !ok {
		s.logger.Warn("acknowledge for unknown alert", zap.String("alert_id", alertID))
		return
	}
	s.logger.Info("alert acknowledged",
		zap.String("alert_id", alertID), zap.String("by", by))
}
