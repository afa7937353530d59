package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"maintenance-cloud/internal/alerts"
	equipment "maintenance-cloud/internal/equipment/domain"
	equipmentmem "maintenance-cloud/internal/equipment/infrastructure/memory"
	"maintenance-cloud/internal/events"
	monitoring "maintenance-cloud/internal/monitoring/domain"
	telemetry "maintenance-cloud/internal/telemetry/domain"
	telemetrymem "maintenance-cloud/internal/telemetry/infrastructure/memory"
	"maintenance-cloud/internal/trends"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubDetector struct {
	anomalous bool
	score     float64
	err       error
}

func (d stubDetector) DetectAnomaly(context.Context, telemetry.SensorReading, []telemetry.SensorReading) (bool, error) {
	return d.anomalous, d.err
}

func (d stubDetector) AnomalyScore(context.Context, telemetry.SensorReading, []telemetry.SensorReading) (float64, error) {
	return d.score, nil
}

type stubPredictor struct {
	needed bool
	rul    float64
}

func (p stubPredictor) ShouldScheduleMaintenance(context.Context, int) (bool, error) {
	return p.needed, nil
}

func (p stubPredictor) PredictRemainingUsefulLife(context.Context, int) (float64, error) {
	return p.rul, nil
}

type nopTwin struct{}

func (nopTwin) SyncWithPhysicalAsset(context.Context, int) error { return nil }

func (nopTwin) UpdateTwinState(context.Context, int, map[string]float64) error { return nil }

type capturingSink struct {
	mu       sync.Mutex
	readings []telemetry.SensorReading
	events   []events.Event
}

func (s *capturingSink) ProcessSensorData(_ context.Context, reading telemetry.SensorReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, reading)
	return nil
}

func (s *capturingSink) ProcessEquipmentEvent(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

type fixture struct {
	service *Service
	repo    *equipmentmem.Repository
	store   *alerts.Store
	sink    *capturingSink
	clock   *fakeClock
}

func newFixture(t *testing.T, detector AnomalyDetector, predictor MaintenancePredictor) *fixture {
	t.Helper()
	clock := newFakeClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	repo := equipmentmem.NewRepository()
	store := alerts.NewStore(alerts.WithClock(clock))
	sink := &capturingSink{}

	service, err := NewService(
		repo,
		telemetrymem.NewReadingStore(24*time.Hour),
		store,
		trends.NewTracker(),
		detector,
		predictor,
		nopTwin{},
		sink,
		nil,
		WithClock(clock),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{service: service, repo: repo, store: store, sink: sink, clock: clock}
}

func criticalMotor(id int) equipment.Equipment {
	return equipment.Equipment{
		ID:          id,
		Name:        "conveyor motor",
		Type:        equipment.TypeMotor,
		Criticality: equipment.CriticalityCritical,
		HealthScore: 100,
		Active:      true,
	}
}

func TestStartMonitoringDerivesModeAndInterval(t *testing.T) {
	f := newFixture(t, stubDetector{}, stubPredictor{})
	f.repo.Put(criticalMotor(1))

	if err := f.service.StartMonitoring(context.Background(), 1); err != nil {
		t.Fatalf("start monitoring: %v", err)
	}
	if !f.service.IsMonitoring(1) {
		t.Fatal("expected equipment monitored")
	}

	detail, err := f.service.GetEquipmentHealth(1)
	if err != nil {
		t.Fatalf("get equipment health: %v", err)
	}
	if detail.State.Mode != monitoring.ModeContinuous {
		t.Fatalf("expected continuous mode, got %s", detail.State.Mode)
	}
	if detail.State.SamplingInterval != 5*time.Second {
		t.Fatalf("expected 5s sampling, got %s", detail.State.SamplingInterval)
	}
}

func TestStartMonitoringUnknownEquipment(t *testing.T) {
	f := newFixture(t, stubDetector{}, stubPredictor{})

	err := f.service.StartMonitoring(context.Background(), 99)
	if !errors.Is(err, equipment.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestProcessSensorDataCriticalAlertWithDedup(t *testing.T) {
	f := newFixture(t, stubDetector{}, stubPredictor{})
	f.repo.Put(criticalMotor(1))
	ctx := context.Background()
	if err := f.service.StartMonitoring(ctx, 1); err != nil {
		t.Fatalf("start monitoring: %v", err)
	}

	if err := f.service.ProcessSensorData(ctx, 1, map[string]float64{"temperature": 95}); err != nil {
		t.Fatalf("process sensor data: %v", err)
	}

	active := f.service.GetActiveAlerts(1)
	if len(active) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(active))
	}
	if active[0].Severity != alerts.SeverityCritical {
		t.Fatalf("expected critical severity, got %s", active[0].Severity)
	}
	if !strings.Contains(active[0].Title, "temperature Critical Threshold Exceeded") {
		t.Fatalf("unexpected title %q", active[0].Title)
	}

	// Same condition inside the dedup window must not add a second alert.
	f.clock.Advance(time.Minute)
	if err := f.service.ProcessSensorData(ctx, 1, map[string]float64{"temperature": 95}); err != nil {
		t.Fatalf("process sensor data: %v", err)
	}
	if got := len(f.service.GetActiveAlerts(1)); got != 1 {
		t.Fatalf("expected dedup to keep one alert, got %d", got)
	}
}

func TestProcessSensorDataUnmonitoredNoOp(t *testing.T) {
	f := newFixture(t, stubDetector{}, stubPredictor{})
	f.repo.Put(criticalMotor(2))

	if err := f.service.ProcessSensorData(context.Background(), 2, map[string]float64{"temperature": 95}); err != nil {
		t.Fatalf("process sensor data: %v", err)
	}
	if got := len(f.service.GetActiveAlerts(2)); got != 0 {
		t.Fatalf("expected no alerts for unmonitored equipment, got %d", got)
	}
	stored, err := f.repo.GetByID(context.Background(), 2)
	if err != nil {
		t.Fatalf("get equipment: %v", err)
	}
	if stored.HealthScore != 100 {
		t.Fatalf("expected unchanged health score, got %f", stored.HealthScore)
	}
}

func TestStopMonitoringIdempotent(t *testing.T) {
	f := newFixture(t, stubDetector{}, stubPredictor{})
	f.repo.Put(criticalMotor(1))
	if err := f.service.StartMonitoring(context.Background(), 1); err != nil {
		t.Fatalf("start monitoring: %v", err)
	}

	f.service.StopMonitoring(1)
	if f.service.IsMonitoring(1) {
		t.Fatal("expected monitoring stopped")
	}
	f.service.StopMonitoring(1)
	if f.service.IsMonitoring(1) {
		t.Fatal("expected monitoring still stopped")
	}

	f.service.StopMonitoring(42)
}

func TestGetEquipmentStatusFollowsAlerts(t *testing.T) {
	f := newFixture(t, stubDetector{}, stubPredictor{})
	f.repo.Put(criticalMotor(1))
	ctx := context.Background()
	if err := f.service.StartMonitoring(ctx, 1); err != nil {
		t.Fatalf("start monitoring: %v", err)
	}

	if status := f.service.GetEquipmentStatus(1); status != monitoring.StatusOperational {
		t.Fatalf("expected operational before alerts, got %s", status)
	}

	if err := f.service.ProcessSensorData(ctx, 1, map[string]float64{"temperature": 95}); err != nil {
		t.Fatalf("process sensor data: %v", err)
	}
	if status := f.service.GetEquipmentStatus(1); status != monitoring.StatusCritical {
		t.Fatalf("expected critical with unacknowledged critical alert, got %s", status)
	}

	active := f.service.GetActiveAlerts(1)
	if len(active) != 1 {
		t.Fatalf("expected one alert, got %d", len(active))
	}
	f.service.AcknowledgeAlert(active[0].ID, "bob")
	if status := f.service.GetEquipmentStatus(1); status == monitoring.StatusCritical {
		t.Fatal("acknowledged alert must not keep status critical")
	}

	if status := f.service.GetEquipmentStatus(77); status != monitoring.StatusOffline {
		t.Fatalf("expected offline for unmonitored equipment, got %s", status)
	}
}

func TestHealthScoreStaysInRange(t *testing.T) {
	f := newFixture(t, stubDetector{anomalous: true, score: 9.5}, stubPredictor{})
	f.repo.Put(criticalMotor(1))
	ctx := context.Background()
	if err := f.service.StartMonitoring(ctx, 1); err != nil {
		t.Fatalf("start monitoring: %v", err)
	}

	for i := 0; i < 6; i++ {
		sensors := map[string]float64{
			"temperature": 500,
			"vibration":   99,
			"pressure":    50,
		}
		if err := f.service.ProcessSensorData(ctx, 1, sensors); err != nil {
			t.Fatalf("process sensor data: %v", err)
		}
		f.clock.Advance(6 * time.Minute)
	}

	detail, err := f.service.GetEquipmentHealth(1)
	if err != nil {
		t.Fatalf("get equipment health: %v", err)
	}
	if detail.Profile.CurrentScore < 0 || detail.Profile.CurrentScore > 100 {
		t.Fatalf("health score out of range: %f", detail.Profile.CurrentScore)
	}
	stored, err := f.repo.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("get equipment: %v", err)
	}
	if stored.HealthScore != detail.Profile.CurrentScore {
		t.Fatalf("persisted score %f differs from profile %f", stored.HealthScore, detail.Profile.CurrentScore)
	}
}

func TestAcknowledgeUnknownAlertNoop(t *testing.T) {
	f := newFixture(t, stubDetector{}, stubPredictor{})
	f.service.AcknowledgeAlert("not-existing", "bob")
	if got := len(f.service.GetActiveAlerts(0)); got != 0 {
		t.Fatalf("expected no alerts, got %d", got)
	}
}

func TestMaintenanceNeedRaisesAlertAndEvent(t *testing.T) {
	f := newFixture(t, stubDetector{}, stubPredictor{needed: true, rul: 320})
	f.repo.Put(criticalMotor(1))
	ctx := context.Background()
	if err := f.service.StartMonitoring(ctx, 1); err != nil {
		t.Fatalf("start monitoring: %v", err)
	}
	if err := f.service.ProcessSensorData(ctx, 1, map[string]float64{"temperature": 40}); err != nil {
		t.Fatalf("process sensor data: %v", err)
	}

	found := false
	for _, alert := range f.service.GetActiveAlerts(1) {
		if alert.Type == alerts.TypeMaintenanceRequired {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a maintenance-required alert")
	}

	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	maintenanceEvents := 0
	for _, event := range f.sink.events {
		if event.Kind == events.KindMaintenance {
			maintenanceEvents++
		}
	}
	if maintenanceEvents == 0 {
		t.Fatal("expected a maintenance event forwarded to the stream")
	}
}

func TestDashboardAggregates(t *testing.T) {
	f := newFixture(t, stubDetector{}, stubPredictor{})
	f.repo.Put(criticalMotor(1))
	transformer := equipment.Equipment{
		ID:          2,
		Name:        "feeder transformer",
		Type:        equipment.TypeTransformer,
		Criticality: equipment.CriticalityMedium,
		HealthScore: 80,
		Active:      true,
	}
	f.repo.Put(transformer)

	ctx := context.Background()
	for _, id := range []int{1, 2} {
		if err := f.service.StartMonitoring(ctx, id); err != nil {
			t.Fatalf("start monitoring %d: %v", id, err)
		}
	}

	// Known to persistence but never monitored: must appear as offline.
	f.repo.Put(equipment.Equipment{
		ID:          3,
		Name:        "spare pump",
		Type:        equipment.TypeGeneric,
		Criticality: equipment.CriticalityLow,
		HealthScore: 100,
		Active:      true,
	})

	dashboard := f.service.GetMonitoringDashboard(ctx)
	if dashboard.MonitoredCount != 2 {
		t.Fatalf("expected 2 monitored, got %d", dashboard.MonitoredCount)
	}
	if dashboard.EquipmentByType[equipment.TypeMotor] != 1 || dashboard.EquipmentByType[equipment.TypeTransformer] != 1 {
		t.Fatalf("unexpected type counts: %v", dashboard.EquipmentByType)
	}
	if dashboard.StatusCounts[monitoring.StatusOffline] != 1 {
		t.Fatalf("expected 1 offline unit, got %v", dashboard.StatusCounts)
	}
	total := 0
	for _, count := range dashboard.StatusCounts {
		total += count
	}
	if total != 3 {
		t.Fatalf("expected status counts over all 3 active equipment, got %v", dashboard.StatusCounts)
	}
	if dashboard.AverageHealth != 90 {
		t.Fatalf("expected average health 90, got %f", dashboard.AverageHealth)
	}
}

func TestGetLatestReadings(t *testing.T) {
	f := newFixture(t, stubDetector{}, stubPredictor{})
	f.repo.Put(criticalMotor(1))

	ctx := context.Background()
	if err := f.service.StartMonitoring(ctx, 1); err != nil {
		t.Fatalf("start monitoring: %v", err)
	}
	if err := f.service.ProcessSensorData(ctx, 1, map[string]float64{"temperature": 60, "load": 40}); err != nil {
		t.Fatalf("process sensor data: %v", err)
	}

	readings, err := f.service.GetLatestReadings(ctx, 10)
	if err != nil {
		t.Fatalf("get latest readings: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(readings))
	}

	one, err := f.service.GetLatestReadings(ctx, 1)
	if err != nil {
		t.Fatalf("get latest readings limit 1: %v", err)
	}
	if len(one) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(one))
	}
}
