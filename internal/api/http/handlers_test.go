package apihttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"maintenance-cloud/internal/alerts"
	equipment "maintenance-cloud/internal/equipment/domain"
	equipmentmem "maintenance-cloud/internal/equipment/infrastructure/memory"
	"maintenance-cloud/internal/events"
	application "maintenance-cloud/internal/monitoring/application"
	telemetry "maintenance-cloud/internal/telemetry/domain"
	telemetrymem "maintenance-cloud/internal/telemetry/infrastructure/memory"
	"maintenance-cloud/internal/trends"
)

type stubDetector struct{}

func (stubDetector) DetectAnomaly(context.Context, telemetry.SensorReading, []telemetry.SensorReading) (bool, error) {
	return false, nil
}

func (stubDetector) AnomalyScore(context.Context, telemetry.SensorReading, []telemetry.SensorReading) (float64, error) {
	return 0, nil
}

type stubPredictor struct{}

func (stubPredictor) ShouldScheduleMaintenance(context.Context, int) (bool, error) {
	return false, nil
}

func (stubPredictor) PredictRemainingUsefulLife(context.Context, int) (float64, error) {
	return 0, nil
}

type nopTwin struct{}

func (nopTwin) SyncWithPhysicalAsset(context.Context, int) error { return nil }

func (nopTwin) UpdateTwinState(context.Context, int, map[string]float64) error { return nil }

func newTestService(t *testing.T) (*application.Service, *events.Processor) {
	t.Helper()
	processor := events.NewProcessor(nil, zap.NewNop())
	service, err := application.NewService(
		equipmentmem.NewRepository(),
		telemetrymem.NewReadingStore(24*time.Hour),
		alerts.NewStore(),
		trends.NewTracker(),
		stubDetector{},
		stubPredictor{},
		nopTwin{},
		processor,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, processor
}

func putMotor(t *testing.T, service *application.Service, repo *equipmentmem.Repository, id int) {
	t.Helper()
	repo.Put(equipment.Equipment{
		ID:          id,
		Name:        "press",
		Type:        equipment.TypeMotor,
		Criticality: equipment.CriticalityMedium,
		HealthScore: 90,
		Active:      true,
	})
	if err := service.StartMonitoring(context.Background(), id); err != nil {
		t.Fatalf("start monitoring: %v", err)
	}
}

func TestEquipmentHandlerRoutes(t *testing.T) {
	repo := equipmentmem.NewRepository()
	processor := events.NewProcessor(nil, zap.NewNop())
	service, err := application.NewService(
		repo, telemetrymem.NewReadingStore(24*time.Hour), alerts.NewStore(),
		trends.NewTracker(), stubDetector{}, stubPredictor{}, nopTwin{}, processor, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	putMotor(t, service, repo, 4)
	handler := NewEquipmentHandler(service, processor, nil, nil)

	cases := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"health ok", http.MethodGet, "/api/v1/equipment/4/health", http.StatusOK},
		{"health unmonitored", http.MethodGet, "/api/v1/equipment/99/health", http.StatusNotFound},
		{"status ok", http.MethodGet, "/api/v1/equipment/4/status", http.StatusOK},
		{"analysis ok", http.MethodGet, "/api/v1/equipment/4/events/analysis", http.StatusOK},
		{"analysis bad window", http.MethodGet, "/api/v1/equipment/4/events/analysis?window=bogus", http.StatusBadRequest},
		{"stop ok", http.MethodPost, "/api/v1/equipment/4/monitoring/stop", http.StatusNoContent},
		{"start unknown equipment", http.MethodPost, "/api/v1/equipment/99/monitoring/start", http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/v1/equipment/zero/health", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/equipment/4/bogus", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestAlertsHandlerFiltersByEquipment(t *testing.T) {
	repo := equipmentmem.NewRepository()
	processor := events.NewProcessor(nil, zap.NewNop())
	service, err := application.NewService(
		repo, telemetrymem.NewReadingStore(24*time.Hour), alerts.NewStore(),
		trends.NewTracker(), stubDetector{}, stubPredictor{}, nopTwin{}, processor, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	putMotor(t, service, repo, 4)
	if err := service.ProcessSensorData(context.Background(), 4, map[string]float64{"temperature": 95}); err != nil {
		t.Fatalf("process sensor data: %v", err)
	}

	handler := NewAlertsHandler(service)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?equipment_id=4", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var listed []alerts.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(listed) == 0 {
		t.Fatal("expected at least one alert")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/alerts?equipment_id=abc", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAcknowledgeHandlerPathParsing(t *testing.T) {
	service, _ := newTestService(t)
	handler := NewAcknowledgeHandler(service, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/abc123/acknowledge", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/alerts/abc123/close", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDashboardHandler(t *testing.T) {
	service, _ := newTestService(t)
	handler := NewDashboardHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var dashboard application.Dashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &dashboard); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestLatestReadingsHandler(t *testing.T) {
	repo := equipmentmem.NewRepository()
	processor := events.NewProcessor(nil, zap.NewNop())
	service, err := application.NewService(
		repo, telemetrymem.NewReadingStore(24*time.Hour), alerts.NewStore(),
		trends.NewTracker(), stubDetector{}, stubPredictor{}, nopTwin{}, processor, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	putMotor(t, service, repo, 4)
	if err := service.ProcessSensorData(context.Background(), 4, map[string]float64{"temperature": 61}); err != nil {
		t.Fatalf("process sensor data: %v", err)
	}

	handler := NewLatestReadingsHandler(service)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings/latest?limit=5", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var readings []telemetry.SensorReading
	if err := json.Unmarshal(rec.Body.Bytes(), &readings); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(readings))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/readings/latest?limit=-2", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCorrelationsHandlerValidatesRange(t *testing.T) {
	_, processor := newTestService(t)
	handler := NewCorrelationsHandler(processor)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/correlations", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing range", rec.Code)
	}

	from := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	to := time.Now().UTC().Format(time.RFC3339)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/events/correlations?from="+from+"&to="+to, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReportsHandlerExports(t *testing.T) {
	service, _ := newTestService(t)
	handler := NewReportsHandler(service, nil)

	for _, path := range []string{"/api/v1/reports/dashboard.xlsx", "/api/v1/reports/dashboard.pdf"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, rec.Code)
		}
		if rec.Body.Len() == 0 {
			t.Fatalf("%s produced empty payload", path)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/other.csv", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
