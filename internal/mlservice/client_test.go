package mlservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	telemetry "maintenance-cloud/internal/telemetry/domain"
)

func TestDetectAnomaly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/anomaly/detect" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var request detectRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if request.Reading.SensorType != "temperature" {
			t.Errorf("unexpected sensor type %s", request.Reading.SensorType)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(detectResponse{Anomalous: true, Score: 4.2})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	reading := telemetry.SensorReading{EquipmentID: 1, SensorType: "temperature", Value: 97}
	anomalous, err := client.DetectAnomaly(context.Background(), reading, nil)
	if err != nil {
		t.Fatalf("detect anomaly: %v", err)
	}
	if !anomalous {
		t.Fatal("expected anomalous verdict")
	}

	score, err := client.AnomalyScore(context.Background(), reading, nil)
	if err != nil {
		t.Fatalf("anomaly score: %v", err)
	}
	if score != 4.2 {
		t.Fatalf("expected score 4.2, got %f", score)
	}
}

func TestMaintenancePrediction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/maintenance/7/prediction" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(maintenanceResponse{ScheduleMaintenance: true, RemainingUsefulLife: 168})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	needed, err := client.ShouldScheduleMaintenance(context.Background(), 7)
	if err != nil {
		t.Fatalf("should schedule maintenance: %v", err)
	}
	if !needed {
		t.Fatal("expected maintenance recommended")
	}
	rul, err := client.PredictRemainingUsefulLife(context.Background(), 7)
	if err != nil {
		t.Fatalf("predict rul: %v", err)
	}
	if rul != 168 {
		t.Fatalf("expected 168 hours, got %f", rul)
	}
}

func TestTwinEndpointsAndErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/twin/3/sync":
			w.WriteHeader(http.StatusAccepted)
		case "/v1/twin/3/state":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := client.SyncWithPhysicalAsset(context.Background(), 3); err != nil {
		t.Fatalf("twin sync: %v", err)
	}
	if err := client.UpdateTwinState(context.Background(), 3, map[string]float64{"temperature": 40}); err != nil {
		t.Fatalf("twin update: %v", err)
	}
	if err := client.SyncWithPhysicalAsset(context.Background(), 9); err == nil {
		t.Fatal("expected error for failing endpoint")
	}
}

func TestNewClientRejectsEmptyURL(t *testing.T) {
	if _, err := NewClient("", nil); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
