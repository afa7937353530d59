package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"maintenance-cloud/internal/audit"
	"maintenance-cloud/internal/auth"
	equipment "maintenance-cloud/internal/equipment/domain"
	"maintenance-cloud/internal/events"
	application "maintenance-cloud/internal/monitoring/application"
	"maintenance-cloud/internal/observability/metrics"
	"maintenance-cloud/internal/reports"
)

const timeLayout = time.RFC3339

// AlertsHandler serves the active-alert list.
type AlertsHandler struct {
	service *application.Service
}

// NewAlertsHandler constructs an AlertsHandler.
func NewAlertsHandler(service *application.Service) *AlertsHandler {
	return &AlertsHandler{service: service}
}

// ServeHTTP handles GET /api/v1/alerts.
func (h *AlertsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.service == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	equipmentID := 0
	if raw := r.URL.Query().Get("equipment_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			http.Error(w, "invalid equipment_id", http.StatusBadRequest)
			return
		}
		equipmentID = id
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.service.GetActiveAlerts(equipmentID))
}

// AcknowledgeHandler serves alert acknowledgement.
type AcknowledgeHandler struct {
	service *application.Service
	auditor audit.Logger
	logger  *zap.Logger
}

// NewAcknowledgeHandler constructs an AcknowledgeHandler.
func NewAcknowledgeHandler(service *application.Service, auditor audit.Logger, logger *zap.Logger) *AcknowledgeHandler {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcknowledgeHandler{service: service, auditor: auditor, logger: logger}
}

// ServeHTTP handles POST /api/v1/alerts/{id}/acknowledge.
func (h *AcknowledgeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.service == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "acknowledge" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	alertID := parts[0]

	by := auth.SubjectFromContext(r.Context())
	if by == "" {
		by = "unknown"
	}
	h.service.AcknowledgeAlert(alertID, by)

	if err := h.auditor.Log(r.Context(), audit.Entry{
		Actor:        by,
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       "alert.acknowledge",
		ResourceType: "alert",
		ResourceID:   alertID,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	}); err != nil {
		h.logger.Warn("audit log failed", zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}

// DashboardHandler serves the aggregate monitoring snapshot.
type DashboardHandler struct {
	service *application.Service
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(service *application.Service) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// ServeHTTP handles GET /api/v1/dashboard.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.service == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.service.GetMonitoringDashboard(r.Context()))
}

// LatestReadingsHandler serves the most recent sensor readings feed.
type LatestReadingsHandler struct {
	service *application.Service
}

// NewLatestReadingsHandler constructs a LatestReadingsHandler.
func NewLatestReadingsHandler(service *application.Service) *LatestReadingsHandler {
	return &LatestReadingsHandler{service: service}
}

// ServeHTTP handles GET /api/v1/readings/latest.
func (h *LatestReadingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.service == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	readings, err := h.service.GetLatestReadings(r.Context(), limit)
	if err != nil {
		http.Error(w, "readings query error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(readings)
}

// EquipmentHandler serves per-equipment monitoring routes:
// GET  /api/v1/equipment/{id}/health
// GET  /api/v1/equipment/{id}/status
// GET  /api/v1/equipment/{id}/events/analysis
// POST /api/v1/equipment/{id}/monitoring/start
// POST /api/v1/equipment/{id}/monitoring/stop
type EquipmentHandler struct {
	service   *application.Service
	processor *events.Processor
	auditor   audit.Logger
	logger    *zap.Logger
}

// NewEquipmentHandler constructs an EquipmentHandler.
func NewEquipmentHandler(service *application.Service, processor *events.Processor, auditor audit.Logger, logger *zap.Logger) *EquipmentHandler {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquipmentHandler{service: service, processor: processor, auditor: auditor, logger: logger}
}

func (h *EquipmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/equipment/")
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	equipmentID, err := strconv.Atoi(parts[0])
	if err != nil || equipmentID <= 0 {
		http.Error(w, "invalid equipment id", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "health" && r.Method == http.MethodGet:
		h.health(w, equipmentID)
	case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodGet:
		h.status(w, equipmentID)
	case len(parts) == 3 && parts[1] == "events" && parts[2] == "analysis" && r.Method == http.MethodGet:
		h.analysis(w, r, equipmentID)
	case len(parts) == 3 && parts[1] == "monitoring" && r.Method == http.MethodPost:
		h.lifecycle(w, r, equipmentID, parts[2])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *EquipmentHandler) health(w http.ResponseWriter, equipmentID int) {
	detail, err := h.service.GetEquipmentHealth(equipmentID)
	if err != nil {
		if errors.Is(err, application.ErrNotMonitored) {
			http.Error(w, "equipment not monitored", http.StatusNotFound)
			return
		}
		http.Error(w, "health query error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(detail)
}

func (h *EquipmentHandler) status(w http.ResponseWriter, equipmentID int) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": string(h.service.GetEquipmentStatus(equipmentID)),
	})
}

func (h *EquipmentHandler) analysis(w http.ResponseWriter, r *http.Request, equipmentID int) {
	if h.processor == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	window := time.Hour
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid window", http.StatusBadRequest)
			return
		}
		window = parsed
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.processor.AnalyzeEventStream(equipmentID, window))
}

func (h *EquipmentHandler) lifecycle(w http.ResponseWriter, r *http.Request, equipmentID int, action string) {
	var err error
	switch action {
	case "start":
		err = h.service.StartMonitoring(r.Context(), equipmentID)
	case "stop":
		h.service.StopMonitoring(equipmentID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		if errors.Is(err, equipment.ErrNotFound) {
			http.Error(w, "equipment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "monitoring error", http.StatusInternalServerError)
		return
	}

	actor := auth.SubjectFromContext(r.Context())
	if auditErr := h.auditor.Log(r.Context(), audit.Entry{
		Actor:        actor,
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       "monitoring." + action,
		ResourceType: "equipment",
		ResourceID:   strconv.Itoa(equipmentID),
		EquipmentID:  equipmentID,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	}); auditErr != nil {
		h.logger.Warn("audit log failed", zap.Error(auditErr))
	}

	w.WriteHeader(http.StatusNoContent)
}

// CorrelationsHandler serves event correlation queries.
type CorrelationsHandler struct {
	processor *events.Processor
}

// NewCorrelationsHandler constructs a CorrelationsHandler.
func NewCorrelationsHandler(processor *events.Processor) *CorrelationsHandler {
	return &CorrelationsHandler{processor: processor}
}

// ServeHTTP handles GET /api/v1/events/correlations.
func (h *CorrelationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.processor == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.processor.CorrelateEvents(from, to))
}

// ReportsHandler serves dashboard report downloads.
type ReportsHandler struct {
	service *application.Service
	logger  *zap.Logger
}

// NewReportsHandler constructs a ReportsHandler.
func NewReportsHandler(service *application.Service, logger *zap.Logger) *ReportsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportsHandler{service: service, logger: logger}
}

// ServeHTTP handles GET /api/v1/reports/dashboard.{xlsx,pdf}.
func (h *ReportsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.service == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	format := ""
	switch r.URL.Path {
	case "/api/v1/reports/dashboard.xlsx":
		format = "xlsx"
	case "/api/v1/reports/dashboard.pdf":
		format = "pdf"
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	started := time.Now()
	dashboard := h.service.GetMonitoringDashboard(r.Context())

	var payload []byte
	var contentType string
	var err error
	switch format {
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		payload, err = reports.BuildDashboardXLSX(dashboard)
	case "pdf":
		contentType = "application/pdf"
		payload, err = reports.BuildDashboardPDF(dashboard)
	}
	if err != nil {
		metrics.ObserveReportExport(format, metrics.ResultError, time.Since(started))
		h.logger.Error("report export failed", zap.String("format", format), zap.Error(err))
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveReportExport(format, metrics.ResultSuccess, time.Since(started))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=dashboard."+format)
	_, _ = w.Write(payload)
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed, nil
}
