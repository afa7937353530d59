package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"maintenance-cloud/internal/alerts"
	"maintenance-cloud/internal/anomaly"
	apihttp "maintenance-cloud/internal/api/http"
	"maintenance-cloud/internal/audit"
	"maintenance-cloud/internal/auth"
	equipmentpostgres "maintenance-cloud/internal/equipment/infrastructure/postgres"
	"maintenance-cloud/internal/events"
	"maintenance-cloud/internal/mlservice"
	"maintenance-cloud/internal/monitoring/application"
	monitoring "maintenance-cloud/internal/monitoring/domain"
	"maintenance-cloud/internal/notify"
	"maintenance-cloud/internal/notify/ws"
	"maintenance-cloud/internal/observability/logging"
	"maintenance-cloud/internal/observability/metrics"
	telemetry "maintenance-cloud/internal/telemetry/domain"
	telemetrymem "maintenance-cloud/internal/telemetry/infrastructure/memory"
	telemetryredis "maintenance-cloud/internal/telemetry/infrastructure/redis"
	telemetryhttp "maintenance-cloud/internal/telemetry/interfaces/http"
	telemetrymqtt "maintenance-cloud/internal/telemetry/interfaces/mqtt"
	"maintenance-cloud/internal/trends"
)

func main() {
	cfg := loadConfig()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open error", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal("db ping error", zap.Error(err))
	}

	auditRepo := audit.NewRepository(db)
	equipmentRepo := equipmentpostgres.NewEquipmentRepository(db)

	readings, err := buildReadingStore(cfg, logger)
	if err != nil {
		logger.Fatal("reading store error", zap.Error(err))
	}
	alertStore := alerts.NewStore()
	trendTracker := trends.NewTracker()

	thresholds, err := monitoring.LoadThresholds(cfg.ThresholdsPath)
	if err != nil {
		logger.Fatal("thresholds error", zap.Error(err))
	}

	hub := ws.NewHub(logger)
	notifiers := []notify.Notifier{hub}
	if cfg.WebhookURL != "" {
		webhook, err := notify.NewWebhookNotifier(cfg.WebhookURL, logger)
		if err != nil {
			logger.Fatal("webhook notifier error", zap.Error(err))
		}
		notifiers = append(notifiers, webhook)
	}
	notifier := notify.NewMultiNotifier(notifiers...)

	processor := events.NewProcessor(notifier, logger,
		events.WithCriticalLimits(criticalLimits(thresholds)))
	for _, kind := range []events.Kind{
		events.KindSensorData, events.KindEquipment, events.KindAnomaly,
		events.KindMaintenance, events.KindAlert,
	} {
		kind := kind
		processor.RegisterEventHandler(kind, func(context.Context, events.Event) error {
			metrics.IncEventProcessed(string(kind))
			return nil
		})
	}

	detector, predictor, twin := buildPredictiveStack(cfg, logger)

	service, err := application.NewService(
		equipmentRepo, readings, alertStore, trendTracker,
		detector, predictor, twin, processor, logger,
		application.WithThresholds(thresholds),
		application.WithNotifier(notifier),
	)
	if err != nil {
		logger.Fatal("monitoring service error", zap.Error(err))
	}

	metrics.Init(db, processor.QueueDepth)

	ingestHandler, err := telemetryhttp.NewIngestHandler(service, logger)
	if err != nil {
		logger.Fatal("ingest handler error", zap.Error(err))
	}

	if cfg.MQTTBroker != "" {
		consumer, err := telemetrymqtt.NewConsumer(telemetrymqtt.Config{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Topic:    cfg.MQTTTopic,
			QoS:      1,
		}, service, logger)
		if err != nil {
			logger.Fatal("mqtt consumer error", zap.Error(err))
		}
		if err := consumer.Start(ctx); err != nil {
			logger.Fatal("mqtt subscribe error", zap.Error(err))
		}
		defer consumer.Close()
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/", "/ws"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)

	alertsHandler := apihttp.NewAlertsHandler(service)
	acknowledgeHandler := apihttp.NewAcknowledgeHandler(service, auditRepo, logger)
	dashboardHandler := apihttp.NewDashboardHandler(service)
	equipmentHandler := apihttp.NewEquipmentHandler(service, processor, auditRepo, logger)
	correlationsHandler := apihttp.NewCorrelationsHandler(processor)
	latestReadingsHandler := apihttp.NewLatestReadingsHandler(service)
	reportsHandler := apihttp.NewReportsHandler(service, logger)

	mux := http.NewServeMux()
	mux.Handle("/ingest/telemetry", ingestAuth.Wrap(ingestHandler))
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.Handle("/api/v1/alerts", alertsHandler)
	mux.Handle("/api/v1/alerts/", acknowledgeHandler)
	mux.Handle("/api/v1/dashboard", dashboardHandler)
	mux.Handle("/api/v1/equipment/", equipmentHandler)
	mux.Handle("/api/v1/events/correlations", correlationsHandler)
	mux.Handle("/api/v1/readings/latest", latestReadingsHandler)
	mux.Handle("/api/v1/reports/", reportsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	go hub.Run(ctx)
	go processor.Run(ctx)
	go service.Run(ctx)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger),
	}
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}
}

type config struct {
	DatabaseURL       string
	RedisAddr         string
	MQTTBroker        string
	MQTTClientID      string
	MQTTUsername      string
	MQTTPassword      string
	MQTTTopic         string
	MLBaseURL         string
	WebhookURL        string
	ThresholdsPath    string
	HTTPAddr          string
	JWTSecret         string
	IngestSecret      string
	IngestSkewSeconds int
	ReadingRetention  time.Duration
	LogLevel          string
	LogFormat         string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		RedisAddr:         getenvDefault("REDIS_ADDR", ""),
		MQTTBroker:        getenvDefault("MQTT_BROKER", ""),
		MQTTClientID:      getenvDefault("MQTT_CLIENT_ID", "maintenance-cloud"),
		MQTTUsername:      getenvDefault("MQTT_USERNAME", ""),
		MQTTPassword:      getenvDefault("MQTT_PASSWORD", ""),
		MQTTTopic:         getenvDefault("MQTT_TOPIC", "telemetry/+/readings"),
		MLBaseURL:         getenvDefault("ML_BASE_URL", ""),
		WebhookURL:        getenvDefault("NOTIFY_WEBHOOK_URL", ""),
		ThresholdsPath:    getenvDefault("THRESHOLDS_PATH", ""),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:      getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds: getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
		ReadingRetention:  getenvDuration("READING_RETENTION", 24*time.Hour),
		LogLevel:          getenvDefault("LOG_LEVEL", "info"),
		LogFormat:         getenvDefault("LOG_FORMAT", "json"),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	if cfg.IngestSecret == "" {
		log.Fatal("INGEST_HMAC_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func buildReadingStore(cfg config, logger *zap.Logger) (telemetry.ReadingStore, error) {
	if cfg.RedisAddr == "" {
		logger.Info("reading store: in-memory", zap.Duration("retention", cfg.ReadingRetention))
		return telemetrymem.NewReadingStore(cfg.ReadingRetention), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	logger.Info("reading store: redis", zap.String("addr", cfg.RedisAddr))
	return telemetryredis.NewReadingStore(client, telemetryredis.WithRetention(cfg.ReadingRetention))
}

// buildPredictiveStack wires the external prediction service when configured,
// and falls back to the built-in statistical detector otherwise.
func buildPredictiveStack(cfg config, logger *zap.Logger) (application.AnomalyDetector, application.MaintenancePredictor, application.DigitalTwin) {
	if cfg.MLBaseURL != "" {
		client, err := mlservice.NewClient(cfg.MLBaseURL, logger)
		if err != nil {
			logger.Fatal("ml client error", zap.Error(err))
		}
		return client, client, client
	}
	logger.Info("prediction service not configured, using built-in detector")
	return anomaly.NewDetector(), noopPredictor{}, noopTwin{}
}

func criticalLimits(thresholds monitoring.ThresholdSet) map[string]float64 {
	limits := make(map[string]float64, len(thresholds))
	for sensorType, config := range thresholds {
		if config.Relative {
			continue
		}
		limits[sensorType] = config.Critical
	}
	return limits
}

func loggingMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// ---- Adapters ----

// noopPredictor is used when no prediction service is configured. Maintenance
// scheduling then relies on thresholds, rules and trend analysis alone.
type noopPredictor struct{}

func (noopPredictor) ShouldScheduleMaintenance(context.Context, int) (bool, error) {
	return false, nil
}

func (noopPredictor) PredictRemainingUsefulLife(context.Context, int) (float64, error) {
	return 0, nil
}

type noopTwin struct{}

func (noopTwin) SyncWithPhysicalAsset(context.Context, int) error { return nil }

func (noopTwin) UpdateTwinState(context.Context, int, map[string]float64) error { return nil }
