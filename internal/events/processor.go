package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"maintenance-cloud/internal/notify"
	telemetry "maintenance-cloud/internal/telemetry/domain"
)

const (
	defaultRetention     = 24 * time.Hour
	defaultPatternWindow = time.Hour
	sensorBatchInterval  = 5 * time.Second
	alertBatchInterval   = time.Minute
)

// Handler consumes one event. Handlers registered for the same kind run
// concurrently when an event of that kind is dequeued.
type Handler func(ctx context.Context, event Event) error

// BatchHandler consumes a flushed batch of sensor-data events.
type BatchHandler func(ctx context.Context, batch []Event)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Processor ingests sensor readings and equipment events, retains them in
// per-equipment sliding windows, and fans them out asynchronously to
// registered handlers and notification subscribers.
//
// A single background consumer drains the queue in arrival order; handler
// completion for one event is awaited before the next event is dequeued.
type Processor struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
	windows  map[int]*window
	patterns []Pattern
	complex  []ComplexProcessor

	queue    *queue
	notifier notify.Notifier

	criticalLimits map[string]float64

	batchMu             sync.Mutex
	sensorBatch         []Event
	sensorBatchHandlers []BatchHandler
	alertBatch          map[int][]Event

	retention     time.Duration
	patternWindow time.Duration

	clock  Clock
	logger *zap.Logger
}

// ProcessorOption configures the processor.
type ProcessorOption func(*Processor)

// WithClock overrides the default clock.
func WithClock(clock Clock) ProcessorOption {
	return func(p *Processor) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithRetention overrides the per-equipment window retention.
func WithRetention(retention time.Duration) ProcessorOption {
	return func(p *Processor) {
		if retention > 0 {
			p.retention = retention
		}
	}
}

// WithCriticalLimits sets the coarse per-sensor critical limits used for the
// processor's immediate check, independent of the orchestrator's thresholds.
func WithCriticalLimits(limits map[string]float64) ProcessorOption {
	return func(p *Processor) {
		if len(limits) > 0 {
			p.criticalLimits = limits
		}
	}
}

// WithPatterns replaces the default event patterns.
func WithPatterns(patterns ...Pattern) ProcessorOption {
	return func(p *Processor) {
		p.patterns = patterns
	}
}

// DefaultPatterns returns the built-in correlation patterns matched on the
// last-hour window of equipment events.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "repeated-anomaly", Sequence: []Kind{KindAnomaly, KindAnomaly, KindAnomaly}, Window: time.Hour, Severity: "high"},
		{Name: "anomaly-escalation", Sequence: []Kind{KindAnomaly, KindAlert}, Window: 30 * time.Minute, Severity: "high"},
		{Name: "maintenance-after-alerts", Sequence: []Kind{KindAlert, KindAlert, KindMaintenance}, Window: time.Hour, Severity: "medium"},
	}
}

// NewProcessor constructs an event stream processor. Run must be started for
// asynchronous fan-out and batching to happen.
func NewProcessor(notifier notify.Notifier, logger *zap.Logger, opts ...ProcessorOption) *Processor {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	processor := &Processor{
		handlers: make(map[Kind][]Handler),
		windows:  make(map[int]*window),
		patterns: DefaultPatterns(),
		complex:  DefaultComplexProcessors(),
		queue:    newQueue(),
		notifier: notifier,
		criticalLimits: map[string]float64{
			"temperature": 100,
			"vibration":   10,
			"pressure":    12,
		},
		alertBatch:    make(map[int][]Event),
		retention:     defaultRetention,
		patternWindow: defaultPatternWindow,
		clock:         systemClock{},
		logger:        logger,
	}
	for _, opt := range opts {
		opt(processor)
	}
	return processor
}

// RegisterEventHandler appends a handler for one event kind.
func (p *Processor) RegisterEventHandler(kind Kind, handler Handler) {
	if handler == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = append(p.handlers[kind], handler)
}

// RegisterSensorBatchHandler appends a handler for 5-second sensor batches.
func (p *Processor) RegisterSensorBatchHandler(handler BatchHandler) {
	if handler == nil {
		return
	}
	p.batchMu.Lock()
	defer p.batchMu.Unlock()
	p.sensorBatchHandlers = append(p.sensorBatchHandlers, handler)
}

// RegisterPattern adds an event pattern for equipment-event detection.
func (p *Processor) RegisterPattern(pattern Pattern) {
	if pattern.Name == "" || len(pattern.Sequence) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.patterns = append(p.patterns, pattern)
}

// RegisterComplexProcessor adds a complex-event processor.
func (p *Processor) RegisterComplexProcessor(processor ComplexProcessor) {
	if processor == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.complex = append(p.complex, processor)
}

// Run drives the queue consumer and batch flush loops until ctx is done.
func (p *Processor) Run(ctx context.Context) {
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		p.consume(ctx)
	}()

	sensorTicker := time.NewTicker(sensorBatchInterval)
	alertTicker := time.NewTicker(alertBatchInterval)
	defer sensorTicker.Stop()
	defer alertTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.queue.close()
			<-consumerDone
			p.flushSensorBatch(context.Background())
			p.flushAlertBatches(context.Background())
			return
		case <-sensorTicker.C:
			p.flushSensorBatch(ctx)
		case <-alertTicker.C:
			p.flushAlertBatches(ctx)
		}
	}
}

// ProcessSensorData publishes a reading onto the sensor-data stream: a coarse
// synchronous critical check, window retention, asynchronous handler fan-out,
// and 5-second batching.
func (p *Processor) ProcessSensorData(ctx context.Context, reading telemetry.SensorReading) error {
	if err := reading.Validate(); err != nil {
		return err
	}
	event := NewSensorDataEvent(reading)
	now := p.clock.Now().UTC()

	if limit, ok := p.criticalLimits[reading.SensorType]; ok && reading.Value >= limit {
		p.notifier.BroadcastToEquipment(ctx, reading.EquipmentID, notify.Message{
			Type:        "immediate_critical",
			EquipmentID: reading.EquipmentID,
			Severity:    "critical",
			Title:       fmt.Sprintf("%s reading %.2f at or above critical limit %.2f", reading.SensorType, reading.Value, limit),
			At:          now,
		})
		alertEvent := NewAlertEvent(reading.EquipmentID, "", "immediate_critical", "critical",
			fmt.Sprintf("%s critical limit reached", reading.SensorType), now)
		p.window(reading.EquipmentID).append(alertEvent, now)
		p.queue.push(alertEvent)
	}

	p.window(reading.EquipmentID).append(event, now)
	p.queue.push(event)

	p.batchMu.Lock()
	p.sensorBatch = append(p.sensorBatch, event)
	p.batchMu.Unlock()
	return nil
}

// ProcessEquipmentEvent publishes a non-sensor event: window retention,
// asynchronous fan-out, pattern detection over the last-hour window, and
// subscriber push (global broadcast plus the equipment group).
func (p *Processor) ProcessEquipmentEvent(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	now := p.clock.Now().UTC()

	p.window(event.EquipmentID).append(event, now)
	p.queue.push(event)

	if event.Kind == KindAlert {
		p.batchMu.Lock()
		p.alertBatch[event.EquipmentID] = append(p.alertBatch[event.EquipmentID], event)
		p.batchMu.Unlock()
	}

	recent := p.window(event.EquipmentID).snapshot(now.Add(-p.patternWindow))
	for _, match := range p.detectPatterns(recent, now) {
		message := notify.Message{
			Type:        "pattern_detected",
			EquipmentID: event.EquipmentID,
			Severity:    match.Severity,
			Title:       fmt.Sprintf("Event pattern %s detected", match.Pattern),
			At:          match.DetectedAt,
		}
		p.notifier.Broadcast(ctx, message)
		p.notifier.BroadcastToEquipment(ctx, event.EquipmentID, message)
	}
	return nil
}

// QueueDepth returns the number of events awaiting dispatch.
func (p *Processor) QueueDepth() int {
	return p.queue.depth()
}

func (p *Processor) consume(ctx context.Context) {
	for {
		event, ok := p.queue.pop()
		if !ok {
			return
		}

		p.mu.RLock()
		handlers := append([]Handler(nil), p.handlers[event.Kind]...)
		p.mu.RUnlock()

		if len(handlers) == 0 {
			continue
		}
		var wg sync.WaitGroup
		for _, handler := range handlers {
			wg.Add(1)
			go func(h Handler) {
				defer wg.Done()
				if err := h(ctx, event); err != nil {
					p.logger.Warn("event handler failed",
						zap.String("kind", string(event.Kind)),
						zap.Int("equipment_id", event.EquipmentID),
						zap.Error(err))
				}
			}(handler)
		}
		wg.Wait()
	}
}

func (p *Processor) detectPatterns(window []Event, now time.Time) []PatternMatch {
	p.mu.RLock()
	patterns := append([]Pattern(nil), p.patterns...)
	p.mu.RUnlock()

	var matches []PatternMatch
	for _, pattern := range patterns {
		if pattern.Matches(window, now) {
			matches = append(matches, PatternMatch{
				Pattern:    pattern.Name,
				Severity:   pattern.Severity,
				DetectedAt: now,
			})
		}
	}
	return matches
}

func (p *Processor) flushSensorBatch(ctx context.Context) {
	p.batchMu.Lock()
	batch := p.sensorBatch
	p.sensorBatch = nil
	handlers := append([]BatchHandler(nil), p.sensorBatchHandlers...)
	p.batchMu.Unlock()

	if len(batch) == 0 {
		return
	}
	for _, handler := range handlers {
		handler(ctx, batch)
	}
}

func (p *Processor) flushAlertBatches(ctx context.Context) {
	p.batchMu.Lock()
	batches := p.alertBatch
	p.alertBatch = make(map[int][]Event)
	p.batchMu.Unlock()

	for equipmentID, batch := range batches {
		if len(batch) == 0 {
			continue
		}
		p.notifier.BroadcastToEquipment(ctx, equipmentID, notify.Message{
			Type:        "alert_batch",
			EquipmentID: equipmentID,
			Title:       fmt.Sprintf("%d alert events in the last minute", len(batch)),
			At:          p.clock.Now().UTC(),
		})
	}
}

func (p *Processor) window(equipmentID int) *window {
	p.mu.RLock()
	w, ok := p.windows[equipmentID]
	p.mu.RUnlock()
	if ok {
		return w
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.windows[equipmentID]; ok {
		return w
	}
	w = newWindow(p.retention)
	p.windows[equipmentID] = w
	return w
}

func (p *Processor) windowSnapshot(equipmentID int, since time.Time) []Event {
	p.mu.RLock()
	w, ok := p.windows[equipmentID]
	p.mu.RUnlock()
	if !ok {
		return nil
	}
	return w.snapshot(since)
}

func (p *Processor) allWindowSnapshots(since time.Time) map[int][]Event {
	p.mu.RLock()
	ids := make([]int, 0, len(p.windows))
	for id := range p.windows {
		ids = append(ids, id)
	}
	p.mu.RUnlock()

	result := make(map[int][]Event, len(ids))
	for _, id := range ids {
		if snapshot := p.windowSnapshot(id, since); len(snapshot) > 0 {
			result[id] = snapshot
		}
	}
	return result
}
