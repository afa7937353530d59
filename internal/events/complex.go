package events

import "time"

// ComplexProcessor inspects a slice of events for multi-event patterns that
// the simple sequence patterns cannot express. Implementations return zero or
// more matches per invocation.
type ComplexProcessor interface {
	Name() string
	Detect(eventList []Event, now time.Time) []PatternMatch
}

// DefaultComplexProcessors returns the built-in set. All four are extension
// points with no detection logic yet; cascade-style correlation lives in
// CorrelateEvents instead.
func DefaultComplexProcessors() []ComplexProcessor {
	return []ComplexProcessor{
		cascadeFailureProcessor{},
		performanceDegradationProcessor{},
		maintenanceWindowProcessor{},
		energyAnomalyProcessor{},
	}
}

type cascadeFailureProcessor struct{}

func (cascadeFailureProcessor) Name() string { return "cascade_failure" }

func (cascadeFailureProcessor) Detect([]Event, time.Time) []PatternMatch { return nil }

type performanceDegradationProcessor struct{}

func (performanceDegradationProcessor) Name() string { return "performance_degradation" }

func (performanceDegradationProcessor) Detect([]Event, time.Time) []PatternMatch { return nil }

type maintenanceWindowProcessor struct{}

func (maintenanceWindowProcessor) Name() string { return "maintenance_window" }

func (maintenanceWindowProcessor) Detect([]Event, time.Time) []PatternMatch { return nil }

type energyAnomalyProcessor struct{}

func (energyAnomalyProcessor) Name() string { return "energy_anomaly" }

func (energyAnomalyProcessor) Detect([]Event, time.Time) []PatternMatch { return nil }

// DetectComplexEventPattern runs every registered complex processor over the
// supplied events and aggregates their matches. Callers typically pass an
// equipment's retained window.
func (p *Processor) DetectComplexEventPattern(eventList []Event) []PatternMatch {
	now := p.clock.Now().UTC()

	p.mu.RLock()
	processors := append([]ComplexProcessor(nil), p.complex...)
	p.mu.RUnlock()

	var matches []PatternMatch
	for _, processor := range processors {
		matches = append(matches, processor.Detect(eventList, now)...)
	}
	return matches
}
