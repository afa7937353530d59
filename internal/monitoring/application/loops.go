package application

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	healthRefreshInterval = 5 * time.Minute
	alertCleanupInterval  = time.Hour
	perfRecomputeInterval = 15 * time.Minute
)

// Run drives the orchestrator's background loops until ctx is done: periodic
// health refresh across all monitored equipment, resolved-alert cleanup, and
// performance recomputation. Each iteration logs failures and keeps looping.
func (s *Service) Run(ctx context.Context) {
	healthTicker := time.NewTicker(healthRefreshInterval)
	cleanupTicker := time.NewTicker(alertCleanupInterval)
	perfTicker := time.NewTicker(perfRecomputeInterval)
	defer healthTicker.Stop()
	defer cleanupTicker.Stop()
	defer perfTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-healthTicker.C:
			s.refreshAllHealth(ctx)
		case <-cleanupTicker.C:
			if removed := s.alerts.CleanupResolved(); removed > 0 {
				s.logger.Info("resolved alerts cleaned up", zap.Int("removed", removed))
			}
		case <-perfTicker.C:
			s.recomputeAllPerformance()
		}
	}
}

func (s *Service) refreshAllHealth(ctx context.Context) {
	now := s.clock.Now().UTC()
	for _, m := range s.activeMonitored() {
		s.recomputeHealth(ctx, m, now)
	}
}

func (s *Service) recomputeAllPerformance() {
	now := s.clock.Now().UTC()
	for _, m := range s.activeMonitored() {
		m.mu.Lock()
		if m.perf != nil {
			m.perf.Recompute(now)
		}
		m.mu.Unlock()
	}
}

func (s *Service) activeMonitored() []*monitored {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*monitored
	for _, m := range s.monitored {
		m.mu.Lock()
		active := m.state.Active
		m.mu.Unlock()
		if active {
			result = append(result, m)
		}
	}
	return result
}
