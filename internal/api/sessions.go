package api

import (
	"context"
	"sync"
	"time"

	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/observability"
	"cpq-console/internal/wizard"
)

// SessionRegistry holds open wizard sessions and drops those idle for longer
// than the configured timeout.
type SessionRegistry struct {
	idle   time.Duration
	clock  func() time.Time
	obs    *observability.Observability
	logger logger.Logger

	mu       sync.RWMutex
	sessions map[string]*wizard.Wizard
}

func NewSessionRegistry(idle time.Duration, obs *observability.Observability, log logger.Logger) *SessionRegistry {
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &SessionRegistry{
		idle:     idle,
		clock:    time.Now,
		obs:      obs,
		logger:   logger.Component(log, "sessions"),
		sessions: map[string]*wizard.Wizard{},
	}
}

func (s *SessionRegistry) Put(ctx context.Context, w *wizard.Wizard) {
	s.mu.Lock()
	_, existed := s.sessions[w.ID()]
	s.sessions[w.ID()] = w
	s.mu.Unlock()
	if !existed {
		s.obs.SessionOpened(ctx)
	}
}

func (s *SessionRegistry) Get(id string) (*wizard.Wizard, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.sessions[id]
	return w, ok
}

func (s *SessionRegistry) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		s.obs.SessionClosed(ctx)
	}
	return ok
}

func (s *SessionRegistry) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle since before now-idle and returns how many.
func (s *SessionRegistry) Sweep(ctx context.Context) int {
	if s.idle <= 0 {
		return 0
	}
	cutoff := s.clock().Add(-s.idle)

	s.mu.Lock()
	var expired []string
	for id, w := range s.sessions {
		if w.LastActivity().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for range expired {
		s.obs.SessionClosed(ctx)
	}
	if len(expired) > 0 {
		s.logger.Info("Idle wizard sessions dropped", map[string]interface{}{"count": len(expired)})
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (s *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
