// Package events fans run progress events out to subscribers. The
// websocket surface and the log mirror both ride on it.
package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/common"
	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
)

// defaultBuffer is the subscriber channel depth when none is given.
const defaultBuffer = 64

// Service implements interfaces.RunEventService with buffered channel
// subscribers. Publish never blocks: a subscriber that falls behind
// loses events, the pipeline does not wait.
type Service struct {
	mu     sync.RWMutex
	subs   map[string]chan models.RunEvent
	closed bool
	logger arbor.ILogger
}

// NewService creates the event fan-out.
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		subs:   make(map[string]chan models.RunEvent),
		logger: logger,
	}
}

// Publish delivers an event to every subscriber, dropping it for any
// whose buffer is full.
func (s *Service) Publish(ev models.RunEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}

	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Debug().
				Str("subscriber", id).
				Str("run_id", ev.RunID).
				Msg("Subscriber buffer full, dropping run event")
		}
	}
}

// Subscribe registers a new subscriber and returns its id and channel.
func (s *Service) Subscribe(buffer int) (string, <-chan models.RunEvent) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan models.RunEvent, buffer)
	if s.closed {
		close(ch)
		return id, ch
	}
	s.subs[id] = ch

	s.logger.Debug().
		Str("subscriber", id).
		Int("subscriber_count", len(s.subs)).
		Msg("Run event subscriber registered")
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Service) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.subs[id]
	if !ok {
		return
	}
	delete(s.subs, id)
	close(ch)

	s.logger.Debug().
		Str("subscriber", id).
		Int("subscriber_count", len(s.subs)).
		Msg("Run event subscriber removed")
}

// Close shuts down all subscriptions.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.logger.Debug().Msg("Run event service closed")
}

// MirrorToLog starts a background subscriber that writes every run
// event to the log. Useful in development and for headless deploys
// with no websocket clients.
func (s *Service) MirrorToLog() {
	id, ch := s.Subscribe(defaultBuffer)
	common.SafeGo(s.logger, "run-event-log-mirror", func() {
		for ev := range ch {
			s.logger.Info().
				Str("run_id", ev.RunID).
				Str("state", string(ev.State)).
				Str("mode", ev.Mode).
				Str("kind", ev.Event.Kind).
				Str("detail", ev.Event.Detail).
				Msg("Run event")
		}
	})
	s.logger.Debug().Str("subscriber", id).Msg("Run event log mirror started")
}

var _ interfaces.RunEventService = (*Service)(nil)
