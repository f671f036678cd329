package appreciation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service picks at most one message per solve and spaces out the minor ones
// per user.
type Service struct {
	detector  *Detector
	generator *Generator
	now       func() time.Time

	mu   sync.Mutex
	last map[uuid.UUID]time.Time
}

// NewService creates an appreciation service
func NewService() *Service {
	return &Service{
		detector:  NewDetector(),
		generator: NewGenerator(),
		now:       time.Now,
		last:      make(map[uuid.UUID]time.Time),
	}
}

// Praise returns the message for a solve, or nil when nothing is worth
// saying or the user heard from us too recently.
func (s *Service) Praise(userID uuid.UUID, solve Solve) *Message {
	best := s.detector.SelectBest(s.detector.Detect(solve))
	if best == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if last, ok := s.last[userID]; ok && !ShouldAppreciate(int(now.Sub(last).Minutes()), Priority(best.Type)) {
		return nil
	}
	msg := s.generator.Generate(best)
	if msg != nil {
		s.last[userID] = now
	}
	return msg
}
