package notify

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConsoleSender prints notifications to the process log. It is the
// development fallback when no FCM credentials are configured. When a
// notification carries actions it fires the first action through the
// registered callback after a short delay, so the response pipeline can
// be exercised without a real client.
type ConsoleSender struct {
	mu            sync.Mutex
	onResponse    ResponseFunc
	simulateDelay time.Duration
}

func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{simulateDelay: 5 * time.Second}
}

// OnResponse implements ResponseRouter
func (s *ConsoleSender) OnResponse(fn ResponseFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResponse = fn
}

// Send implements Sender
func (s *ConsoleSender) Send(ctx context.Context, n Notification) (string, error) {
	id := uuid.New().String()

	log.Printf("[Notify] ===== %s (%s/%s) =====", n.Title, n.Category, n.Priority)
	log.Printf("[Notify] %s", n.Body)
	if len(n.Actions) > 0 {
		log.Printf("[Notify] Actions: %s", strings.Join(n.Actions, ", "))
	}

	s.mu.Lock()
	fn := s.onResponse
	delay := s.simulateDelay
	s.mu.Unlock()

	if fn != nil && len(n.Actions) > 0 {
		action := "action_" + strings.ToLower(n.Actions[0])
		time.AfterFunc(delay, func() {
			log.Printf("[Notify] Simulating interaction: %s -> %s", id, action)
			fn(id, action)
		})
	}
	return id, nil
}
