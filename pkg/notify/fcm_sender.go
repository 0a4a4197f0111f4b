package notify

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"proactive-backend/pkg/fcm"
)

// FCMSender delivers notifications as Firebase push messages to the
// registered device tokens. Tokens that permanently fail are dropped so
// stale registrations don't keep generating errors.
type FCMSender struct {
	client *fcm.Client

	mu     sync.Mutex
	tokens []string
}

func NewFCMSender(client *fcm.Client, deviceTokens []string) *FCMSender {
	return &FCMSender{client: client, tokens: deviceTokens}
}

// Send implements Sender. The returned id is locally generated; FCM's
// per-message ids are per-device and useless for correlating responses.
func (s *FCMSender) Send(ctx context.Context, n Notification) (string, error) {
	s.mu.Lock()
	tokens := make([]string, len(s.tokens))
	copy(tokens, s.tokens)
	s.mu.Unlock()

	if len(tokens) == 0 {
		return "", fmt.Errorf("no device tokens registered")
	}

	id := uuid.New().String()
	failed, err := s.client.SendToDevices(ctx, tokens, fcm.NotificationData{
		Title:    n.Title,
		Body:     n.Body,
		Category: n.Category,
		Priority: n.Priority,
		Actions:  n.Actions,
		Data:     map[string]string{"notification_id": id},
	})
	if err != nil {
		return "", fmt.Errorf("fcm delivery failed: %w", err)
	}
	if len(failed) == len(tokens) {
		return "", fmt.Errorf("fcm delivery failed for all %d tokens", len(tokens))
	}
	if len(failed) > 0 {
		s.removeTokens(failed)
	}
	return id, nil
}

// RegisterToken adds a device token at runtime
func (s *FCMSender) RegisterToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t == token {
			return
		}
	}
	s.tokens = append(s.tokens, token)
	log.Printf("[Notify] Registered device token (%d total)", len(s.tokens))
}

func (s *FCMSender) removeTokens(failed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bad := make(map[string]bool, len(failed))
	for _, t := range failed {
		bad[t] = true
	}
	kept := s.tokens[:0]
	for _, t := range s.tokens {
		if !bad[t] {
			kept = append(kept, t)
		}
	}
	s.tokens = kept
	log.Printf("[Notify] Dropped %d failed device tokens, %d remain", len(failed), len(s.tokens))
}
