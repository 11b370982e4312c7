package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// PubSubService fans module and context events out over Redis so every
// instance (and any realtime frontend bridge) sees user progress updates.
type PubSubService struct {
	redis      *RedisService
	pubsub     *redis.PubSub
	handlers   map[string][]MessageHandler
	mu         sync.RWMutex
	instanceID string
	ctx        context.Context
	cancel     context.CancelFunc
}

// MessageHandler is a callback for handling pub/sub messages
type MessageHandler func(channel string, message *PubSubMessage)

// PubSubMessage represents a message sent via pub/sub
type PubSubMessage struct {
	Type       string                 `json:"type"`       // Event type (e.g., "module.completed", "context.updated")
	UserID     string                 `json:"userId"`     // Target user ID
	InstanceID string                 `json:"instanceId"` // Source instance ID
	Payload    map[string]interface{} `json:"payload"`    // Event payload
}

// NewPubSubService creates a new pub/sub service
func NewPubSubService(redisService *RedisService, instanceID string) *PubSubService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PubSubService{
		redis:      redisService,
		handlers:   make(map[string][]MessageHandler),
		instanceID: instanceID,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Publish sends a user event to that user's channel. It satisfies the
// eventPublisher dependency of the module and context services.
func (s *PubSubService) Publish(ctx context.Context, userID, eventType string, payload map[string]interface{}) error {
	message := PubSubMessage{
		Type:       eventType,
		UserID:     userID,
		InstanceID: s.instanceID,
		Payload:    payload,
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal pub/sub message: %w", err)
	}

	channel := fmt.Sprintf("user:%s:events", userID)
	if err := s.redis.Publish(ctx, channel, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe registers a handler for a channel pattern
func (s *PubSubService) Subscribe(pattern string, handler MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[pattern] = append(s.handlers[pattern], handler)
	log.Printf("📡 [PUBSUB] Subscribed to pattern: %s", pattern)
}

// Start begins listening for pub/sub messages
func (s *PubSubService) Start() error {
	client := s.redis.Client()

	s.pubsub = client.PSubscribe(s.ctx,
		"user:*:events", // User-specific events
		"broadcast:*",   // Global broadcast
	)

	// Wait for subscription confirmation
	_, err := s.pubsub.Receive(s.ctx)
	if err != nil {
		return err
	}

	go s.processMessages()

	log.Printf("✅ [PUBSUB] Started listening for messages (instance: %s)", s.instanceID)
	return nil
}

// processMessages handles incoming pub/sub messages
func (s *PubSubService) processMessages() {
	ch := s.pubsub.Channel()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handleMessage(msg)
		}
	}
}

// handleMessage dispatches a single pub/sub message to registered handlers.
// Messages from this instance are skipped; local callers already observed
// the state change directly.
func (s *PubSubService) handleMessage(msg *redis.Message) {
	var message PubSubMessage
	if err := json.Unmarshal([]byte(msg.Payload), &message); err != nil {
		log.Printf("⚠️ [PUBSUB] Failed to unmarshal message on %s: %v", msg.Channel, err)
		return
	}

	if message.InstanceID == s.instanceID {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for pattern, handlers := range s.handlers {
		if matchPattern(pattern, msg.Channel) {
			for _, handler := range handlers {
				go handler(msg.Channel, &message)
			}
		}
	}
}

// Stop shuts down the pub/sub listener
func (s *PubSubService) Stop() {
	s.cancel()
	if s.pubsub != nil {
		if err := s.pubsub.Close(); err != nil {
			log.Printf("⚠️ [PUBSUB] Error closing subscription: %v", err)
		}
	}
	log.Println("🛑 [PUBSUB] Stopped")
}

// matchPattern performs glob-style matching for a single '*' wildcard per
// segment, which covers the channel patterns used here.
func matchPattern(pattern, channel string) bool {
	if pattern == channel {
		return true
	}

	pi, ci := 0, 0
	star, mark := -1, 0
	for ci < len(channel) {
		switch {
		case pi < len(pattern) && (pattern[pi] == channel[ci]):
			pi++
			ci++
		case pi < len(pattern) && pattern[pi] == '*':
			star = pi
			mark = ci
			pi++
		case star != -1:
			pi = star + 1
			mark++
			ci = mark
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
