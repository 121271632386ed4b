// Package notification keeps a per-user notification log and pushes new
// entries to live subscribers.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/terminal-bench/civicsim/internal/models"
)

const (
	// MaxStored notifications are kept per user.
	MaxStored = 100
	// subscriberBuffer is how many undelivered notifications a subscriber may
	// hold before it is dropped.
	subscriberBuffer = 16
)

// Store persists notifications newest first.
type Store interface {
	Push(ctx context.Context, n models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
}

// RedisStore keeps each user's notifications in a capped Redis list.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a store on rdb.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func key(userID uuid.UUID) string {
	return fmt.Sprintf("notifications:%s", userID)
}

// Push prepends n and trims the list to MaxStored entries.
func (s *RedisStore) Push(ctx context.Context, n models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	k := key(n.UserID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, k, data)
		pipe.LTrim(ctx, k, 0, MaxStored-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

// List returns up to limit notifications, newest first.
func (s *RedisStore) List(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	data, err := s.rdb.LRange(ctx, key(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}

	out := make([]models.Notification, 0, len(data))
	for _, item := range data {
		var n models.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.Mutex
	items map[uuid.UUID][]models.Notification
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[uuid.UUID][]models.Notification)}
}

func (m *MemoryStore) Push(_ context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]models.Notification{n}, m.items[n.UserID]...)
	if len(list) > MaxStored {
		list = list[:MaxStored]
	}
	m.items[n.UserID] = list
	return nil
}

func (m *MemoryStore) List(_ context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.items[userID]
	if limit < len(list) {
		list = list[:limit]
	}
	return append([]models.Notification{}, list...), nil
}

type subscriber struct {
	ch   chan models.Notification
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Service handles real-time notifications
type Service struct {
	store  Store
	logger *slog.Logger

	mu          sync.Mutex
	subscribers map[uuid.UUID]map[*subscriber]struct{}
}

// NewService creates a new notification service
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		logger:      logger,
		subscribers: make(map[uuid.UUID]map[*subscriber]struct{}),
	}
}

// Subscribe returns a channel of userID's new notifications and a function
// that ends the subscription. The channel is closed when the subscription
// ends or when the subscriber falls too far behind.
func (s *Service) Subscribe(userID uuid.UUID) (<-chan models.Notification, func()) {
	sub := &subscriber{ch: make(chan models.Notification, subscriberBuffer)}

	s.mu.Lock()
	if s.subscribers[userID] == nil {
		s.subscribers[userID] = make(map[*subscriber]struct{})
	}
	s.subscribers[userID][sub] = struct{}{}
	s.mu.Unlock()

	return sub.ch, func() { s.remove(userID, sub) }
}

func (s *Service) remove(userID uuid.UUID, sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subs, ok := s.subscribers[userID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(s.subscribers, userID)
		}
	}
	sub.close()
}

// Subscribers reports how many live subscriptions userID has.
func (s *Service) Subscribers(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers[userID])
}

// Notify stores a notification and delivers it to userID's subscribers
// without blocking.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, kind, title, message string, data map[string]any) (models.Notification, error) {
	n := models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	err := s.store.Push(ctx, n)
	if err != nil {
		s.logger.Warn("failed to store notification", "user_id", userID, "error", err)
	}
	s.fanout(n)
	return n, err
}

func (s *Service) fanout(n models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subscribers[n.UserID] {
		select {
		case sub.ch <- n:
		default:
			s.logger.Warn("dropping slow notification subscriber", "user_id", n.UserID)
			delete(s.subscribers[n.UserID], sub)
			sub.close()
		}
	}
	if len(s.subscribers[n.UserID]) == 0 {
		delete(s.subscribers, n.UserID)
	}
}

// List returns the user's most recent notifications.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > MaxStored {
		limit = MaxStored
	}
	return s.store.List(ctx, userID, limit)
}
