package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/player"
)

const (
	PendingSessionTTL = time.Hour
	pendingKeyPrefix  = "pending-quiz:"
	maxClientIDLength = 64
)

// PendingSessionStore keeps one snapshot per key until it is taken once.
type PendingSessionStore interface {
	Save(ctx context.Context, key string, snapshot []byte) error
	// Take returns the snapshot and deletes it. A missing key is NOT_FOUND.
	Take(ctx context.Context, key string) ([]byte, error)
}

func PendingKey(quizID uuid.UUID, clientID string) string {
	return pendingKeyPrefix + quizID.String() + ":" + clientID
}

type RedisPendingStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisPendingStore(client *redis.Client, ttl time.Duration) *RedisPendingStore {
	return &RedisPendingStore{redis: client, ttl: ttl}
}

func (s *RedisPendingStore) Save(ctx context.Context, key string, snapshot []byte) error {
	if err := s.redis.Set(ctx, key, snapshot, s.ttl).Err(); err != nil {
		return fmt.Errorf("save pending session: %w", err)
	}
	return nil
}

func (s *RedisPendingStore) Take(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apierr.NotFound("no pending session")
	}
	if err != nil {
		return nil, fmt.Errorf("take pending session: %w", err)
	}
	return data, nil
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

type MemoryPendingStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryPendingStore(ttl time.Duration) *MemoryPendingStore {
	return &MemoryPendingStore{entries: map[string]memoryEntry{}, ttl: ttl, now: time.Now}
}

func (s *MemoryPendingStore) Save(_ context.Context, key string, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = memoryEntry{
		data:    append([]byte(nil), snapshot...),
		expires: now.Add(s.ttl),
	}
	return nil
}

func (s *MemoryPendingStore) Take(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	delete(s.entries, key)
	if !ok || s.now().After(e.expires) {
		return nil, apierr.NotFound("no pending session")
	}
	return e.data, nil
}

// PendingSessionService carries an in-progress play session across a
// sign-in redirect. Snapshots are validated on the way in and out.
type PendingSessionService struct {
	store PendingSessionStore
	log   *logger.Logger
}

func NewPendingSessionService(store PendingSessionStore, log *logger.Logger) *PendingSessionService {
	return &PendingSessionService{store: store, log: log.Service("pending_session")}
}

func cleanClientID(clientID string) (string, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return "", apierr.BadRequest("client id is required")
	}
	if len(clientID) > maxClientIDLength || strings.ContainsAny(clientID, ": \t\r\n") {
		return "", apierr.BadRequest("client id is malformed")
	}
	return clientID, nil
}

func (s *PendingSessionService) Save(ctx context.Context, quizID uuid.UUID, clientID string, snapshot []byte) error {
	clientID, err := cleanClientID(clientID)
	if err != nil {
		return err
	}
	session, err := player.Decode(snapshot)
	if err != nil {
		return apierr.BadRequest("%v", err)
	}
	if session.QuizID != quizID {
		return apierr.BadRequest("snapshot belongs to another quiz")
	}
	data, err := player.Encode(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.store.Save(ctx, PendingKey(quizID, clientID), data); err != nil {
		return err
	}
	s.log.Debug("pending session saved", "quiz_id", quizID, "phase", session.Phase)
	return nil
}

func (s *PendingSessionService) Take(ctx context.Context, quizID uuid.UUID, clientID string) (*player.Session, error) {
	clientID, err := cleanClientID(clientID)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Take(ctx, PendingKey(quizID, clientID))
	if err != nil {
		return nil, err
	}
	session, err := player.Decode(data)
	if err != nil {
		s.log.Warn("discarding corrupt pending session", "quiz_id", quizID, "error", err)
		return nil, apierr.NotFound("no pending session")
	}
	return session, nil
}
