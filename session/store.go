package session

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Store keeps the most recently used sessions. Evicted sessions lose their model.
type Store struct {
	cache  *lru.Cache[string, *Session]
	seed   int64
	logger *zap.Logger
}

func NewStore(capacity int, seed int64, logger *zap.Logger) (*Store, error) {
	if capacity <= 0 {
		capacity = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{seed: seed, logger: logger}
	cache, err := lru.NewWithEvict[string, *Session](capacity, func(id string, _ *Session) {
		s.logger.Info("session evicted", zap.String("session_id", id))
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// Get returns the session with the given id, creating it when absent.
func (s *Store) Get(id string) *Session {
	if id == "" {
		id = DefaultID
	}
	if sess, ok := s.cache.Get(id); ok {
		return sess
	}
	sess := New(id, s.seed)
	if prev, ok, _ := s.cache.PeekOrAdd(id, sess); ok {
		return prev
	}
	return sess
}

// New creates a session under a fresh random id.
func (s *Store) New() *Session {
	return s.Get(uuid.NewString())
}

func (s *Store) Len() int {
	return s.cache.Len()
}
