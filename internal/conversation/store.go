package conversation

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lingora/backend/internal/cache"
	"github.com/lingora/backend/internal/models"
)

// ErrNotFoundOrExpired means the conversation is absent from both tiers
// or past its deadline. Distinct from transport errors: the caller must
// start a new conversation, the core never does it silently.
var ErrNotFoundOrExpired = errors.New("conversation: not found or expired")

// Cacher is the fast tier. cache.Cache is the production
// implementation; a miss is reported as cache.ErrMiss.
type Cacher interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Repo is the durable tier and source of truth.
type Repo interface {
	Insert(ctx context.Context, conv models.Conversation) error
	Find(ctx context.Context, id string, now time.Time) (models.Conversation, error)
	UpdateHistory(ctx context.Context, id string, history []models.Turn) error
}

// Store manages conversation state across the cache-aside pair of
// tiers. Writes go to both synchronously; the cache TTL is always
// derived from the original deadline, never extended.
type Store struct {
	cache Cacher
	repo  Repo
	ttl   time.Duration
	now   func() time.Time
}

func NewStore(c Cacher, r Repo, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{cache: c, repo: r, ttl: ttl, now: time.Now}
}

func cacheKey(id string) string {
	return "conversation:" + id
}

func newConversationID(userID int64) string {
	u := uuid.New()
	return fmt.Sprintf("conv_%d_%s", userID, hex.EncodeToString(u[:])[:20])
}

// Start allocates a fresh conversation with empty history and writes it
// to both tiers. systemPrompt may be empty; the per-level prompt is
// used then.
func (s *Store) Start(ctx context.Context, userID int64, level models.Level, systemPrompt string) (models.Conversation, error) {
	now := s.now()
	conv := models.Conversation{
		ID:           newConversationID(userID),
		UserID:       userID,
		Level:        level,
		SystemPrompt: systemPrompt,
		History:      []models.Turn{},
		ExpiresAt:    now.Add(s.ttl),
	}

	if err := s.repo.Insert(ctx, conv); err != nil {
		return models.Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}
	if err := s.cache.Set(ctx, cacheKey(conv.ID), conv, s.ttl); err != nil {
		slog.Warn("conversation cache write failed", "conversation_id", conv.ID, "error", err)
	}

	return conv, nil
}

// Get checks the cache first and falls back to the durable store
// filtered by expiry, repopulating the cache with the remaining TTL.
// Expiry always wins, even over a lingering cache entry.
func (s *Store) Get(ctx context.Context, id string) (models.Conversation, error) {
	now := s.now()

	var conv models.Conversation
	err := s.cache.Get(ctx, cacheKey(id), &conv)
	if err == nil {
		if conv.Expired(now) {
			return models.Conversation{}, ErrNotFoundOrExpired
		}
		return conv, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("conversation cache read failed", "conversation_id", id, "error", err)
	}

	conv, err = s.repo.Find(ctx, id, now)
	if err != nil {
		if errors.Is(err, ErrNotFoundOrExpired) {
			return models.Conversation{}, err
		}
		return models.Conversation{}, fmt.Errorf("load conversation: %w", err)
	}

	if remaining := conv.ExpiresAt.Sub(now); remaining > 0 {
		if err := s.cache.Set(ctx, cacheKey(id), conv, remaining); err != nil {
			slog.Warn("conversation cache repopulate failed", "conversation_id", id, "error", err)
		}
	}

	return conv, nil
}

// AppendTurn loads the conversation, appends the turn under the history
// cap and writes both tiers back. Concurrent appends to one
// conversation are last-write-wins; with a 10-turn window a lost stale
// turn is accepted rather than paying for distributed locking.
func (s *Store) AppendTurn(ctx context.Context, id string, turn models.Turn) (models.Conversation, error) {
	conv, err := s.Get(ctx, id)
	if err != nil {
		return models.Conversation{}, err
	}

	conv.AppendTurn(turn)

	if err := s.repo.UpdateHistory(ctx, id, conv.History); err != nil {
		return models.Conversation{}, fmt.Errorf("update conversation history: %w", err)
	}
	if remaining := conv.ExpiresAt.Sub(s.now()); remaining > 0 {
		if err := s.cache.Set(ctx, cacheKey(id), conv, remaining); err != nil {
			slog.Warn("conversation cache write failed", "conversation_id", id, "error", err)
		}
	}

	return conv, nil
}
