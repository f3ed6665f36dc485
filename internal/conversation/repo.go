package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lingora/backend/internal/models"
)

// PGRepo is the durable tier backed by the conversations table.
type PGRepo struct {
	db *pgxpool.Pool
}

func NewPGRepo(db *pgxpool.Pool) *PGRepo {
	return &PGRepo{db: db}
}

func (r *PGRepo) Insert(ctx context.Context, conv models.Conversation) error {
	history, err := json.Marshal(conv.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO conversations (id, user_id, level, system_prompt, history, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, conv.ID, conv.UserID, string(conv.Level), conv.SystemPrompt, history, conv.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert conversation %s: %w", conv.ID, err)
	}
	return nil
}

// Find only returns live rows; an expired row present on disk reads the
// same as a missing one.
func (r *PGRepo) Find(ctx context.Context, id string, now time.Time) (models.Conversation, error) {
	var (
		conv    models.Conversation
		level   string
		history []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, level, system_prompt, history, expires_at
		FROM conversations
		WHERE id = $1 AND expires_at > $2
	`, id, now).Scan(&conv.ID, &conv.UserID, &level, &conv.SystemPrompt, &history, &conv.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Conversation{}, ErrNotFoundOrExpired
	}
	if err != nil {
		return models.Conversation{}, fmt.Errorf("query conversation %s: %w", id, err)
	}

	conv.Level = models.Level(level)
	if err := json.Unmarshal(history, &conv.History); err != nil {
		return models.Conversation{}, fmt.Errorf("unmarshal history for %s: %w", id, err)
	}
	return conv, nil
}

func (r *PGRepo) UpdateHistory(ctx context.Context, id string, turns []models.Turn) error {
	history, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		UPDATE conversations SET history = $1, updated_at = now() WHERE id = $2
	`, history, id)
	if err != nil {
		return fmt.Errorf("update conversation %s: %w", id, err)
	}
	return nil
}
