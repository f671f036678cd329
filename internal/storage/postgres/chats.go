package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// ChatStore persists chat sessions with their messages as JSONB.
type ChatStore struct {
	db *DB
}

// NewChatStore creates a chat store.
func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db}
}

const chatColumns = `id, user_id, problem_id, title, messages, hints, summary, token_count, created_at, updated_at`

// Save inserts or updates a chat session. The owner of an existing row
// never changes.
func (s *ChatStore) Save(ctx context.Context, c *domain.ChatSession) error {
	messages, err := jsonArg(c.Messages)
	if err != nil {
		return err
	}
	hints, err := jsonArg(c.Hints)
	if err != nil {
		return err
	}

	tag, err := s.db.Pool.Exec(ctx, `
		INSERT INTO chat_sessions (`+chatColumns+`)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			problem_id = excluded.problem_id, title = excluded.title,
			messages = excluded.messages, hints = excluded.hints,
			summary = excluded.summary, token_count = excluded.token_count,
			updated_at = excluded.updated_at
		WHERE chat_sessions.user_id = excluded.user_id`,
		c.ID, c.UserID, c.ProblemID, c.Title, messages, hints, c.Summary, c.TokenCount, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save chat: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrForbidden
	}
	return nil
}

// Get returns a chat session owned by userID.
func (s *ChatStore) Get(ctx context.Context, userID, id uuid.UUID) (*domain.ChatSession, error) {
	row := s.db.Pool.QueryRow(ctx, `SELECT `+chatColumns+` FROM chat_sessions WHERE id = $1 AND user_id = $2`, id, userID)
	c, err := scanChat(row)
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", mapError(err))
	}
	return c, nil
}

// List returns a user's chats, most recently updated first.
func (s *ChatStore) List(ctx context.Context, userID uuid.UUID) ([]domain.ChatSession, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+chatColumns+` FROM chat_sessions WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []domain.ChatSession
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, *c)
	}
	return chats, rows.Err()
}

// Delete removes a chat owned by userID.
func (s *ChatStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanChat(row pgx.Row) (*domain.ChatSession, error) {
	var (
		c        domain.ChatSession
		messages []byte
		hints    []byte
	)
	err := row.Scan(&c.ID, &c.UserID, &c.ProblemID, &c.Title, &messages, &hints,
		&c.Summary, &c.TokenCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(messages, &c.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	if err := json.Unmarshal(hints, &c.Hints); err != nil {
		return nil, fmt.Errorf("decode hints: %w", err)
	}
	return &c, nil
}
