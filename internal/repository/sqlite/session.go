package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/orihero/aish-sub002/internal/domain"
)

const sessionColumns = `id, application_id, vacancy_id, candidate_id, status, messages_json, score, feedback,
	evaluation_raw, reject_reason, version, created_at, updated_at, completed_at`

// ChatRepository implements domain.ChatRepository on SQLite
type ChatRepository struct {
	db *DB
}

// NewChatRepository creates a new screening session repository
func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	messages, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	query := `INSERT INTO chat_sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.db.ExecContext(ctx, query,
		session.ID, session.ApplicationID, session.VacancyID, session.CandidateID,
		string(session.Status), string(messages), nullableInt(session.Score), session.Feedback,
		session.EvaluationRaw, session.RejectReason, session.Version,
		session.CreatedAt.UnixNano(), session.UpdatedAt.UnixNano(), nullableTime(session.CompletedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("session for application %s already exists: %w", session.ApplicationID, domain.ErrVersionConflict)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *ChatRepository) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id = ?`
	return r.getOne(ctx, query, id)
}

func (r *ChatRepository) GetByApplication(ctx context.Context, applicationID string) (*domain.ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE application_id = ?`
	return r.getOne(ctx, query, applicationID)
}

func (r *ChatRepository) ListByVacancy(ctx context.Context, vacancyID string, limit, offset int) ([]domain.ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE vacancy_id = ? ORDER BY updated_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.db.QueryContext(ctx, query, vacancyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.ChatSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// Save writes the session if nobody else saved it since it was read
func (r *ChatRepository) Save(ctx context.Context, session *domain.ChatSession) error {
	messages, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	query := `
	UPDATE chat_sessions
	SET status = ?, messages_json = ?, score = ?, feedback = ?, evaluation_raw = ?,
		reject_reason = ?, updated_at = ?, completed_at = ?, version = version + 1
	WHERE id = ? AND version = ?`

	res, err := r.db.db.ExecContext(ctx, query,
		string(session.Status), string(messages), nullableInt(session.Score), session.Feedback,
		session.EvaluationRaw, session.RejectReason, session.UpdatedAt.UnixNano(),
		nullableTime(session.CompletedAt), session.ID, session.Version,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, session.ID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}

	session.Version++
	return nil
}

func (r *ChatRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *ChatRepository) getOne(ctx context.Context, query, arg string) (*domain.ChatSession, error) {
	s, err := scanSession(r.db.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.ChatSession, error) {
	var (
		s                    domain.ChatSession
		status, messages     string
		score                sql.NullInt64
		createdAt, updatedAt int64
		completedAt          sql.NullInt64
	)

	err := row.Scan(
		&s.ID, &s.ApplicationID, &s.VacancyID, &s.CandidateID,
		&status, &messages, &score, &s.Feedback,
		&s.EvaluationRaw, &s.RejectReason, &s.Version,
		&createdAt, &updatedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	if err := json.Unmarshal([]byte(messages), &s.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}

	s.Status = domain.ChatStatus(status)
	if score.Valid {
		v := int(score.Int64)
		s.Score = &v
	}
	s.CreatedAt = time.Unix(0, createdAt).UTC()
	s.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if completedAt.Valid {
		at := time.Unix(0, completedAt.Int64).UTC()
		s.CompletedAt = &at
	}

	return &s, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}
