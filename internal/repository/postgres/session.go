package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orihero/aish-sub002/internal/domain"
)

const sessionColumns = `id, application_id, vacancy_id, candidate_id, status, messages, score, feedback,
	evaluation_raw, reject_reason, version, created_at, updated_at, completed_at`

// ChatRepository implements domain.ChatRepository
type ChatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository creates a new screening session repository
func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

func (r *ChatRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.ApplicationID,
		session.VacancyID,
		session.CandidateID,
		session.Status,
		session.Messages,
		session.Score,
		session.Feedback,
		session.EvaluationRaw,
		session.RejectReason,
		session.Version,
		session.CreatedAt,
		session.UpdatedAt,
		session.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("session for application %s already exists: %w", session.ApplicationID, domain.ErrVersionConflict)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *ChatRepository) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *ChatRepository) GetByApplication(ctx context.Context, applicationID string) (*domain.ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE application_id = $1`
	return r.getOne(ctx, query, applicationID)
}

func (r *ChatRepository) ListByVacancy(ctx context.Context, vacancyID string, limit, offset int) ([]domain.ChatSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM chat_sessions
		WHERE vacancy_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, vacancyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.ChatSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// Save writes the session if nobody else saved it since it was read
func (r *ChatRepository) Save(ctx context.Context, session *domain.ChatSession) error {
	query := `
		UPDATE chat_sessions
		SET status = $1, messages = $2, score = $3, feedback = $4, evaluation_raw = $5,
			reject_reason = $6, updated_at = $7, completed_at = $8, version = version + 1
		WHERE id = $9 AND version = $10
	`
	tag, err := r.pool.Exec(ctx, query,
		session.Status,
		session.Messages,
		session.Score,
		session.Feedback,
		session.EvaluationRaw,
		session.RejectReason,
		session.UpdatedAt,
		session.CompletedAt,
		session.ID,
		session.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, session.ID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}

	session.Version++
	return nil
}

func (r *ChatRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *ChatRepository) getOne(ctx context.Context, query string, arg string) (*domain.ChatSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func scanSession(row pgx.Row) (*domain.ChatSession, error) {
	var s domain.ChatSession
	err := row.Scan(
		&s.ID,
		&s.ApplicationID,
		&s.VacancyID,
		&s.CandidateID,
		&s.Status,
		&s.Messages,
		&s.Score,
		&s.Feedback,
		&s.EvaluationRaw,
		&s.RejectReason,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
