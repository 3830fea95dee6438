package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/orihero/aish-sub002/internal/domain"
)

// ApplicationRepository reads application bundles from the local tables
type ApplicationRepository struct {
	db *DB
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) GetBundle(ctx context.Context, applicationID string) (*domain.ApplicationBundle, error) {
	query := `
	SELECT a.id, a.candidate_id, a.vacancy_id, a.resume_id, a.status,
		v.id, v.title, v.description, v.requirements_json,
		res.id, res.candidate_id, res.parsed_data_json
	FROM applications a
	JOIN vacancies v ON v.id = a.vacancy_id
	JOIN resumes res ON res.id = a.resume_id
	WHERE a.id = ?`

	var (
		app                      domain.Application
		vacancy                  domain.Vacancy
		resume                   domain.Resume
		requirements, parsedData string
	)
	err := r.db.db.QueryRowContext(ctx, query, applicationID).Scan(
		&app.ID, &app.CandidateID, &app.VacancyID, &app.ResumeID, &app.Status,
		&vacancy.ID, &vacancy.Title, &vacancy.Description, &requirements,
		&resume.ID, &resume.CandidateID, &parsedData,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan application row: %w", err)
	}

	if err := json.Unmarshal([]byte(requirements), &vacancy.Requirements); err != nil {
		return nil, fmt.Errorf("unmarshal requirements: %w", err)
	}
	if err := json.Unmarshal([]byte(parsedData), &resume.ParsedData); err != nil {
		return nil, fmt.Errorf("unmarshal parsed resume: %w", err)
	}

	return &domain.ApplicationBundle{Application: &app, Vacancy: &vacancy, Resume: &resume}, nil
}

// PutBundle upserts an application together with its vacancy and resume.
// It is used to seed local databases.
func (r *ApplicationRepository) PutBundle(ctx context.Context, b *domain.ApplicationBundle) error {
	requirements, err := json.Marshal(b.Vacancy.Requirements)
	if err != nil {
		return fmt.Errorf("marshal requirements: %w", err)
	}
	parsedData, err := json.Marshal(b.Resume.ParsedData)
	if err != nil {
		return fmt.Errorf("marshal parsed resume: %w", err)
	}

	tx, err := r.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []struct {
		query string
		args  []any
	}{
		{
			`INSERT INTO vacancies (id, title, description, requirements_json) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET title = excluded.title, description = excluded.description,
				requirements_json = excluded.requirements_json`,
			[]any{b.Vacancy.ID, b.Vacancy.Title, b.Vacancy.Description, string(requirements)},
		},
		{
			`INSERT INTO resumes (id, candidate_id, parsed_data_json) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET candidate_id = excluded.candidate_id, parsed_data_json = excluded.parsed_data_json`,
			[]any{b.Resume.ID, b.Resume.CandidateID, string(parsedData)},
		},
		{
			`INSERT INTO applications (id, candidate_id, vacancy_id, resume_id, status) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET candidate_id = excluded.candidate_id, vacancy_id = excluded.vacancy_id,
				resume_id = excluded.resume_id, status = excluded.status`,
			[]any{b.Application.ID, b.Application.CandidateID, b.Vacancy.ID, b.Resume.ID, b.Application.Status},
		},
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
			return fmt.Errorf("upsert bundle: %w", err)
		}
	}

	return tx.Commit()
}
