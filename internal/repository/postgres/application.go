package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orihero/aish-sub002/internal/domain"
)

// ApplicationRepository reads job board applications with their vacancy and resume
type ApplicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

func (r *ApplicationRepository) GetBundle(ctx context.Context, applicationID string) (*domain.ApplicationBundle, error) {
	query := `
		SELECT a.id, a.candidate_id, a.vacancy_id, a.resume_id, a.status,
			v.id, v.title, v.description, v.requirements,
			res.id, res.candidate_id, res.parsed_data
		FROM applications a
		JOIN vacancies v ON v.id = a.vacancy_id
		JOIN resumes res ON res.id = a.resume_id
		WHERE a.id = $1
	`
	var (
		app     domain.Application
		vacancy domain.Vacancy
		resume  domain.Resume
	)
	err := r.pool.QueryRow(ctx, query, applicationID).Scan(
		&app.ID,
		&app.CandidateID,
		&app.VacancyID,
		&app.ResumeID,
		&app.Status,
		&vacancy.ID,
		&vacancy.Title,
		&vacancy.Description,
		&vacancy.Requirements,
		&resume.ID,
		&resume.CandidateID,
		&resume.ParsedData,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return &domain.ApplicationBundle{Application: &app, Vacancy: &vacancy, Resume: &resume}, nil
}
