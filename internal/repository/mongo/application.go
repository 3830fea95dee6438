package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/orihero/aish-sub002/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection names used by the job board
const (
	applicationsCollection = "applications"
	vacanciesCollection    = "vacancies"
	resumesCollection      = "resumes"
)

// ApplicationRepository reads applications, vacancies and resumes written by the job board.
// References may be stored as ObjectIDs or plain strings.
type ApplicationRepository struct {
	db *mongo.Database
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *mongo.Database) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) GetBundle(ctx context.Context, applicationID string) (*domain.ApplicationBundle, error) {
	appDoc, err := r.findByID(ctx, applicationsCollection, applicationID)
	if err != nil {
		return nil, fmt.Errorf("application %s: %w", applicationID, err)
	}

	app := &domain.Application{
		ID:          IDString(appDoc["_id"]),
		CandidateID: IDString(appDoc["candidate"]),
		VacancyID:   IDString(appDoc["vacancy"]),
		ResumeID:    IDString(appDoc["resume"]),
		Status:      stringField(appDoc, "status"),
	}

	vacancyDoc, err := r.findByID(ctx, vacanciesCollection, app.VacancyID)
	if err != nil {
		return nil, fmt.Errorf("vacancy %s: %w", app.VacancyID, err)
	}
	vacancy := &domain.Vacancy{
		ID:           IDString(vacancyDoc["_id"]),
		Title:        stringField(vacancyDoc, "title"),
		Description:  stringField(vacancyDoc, "description"),
		Requirements: stringSlice(vacancyDoc["requirements"]),
	}

	resumeDoc, err := r.findByID(ctx, resumesCollection, app.ResumeID)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", app.ResumeID, err)
	}
	resume := &domain.Resume{
		ID:          IDString(resumeDoc["_id"]),
		CandidateID: IDString(resumeDoc["candidate"]),
		ParsedData:  plainMap(resumeDoc["parsedData"]),
	}

	return &domain.ApplicationBundle{Application: app, Vacancy: vacancy, Resume: resume}, nil
}

func (r *ApplicationRepository) findByID(ctx context.Context, collection, id string) (bson.M, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}

	var doc bson.M
	err := r.db.Collection(collection).FindOne(ctx, bson.M{"_id": bson.M{"$in": idCandidates(id)}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// idCandidates returns the forms an id may be stored in
func idCandidates(id string) []any {
	out := []any{id}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		out = append(out, oid)
	}
	return out
}

// IDString renders a stored reference as a string id
func IDString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

func stringField(doc bson.M, key string) string {
	s, _ := doc[key].(string)
	return s
}

func stringSlice(v any) []string {
	arr, ok := v.(primitive.A)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// plainMap converts decoded BSON into plain maps and slices so it serializes as regular JSON
func plainMap(v any) map[string]any {
	m, ok := plain(v).(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = plain(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = plain(val)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}
