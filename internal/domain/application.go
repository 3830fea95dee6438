package domain

import "context"

// Application is a candidate's application to a vacancy, owned by the job board
type Application struct {
	ID          string `json:"id" bson:"_id"`
	CandidateID string `json:"candidate_id" bson:"candidate"`
	VacancyID   string `json:"vacancy_id" bson:"vacancy"`
	ResumeID    string `json:"resume_id" bson:"resume"`
	Status      string `json:"status" bson:"status"`
}

// Vacancy is the job being screened for
type Vacancy struct {
	ID           string   `json:"id" bson:"_id"`
	Title        string   `json:"title" bson:"title"`
	Description  string   `json:"description" bson:"description"`
	Requirements []string `json:"requirements,omitempty" bson:"requirements,omitempty"`
}

// Resume holds the structured data extracted from a candidate's CV
type Resume struct {
	ID          string         `json:"id" bson:"_id"`
	CandidateID string         `json:"candidate_id" bson:"candidate"`
	ParsedData  map[string]any `json:"parsed_data" bson:"parsedData"`
}

// ApplicationBundle groups everything a screening needs to start
type ApplicationBundle struct {
	Application *Application
	Vacancy     *Vacancy
	Resume      *Resume
}

// ApplicationRepository reads application data maintained by the job board
type ApplicationRepository interface {
	GetBundle(ctx context.Context, applicationID string) (*ApplicationBundle, error)
}
