package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the author of a chat message
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatStatus is the lifecycle state of a screening session
type ChatStatus string

const (
	StatusScreening   ChatStatus = "screening"
	StatusCompleted   ChatStatus = "completed"
	StatusRejected    ChatStatus = "rejected"
	StatusNeedsReview ChatStatus = "needs_review"
)

// SeedMessageCount is the number of system messages every session starts with
const SeedMessageCount = 2

// Message is one entry of a screening conversation
type Message struct {
	Role      MessageRole `json:"role" bson:"role"`
	Content   string      `json:"content" bson:"content"`
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
}

// ChatSession is one candidate's screening conversation for one application
type ChatSession struct {
	ID            string     `json:"id" bson:"_id"`
	ApplicationID string     `json:"application_id" bson:"application_id"`
	VacancyID     string     `json:"vacancy_id" bson:"vacancy_id"`
	CandidateID   string     `json:"candidate_id" bson:"candidate_id"`
	Status        ChatStatus `json:"status" bson:"status"`
	Messages      []Message  `json:"messages" bson:"messages"`
	Score         *int       `json:"score,omitempty" bson:"score,omitempty"`
	Feedback      string     `json:"feedback,omitempty" bson:"feedback,omitempty"`
	EvaluationRaw string     `json:"evaluation_raw,omitempty" bson:"evaluation_raw,omitempty"`
	RejectReason  string     `json:"reject_reason,omitempty" bson:"reject_reason,omitempty"`
	Version       int64      `json:"version" bson:"version"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// NewChatSession creates a screening session seeded with the instruction and context messages
func NewChatSession(app *Application, instructions, context string, now time.Time) *ChatSession {
	return &ChatSession{
		ID:            uuid.NewString(),
		ApplicationID: app.ID,
		VacancyID:     app.VacancyID,
		CandidateID:   app.CandidateID,
		Status:        StatusScreening,
		Messages: []Message{
			{Role: RoleSystem, Content: instructions, Timestamp: now},
			{Role: RoleSystem, Content: context, Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal reports whether the session can no longer change
func (s *ChatSession) IsTerminal() bool {
	return s.Status != StatusScreening
}

// Append adds a message to the end of the conversation.
// Only screening sessions accept messages.
func (s *ChatSession) Append(role MessageRole, content string, at time.Time) error {
	if s.IsTerminal() {
		return ErrSessionClosed
	}
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Timestamp: at})
	s.UpdatedAt = at
	return nil
}

// ReachedThreshold reports whether the conversation is long enough to be evaluated
func (s *ChatSession) ReachedThreshold(threshold int) bool {
	return s.Status == StatusScreening && len(s.Messages) >= threshold
}

// Complete records the evaluation result. It is the only place score and feedback are set.
func (s *ChatSession) Complete(score int, feedback string, at time.Time) error {
	if s.IsTerminal() {
		return ErrSessionClosed
	}
	s.Status = StatusCompleted
	s.Score = &score
	s.Feedback = feedback
	s.CompletedAt = &at
	s.UpdatedAt = at
	return nil
}

// FlagForReview marks a session whose evaluation output could not be interpreted
func (s *ChatSession) FlagForReview(raw string, at time.Time) error {
	if s.IsTerminal() {
		return ErrSessionClosed
	}
	s.Status = StatusNeedsReview
	s.EvaluationRaw = raw
	s.UpdatedAt = at
	return nil
}

// Reject ends the screening without an evaluation
func (s *ChatSession) Reject(reason string, at time.Time) error {
	if s.IsTerminal() {
		return ErrSessionClosed
	}
	s.Status = StatusRejected
	s.RejectReason = reason
	s.UpdatedAt = at
	return nil
}

// Clone returns a deep copy so callers can mutate without touching stored state
func (s *ChatSession) Clone() *ChatSession {
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	if s.Score != nil {
		score := *s.Score
		c.Score = &score
	}
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// ChatRepository defines the interface for screening session storage.
// Save must only succeed when the stored version equals session.Version and
// then increments session.Version; otherwise it returns ErrVersionConflict.
type ChatRepository interface {
	Create(ctx context.Context, session *ChatSession) error
	Get(ctx context.Context, id string) (*ChatSession, error)
	GetByApplication(ctx context.Context, applicationID string) (*ChatSession, error)
	ListByVacancy(ctx context.Context, vacancyID string, limit, offset int) ([]ChatSession, error)
	Save(ctx context.Context, session *ChatSession) error
	Ping(ctx context.Context) error
}
