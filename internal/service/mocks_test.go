package service

import (
	"context"
	"sync"

	"github.com/orihero/aish-sub002/internal/domain"
	"github.com/orihero/aish-sub002/internal/llm"
	"github.com/stretchr/testify/mock"
)

// MockChatRepository mocks the ChatRepository interface
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockChatRepository) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockChatRepository) GetByApplication(ctx context.Context, applicationID string) (*domain.ChatSession, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockChatRepository) ListByVacancy(ctx context.Context, vacancyID string, limit, offset int) ([]domain.ChatSession, error) {
	args := m.Called(ctx, vacancyID, limit, offset)
	return args.Get(0).([]domain.ChatSession), args.Error(1)
}

func (m *MockChatRepository) Save(ctx context.Context, session *domain.ChatSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockChatRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockApplicationRepository mocks ApplicationRepository
type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) GetBundle(ctx context.Context, applicationID string) (*domain.ApplicationBundle, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApplicationBundle), args.Error(1)
}

// MockLLMProvider mocks llm.Provider
type MockLLMProvider struct {
	mock.Mock
	name string
}

func newMockProvider(name string) *MockLLMProvider {
	return &MockLLMProvider{name: name}
}

func (m *MockLLMProvider) Name() string { return m.name }

func (m *MockLLMProvider) AvailableModels() []string { return []string{"test-model"} }

func (m *MockLLMProvider) DefaultModel() string { return "test-model" }

func (m *MockLLMProvider) IsConfigured() bool { return true }

func (m *MockLLMProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Completion), args.Error(1)
}

// memoryChatRepository is a stateful ChatRepository for multi-turn flows
type memoryChatRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.ChatSession
	saves    int
}

func newMemoryChatRepository() *memoryChatRepository {
	return &memoryChatRepository{sessions: make(map[string]*domain.ChatSession)}
}

func (r *memoryChatRepository) Create(_ context.Context, session *domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session.Clone()
	return nil
}

func (r *memoryChatRepository) Get(_ context.Context, id string) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *memoryChatRepository) GetByApplication(_ context.Context, applicationID string) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ApplicationID == applicationID {
			return s.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryChatRepository) ListByVacancy(_ context.Context, vacancyID string, _, _ int) ([]domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ChatSession
	for _, s := range r.sessions {
		if s.VacancyID == vacancyID {
			out = append(out, *s.Clone())
		}
	}
	return out, nil
}

func (r *memoryChatRepository) Save(_ context.Context, session *domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[session.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != session.Version {
		return domain.ErrVersionConflict
	}
	session.Version++
	r.sessions[session.ID] = session.Clone()
	r.saves++
	return nil
}

func (r *memoryChatRepository) Ping(context.Context) error { return nil }
