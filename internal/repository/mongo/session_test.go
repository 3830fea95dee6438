package mongo

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/orihero/aish-sub002/internal/config"
	"github.com/orihero/aish-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requires a MongoDB server at MONGO_TEST_URI; each test uses a throwaway database
func newTestChatRepository(t *testing.T) *ChatRepository {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, config.MongoConfig{
		URI:            uri,
		Database:       "screening_test_" + strconv.FormatInt(time.Now().UnixNano(), 36),
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Database().Drop(context.Background())
		_ = client.Close(context.Background())
	})

	repo := NewChatRepository(client.Database())
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func TestChatRepository_SaveVersioning(t *testing.T) {
	ctx := context.Background()
	repo := newTestChatRepository(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	app := &domain.Application{ID: "app-1", CandidateID: "cand-1", VacancyID: "vac-1"}
	session := domain.NewChatSession(app, "instructions", "context", now)
	require.NoError(t, repo.Create(ctx, session))

	got, err := repo.Get(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, domain.SeedMessageCount)
	assert.Equal(t, "context", got.Messages[1].Content)
	assert.Equal(t, int64(0), got.Version)

	stale := got.Clone()
	require.NoError(t, got.Append(domain.RoleAssistant, "Hello", now))
	require.NoError(t, repo.Save(ctx, got))
	assert.Equal(t, int64(1), got.Version)

	assert.ErrorIs(t, repo.Save(ctx, stale), domain.ErrVersionConflict)

	stored, err := repo.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 3)
	assert.Equal(t, int64(1), stored.Version)

	missing := domain.NewChatSession(&domain.Application{ID: "app-2", CandidateID: "cand-2"}, "i", "c", now)
	assert.ErrorIs(t, repo.Save(ctx, missing), domain.ErrNotFound)
}

func TestChatRepository_CreateDuplicateApplication(t *testing.T) {
	ctx := context.Background()
	repo := newTestChatRepository(t)
	now := time.Now().UTC()

	app := &domain.Application{ID: "app-1", CandidateID: "cand-1", VacancyID: "vac-1"}
	require.NoError(t, repo.Create(ctx, domain.NewChatSession(app, "instructions", "context", now)))

	// the unique application index rejects a second session under a new id
	err := repo.Create(ctx, domain.NewChatSession(app, "instructions", "context", now))
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	byApp, err := repo.GetByApplication(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, "cand-1", byApp.CandidateID)

	_, err = repo.GetByApplication(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := repo.ListByVacancy(ctx, "vac-1", 20, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Ping(ctx))
}
