package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *ChatSession {
	app := &Application{ID: "app-1", CandidateID: "cand-1", VacancyID: "vac-1"}
	return NewChatSession(app, "instructions", "context", time.Now())
}

func TestNewChatSession(t *testing.T) {
	s := newTestSession()

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StatusScreening, s.Status)
	assert.Equal(t, "cand-1", s.CandidateID)
	require.Len(t, s.Messages, SeedMessageCount)
	assert.Equal(t, RoleSystem, s.Messages[0].Role)
	assert.Equal(t, RoleSystem, s.Messages[1].Role)
	assert.Nil(t, s.Score)
}

func TestChatSession_AppendPreservesOrder(t *testing.T) {
	s := newTestSession()
	before := append([]Message(nil), s.Messages...)

	require.NoError(t, s.Append(RoleAssistant, "q1", time.Now()))
	require.NoError(t, s.Append(RoleUser, "a1", time.Now()))

	require.Len(t, s.Messages, 4)
	assert.Equal(t, before, s.Messages[:2])
	assert.Equal(t, "q1", s.Messages[2].Content)
	assert.Equal(t, "a1", s.Messages[3].Content)
}

func TestChatSession_Transitions(t *testing.T) {
	t.Run("complete sets score once", func(t *testing.T) {
		s := newTestSession()
		require.NoError(t, s.Complete(80, "good", time.Now()))
		assert.Equal(t, StatusCompleted, s.Status)
		require.NotNil(t, s.Score)
		assert.Equal(t, 80, *s.Score)
		assert.NotNil(t, s.CompletedAt)

		assert.ErrorIs(t, s.Complete(10, "again", time.Now()), ErrSessionClosed)
		assert.Equal(t, 80, *s.Score)
		assert.ErrorIs(t, s.Append(RoleUser, "late", time.Now()), ErrSessionClosed)
	})

	t.Run("reject is terminal", func(t *testing.T) {
		s := newTestSession()
		require.NoError(t, s.Reject("position filled", time.Now()))
		assert.Equal(t, StatusRejected, s.Status)
		assert.ErrorIs(t, s.Complete(50, "x", time.Now()), ErrSessionClosed)
		assert.Nil(t, s.Score)
	})

	t.Run("needs review keeps raw output", func(t *testing.T) {
		s := newTestSession()
		require.NoError(t, s.FlagForReview("not json", time.Now()))
		assert.Equal(t, StatusNeedsReview, s.Status)
		assert.Equal(t, "not json", s.EvaluationRaw)
		assert.Nil(t, s.Score)
		assert.ErrorIs(t, s.Reject("x", time.Now()), ErrSessionClosed)
	})
}

func TestChatSession_ReachedThreshold(t *testing.T) {
	s := newTestSession()
	for len(s.Messages) < 9 {
		require.NoError(t, s.Append(RoleUser, "x", time.Now()))
	}
	assert.False(t, s.ReachedThreshold(10))

	require.NoError(t, s.Append(RoleAssistant, "x", time.Now()))
	assert.True(t, s.ReachedThreshold(10))

	require.NoError(t, s.Complete(70, "ok", time.Now()))
	assert.False(t, s.ReachedThreshold(10))
}

func TestChatSession_Clone(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.Complete(90, "great", time.Now()))

	c := s.Clone()
	c.Messages[0].Content = "changed"
	*c.Score = 1

	assert.Equal(t, "instructions", s.Messages[0].Content)
	assert.Equal(t, 90, *s.Score)
}
