package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/orihero/aish-sub002/internal/api/handler"
	"github.com/orihero/aish-sub002/internal/config"
	"github.com/orihero/aish-sub002/internal/llm"
	"github.com/orihero/aish-sub002/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Auth(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.MiddlewareTimeout = time.Second
	cfg.Server.AllowedOrigins = []string{"*"}

	jwtManager := security.NewJWTManager("test-secret-key-with-32-chars!!", "jobboard", time.Minute)
	router := NewRouter(cfg, Dependencies{
		LLMRouter:  llm.NewRouter("openai"),
		JWTManager: jwtManager,
		Ready:      map[string]handler.Pinger{},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/llm-providers", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwtManager.GenerateAccessToken("cand-1", "candidate")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/llm-providers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/vacancies/vac-1/chats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
