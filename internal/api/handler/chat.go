package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/orihero/aish-sub002/internal/api/middleware"
	"github.com/orihero/aish-sub002/internal/api/response"
	"github.com/orihero/aish-sub002/internal/domain"
	"github.com/rs/zerolog/log"
)

// ChatService is the screening API the handlers depend on
type ChatService interface {
	StartScreening(ctx context.Context, caller domain.Caller, applicationID string) (*domain.ChatSession, bool, error)
	ContinueChat(ctx context.Context, caller domain.Caller, sessionID, text string) (*domain.ChatSession, error)
	Evaluate(ctx context.Context, caller domain.Caller, sessionID string) (*domain.ChatSession, error)
	Reject(ctx context.Context, caller domain.Caller, sessionID, reason string) (*domain.ChatSession, error)
	GetSession(ctx context.Context, caller domain.Caller, sessionID string) (*domain.ChatSession, error)
	GetByApplication(ctx context.Context, caller domain.Caller, applicationID string) (*domain.ChatSession, error)
	ListByVacancy(ctx context.Context, caller domain.Caller, vacancyID string, limit, offset int) ([]domain.ChatSession, error)
}

type ChatHandler struct {
	chatService      ChatService
	validate         *validator.Validate
	maxMessageLength int
}

func NewChatHandler(chatService ChatService, maxMessageLength int) *ChatHandler {
	return &ChatHandler{
		chatService:      chatService,
		validate:         validator.New(),
		maxMessageLength: maxMessageLength,
	}
}

// SendMessageRequest is the body of a candidate turn
type SendMessageRequest struct {
	Content *string `json:"content" validate:"required"`
}

// RejectRequest is the body of a staff rejection
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// Start starts the screening chat of an application, or returns the existing one
func (h *ChatHandler) Start(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	session, created, err := h.chatService.StartScreening(r.Context(), caller, chi.URLParam(r, "applicationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if created {
		response.Created(w, view(caller, session))
		return
	}
	response.OK(w, view(caller, session))
}

// GetByApplication returns the chat of an application
func (h *ChatHandler) GetByApplication(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	session, err := h.chatService.GetByApplication(r.Context(), caller, chi.URLParam(r, "applicationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, view(caller, session))
}

// SendMessage records a candidate reply and returns the updated chat
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "content is required")
		return
	}
	if h.maxMessageLength > 0 {
		if err := h.validate.Var(*req.Content, fmt.Sprintf("max=%d", h.maxMessageLength)); err != nil {
			response.BadRequest(w, fmt.Sprintf("content exceeds %d characters", h.maxMessageLength))
			return
		}
	}

	session, err := h.chatService.ContinueChat(r.Context(), caller, chi.URLParam(r, "chatID"), *req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, view(caller, session))
}

// Get returns a chat by id
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	session, err := h.chatService.GetSession(r.Context(), caller, chi.URLParam(r, "chatID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, view(caller, session))
}

// Evaluate scores a chat on demand
func (h *ChatHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetCaller(r.Context())

	session, err := h.chatService.Evaluate(r.Context(), caller, chi.URLParam(r, "chatID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, session)
}

// Reject closes a chat without evaluation
func (h *ChatHandler) Reject(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetCaller(r.Context())

	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "reason is required")
		return
	}

	session, err := h.chatService.Reject(r.Context(), caller, chi.URLParam(r, "chatID"), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, session)
}

// ListByVacancy returns the chats of a vacancy
func (h *ChatHandler) ListByVacancy(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.GetCaller(r.Context())

	limit := 20
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}

	sessions, err := h.chatService.ListByVacancy(r.Context(), caller, chi.URLParam(r, "vacancyID"), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, sessions)
}

// view hides seeds and evaluation from candidates
func view(caller domain.Caller, session *domain.ChatSession) *domain.ChatSession {
	if caller.IsStaff() {
		return session
	}
	return session.CandidateView()
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "not found")
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(w, "forbidden")
	case errors.Is(err, domain.ErrSessionClosed):
		response.Conflict(w, err.Error())
	case errors.Is(err, domain.ErrLocked):
		response.Conflict(w, "a reply is already being generated for this chat")
	case errors.Is(err, domain.ErrVersionConflict):
		response.Conflict(w, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrUpstream):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("completion endpoint failed")
		response.BadGateway(w, "the interviewer is unavailable, please retry")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.InternalError(w, "internal error")
	}
}
