package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/orihero/aish-sub002/internal/domain"
	"github.com/orihero/aish-sub002/internal/llm"
	"github.com/rs/zerolog/log"
)

// CallSite selects provider, model and sampling for one kind of completion call
type CallSite struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
}

// ScreeningOptions configures the screening flow
type ScreeningOptions struct {
	// Threshold is the message count that triggers evaluation
	Threshold      int
	RequestTimeout time.Duration
	LockTTL        time.Duration
	Start          CallSite
	Continuation   CallSite
	Evaluation     CallSite
}

// DefaultScreeningOptions returns the documented defaults
func DefaultScreeningOptions() ScreeningOptions {
	return ScreeningOptions{
		Threshold:      10,
		RequestTimeout: 60 * time.Second,
		LockTTL:        150 * time.Second,
		Start:          CallSite{Temperature: 0.7},
		Continuation:   CallSite{Temperature: 0.7},
		Evaluation:     CallSite{Temperature: 0.3, MaxTokens: 1024},
	}
}

// ScreeningService runs AI screening conversations for job applications
type ScreeningService struct {
	chats        domain.ChatRepository
	applications domain.ApplicationRepository
	llmRouter    *llm.Router
	locker       Locker
	window       *llm.Window
	opts         ScreeningOptions
	now          func() time.Time
}

// NewScreeningService creates a new screening service. A nil window sends the full history.
func NewScreeningService(
	chats domain.ChatRepository,
	applications domain.ApplicationRepository,
	llmRouter *llm.Router,
	locker Locker,
	window *llm.Window,
	opts ScreeningOptions,
) *ScreeningService {
	return &ScreeningService{
		chats:        chats,
		applications: applications,
		llmRouter:    llmRouter,
		locker:       locker,
		window:       window,
		opts:         opts,
		now:          time.Now,
	}
}

// StartScreening loads the application and starts its screening chat.
// An existing session for the application is returned as is; created reports
// whether a new session was made.
func (s *ScreeningService) StartScreening(ctx context.Context, caller domain.Caller, applicationID string) (session *domain.ChatSession, created bool, err error) {
	bundle, err := s.applications.GetBundle(ctx, applicationID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load application: %w", err)
	}

	app := bundle.Application
	if app.CandidateID == "" {
		return nil, false, fmt.Errorf("%w: application %s has no candidate", domain.ErrInvalidInput, app.ID)
	}
	if !caller.IsStaff() && caller.UserID != app.CandidateID {
		return nil, false, domain.ErrForbidden
	}

	_, ctx, release, err := s.hold(ctx, "application:"+app.ID)
	if err != nil {
		return nil, false, err
	}
	defer release()

	existing, err := s.chats.GetByApplication(ctx, app.ID)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, fmt.Errorf("failed to look up session: %w", err)
	}

	session, err = s.StartScreeningChat(ctx, app, bundle.Vacancy, bundle.Resume)
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// StartScreeningChat seeds a session, asks the model for its first question and
// persists the session. Nothing is stored when the model call fails.
func (s *ScreeningService) StartScreeningChat(ctx context.Context, app *domain.Application, vacancy *domain.Vacancy, resume *domain.Resume) (*domain.ChatSession, error) {
	if app == nil || vacancy == nil || resume == nil {
		return nil, fmt.Errorf("%w: application, vacancy and resume are required", domain.ErrInvalidInput)
	}
	if app.CandidateID == "" {
		return nil, fmt.Errorf("%w: application %s has no candidate", domain.ErrInvalidInput, app.ID)
	}

	screeningContext, err := llm.BuildScreeningContext(vacancy.Title, vacancy.Description, vacancy.Requirements, resume.ParsedData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	session := domain.NewChatSession(app, llm.InterviewerInstructions, screeningContext, s.now())
	if session.VacancyID == "" {
		session.VacancyID = vacancy.ID
	}

	reply, err := s.complete(ctx, s.opts.Start, toLLMMessages(session.Messages))
	if err != nil {
		return nil, err
	}

	if err := session.Append(domain.RoleAssistant, reply.Content, s.now()); err != nil {
		return nil, err
	}

	if err := s.chats.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("session_id", session.ID).
		Str("application_id", session.ApplicationID).
		Str("model", reply.Model).
		Int64("llm_latency_ms", reply.LatencyMs).
		Msg("screening chat started")

	return session, nil
}

// ContinueChat appends the candidate's message, asks the model for the next reply
// and evaluates the conversation once it reaches the threshold. Only one
// continuation per session runs at a time. When the model call fails nothing is
// saved, so the candidate can resend the same message.
func (s *ScreeningService) ContinueChat(ctx context.Context, caller domain.Caller, sessionID, text string) (*domain.ChatSession, error) {
	ctx, callCtx, release, err := s.hold(ctx, "chat:"+sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	stored, err := s.chats.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if caller.UserID != stored.CandidateID {
		return nil, domain.ErrForbidden
	}
	if stored.IsTerminal() {
		return nil, domain.ErrSessionClosed
	}

	if strings.TrimSpace(text) == "" {
		log.Warn().Str("session_id", sessionID).Msg("empty candidate message accepted")
	}

	session := stored.Clone()
	if err := session.Append(domain.RoleUser, text, s.now()); err != nil {
		return nil, err
	}

	reply, err := s.complete(callCtx, s.opts.Continuation, s.window.Project(toLLMMessages(session.Messages)))
	if err != nil {
		return nil, err
	}

	if err := session.Append(domain.RoleAssistant, reply.Content, s.now()); err != nil {
		return nil, err
	}

	if session.ReachedThreshold(s.opts.Threshold) {
		if err := s.evaluate(callCtx, session); err != nil {
			// the turn is kept; the next turn or a manual evaluation retries
			log.Error().Err(err).Str("session_id", session.ID).Msg("evaluation failed")
		}
	}

	if err := s.chats.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// Evaluate scores a screening session on demand, regardless of the threshold
func (s *ScreeningService) Evaluate(ctx context.Context, caller domain.Caller, sessionID string) (*domain.ChatSession, error) {
	if !caller.IsStaff() {
		return nil, domain.ErrForbidden
	}

	ctx, callCtx, release, err := s.hold(ctx, "chat:"+sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	stored, err := s.chats.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if stored.IsTerminal() {
		return nil, domain.ErrSessionClosed
	}
	if !hasCandidateTurn(stored) {
		return nil, fmt.Errorf("%w: candidate has not answered yet", domain.ErrInvalidInput)
	}

	session := stored.Clone()
	if err := s.evaluate(callCtx, session); err != nil {
		return nil, err
	}

	if err := s.chats.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// Reject ends a screening without evaluation
func (s *ScreeningService) Reject(ctx context.Context, caller domain.Caller, sessionID, reason string) (*domain.ChatSession, error) {
	if !caller.IsStaff() {
		return nil, domain.ErrForbidden
	}

	ctx, _, release, err := s.hold(ctx, "chat:"+sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.chats.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.Reject(reason, s.now()); err != nil {
		return nil, err
	}

	if err := s.chats.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	log.Info().Str("session_id", session.ID).Str("reason", reason).Msg("screening rejected")
	return session, nil
}

// GetSession returns a session visible to the caller
func (s *ScreeningService) GetSession(ctx context.Context, caller domain.Caller, sessionID string) (*domain.ChatSession, error) {
	session, err := s.chats.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !caller.CanView(session) {
		return nil, domain.ErrForbidden
	}
	return session, nil
}

// GetByApplication returns the session of an application
func (s *ScreeningService) GetByApplication(ctx context.Context, caller domain.Caller, applicationID string) (*domain.ChatSession, error) {
	session, err := s.chats.GetByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !caller.CanView(session) {
		return nil, domain.ErrForbidden
	}
	return session, nil
}

// ListByVacancy lists screening sessions of a vacancy for staff
func (s *ScreeningService) ListByVacancy(ctx context.Context, caller domain.Caller, vacancyID string, limit, offset int) ([]domain.ChatSession, error) {
	if !caller.IsStaff() {
		return nil, domain.ErrForbidden
	}
	return s.chats.ListByVacancy(ctx, vacancyID, limit, offset)
}

// evaluate asks the model to score the transcript. A reply that cannot be parsed
// is retried once with a stricter prompt; if that also fails the session is
// flagged for human review. Only transport failures are returned.
func (s *ScreeningService) evaluate(ctx context.Context, session *domain.ChatSession) error {
	transcript := llm.SerializeTranscript(toLLMMessages(session.Messages[domain.SeedMessageCount:]))
	screeningContext := session.Messages[domain.SeedMessageCount-1].Content

	var raw string
	for attempt := 0; attempt < 2; attempt++ {
		reply, err := s.complete(ctx, s.opts.Evaluation, llm.BuildEvaluationMessages(screeningContext, transcript, attempt > 0))
		if err != nil {
			return err
		}
		raw = reply.Content

		eval, err := llm.ParseEvaluation(raw)
		if err != nil {
			log.Warn().
				Err(err).
				Str("session_id", session.ID).
				Int("attempt", attempt+1).
				Msg("evaluation reply not parseable")
			continue
		}

		if err := session.Complete(eval.Score, eval.Feedback, s.now()); err != nil {
			return err
		}
		log.Info().
			Str("session_id", session.ID).
			Int("score", eval.Score).
			Msg("screening completed")
		return nil
	}

	log.Warn().Str("session_id", session.ID).Msg("screening flagged for review")
	return session.FlagForReview(raw, s.now())
}

// hold locks key for one operation. The returned ctx expires with the lock;
// callCtx expires earlier, leaving a fifth of the TTL for the final save, so
// model calls can never outlive the lock.
func (s *ScreeningService) hold(ctx context.Context, key string) (context.Context, context.Context, func(), error) {
	if s.opts.LockTTL <= 0 {
		unlock, err := s.locker.Lock(ctx, key, s.opts.LockTTL)
		if err != nil {
			return nil, nil, nil, err
		}
		return ctx, ctx, unlock, nil
	}

	opCtx, cancelOp := context.WithTimeout(ctx, s.opts.LockTTL)
	unlock, err := s.locker.Lock(opCtx, key, s.opts.LockTTL)
	if err != nil {
		cancelOp()
		return nil, nil, nil, err
	}
	callCtx, cancelCalls := context.WithTimeout(opCtx, s.opts.LockTTL-s.opts.LockTTL/5)

	return opCtx, callCtx, func() {
		cancelCalls()
		unlock()
		cancelOp()
	}, nil
}

// complete calls the provider selected for a call site under the request timeout
func (s *ScreeningService) complete(ctx context.Context, site CallSite, messages []llm.Message) (*llm.Completion, error) {
	provider, err := s.llmRouter.GetProvider(site.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		Model:       site.Model,
		Messages:    messages,
		Temperature: site.Temperature,
		MaxTokens:   site.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUpstream, provider.Name(), err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("%w: %s returned an empty reply", domain.ErrUpstream, provider.Name())
	}

	log.Debug().
		Str("provider", provider.Name()).
		Str("model", resp.Model).
		Int("messages", len(messages)).
		Int("tokens_used", resp.TokensUsed).
		Int64("latency_ms", resp.LatencyMs).
		Msg("completion received")

	return resp, nil
}

func toLLMMessages(messages []domain.Message) []llm.Message {
	out := make([]llm.Message, len(messages))
	for i, m := range messages {
		out[i] = llm.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func hasCandidateTurn(session *domain.ChatSession) bool {
	for _, m := range session.Messages {
		if m.Role == domain.RoleUser {
			return true
		}
	}
	return false
}
