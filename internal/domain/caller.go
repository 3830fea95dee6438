package domain

// Caller roles carried in access tokens
const (
	RoleCandidate = "candidate"
	RoleHR        = "hr"
	RoleAdmin     = "admin"
)

// Caller identifies who is performing an operation
type Caller struct {
	UserID string
	Role   string
}

// IsStaff reports whether the caller may act on any candidate's session
func (c Caller) IsStaff() bool {
	return c.Role == RoleHR || c.Role == RoleAdmin
}

// CanView reports whether the caller may read the session
func (c Caller) CanView(s *ChatSession) bool {
	return c.IsStaff() || (c.UserID != "" && c.UserID == s.CandidateID)
}

// CandidateView hides the seed prompts and the evaluation from the candidate
func (s *ChatSession) CandidateView() *ChatSession {
	c := s.Clone()
	if len(c.Messages) >= SeedMessageCount {
		c.Messages = c.Messages[SeedMessageCount:]
	}
	c.Score = nil
	c.Feedback = ""
	c.EvaluationRaw = ""
	c.RejectReason = ""
	return c
}
