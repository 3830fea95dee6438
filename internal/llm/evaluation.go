package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrInvalidEvaluation is returned when a model reply holds no usable score and feedback
var ErrInvalidEvaluation = errors.New("invalid evaluation reply")

// Evaluation is the structured result of a screening evaluation
type Evaluation struct {
	Score    int
	Feedback string
}

type evaluationReply struct {
	Score    *float64 `json:"score" validate:"required,min=0,max=100"`
	Feedback string   `json:"feedback" validate:"required"`
}

// ParseEvaluation extracts and validates the score and feedback from a model reply
func ParseEvaluation(content string) (*Evaluation, error) {
	raw := ExtractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object", ErrInvalidEvaluation)
	}

	var reply evaluationReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvaluation, err)
	}

	reply.Feedback = strings.TrimSpace(reply.Feedback)
	if err := validate.Struct(reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvaluation, err)
	}

	return &Evaluation{
		Score:    int(math.Round(*reply.Score)),
		Feedback: reply.Feedback,
	}, nil
}

// ExtractJSON returns the first balanced, valid JSON object in content, ignoring
// code fences and prose. Braces in prose that do not open valid JSON are skipped.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	for offset := 0; offset < len(content); {
		i := strings.IndexByte(content[offset:], '{')
		if i == -1 {
			return ""
		}
		start := offset + i
		if candidate := balancedObject(content[start:]); candidate != "" && json.Valid([]byte(candidate)) {
			return candidate
		}
		offset = start + 1
	}
	return ""
}

// balancedObject returns the prefix of s, which starts with '{', up to its matching '}'
func balancedObject(s string) string {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
