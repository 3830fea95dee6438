package llm

import (
	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
)

// TokenCounter estimates how many tokens a text costs
type TokenCounter interface {
	CountTokens(text string) int
}

// Tokenizer counts tokens with the cl100k_base encoding, or len/4 when the encoding is unavailable
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenizer creates a tokenizer. Loading the encoding may need network access;
// on failure the tokenizer falls back to a character estimate.
func NewTokenizer() *Tokenizer {
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.Warn().Err(err).Msg("tiktoken encoding unavailable, estimating tokens from length")
		return &Tokenizer{}
	}
	return &Tokenizer{encoding: tke}
}

// CountTokens returns the token count of text
func (t *Tokenizer) CountTokens(text string) int {
	if t.encoding == nil {
		return len(text)/4 + 1
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// perMessageOverhead approximates role and separator tokens
const perMessageOverhead = 4

// Window projects a conversation onto a token budget before it is sent to a model.
// The stored history is never modified.
type Window struct {
	counter   TokenCounter
	maxTokens int
	pinned    int
}

// NewWindow creates a projection keeping the first pinned messages and as many of
// the newest messages as fit in maxTokens. maxTokens <= 0 disables truncation.
func NewWindow(counter TokenCounter, maxTokens, pinned int) *Window {
	return &Window{counter: counter, maxTokens: maxTokens, pinned: pinned}
}

// Project returns the messages to send. The result always contains the pinned
// messages and the last message, even when they alone exceed the budget.
func (w *Window) Project(messages []Message) []Message {
	if w == nil || w.maxTokens <= 0 || len(messages) <= w.pinned+1 {
		return messages
	}

	cost := func(m Message) int {
		return w.counter.CountTokens(m.Content) + perMessageOverhead
	}

	used := 0
	for _, m := range messages[:w.pinned] {
		used += cost(m)
	}

	rest := messages[w.pinned:]
	last := len(rest) - 1
	used += cost(rest[last])

	first := last
	for i := last - 1; i >= 0; i-- {
		c := cost(rest[i])
		if used+c > w.maxTokens {
			break
		}
		used += c
		first = i
	}

	if first == 0 {
		return messages
	}

	log.Debug().
		Int("dropped", first).
		Int("tokens", used).
		Int("budget", w.maxTokens).
		Msg("context window truncated")

	out := make([]Message, 0, w.pinned+len(rest)-first)
	out = append(out, messages[:w.pinned]...)
	out = append(out, rest[first:]...)
	return out
}
