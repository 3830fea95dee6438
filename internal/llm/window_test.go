package llm_test

import (
	"strings"
	"testing"

	"github.com/orihero/aish-sub002/internal/llm"
	"github.com/stretchr/testify/assert"
)

// wordCounter counts one token per word so budgets are easy to reason about
type wordCounter struct{}

func (wordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func conversation() []llm.Message {
	return []llm.Message{
		{Role: "system", Content: "seed one"},
		{Role: "system", Content: "seed two"},
		{Role: "assistant", Content: "q1"},
		{Role: "user", Content: "a1"},
		{Role: "assistant", Content: "q2"},
		{Role: "user", Content: "a2"},
	}
}

func TestWindow_Unbounded(t *testing.T) {
	msgs := conversation()
	assert.Equal(t, msgs, llm.NewWindow(wordCounter{}, 0, 2).Project(msgs))

	var w *llm.Window
	assert.Equal(t, msgs, w.Project(msgs))
}

func TestWindow_FitsBudget(t *testing.T) {
	msgs := conversation()
	// seeds: 2*(2+4)=12, each turn message: 1+4=5; 12+4*5=32
	assert.Equal(t, msgs, llm.NewWindow(wordCounter{}, 32, 2).Project(msgs))
}

func TestWindow_TruncatesOldest(t *testing.T) {
	msgs := conversation()

	got := llm.NewWindow(wordCounter{}, 22, 2).Project(msgs)

	assert.Equal(t, []llm.Message{msgs[0], msgs[1], msgs[4], msgs[5]}, got)
	assert.Len(t, msgs, 6, "input must not be modified")
}

func TestWindow_AlwaysKeepsSeedsAndLast(t *testing.T) {
	msgs := conversation()

	got := llm.NewWindow(wordCounter{}, 1, 2).Project(msgs)

	assert.Equal(t, []llm.Message{msgs[0], msgs[1], msgs[5]}, got)
}

func TestTokenizer_Fallback(t *testing.T) {
	var tk llm.Tokenizer
	assert.Equal(t, 3, tk.CountTokens("12345678"))
}
