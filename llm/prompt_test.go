package llm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contratai/contratai/llm"
)

func TestSanitize_NormalizesLineEndings(t *testing.T) {
	out, truncated := llm.Sanitize("a\r\nb\rc\nd", 100)
	assert.Equal(t, "a\nb\nc\nd", out)
	assert.False(t, truncated)
}

func TestSanitize_StripsNUL(t *testing.T) {
	out, _ := llm.Sanitize("clá\x00usula", 100)
	assert.Equal(t, "cláusula", out)
}

func TestSanitize_TruncatesToExactLength(t *testing.T) {
	input := strings.Repeat("á", 50) // multibyte runes
	out, truncated := llm.Sanitize(input, 10)
	assert.True(t, truncated)
	assert.Equal(t, 10, len([]rune(out)))
	assert.Equal(t, strings.Repeat("á", 10), out)
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"simple text",
		"with\r\nwindows\rendings",
		"nul\x00bytes",
		strings.Repeat("x", 2000),
		"",
	}

	for _, in := range inputs {
		once, _ := llm.Sanitize(in, 1500)
		twice, truncatedAgain := llm.Sanitize(once, 1500)
		assert.Equal(t, once, twice)
		assert.False(t, truncatedAgain)
	}
}

func TestPromptBuilder_Analysis(t *testing.T) {
	b := llm.NewPromptBuilder(15000, nil)

	prompt, err := b.Analysis("Cláusula 1: o contratante...")
	require.NoError(t, err)

	assert.Contains(t, prompt, "assistente jurídico")
	assert.Contains(t, prompt, "Cláusula 1: o contratante...")
	assert.NotContains(t, prompt, "\r")
}

func TestPromptBuilder_Generation(t *testing.T) {
	b := llm.NewPromptBuilder(15000, nil)

	prompt, err := b.Generation("locação residencial")
	require.NoError(t, err)

	assert.Contains(t, prompt, "locação residencial")
	assert.Contains(t, prompt, "português brasileiro")
}

func TestPromptBuilder_EmptyInput(t *testing.T) {
	b := llm.NewPromptBuilder(15000, nil)

	_, err := b.Analysis("   ")
	assert.ErrorIs(t, err, llm.ErrEmptyInput)

	_, err = b.Generation("")
	assert.ErrorIs(t, err, llm.ErrEmptyInput)
}

func TestPromptBuilder_TruncatesSilently(t *testing.T) {
	b := llm.NewPromptBuilder(1000, nil) // floor value

	prompt, err := b.Analysis(strings.Repeat("cláusula ", 500))
	require.NoError(t, err)
	assert.Equal(t, 1000, len([]rune(prompt)))
}

func TestPromptBuilder_ClampsFloor(t *testing.T) {
	b := llm.NewPromptBuilder(10, nil)

	// A prompt below the floor passes through untouched even though the
	// requested cap was tiny.
	prompt, err := b.Analysis("texto curto")
	require.NoError(t, err)
	assert.Greater(t, len([]rune(prompt)), 10)
}
