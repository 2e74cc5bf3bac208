package llm

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/contratai/contratai/config"
)

const generationPromptTemplate = "Gere um rascunho de contrato de %s em português brasileiro, " +
	"incluindo cláusulas de rescisão e foro de eleição."

const analysisPromptTemplate = `Você é um assistente jurídico especializado em análise de contratos.
Analise o seguinte contrato e retorne:
1) As três cláusulas mais arriscadas para a parte mais fraca, com breve justificativa.
2) Uma sugestão de refatoração para a cláusula mais complexa.

CONTRATO:
%s
`

// PromptBuilder composes the fixed instructional templates around
// caller-supplied text and bounds the result. Prompts are ephemeral and
// never persisted.
type PromptBuilder struct {
	maxChars int
	logger   *slog.Logger
}

// NewPromptBuilder creates a prompt builder. maxChars below the configured
// floor is clamped up.
func NewPromptBuilder(maxChars int, logger *slog.Logger) *PromptBuilder {
	if maxChars < config.MinPromptChars {
		maxChars = config.MinPromptChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PromptBuilder{maxChars: maxChars, logger: logger}
}

// Generation builds a contract-draft prompt from the given terms.
func (b *PromptBuilder) Generation(terms string) (string, error) {
	if strings.TrimSpace(terms) == "" {
		return "", fmt.Errorf("terms: %w", ErrEmptyInput)
	}
	return b.bound(fmt.Sprintf(generationPromptTemplate, terms)), nil
}

// Analysis builds a risk-analysis prompt from the raw contract text.
func (b *PromptBuilder) Analysis(contractText string) (string, error) {
	if strings.TrimSpace(contractText) == "" {
		return "", fmt.Errorf("contract text: %w", ErrEmptyInput)
	}
	return b.bound(fmt.Sprintf(analysisPromptTemplate, contractText)), nil
}

func (b *PromptBuilder) bound(prompt string) string {
	sanitized, truncated := Sanitize(prompt, b.maxChars)
	if truncated {
		// Truncation is silent to the caller; recorded for observability only.
		b.logger.Warn("Prompt exceeded max chars, truncated",
			"max_chars", b.maxChars,
			"original_chars", len([]rune(prompt)))
	}
	return sanitized
}

// Sanitize normalizes line endings to "\n", strips NUL bytes, and truncates
// to exactly maxChars characters when the result is longer. It reports
// whether truncation occurred. Sanitize is idempotent for inputs within
// maxChars.
func Sanitize(text string, maxChars int) (string, bool) {
	cleaned := strings.ReplaceAll(text, "\r\n", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\r", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\x00", "")

	runes := []rune(cleaned)
	if len(runes) > maxChars {
		return string(runes[:maxChars]), true
	}
	return cleaned, false
}
