// Package translator turns a generic LLM into a plain-text translator.
package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kazorio/translation-app/internal/providers/llm"
)

const (
	temperature = 0.3
	maxTokens   = 500
)

type Provider interface {
	Translate(ctx context.Context, text, sourceLabel, targetLabel string) (string, error)
}

type LLMTranslator struct {
	llm llm.Provider
}

func NewLLMTranslator(p llm.Provider) *LLMTranslator {
	return &LLMTranslator{llm: p}
}

func systemPrompt(source, target string) string {
	return fmt.Sprintf(
		"You are a professional translator from %s to %s. "+
			"Translate the user's message naturally, keeping its tone. "+
			"Return ONLY the translated text, without quotes, notes or explanations.",
		source, target)
}

// Translate returns the trimmed model output. An empty result is returned as
// "" with a nil error; callers decide whether that is a failure.
func (t *LLMTranslator) Translate(ctx context.Context, text, sourceLabel, targetLabel string) (string, error) {
	out, err := llm.Collect(ctx, t.llm, llm.Request{
		System:      systemPrompt(sourceLabel, targetLabel),
		Prompt:      text,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	return clean(out), nil
}

// clean strips whitespace and a wrapping pair of quotes the model sometimes
// adds despite the instruction.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		for _, q := range []string{`"`, "'", "“”", "«»"} {
			lq, rq := q, q
			if r := []rune(q); len(r) == 2 {
				lq, rq = string(r[0]), string(r[1])
			}
			if strings.HasPrefix(s, lq) && strings.HasSuffix(s, rq) && len(s) > len(lq)+len(rq) {
				return strings.TrimSpace(s[len(lq) : len(s)-len(rq)])
			}
		}
	}
	return s
}
