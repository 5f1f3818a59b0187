package translator

import (
	"context"
	"errors"
	"testing"

	"github.com/Kazorio/translation-app/internal/providers/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	chunks []string
	err    error
	got    llm.Request
}

func (f *fakeLLM) Stream(ctx context.Context, req llm.Request) (<-chan string, <-chan error) {
	f.got = req
	out := make(chan string, len(f.chunks))
	errs := make(chan error, 1)
	for _, c := range f.chunks {
		out <- c
	}
	if f.err != nil {
		errs <- f.err
	}
	close(out)
	close(errs)
	return out, errs
}

func (f *fakeLLM) Close() error { return nil }

func TestTranslateJoinsChunksAndTrims(t *testing.T) {
	f := &fakeLLM{chunks: []string{"  Hel", "lo\n"}}
	tr := NewLLMTranslator(f)

	out, err := tr.Translate(context.Background(), "Hallo", "German", "English")
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)

	assert.Equal(t, "Hallo", f.got.Prompt)
	assert.Contains(t, f.got.System, "from German to English")
	assert.Contains(t, f.got.System, "ONLY the translated text")
	assert.InDelta(t, 0.3, f.got.Temperature, 1e-6)
	assert.Equal(t, int32(500), f.got.MaxTokens)
}

func TestTranslatePropagatesError(t *testing.T) {
	tr := NewLLMTranslator(&fakeLLM{chunks: []string{"partial"}, err: errors.New("quota")})

	_, err := tr.Translate(context.Background(), "Hallo", "German", "English")
	assert.EqualError(t, err, "quota")
}

func TestClean(t *testing.T) {
	cases := map[string]string{
		`"Bonjour"`:        "Bonjour",
		"“Bonjour”": "Bonjour",
		"«Salut»":   "Salut",
		"  plain  ":        "plain",
		`"`:                `"`,
		`say "hi" now`:     `say "hi" now`,
	}
	for in, want := range cases {
		assert.Equal(t, want, clean(in), in)
	}
}
