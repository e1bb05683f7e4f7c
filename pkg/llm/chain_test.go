package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply string
	err   error
	calls int
	seen  []Message
}

func (s *stubProvider) Chat(ctx context.Context, history []Message, opts ...Option) (string, error) {
	s.calls++
	s.seen = history
	return s.reply, s.err
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	return s.Chat(ctx, []Message{{Role: "user", Content: prompt}}, opts...)
}

func TestChain_FirstCapableSuccessWins(t *testing.T) {
	text := &stubProvider{reply: "text"}
	failing := &stubProvider{err: fmt.Errorf("openai: %w", ErrRateLimited)}
	vision := &stubProvider{reply: "vision"}

	chain := NewChain(
		Backend{Name: "ollama:llama3", Provider: text, Capabilities: []Capability{CapabilityText}},
		Backend{Name: "openai:gpt-4o", Provider: failing, Capabilities: []Capability{CapabilityText, CapabilityVision}},
		Backend{Name: "anthropic:claude", Provider: vision, Capabilities: []Capability{CapabilityText, CapabilityVision}},
	)

	out, name, err := chain.Chat(context.Background(), CapabilityVision, []Message{{Role: "user", Content: "hi", Images: []string{"a.png"}}})
	require.NoError(t, err)
	assert.Equal(t, "vision", out)
	assert.Equal(t, "anthropic:claude", name)
	assert.Equal(t, 0, text.calls, "text-only backend is skipped for vision requests")
	assert.Equal(t, 1, failing.calls)
}

func TestChain_Exhausted(t *testing.T) {
	chain := NewChain(
		Backend{Name: "a", Provider: &stubProvider{err: fmt.Errorf("a: %w", ErrAuthentication)}, Capabilities: []Capability{CapabilityText}},
		Backend{Name: "b", Provider: &stubProvider{err: fmt.Errorf("b: %w", ErrRateLimited)}, Capabilities: []Capability{CapabilityText}},
	)

	_, _, err := chain.Chat(context.Background(), CapabilityText, []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFallbackExhausted)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, err, ErrRateLimited)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.Len(t, exhausted.Attempts, 2)
	assert.Equal(t, KindRateLimited, exhausted.Kind())
}

func TestChain_NoCapableBackend(t *testing.T) {
	chain := NewChain(Backend{Name: "a", Provider: &stubProvider{}, Capabilities: []Capability{CapabilityText}})

	_, _, err := chain.Chat(context.Background(), CapabilityVision, nil)
	assert.ErrorIs(t, err, ErrNoCapableBackend)
	assert.NotErrorIs(t, err, ErrFallbackExhausted)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"auth", FromStatus("x", 401, ""), KindAuthentication},
		{"forbidden", FromStatus("x", 403, ""), KindAccessDenied},
		{"rate", FromStatus("x", 429, ""), KindRateLimited},
		{"server", FromStatus("x", 503, ""), KindNetwork},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout},
		{"other", errors.New("bad json"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
