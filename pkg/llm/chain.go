package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Capability string

const (
	CapabilityText   Capability = "text"
	CapabilityVision Capability = "vision"
)

type Backend struct {
	Name         string
	Provider     LLMProvider
	Capabilities []Capability
}

func (b Backend) Supports(need Capability) bool {
	for _, c := range b.Capabilities {
		if c == need {
			return true
		}
	}
	return false
}

// BackendError records one failed attempt inside a chain.
type BackendError struct {
	Backend string
	Kind    ErrorKind
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Backend, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ExhaustedError is returned when every capable backend failed.
// It matches ErrFallbackExhausted and each underlying cause via errors.Is.
type ExhaustedError struct {
	Attempts []*BackendError
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}
	return fmt.Sprintf("%v: %s", ErrFallbackExhausted, strings.Join(parts, "; "))
}

func (e *ExhaustedError) Unwrap() []error {
	out := make([]error, 0, len(e.Attempts)+1)
	out = append(out, ErrFallbackExhausted)
	for _, a := range e.Attempts {
		out = append(out, a)
	}
	return out
}

// Kind is the category of the last attempt, used for user guidance.
func (e *ExhaustedError) Kind() ErrorKind {
	if len(e.Attempts) == 0 {
		return KindUnknown
	}
	return e.Attempts[len(e.Attempts)-1].Kind
}

// Chain tries capable backends in order and returns the first success.
type Chain struct {
	backends []Backend
}

func NewChain(backends ...Backend) *Chain {
	return &Chain{backends: backends}
}

func (c *Chain) Backends() []Backend {
	return append([]Backend(nil), c.backends...)
}

// Chat runs history against the first backend supporting need that succeeds.
// It returns the response and the name of the backend that produced it.
func (c *Chain) Chat(ctx context.Context, need Capability, history []Message, opts ...Option) (string, string, error) {
	var attempts []*BackendError

	for _, b := range c.backends {
		if !b.Supports(need) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		out, err := b.Provider.Chat(ctx, history, opts...)
		if err == nil {
			return out, b.Name, nil
		}
		attempts = append(attempts, &BackendError{Backend: b.Name, Kind: Classify(err), Err: err})

		if errors.Is(err, context.Canceled) {
			break
		}
	}

	if len(attempts) == 0 {
		return "", "", fmt.Errorf("%w: %s", ErrNoCapableBackend, need)
	}
	return "", "", &ExhaustedError{Attempts: attempts}
}
