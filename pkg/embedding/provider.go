package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"design-analysis-be/pkg/vector"
)

const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"

	// DefaultMaxInputChars bounds provider input; longer text is truncated.
	DefaultMaxInputChars = 8000
)

var (
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrEmptyInput           = errors.New("embedding input is empty")
	ErrDimensionMismatch    = errors.New("embedding dimension mismatch")
)

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
	Model     string                     `json:"model"`
}

// EmbeddingProvider defines the interface for generating text embeddings.
// ModelVersion is stamped on every ingested knowledge entry and used to filter searches.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
	ModelVersion() string
	Dimensions() int
}

// PrepareInput trims the text and truncates it to maxChars runes.
func PrepareInput(text string, maxChars int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text, nil
	}
	return string([]rune(text)[:maxChars]), nil
}

// finish checks dimensionality and normalizes to unit length.
func finish(values []float32, dims int, model string) (*EmbeddingResponse, error) {
	if dims > 0 && len(values) != dims {
		return nil, fmt.Errorf("%w: model %s returned %d values, expected %d", ErrDimensionMismatch, model, len(values), dims)
	}
	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{Values: vector.Normalize(values)},
		Model:     model,
	}, nil
}

func unavailable(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrEmbeddingUnavailable, provider, err)
}
