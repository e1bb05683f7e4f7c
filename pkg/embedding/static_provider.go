package embedding

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// StaticProvider serves fixed vectors for known texts and derives a stable
// pseudo-random vector for everything else. Used for offline runs and tests.
type StaticProvider struct {
	Model   string
	Dims    int
	Vectors map[string][]float32
	Err     error
}

func NewStaticProvider(model string, dims int) *StaticProvider {
	if model == "" {
		model = "hash-v1"
	}
	return &StaticProvider{
		Model:   model,
		Dims:    dims,
		Vectors: make(map[string][]float32),
	}
}

func (p *StaticProvider) ModelVersion() string { return "static/" + p.Model }

func (p *StaticProvider) Dimensions() int { return p.Dims }

func (p *StaticProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	if p.Err != nil {
		return nil, unavailable("static", p.Err)
	}
	input, err := PrepareInput(text, DefaultMaxInputChars)
	if err != nil {
		return nil, err
	}
	if v, ok := p.Vectors[input]; ok {
		return finish(append([]float32(nil), v...), p.Dims, p.ModelVersion())
	}
	return finish(hashVector(input, p.Dims), p.Dims, p.ModelVersion())
}

func hashVector(text string, dims int) []float32 {
	out := make([]float32, dims)
	var seed [8]byte
	for i := range out {
		binary.LittleEndian.PutUint64(seed[:], uint64(i))
		h := xxhash.Sum64String(fmt.Sprintf("%s|%x", text, seed))
		out[i] = float32(int64(h%2001)-1000) / 1000
	}
	return out
}
