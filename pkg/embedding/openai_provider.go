package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

type OpenAIProvider struct {
	client        openai.Client
	Model         string
	Dims          int
	MaxInputChars int
}

func NewOpenAIProvider(apiKey, baseURL, model string, dims int) *OpenAIProvider {
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{
		client:        openai.NewClient(opts...),
		Model:         model,
		Dims:          dims,
		MaxInputChars: DefaultMaxInputChars,
	}
}

func (p *OpenAIProvider) ModelVersion() string { return "openai/" + p.Model }

func (p *OpenAIProvider) Dimensions() int { return p.Dims }

func (p *OpenAIProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	input, err := PrepareInput(text, p.MaxInputChars)
	if err != nil {
		return nil, err
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.Model),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(input)},
	}
	if p.Dims > 0 {
		params.Dimensions = openai.Int(int64(p.Dims))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, unavailable("openai", err)
	}
	if len(resp.Data) == 0 {
		return nil, unavailable("openai", fmt.Errorf("no embedding returned"))
	}

	values := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		values[i] = float32(v)
	}
	return finish(values, p.Dims, p.ModelVersion())
}
