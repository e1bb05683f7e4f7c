package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaProvider implements EmbeddingProvider for local Ollama models (e.g., nomic-embed-text)
type OllamaProvider struct {
	BaseURL       string
	Model         string
	Dims          int
	MaxInputChars int
	Client        *http.Client
}

func NewOllamaProvider(baseURL string, model string, dims int) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaProvider{
		BaseURL:       baseURL,
		Model:         model,
		Dims:          dims,
		MaxInputChars: DefaultMaxInputChars,
		Client:        &http.Client{Timeout: 30 * time.Second},
	}
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (p *OllamaProvider) ModelVersion() string { return "ollama/" + p.Model }

func (p *OllamaProvider) Dimensions() int { return p.Dims }

// Generate ignores taskType; Ollama embedding models take a bare prompt.
func (p *OllamaProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	input, err := PrepareInput(text, p.MaxInputChars)
	if err != nil {
		return nil, err
	}

	jsonBody, err := json.Marshal(ollamaEmbeddingRequest{Model: p.Model, Prompt: input})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/embeddings", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, unavailable("ollama", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable("ollama", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unavailable("ollama", fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes)))
	}

	var ollamaResp ollamaEmbeddingResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return nil, unavailable("ollama", err)
	}

	values := make([]float32, len(ollamaResp.Embedding))
	for i, v := range ollamaResp.Embedding {
		values[i] = float32(v)
	}
	return finish(values, p.Dims, p.ModelVersion())
}
