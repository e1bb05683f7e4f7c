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

type geminiContentPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiContentPart `json:"parts"`
}

type geminiEmbeddingRequest struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	TaskType             string        `json:"task_type,omitempty"`
	OutputDimensionality int           `json:"output_dimensionality,omitempty"`
}

type geminiEmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

type GeminiProvider struct {
	ApiKey        string
	Model         string
	Dims          int
	MaxInputChars int
	BaseURL       string
	Client        *http.Client
}

func NewGeminiProvider(apiKey, model string, dims int) *GeminiProvider {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GeminiProvider{
		ApiKey:        apiKey,
		Model:         model,
		Dims:          dims,
		MaxInputChars: DefaultMaxInputChars,
		BaseURL:       "https://generativelanguage.googleapis.com/v1beta",
		Client:        &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *GeminiProvider) ModelVersion() string { return "gemini/" + p.Model }

func (p *GeminiProvider) Dimensions() int { return p.Dims }

func (p *GeminiProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	input, err := PrepareInput(text, p.MaxInputChars)
	if err != nil {
		return nil, err
	}

	geminiReq := geminiEmbeddingRequest{
		Model:                "models/" + p.Model,
		Content:              geminiContent{Parts: []geminiContentPart{{Text: input}}},
		TaskType:             taskType,
		OutputDimensionality: p.Dims,
	}
	geminiReqJson, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:embedContent", p.BaseURL, p.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(geminiReqJson))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", p.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.Client.Do(req)
	if err != nil {
		return nil, unavailable("gemini", err)
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, unavailable("gemini", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, unavailable("gemini", fmt.Errorf("code %d, body %s", res.StatusCode, string(resByte)))
	}

	var resEmbedding geminiEmbeddingResponse
	if err := json.Unmarshal(resByte, &resEmbedding); err != nil {
		return nil, unavailable("gemini", err)
	}
	return finish(resEmbedding.Embedding.Values, p.Dims, p.ModelVersion())
}
