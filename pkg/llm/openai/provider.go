package openai

import (
	"context"
	"errors"
	"fmt"

	"design-analysis-be/pkg/llm"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Provider talks to the chat completions API; vision input is sent as image_url parts.
type Provider struct {
	client    openai.Client
	ModelName string
}

var _ llm.LLMProvider = &Provider{}

func NewProvider(apiKey, baseURL, modelName string) *Provider {
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Provider{
		client:    openai.NewClient(opts...),
		ModelName: modelName,
	}
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.4, MaxTokens: 2048}, opts...)

	model := p.ModelName
	if options.Model != "" {
		model = options.Model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(msg.Content))
		case "assistant", "model":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			if len(msg.Images) == 0 {
				messages = append(messages, openai.UserMessage(msg.Content))
				continue
			}
			parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(msg.Content)}
			for _, url := range msg.Images {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
			}
			messages = append(messages, openai.UserMessage(parts))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(options.Temperature),
	}
	if options.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(options.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llm.FromStatus("openai", apiErr.StatusCode, apiErr.Message)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("openai: %w: %v", llm.ErrNetwork, err)
}
