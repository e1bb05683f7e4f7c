package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"design-analysis-be/pkg/llm"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type Provider struct {
	client    anthropic.Client
	ModelName string
}

var _ llm.LLMProvider = &Provider{}

func NewProvider(apiKey, baseURL, modelName string) *Provider {
	if modelName == "" {
		modelName = "claude-haiku-4-5-20251001"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}
	return &Provider{
		client:    anthropic.NewClient(opts...),
		ModelName: modelName,
	}
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.4, MaxTokens: 2048}, opts...)

	model := p.ModelName
	if options.Model != "" {
		model = options.Model
	}

	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case "system":
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case "assistant", "model":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Images)+1)
			for _, url := range msg.Images {
				blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: url}))
			}
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(options.MaxTokens),
		System:      system,
		Messages:    messages,
		Temperature: anthropic.Float(options.Temperature),
	})
	if err != nil {
		return "", classify(err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", errors.New("anthropic: empty response")
	}
	return out.String(), nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llm.FromStatus("anthropic", apiErr.StatusCode, apiErr.Error())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("anthropic: %w: %v", llm.ErrNetwork, err)
}
