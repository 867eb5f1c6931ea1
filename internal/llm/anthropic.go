package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = string(anthropic.ModelClaude3_5HaikuLatest)

// AnthropicGenerator implements ports.Generator with the Messages API.
type AnthropicGenerator struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicGenerator builds a generator from settings; extra request options are appended last.
func NewAnthropicGenerator(s Settings, extra ...anthropicoption.RequestOption) *AnthropicGenerator {
	opts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(s.APIKey)}
	if s.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(s.BaseURL))
	}
	opts = append(opts, extra...)

	if s.Model == "" {
		s.Model = DefaultAnthropicModel
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = DefaultMaxTokens
	}
	if s.Temperature <= 0 {
		s.Temperature = DefaultTemperature
	}

	return &AnthropicGenerator{
		client:      anthropic.NewClient(opts...),
		model:       s.Model,
		maxTokens:   s.MaxTokens,
		temperature: s.Temperature,
	}
}

// Generate sends prompt as a single user turn and concatenates the text blocks of the reply.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   g.maxTokens,
		Temperature: anthropic.Float(g.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty response", domain.ErrGeneration)
	}
	return strings.TrimSpace(sb.String()), nil
}
