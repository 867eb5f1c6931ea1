package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Provider names.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	// GroqBaseURL is Groq's OpenAI-compatible endpoint.
	GroqBaseURL      = "https://api.groq.com/openai/v1"
	DefaultGroqModel = "llama-3.1-8b-instant"

	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultMaxTokens   = 800
	DefaultTemperature = 0.7
)

// OpenAIGenerator implements ports.Generator for all OpenAI-compatible APIs, Groq included.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewOpenAIGenerator builds a generator from settings; extra request options are appended last.
func NewOpenAIGenerator(s Settings, extra ...option.RequestOption) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(s.APIKey)}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	opts = append(opts, extra...)

	if s.Model == "" {
		s.Model = DefaultOpenAIModel
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = DefaultMaxTokens
	}
	if s.Temperature <= 0 {
		s.Temperature = DefaultTemperature
	}

	return &OpenAIGenerator{
		client:      openai.NewClient(opts...),
		model:       s.Model,
		maxTokens:   s.MaxTokens,
		temperature: s.Temperature,
	}
}

// Generate sends prompt as a single user message and returns the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		MaxTokens:   openai.Int(g.maxTokens),
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", domain.ErrGeneration)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
