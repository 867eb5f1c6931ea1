package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/ports"
)

// Settings carries provider-independent generation parameters.
type Settings struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Factory builds a generator for one provider.
type Factory func(ctx context.Context, s Settings) (ports.Generator, error)

// Registry maps provider names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry knows groq, openai and anthropic.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ProviderGroq, func(_ context.Context, s Settings) (ports.Generator, error) {
		if s.BaseURL == "" {
			s.BaseURL = GroqBaseURL
		}
		if s.Model == "" {
			s.Model = DefaultGroqModel
		}
		return NewOpenAIGenerator(s), nil
	})
	r.Register(ProviderOpenAI, func(_ context.Context, s Settings) (ports.Generator, error) {
		return NewOpenAIGenerator(s), nil
	})
	r.Register(ProviderAnthropic, func(_ context.Context, s Settings) (ports.Generator, error) {
		return NewAnthropicGenerator(s), nil
	})
	return r
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces a provider.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalize(name)] = f
}

// Get builds the generator registered under name.
func (r *Registry) Get(ctx context.Context, name string, s Settings) (ports.Generator, error) {
	r.mu.RLock()
	f, ok := r.factories[normalize(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return f(ctx, s)
}

// Names lists the registered providers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
