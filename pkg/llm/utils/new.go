// Package llmutils is the chat completion utility package
package llmutils

import (
	"fmt"

	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/llm/anthropic"
	"github.com/papercomputeco/recall/pkg/llm/ollama"
	"github.com/papercomputeco/recall/pkg/llm/openai"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Ollama}
}

type NewCompleterOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
}

// NewCompleter creates a Completer for the given provider type.
func NewCompleter(o *NewCompleterOpts) (llm.Completer, error) {
	switch o.ProviderType {
	case Ollama, "":
		return ollama.New(ollama.Config{BaseURL: o.TargetURL, Model: o.Model}), nil
	case OpenAI:
		return openai.New(openai.Config{BaseURL: o.TargetURL, APIKey: o.APIKey, Model: o.Model, MaxRetries: -1}), nil
	case Anthropic:
		return anthropic.New(anthropic.Config{BaseURL: o.TargetURL, APIKey: o.APIKey, Model: o.Model, MaxRetries: -1}), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q (supported: %v)", o.ProviderType, SupportedProviders())
	}
}
