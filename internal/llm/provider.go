package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PedroLopes/ai-rename-images/internal/config"
	"github.com/PedroLopes/ai-rename-images/internal/errs"
	"github.com/PedroLopes/ai-rename-images/internal/pipeline"
)

const (
	defaultOpenAIEndpoint  = "https://api.openai.com/v1"
	defaultOpenAIKeyEnv    = "OPENAI_API_KEY"
	defaultGeminiKeyEnv    = "GEMINI_API_KEY"
	missingAPIKeyErrFormat = "%w: environment variable %s is not set for model %q"
	unknownProviderFormat  = "%w: unknown provider %q for model %q"
)

// Resetter is implemented by clients with server-side conversation state.
type Resetter interface {
	Reset(ctx context.Context) error
}

// NewClient builds the chat client for the configured model. getenv resolves
// API keys; nil uses os.Getenv.
func NewClient(ctx context.Context, modelConfiguration config.Model, common config.Common, getenv func(string) string) (pipeline.LLMClient, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	endpoint := firstNonEmpty(modelConfiguration.Endpoint, common.API.Endpoint)

	switch strings.ToLower(strings.TrimSpace(modelConfiguration.Provider)) {
	case config.ProviderOllama:
		return OllamaClient{
			BaseURL:       firstNonEmpty(modelConfiguration.Endpoint, DefaultOllamaEndpoint),
			Model:         modelConfiguration.ModelID,
			DefaultTemp:   modelConfiguration.DefaultTemperature,
			DefaultTokens: modelConfiguration.MaxCompletionTokens,
		}, nil

	case config.ProviderOpenAI:
		keyVariable := firstNonEmpty(modelConfiguration.APIKeyEnv, common.API.APIKeyEnv, defaultOpenAIKeyEnv)
		apiKey := strings.TrimSpace(getenv(keyVariable))
		if apiKey == "" {
			return nil, fmt.Errorf(missingAPIKeyErrFormat, errs.ErrConfiguration, keyVariable, modelConfiguration.Name)
		}
		return Adapter{
			Client:              Client{HTTPBaseURL: firstNonEmpty(endpoint, defaultOpenAIEndpoint), APIKey: apiKey},
			DefaultModel:        modelConfiguration.ModelID,
			DefaultTemp:         modelConfiguration.DefaultTemperature,
			DefaultTokens:       modelConfiguration.MaxCompletionTokens,
			SupportsTemperature: modelConfiguration.SupportsTemperature,
		}, nil

	case config.ProviderGemini:
		keyVariable := firstNonEmpty(modelConfiguration.APIKeyEnv, defaultGeminiKeyEnv)
		apiKey := strings.TrimSpace(getenv(keyVariable))
		if apiKey == "" {
			return nil, fmt.Errorf(missingAPIKeyErrFormat, errs.ErrConfiguration, keyVariable, modelConfiguration.Name)
		}
		geminiClient, err := NewGeminiClient(ctx, apiKey, modelConfiguration.ModelID, modelConfiguration.Endpoint)
		if err != nil {
			return nil, err
		}
		geminiClient.DefaultTemp = modelConfiguration.DefaultTemperature
		geminiClient.DefaultTokens = modelConfiguration.MaxCompletionTokens
		return geminiClient, nil

	default:
		return nil, fmt.Errorf(unknownProviderFormat, errs.ErrConfiguration, modelConfiguration.Provider, modelConfiguration.Name)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
