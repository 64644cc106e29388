package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/PedroLopes/ai-rename-images/internal/pipeline"
)

// DefaultGeminiModel is used when the configuration names no model.
const DefaultGeminiModel = "gemini-2.5-flash"

var errGeminiAPIKeyRequired = errors.New("gemini API key is required")

// GeminiClient sends the prompt and image to Google's Gemini API.
type GeminiClient struct {
	client        *genai.Client
	model         string
	DefaultTemp   float64
	DefaultTokens int
}

// NewGeminiClient creates a Gemini client. An empty baseURL uses the public endpoint.
func NewGeminiClient(ctx context.Context, apiKey string, model string, baseURL string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errGeminiAPIKeyRequired
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultGeminiModel
	}
	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if trimmedBaseURL := strings.TrimSpace(baseURL); trimmedBaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: trimmedBaseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Chat(ctx context.Context, req pipeline.LLMRequest) (pipeline.LLMResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	mimeType := req.ImageMIMEType
	if strings.TrimSpace(mimeType) == "" {
		mimeType = defaultImageMIMEType
	}

	parts := []*genai.Part{genai.NewPartFromText(strings.TrimSpace(req.Prompt))}
	for _, image := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(image, mimeType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	generateConfig := &genai.GenerateContentConfig{}
	if temperature := chooseFloat(req.Temperature, c.DefaultTemp); temperature > 0 {
		resolved := float32(temperature)
		generateConfig.Temperature = &resolved
	}
	if tokens := chooseInt(req.MaxTokens, c.DefaultTokens); tokens > 0 {
		generateConfig.MaxOutputTokens = int32(tokens)
	}

	response, err := c.client.Models.GenerateContent(ctx, model, contents, generateConfig)
	if err != nil {
		return pipeline.LLMResponse{}, fmt.Errorf("gemini generate content: %w", err)
	}
	text := strings.TrimSpace(response.Text())
	if text == "" {
		return pipeline.LLMResponse{}, errors.New("gemini returned empty response")
	}
	return pipeline.LLMResponse{RawText: text}, nil
}
