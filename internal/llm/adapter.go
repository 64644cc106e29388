package llm

import (
	"context"
	"strings"

	"github.com/PedroLopes/ai-rename-images/internal/pipeline"
)

// Adapter adapts pipeline.LLMRequest to the OpenAI-compatible HTTP client.
type Adapter struct {
	Client              Client
	DefaultModel        string
	DefaultTemp         float64
	DefaultTokens       int
	SupportsTemperature bool
}

func (a Adapter) Chat(ctx context.Context, req pipeline.LLMRequest) (pipeline.LLMResponse, error) {
	model := req.Model
	if strings.TrimSpace(model) == "" {
		model = a.DefaultModel
	}

	cr := ChatCompletionRequest{
		Model:               model,
		Messages:            []ChatMessage{NewVisionMessage(strings.TrimSpace(req.Prompt), req.Images, req.ImageMIMEType)},
		MaxCompletionTokens: chooseInt(req.MaxTokens, a.DefaultTokens),
	}

	// Many models only allow the default temperature (1). A resolved 0 or 1 is
	// omitted and left to the server default.
	resolvedTemp := chooseFloat(req.Temperature, a.DefaultTemp)
	if a.SupportsTemperature && resolvedTemp != 0 && resolvedTemp != 1 {
		cr.Temperature = &resolvedTemp
	}

	out, err := a.Client.CreateChatCompletion(ctx, cr)
	if err != nil {
		return pipeline.LLMResponse{}, err
	}
	return pipeline.LLMResponse{RawText: out}, nil
}

func chooseInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

func chooseFloat(a, b float64) float64 {
	if a > 0 {
		return a
	}
	return b
}
