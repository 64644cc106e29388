package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PedroLopes/ai-rename-images/internal/pipeline"
)

const (
	// DefaultOllamaEndpoint is the address of a local Ollama server.
	DefaultOllamaEndpoint = "http://127.0.0.1:11434"
	// DefaultOllamaModel is used when neither the request nor the client names a model.
	DefaultOllamaModel = "llava-phi3"

	ollamaChatPath     = "/api/chat"
	resetPromptMessage = "Reset conversation context."
)

// OllamaClient calls the Ollama chat API with base64-encoded images.
type OllamaClient struct {
	BaseURL       string
	Model         string
	DefaultTemp   float64
	DefaultTokens int
	HTTPClient    *http.Client
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error"`
}

func (c OllamaClient) Chat(ctx context.Context, req pipeline.LLMRequest) (pipeline.LLMResponse, error) {
	encodedImages := make([]string, 0, len(req.Images))
	for _, image := range req.Images {
		encodedImages = append(encodedImages, base64.StdEncoding.EncodeToString(image))
	}
	payload := ollamaChatRequest{
		Model:    c.model(req.Model),
		Messages: []ollamaMessage{{Role: "user", Content: strings.TrimSpace(req.Prompt), Images: encodedImages}},
	}
	temperature := chooseFloat(req.Temperature, c.DefaultTemp)
	tokens := chooseInt(req.MaxTokens, c.DefaultTokens)
	if temperature > 0 || tokens > 0 {
		payload.Options = &ollamaOptions{Temperature: temperature, NumPredict: tokens}
	}

	content, err := c.post(ctx, payload)
	if err != nil {
		return pipeline.LLMResponse{}, err
	}
	return pipeline.LLMResponse{RawText: content}, nil
}

// Reset asks the model to drop any previous conversation context.
func (c OllamaClient) Reset(ctx context.Context) error {
	payload := ollamaChatRequest{
		Model:    c.model(""),
		Messages: []ollamaMessage{{Role: "system", Content: resetPromptMessage}},
	}
	_, err := c.post(ctx, payload)
	return err
}

func (c OllamaClient) model(requested string) string {
	if model := strings.TrimSpace(requested); model != "" {
		return model
	}
	if model := strings.TrimSpace(c.Model); model != "" {
		return model
	}
	return DefaultOllamaModel
}

func (c OllamaClient) post(ctx context.Context, payload ollamaChatRequest) (string, error) {
	requestBytes, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return "", marshalErr
	}
	baseURL := strings.TrimSpace(c.BaseURL)
	if baseURL == "" {
		baseURL = DefaultOllamaEndpoint
	}
	httpRequest, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+ollamaChatPath, bytes.NewReader(requestBytes))
	if buildErr != nil {
		return "", buildErr
	}
	httpRequest.Header.Set("Content-Type", contentTypeJSON)

	httpResponse, httpErr := httpClientOrDefault(c.HTTPClient).Do(httpRequest)
	if httpErr != nil {
		return "", httpErr
	}
	defer func(closer io.ReadCloser) { _ = closer.Close() }(httpResponse.Body)

	bodyBytes, readErr := io.ReadAll(httpResponse.Body)
	if readErr != nil {
		return "", readErr
	}
	bodyPreview := truncateForLog(string(bodyBytes), responseBodyPreviewLimit)

	var decoded ollamaChatResponse
	decodeErr := json.Unmarshal(bodyBytes, &decoded)
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		if decodeErr == nil && strings.TrimSpace(decoded.Error) != "" {
			return "", fmt.Errorf("ollama http error %d: %s", httpResponse.StatusCode, decoded.Error)
		}
		return "", fmt.Errorf("ollama http error %d: %s", httpResponse.StatusCode, bodyPreview)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode ollama chat response: %w (body=%s)", decodeErr, bodyPreview)
	}
	if strings.TrimSpace(decoded.Error) != "" {
		return "", fmt.Errorf("ollama error: %s", decoded.Error)
	}
	return strings.TrimSpace(decoded.Message.Content), nil
}
