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
)

const (
	chatCompletionsPath      = "/chat/completions"
	contentTypeJSON          = "application/json"
	imageURLContentType      = "image_url"
	textContentType          = "text"
	dataURIFormat            = "data:%s;base64,%s"
	defaultImageMIMEType     = "image/jpeg"
	responseBodyPreviewLimit = 512
)

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	HTTPBaseURL string
	APIKey      string
	HTTPClient  *http.Client
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one element of a multimodal user message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ChatCompletionRequest struct {
	Model               string        `json:"model"`
	Messages            []ChatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	Temperature         *float64      `json:"temperature,omitempty"`
}

// NewVisionMessage builds a user message carrying the prompt and base64 data URIs for each image.
func NewVisionMessage(prompt string, images [][]byte, mimeType string) ChatMessage {
	if strings.TrimSpace(mimeType) == "" {
		mimeType = defaultImageMIMEType
	}
	parts := []ContentPart{{Type: textContentType, Text: prompt}}
	for _, image := range images {
		encoded := base64.StdEncoding.EncodeToString(image)
		parts = append(parts, ContentPart{
			Type:     imageURLContentType,
			ImageURL: &ImageURL{URL: fmt.Sprintf(dataURIFormat, mimeType, encoded)},
		})
	}
	return ChatMessage{Role: "user", Content: parts}
}

type chatMessageResponse struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Refusal   json.RawMessage `json:"refusal,omitempty"`
	ToolCalls json.RawMessage `json:"tool_calls,omitempty"`
}

type chatCompletionChoice struct {
	Message      chatMessageResponse `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type ChatCompletionResponse struct {
	Choices []chatCompletionChoice `json:"choices"`
}

func truncateForLog(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

func (c Client) CreateChatCompletion(ctx context.Context, requestPayload ChatCompletionRequest) (string, error) {
	requestBytes, marshalErr := json.Marshal(requestPayload)
	if marshalErr != nil {
		return "", marshalErr
	}
	httpRequest, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.HTTPBaseURL, "/")+chatCompletionsPath, bytes.NewReader(requestBytes))
	if buildErr != nil {
		return "", buildErr
	}
	httpRequest.Header.Set("Content-Type", contentTypeJSON)
	if strings.TrimSpace(c.APIKey) != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

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

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return "", fmt.Errorf("llm http error %d: %s", httpResponse.StatusCode, bodyPreview)
	}

	var completion ChatCompletionResponse
	if decodeErr := json.Unmarshal(bodyBytes, &completion); decodeErr != nil {
		return "", fmt.Errorf("decode chat completion: %w (body=%s)", decodeErr, bodyPreview)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices (status=%d body=%s)", httpResponse.StatusCode, bodyPreview)
	}

	choice := completion.Choices[0]
	content := strings.TrimSpace(messageText(choice.Message.Content))
	if content != "" {
		return content, nil
	}
	if refusal := strings.TrimSpace(messageText(choice.Message.Refusal)); refusal != "" {
		return "", fmt.Errorf("chat completion refusal: %s", refusal)
	}
	if len(choice.Message.ToolCalls) > 0 && string(choice.Message.ToolCalls) != "null" {
		return "", fmt.Errorf("chat completion produced tool_calls instead of text (body=%s)", bodyPreview)
	}
	return "", fmt.Errorf("chat completion returned empty message (finish_reason=%q body=%s)", choice.FinishReason, bodyPreview)
}

// messageText flattens a content value that is either a string or a list of
// typed parts into newline-separated text.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return ""
	}
	return strings.Join(textFragments(decoded), "\n")
}

func textFragments(value any) []string {
	switch typed := value.(type) {
	case string:
		if trimmed := strings.TrimSpace(typed); trimmed != "" {
			return []string{trimmed}
		}
	case []any:
		var fragments []string
		for _, element := range typed {
			fragments = append(fragments, textFragments(element)...)
		}
		return fragments
	case map[string]any:
		for _, key := range []string{"text", "content", "value"} {
			if nested, ok := typed[key]; ok {
				return textFragments(nested)
			}
		}
	}
	return nil
}

func httpClientOrDefault(client *http.Client) *http.Client {
	if client == nil {
		return http.DefaultClient
	}
	return client
}
