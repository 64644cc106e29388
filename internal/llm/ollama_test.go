package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PedroLopes/ai-rename-images/internal/pipeline"
)

func TestOllamaChatSendsImagesWithoutStreaming(t *testing.T) {
	var received ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != ollamaChatPath {
			t.Errorf("unexpected path %s", request.URL.Path)
		}
		if err := json.NewDecoder(request.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = writer.Write([]byte(`{"message":{"role":"assistant","content":" {\"keywords\":[\"cat\"]} "},"done":true}`))
	}))
	defer server.Close()

	client := OllamaClient{BaseURL: server.URL + "/"}
	resp, err := client.Chat(context.Background(), pipeline.LLMRequest{Prompt: "describe", Images: [][]byte{[]byte("abc")}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.RawText != `{"keywords":["cat"]}` {
		t.Fatalf("unexpected reply %q", resp.RawText)
	}
	if received.Model != DefaultOllamaModel {
		t.Fatalf("expected default model, got %s", received.Model)
	}
	if received.Stream {
		t.Fatalf("expected stream false")
	}
	if len(received.Messages) != 1 || received.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages %+v", received.Messages)
	}
	if len(received.Messages[0].Images) != 1 || received.Messages[0].Images[0] != "YWJj" {
		t.Fatalf("expected base64 image, got %v", received.Messages[0].Images)
	}
	if received.Options != nil {
		t.Fatalf("expected no options, got %+v", received.Options)
	}
}

func TestOllamaResetSendsSystemMessage(t *testing.T) {
	var received ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if err := json.NewDecoder(request.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = writer.Write([]byte(`{"message":{"role":"assistant","content":"ok"},"done":true}`))
	}))
	defer server.Close()

	client := OllamaClient{BaseURL: server.URL, Model: "llava"}
	if err := client.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if received.Model != "llava" {
		t.Fatalf("expected configured model, got %s", received.Model)
	}
	if len(received.Messages) != 1 || received.Messages[0].Role != "system" || received.Messages[0].Content != resetPromptMessage {
		t.Fatalf("unexpected reset messages %+v", received.Messages)
	}
}

func TestOllamaErrors(t *testing.T) {
	testCases := []struct {
		name          string
		status        int
		body          string
		expectedError string
	}{
		{name: "error field on failure status", status: http.StatusNotFound, body: `{"error":"model \"x\" not found"}`, expectedError: "not found"},
		{name: "plain body on failure status", status: http.StatusBadGateway, body: `upstream down`, expectedError: "502"},
		{name: "error field on success status", status: http.StatusOK, body: `{"error":"out of memory"}`, expectedError: "out of memory"},
		{name: "undecodable body", status: http.StatusOK, body: `not json`, expectedError: "decode ollama"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				writer.WriteHeader(testCase.status)
				_, _ = writer.Write([]byte(testCase.body))
			}))
			defer server.Close()

			client := OllamaClient{BaseURL: server.URL}
			_, err := client.Chat(context.Background(), pipeline.LLMRequest{Prompt: "p"})
			if err == nil || !strings.Contains(err.Error(), testCase.expectedError) {
				t.Fatalf("expected error containing %q, got %v", testCase.expectedError, err)
			}
		})
	}
}
