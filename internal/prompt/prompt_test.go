package prompt_test

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/PedroLopes/ai-rename-images/internal/errs"
	"github.com/PedroLopes/ai-rename-images/internal/prompt"
)

const (
	testTemplate     = "Describe in {number} keywords, at most {number} words."
	testOutputFormat = "Reply with JSON."
)

func TestBuild(t *testing.T) {
	testCases := []struct {
		name     string
		request  prompt.Request
		expected string
	}{
		{
			name:     "template with count substituted and output format",
			request:  prompt.Request{BaseTemplate: testTemplate, OutputFormat: testOutputFormat, WordCount: 4},
			expected: "Describe in 4 keywords, at most 4 words. Reply with JSON.",
		},
		{
			name:     "append text placed before template",
			request:  prompt.Request{BaseTemplate: testTemplate, OutputFormat: testOutputFormat, AppendText: "Focus on animals.", WordCount: 2},
			expected: "Focus on animals. Describe in 2 keywords, at most 2 words. Reply with JSON.",
		},
		{
			name:     "override replaces template and omits output format",
			request:  prompt.Request{BaseTemplate: testTemplate, OutputFormat: testOutputFormat, OverrideText: "Just say hello", WordCount: 3},
			expected: "Just say hello",
		},
		{
			name: "metadata with location directory and date",
			request: prompt.Request{
				BaseTemplate:  testTemplate,
				OutputFormat:  testOutputFormat,
				WordCount:     3,
				MetadataLines: []string{"Make: Canon", " ", "Model: EOS R5"},
				Location:      "Kyoto, Japan",
				DirectoryHint: "/photos/trip",
				DateHint:      "2024-03-05",
			},
			expected: "Describe in 3 keywords, at most 3 words. " +
				"You might find clues in the image's metadata (which is listed next using a colon separated list): Make: Canon; Model: EOS R5. " +
				"Also, this image was taken in the following location, use this for clues as well: Kyoto, Japan. " +
				"Additionally, consider also that this image is saved in a directory named /photos/trip. " +
				"Also, consider that this image was created at 2024-03-05. " +
				"Reply with JSON.",
		},
		{
			name:     "location ignored without metadata lines",
			request:  prompt.Request{BaseTemplate: testTemplate, OutputFormat: testOutputFormat, WordCount: 1, Location: "Lisbon"},
			expected: "Describe in 1 keywords, at most 1 words. Reply with JSON.",
		},
		{
			name:     "defaults used for blank template and format",
			request:  prompt.Request{WordCount: 3},
			expected: "Describe the image in 3 simple keywords, never use more than 3 words. " + prompt.DefaultOutputFormat,
		},
		{
			name:     "override keeps context sentences",
			request:  prompt.Request{OverrideText: "Name this photo.", DateHint: "2020-01-01", WordCount: 3},
			expected: "Name this photo. Also, consider that this image was created at 2020-01-01.",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			built, err := prompt.Build(testCase.request)
			if err != nil {
				t.Fatalf("build prompt: %v", err)
			}
			if built != testCase.expected {
				t.Fatalf("unexpected prompt\nexpected: %q\nactual:   %q", testCase.expected, built)
			}
		})
	}
}

func TestBuildRejectsInvalidRequests(t *testing.T) {
	testCases := []struct {
		name    string
		request prompt.Request
	}{
		{name: "override and append both set", request: prompt.Request{OverrideText: "Just say hello", AppendText: "extra", WordCount: 3}},
		{name: "zero word count", request: prompt.Request{WordCount: 0}},
		{name: "negative word count", request: prompt.Request{WordCount: -2}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := prompt.Build(testCase.request)
			if !errors.Is(err, errs.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestSubstituteCountReplacesEveryPlaceholder(t *testing.T) {
	template := "{number} then {count} then {number}{number}"
	for wordCount := 1; wordCount <= 25; wordCount++ {
		substituted := prompt.SubstituteCount(template, wordCount)
		expectedCount := strconv.Itoa(wordCount)
		expected := expectedCount + " then " + expectedCount + " then " + expectedCount + expectedCount
		if substituted != expected {
			t.Fatalf("word count %d: expected %q, got %q", wordCount, expected, substituted)
		}
		if strings.Contains(substituted, "{") {
			t.Fatalf("word count %d: placeholder left in %q", wordCount, substituted)
		}
	}
}

func TestBuildIsDeterministicAndDoesNotMutateRequest(t *testing.T) {
	request := prompt.Request{BaseTemplate: testTemplate, WordCount: 5, MetadataLines: []string{"Flash: Off"}}
	first, firstErr := prompt.Build(request)
	second, secondErr := prompt.Build(request)
	if firstErr != nil || secondErr != nil {
		t.Fatalf("build prompt: %v %v", firstErr, secondErr)
	}
	if first != second {
		t.Fatalf("expected identical prompts, got %q and %q", first, second)
	}
	if request.BaseTemplate != testTemplate {
		t.Fatalf("template mutated: %q", request.BaseTemplate)
	}
}
