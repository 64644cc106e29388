// Package prompt assembles the text prompt sent to the vision model for a single image.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PedroLopes/ai-rename-images/internal/errs"
)

const (
	// DefaultTemplate asks for a fixed number of keywords; {number} is replaced with the word count.
	DefaultTemplate = "Describe the image in {number} simple keywords, never use more than {number} words."
	// DefaultOutputFormat instructs the model to reply with the JSON shape the keyword parser expects.
	DefaultOutputFormat = "Output in JSON format. Use the following schema: { keywords: List[str] }."

	metadataSentencePrefix  = "You might find clues in the image's metadata (which is listed next using a colon separated list): "
	locationSentencePrefix  = "Also, this image was taken in the following location, use this for clues as well: "
	directorySentencePrefix = "Additionally, consider also that this image is saved in a directory named "
	dateSentencePrefix      = "Also, consider that this image was created at "
	metadataLineSeparator   = "; "

	overrideAndAppendErrorMessage = "either override the prompt or append to it, not both"
	wordCountErrorFormat          = "word count must be at least 1, got %d"
)

// Placeholders are the template tokens replaced with the word count.
var Placeholders = []string{"{number}", "{count}"}

// Request carries everything needed to build the prompt for one file.
// It is built fresh per file and never mutated by Build.
type Request struct {
	BaseTemplate  string
	OverrideText  string
	AppendText    string
	OutputFormat  string
	WordCount     int
	MetadataLines []string
	Location      string
	DirectoryHint string
	DateHint      string
}

// Validate reports caller contract violations.
func (request Request) Validate() error {
	if strings.TrimSpace(request.OverrideText) != "" && strings.TrimSpace(request.AppendText) != "" {
		return fmt.Errorf("%w: %s", errs.ErrConfiguration, overrideAndAppendErrorMessage)
	}
	if request.WordCount < 1 {
		return fmt.Errorf("%w: "+wordCountErrorFormat, errs.ErrConfiguration, request.WordCount)
	}
	return nil
}

// Build returns the prompt text for the request.
//
// The override path replaces the template entirely and does not append the
// output format instruction; context sentences (metadata, location,
// directory, date) are still added because they are requested separately.
func Build(request Request) (string, error) {
	if err := request.Validate(); err != nil {
		return "", err
	}

	var segments []string
	overrideText := strings.TrimSpace(request.OverrideText)
	switch {
	case overrideText != "":
		segments = append(segments, overrideText)
	case strings.TrimSpace(request.AppendText) != "":
		segments = append(segments, strings.TrimSpace(request.AppendText), SubstituteCount(request.template(), request.WordCount))
	default:
		segments = append(segments, SubstituteCount(request.template(), request.WordCount))
	}

	segments = append(segments, request.contextSentences()...)

	if overrideText == "" {
		segments = append(segments, request.outputFormat())
	}

	return joinSegments(segments), nil
}

// SubstituteCount replaces every placeholder occurrence with the decimal word count.
func SubstituteCount(template string, wordCount int) string {
	count := strconv.Itoa(wordCount)
	result := template
	for _, placeholder := range Placeholders {
		result = strings.ReplaceAll(result, placeholder, count)
	}
	return result
}

func (request Request) template() string {
	if strings.TrimSpace(request.BaseTemplate) == "" {
		return DefaultTemplate
	}
	return request.BaseTemplate
}

func (request Request) outputFormat() string {
	if strings.TrimSpace(request.OutputFormat) == "" {
		return DefaultOutputFormat
	}
	return request.OutputFormat
}

func (request Request) contextSentences() []string {
	var sentences []string
	metadataLines := nonBlank(request.MetadataLines)
	if len(metadataLines) > 0 {
		sentences = append(sentences, metadataSentencePrefix+strings.Join(metadataLines, metadataLineSeparator)+".")
		if location := strings.TrimSpace(request.Location); location != "" {
			sentences = append(sentences, locationSentencePrefix+location+".")
		}
	}
	if directory := strings.TrimSpace(request.DirectoryHint); directory != "" {
		sentences = append(sentences, directorySentencePrefix+directory+".")
	}
	if date := strings.TrimSpace(request.DateHint); date != "" {
		sentences = append(sentences, dateSentencePrefix+date+".")
	}
	return sentences
}

func nonBlank(values []string) []string {
	var kept []string
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return kept
}

func joinSegments(segments []string) string {
	var builder strings.Builder
	for _, segment := range segments {
		trimmed := strings.TrimSpace(segment)
		if trimmed == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(trimmed)
	}
	return builder.String()
}
