// Package keywords turns a vision model reply into a filesystem-safe file name.
package keywords

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/PedroLopes/ai-rename-images/internal/errs"
)

const (
	codeFenceJSON = "```json"
	codeFence     = "```"

	invalidDelimiterErrorFormat = "delimiter must be underscore '_', dash '-', or space ' ', got %q"
	invalidMaxWordsErrorFormat  = "max words must be at least 1, got %d"
	emptyReplyErrorMessage      = "reply is empty"
	decodeReplyErrorFormat      = "decode reply: %v"
	missingKeywordsErrorMessage = "reply has no keywords array"
)

// AllowedDelimiters lists the only delimiters accepted in a FilenameSpec.
var AllowedDelimiters = []string{"_", "-", " "}

// FilenameSpec controls how keywords are joined and decorated.
type FilenameSpec struct {
	Delimiter        string
	MaxWords         int
	Prefix           string
	Postfix          string
	PrefixTimestamp  bool
	PostfixTimestamp bool
}

// Validate checks the delimiter and word limit.
func (spec FilenameSpec) Validate() error {
	if !IsAllowedDelimiter(spec.Delimiter) {
		return fmt.Errorf("%w: "+invalidDelimiterErrorFormat, errs.ErrConfiguration, spec.Delimiter)
	}
	if spec.MaxWords < 1 {
		return fmt.Errorf("%w: "+invalidMaxWordsErrorFormat, errs.ErrConfiguration, spec.MaxWords)
	}
	return nil
}

// IsAllowedDelimiter reports whether delimiter belongs to AllowedDelimiters.
func IsAllowedDelimiter(delimiter string) bool {
	for _, allowed := range AllowedDelimiters {
		if delimiter == allowed {
			return true
		}
	}
	return false
}

type reply struct {
	Keywords *[]string `json:"keywords"`
}

// ParseReply strips Markdown code fences and decodes the keywords array.
func ParseReply(rawModelText string) ([]string, error) {
	content := strings.TrimSpace(rawModelText)
	content = strings.ReplaceAll(content, codeFenceJSON, "")
	content = strings.ReplaceAll(content, codeFence, "")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: %s", errs.ErrMalformedReply, emptyReplyErrorMessage)
	}

	var decoded reply
	decoder := json.NewDecoder(bytes.NewReader([]byte(content)))
	if err := decoder.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: "+decodeReplyErrorFormat, errs.ErrMalformedReply, err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("%w: "+decodeReplyErrorFormat, errs.ErrMalformedReply, "trailing content after JSON object")
	}
	if decoded.Keywords == nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrMalformedReply, missingKeywordsErrorMessage)
	}
	return *decoded.Keywords, nil
}

// Sanitize normalizes keywords for use in a file name.
// Whitespace runs collapse to the delimiter, digit-bearing keywords are dropped
// and the result is truncated to spec.MaxWords, preserving order.
func Sanitize(keywords []string, spec FilenameSpec) []string {
	cleaned := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if containsDigit(keyword) {
			continue
		}
		normalized := collapse(keyword, spec.Delimiter)
		if normalized == "" {
			continue
		}
		cleaned = append(cleaned, normalized)
		if spec.MaxWords > 0 && len(cleaned) == spec.MaxWords {
			break
		}
	}
	return cleaned
}

// DeriveFilename builds the file name stem (without extension) for a reply.
// modified supplies the date used by the timestamp decorations.
func DeriveFilename(rawModelText string, spec FilenameSpec, modified time.Time) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	parsed, err := ParseReply(rawModelText)
	if err != nil {
		return "", err
	}

	name := strings.Join(Sanitize(parsed, spec), spec.Delimiter)
	if name == "" {
		return "", fmt.Errorf("%w: %d keywords received, none usable", errs.ErrEmptyResult, len(parsed))
	}

	delimiter := spec.Delimiter
	if spec.PrefixTimestamp {
		name = FormatTimestamp(modified, delimiter) + delimiter + name
	}
	if spec.PostfixTimestamp {
		name = name + delimiter + FormatTimestamp(modified, delimiter)
	}
	if prefix := collapse(spec.Prefix, delimiter); prefix != "" {
		name = prefix + delimiter + name
	}
	if postfix := collapse(spec.Postfix, delimiter); postfix != "" {
		name = name + delimiter + postfix
	}
	return name, nil
}

// FormatTimestamp renders YYYY{delimiter}MM{delimiter}DD.
func FormatTimestamp(moment time.Time, delimiter string) string {
	return moment.Format("2006" + delimiter + "01" + delimiter + "02")
}

func containsDigit(value string) bool {
	for _, character := range value {
		if unicode.IsDigit(character) {
			return true
		}
	}
	return false
}

// collapse replaces whitespace runs and path separators with the delimiter.
func collapse(value string, delimiter string) string {
	fields := strings.FieldsFunc(value, func(character rune) bool {
		return unicode.IsSpace(character) || character == '/' || character == '\\' || character == 0
	})
	return strings.Join(fields, delimiter)
}
