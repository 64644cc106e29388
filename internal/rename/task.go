// Package rename implements the image renaming pipeline: every image in a
// directory is described by a vision model and renamed after its keywords.
package rename

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/PedroLopes/ai-rename-images/internal/errs"
	"github.com/PedroLopes/ai-rename-images/internal/fsops"
	"github.com/PedroLopes/ai-rename-images/internal/imaging"
	"github.com/PedroLopes/ai-rename-images/internal/keywords"
	"github.com/PedroLopes/ai-rename-images/internal/metadata"
	"github.com/PedroLopes/ai-rename-images/internal/pipeline"
	"github.com/PedroLopes/ai-rename-images/internal/prompt"
)

const (
	taskName          = "rename"
	dateHintLayout    = "2006-01-02"
	malformedReason   = "malformed-reply"
	unchangedReason   = "name unchanged"
	malformedRefine   = `The previous reply was not valid. Respond only with a JSON object of the form {"keywords": ["word", "word"]} and nothing else.`
	missingDirMessage = "directory is required"
)

// DefaultExtensions is the image allowlist used when none is configured.
var DefaultExtensions = []string{".jpg", ".jpeg"}

// Options configures one rename batch.
type Options struct {
	Directory  string
	Extensions []string
	Model      string
	// Prompt carries the template, override, append text, output format and
	// word count; per-file context is filled in for each image.
	Prompt           prompt.Request
	Filename         keywords.FilenameSpec
	IncludeDirectory bool
	IncludeTimestamp bool
	DryRun           bool
	Unique           bool
}

// Validate reports every invalid option before any file is touched.
func (o Options) Validate() error {
	if strings.TrimSpace(o.Directory) == "" {
		return fmt.Errorf("%w: %s", errs.ErrConfiguration, missingDirMessage)
	}
	if err := o.Prompt.Validate(); err != nil {
		return err
	}
	return o.Filename.Validate()
}

// Dependencies are the collaborators selected at startup.
// A nil Collector or Geocoder disables that enrichment.
type Dependencies struct {
	Files      fsops.Ops
	Collector  metadata.Collector
	Geocoder   metadata.Geocoder
	Downscaler imaging.Downscaler
	Logger     *zap.Logger
}

// Image is one candidate file.
type Image struct {
	fsops.FileInfo
}

func (i Image) String() string { return i.AbsolutePath }

// Target is the verified new base name, without extension.
type Target struct {
	Name string
}

// Task processes images one at a time and is not safe for concurrent use.
type Task struct {
	options Options
	deps    Dependencies

	// prepared holds the request of the image currently being attempted so
	// refine retries do not re-read, re-collect or re-geocode it.
	preparedPath string
	prepared     pipeline.LLMRequest
}

// New validates options and returns the task.
func New(options Options, deps Dependencies) (*Task, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if len(options.Extensions) == 0 {
		options.Extensions = DefaultExtensions
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Task{options: options, deps: deps}, nil
}

func (t *Task) Name() string { return taskName }

func (t *Task) Gather(ctx context.Context) ([]pipeline.Item, error) {
	infos, err := t.deps.Files.ListImages(t.options.Directory, t.options.Extensions)
	if err != nil {
		return nil, err
	}
	items := make([]pipeline.Item, 0, len(infos))
	for _, info := range infos {
		items = append(items, Image{FileInfo: info})
	}
	return items, nil
}

func (t *Task) Prompt(ctx context.Context, item pipeline.Item) (pipeline.LLMRequest, error) {
	image := item.(Image)
	if t.preparedPath == image.AbsolutePath {
		return t.prepared, nil
	}
	data, readErr := t.deps.Files.ReadFile(image.AbsolutePath)
	if readErr != nil {
		return pipeline.LLMRequest{}, fmt.Errorf("%w: read %s: %v", errs.ErrFilesystem, image.AbsolutePath, readErr)
	}
	upload, mimeType, prepareErr := t.deps.Downscaler.Prepare(data)
	if prepareErr != nil {
		t.deps.Logger.Warn("downscale failed, sending original", zap.String("file", image.AbsolutePath), zap.Error(prepareErr))
		upload, mimeType = data, imaging.DetectMIMEType(data)
	}

	request := t.options.Prompt
	request.MetadataLines, request.Location = t.describe(ctx, image)
	if t.options.IncludeDirectory {
		request.DirectoryHint = filepath.Base(filepath.Clean(image.Directory))
	}
	if t.options.IncludeTimestamp && !image.ModTime.IsZero() {
		request.DateHint = image.ModTime.Format(dateHintLayout)
	}
	text, buildErr := prompt.Build(request)
	if buildErr != nil {
		return pipeline.LLMRequest{}, buildErr
	}
	t.deps.Logger.Debug("prompt built", zap.String("file", image.AbsolutePath), zap.String("prompt", text))

	llmRequest := pipeline.LLMRequest{
		Model:         t.options.Model,
		Prompt:        text,
		Images:        [][]byte{upload},
		ImageMIMEType: mimeType,
	}
	t.preparedPath, t.prepared = image.AbsolutePath, llmRequest
	return llmRequest, nil
}

// describe collects metadata lines and a location. Failures only drop the enrichment.
func (t *Task) describe(ctx context.Context, image Image) ([]string, string) {
	if t.deps.Collector == nil {
		return nil, ""
	}
	collected, err := t.deps.Collector.Collect(ctx, image.AbsolutePath)
	if err != nil {
		t.deps.Logger.Warn("metadata unavailable", zap.String("file", image.AbsolutePath), zap.Error(err))
		return nil, ""
	}
	if collected.Empty() {
		t.deps.Logger.Info("metadata was empty", zap.String("file", image.AbsolutePath))
		return nil, ""
	}
	location := ""
	if collected.HasGPS && t.deps.Geocoder != nil {
		address, geocodeErr := t.deps.Geocoder.Reverse(ctx, collected.Latitude, collected.Longitude)
		if geocodeErr != nil {
			t.deps.Logger.Warn("reverse geocoding failed", zap.String("file", image.AbsolutePath), zap.Error(geocodeErr))
		} else {
			location = address
			t.deps.Logger.Info("location resolved", zap.String("file", image.AbsolutePath), zap.String("location", address))
		}
	}
	return collected.Lines(), location
}

func (t *Task) Verify(ctx context.Context, item pipeline.Item, response pipeline.LLMResponse) (bool, pipeline.VerifiedOutput, *pipeline.RefineRequest, error) {
	image := item.(Image)
	name, err := keywords.DeriveFilename(response.RawText, t.options.Filename, image.ModTime)
	if errors.Is(err, errs.ErrMalformedReply) {
		return false, nil, &pipeline.RefineRequest{UserPromptDelta: malformedRefine, Reason: malformedReason, Err: err}, nil
	}
	if err != nil {
		return false, nil, nil, err
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return false, nil, nil, fmt.Errorf("%w: derived name %q is not a plain file name", errs.ErrFilesystem, name)
	}
	return true, Target{Name: name}, nil, nil
}

func (t *Task) Apply(ctx context.Context, item pipeline.Item, verified pipeline.VerifiedOutput) (pipeline.Action, error) {
	image := item.(Image)
	target := verified.(Target)
	from := image.AbsolutePath
	to := filepath.Join(image.Directory, target.Name+image.Extension)

	if to == from {
		return pipeline.Action{From: from, To: to, Skipped: true, Reason: unchangedReason}, nil
	}
	if t.options.Unique && !strings.EqualFold(from, to) && t.deps.Files.FileExists(to) {
		to = t.deps.Files.UniquePath(to, t.options.Filename.Delimiter)
	}
	if t.options.DryRun {
		t.deps.Logger.Info("dry-run rename", zap.String("from", from), zap.String("to", to))
		return pipeline.Action{From: from, To: to, DryRun: true}, nil
	}
	if err := t.deps.Files.MoveFile(from, to); err != nil {
		return pipeline.Action{From: from, To: to}, err
	}
	return pipeline.Action{From: from, To: to, Applied: true}, nil
}
