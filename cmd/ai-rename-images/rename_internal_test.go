package renameimages

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/PedroLopes/ai-rename-images/internal/config"
	"github.com/PedroLopes/ai-rename-images/internal/fsops"
	"github.com/PedroLopes/ai-rename-images/internal/metadata"
	"github.com/PedroLopes/ai-rename-images/internal/pipeline"
)

const memoryPhotosDirectory = "/photos/holiday"

type recordingClient struct {
	reply    string
	requests []pipeline.LLMRequest
}

func (c *recordingClient) Chat(ctx context.Context, req pipeline.LLMRequest) (pipeline.LLMResponse, error) {
	c.requests = append(c.requests, req)
	return pipeline.LLMResponse{RawText: c.reply}, nil
}

func writeInternalConfig(t *testing.T, rename config.Rename) string {
	t.Helper()
	rootConfiguration := config.Root{Rename: rename}
	rootConfiguration.Common.Logging.Level = "error"
	rootConfiguration.Common.Defaults.Attempts = 1
	rootConfiguration.Models = []config.Model{{Name: "fake", Provider: config.ProviderOllama, ModelID: "fake-vision", Default: true}}
	configData, err := yaml.Marshal(rootConfiguration)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, configData, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func memoryCollaborators(t *testing.T, client *recordingClient) (collaboratorFactory, fsops.Mem) {
	t.Helper()
	memoryFS := fsops.NewMem()
	if err := memoryFS.MkdirAll(memoryPhotosDirectory, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := memoryFS.WriteFile(memoryPhotosDirectory+"/DSC_0042.JPG", []byte("not really a jpeg"), 0o644); err != nil {
		t.Fatalf("write photo: %v", err)
	}
	return collaboratorFactory{
		newClient: func(ctx context.Context, model config.Model, common config.Common) (pipeline.LLMClient, error) {
			return client, nil
		},
		newExiftool: func(filter []string) (*metadata.ExiftoolCollector, error) {
			t.Fatalf("exiftool must not start in this test")
			return nil, nil
		},
		fileSystem: memoryFS,
	}, memoryFS
}

func runInternalRename(t *testing.T, collaborators collaboratorFactory, args ...string) (string, error) {
	t.Helper()
	command := newRenameCommand(collaborators)
	command.SetArgs(args)
	var output bytes.Buffer
	command.SetOut(&output)
	command.SetErr(&output)
	err := command.ExecuteContext(context.Background())
	return output.String(), err
}

func TestRenameUsesConfigDefaults(t *testing.T) {
	client := &recordingClient{reply: "```json\n{\"keywords\": [\"mountain lake\", \"fog\"]}\n```"}
	collaborators, memoryFS := memoryCollaborators(t, client)
	configPath := writeInternalConfig(t, config.Rename{Delimiter: "_", Prefix: "alps"})

	output, err := runInternalRename(t, collaborators, memoryPhotosDirectory, "--config", configPath)
	if err != nil {
		t.Fatalf("rename: %v\nOutput: %s", err, output)
	}
	if _, statErr := memoryFS.Stat(memoryPhotosDirectory + "/alps_mountain_lake_fog.JPG"); statErr != nil {
		t.Fatalf("expected renamed file, output: %s", output)
	}
	if len(client.requests) != 1 || client.requests[0].Model != "fake-vision" {
		t.Fatalf("unexpected requests %+v", client.requests)
	}
}

func TestRenameEmbeddedMetadataWithoutExif(t *testing.T) {
	client := &recordingClient{reply: `{"keywords": ["harbor", "boats"]}`}
	collaborators, memoryFS := memoryCollaborators(t, client)
	configPath := writeInternalConfig(t, config.Rename{})

	output, err := runInternalRename(t, collaborators, memoryPhotosDirectory, "--config", configPath, "--metadata-embedded", "--directory-name")
	if err != nil {
		t.Fatalf("rename: %v\nOutput: %s", err, output)
	}
	if len(client.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(client.requests))
	}
	if !strings.Contains(client.requests[0].Prompt, "holiday") {
		t.Fatalf("expected directory hint in prompt: %q", client.requests[0].Prompt)
	}
	if _, statErr := memoryFS.Stat(memoryPhotosDirectory + "/harbor-boats.JPG"); statErr != nil {
		t.Fatalf("expected renamed file, output: %s", output)
	}
}

func TestRenameReportsMalformedReply(t *testing.T) {
	client := &recordingClient{reply: "I see a harbor with boats."}
	collaborators, memoryFS := memoryCollaborators(t, client)
	configPath := writeInternalConfig(t, config.Rename{})

	output, err := runInternalRename(t, collaborators, memoryPhotosDirectory, "--config", configPath)
	if err != nil {
		t.Fatalf("a failed image must not fail the batch: %v", err)
	}
	if !strings.Contains(output, "failed ") || !strings.Contains(output, "failed=1") {
		t.Fatalf("expected failure in report, got %s", output)
	}
	if _, statErr := memoryFS.Stat(memoryPhotosDirectory + "/DSC_0042.JPG"); statErr != nil {
		t.Fatalf("original file must remain")
	}
}

func TestResolveRenameSettingsListsFromEnvironment(t *testing.T) {
	rootConfiguration := config.Root{
		Models: []config.Model{{Name: "fake", Provider: config.ProviderOllama, ModelID: "fake-vision", Default: true}},
		Rename: config.Rename{Extensions: []string{".heic"}, MetadataFilter: []string{"Flash"}, JPEGQuality: 70},
	}
	testCases := []struct {
		name               string
		environment        map[string]string
		expectedExtensions []string
		expectedFilter     []string
		expectedQuality    int
	}{
		{
			name:               "config values without environment",
			expectedExtensions: []string{".heic"},
			expectedFilter:     []string{"Flash"},
			expectedQuality:    70,
		},
		{
			name: "comma separated environment values",
			environment: map[string]string{
				"AI_RENAME_IMAGES_EXTENSIONS":      ".jpg,.png",
				"AI_RENAME_IMAGES_METADATA_FILTER": "Make,Model",
				"AI_RENAME_IMAGES_JPEG_QUALITY":    "60",
			},
			expectedExtensions: []string{".jpg", ".png"},
			expectedFilter:     []string{"Make", "Model"},
			expectedQuality:    60,
		},
		{
			name: "space separated environment values",
			environment: map[string]string{
				"AI_RENAME_IMAGES_EXTENSIONS":      ".jpg .png",
				"AI_RENAME_IMAGES_METADATA_FILTER": "Make  Model, LensModel",
			},
			expectedExtensions: []string{".jpg", ".png"},
			expectedFilter:     []string{"Make", "Model", "LensModel"},
			expectedQuality:    70,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			for key, value := range testCase.environment {
				t.Setenv(key, value)
			}
			command := newRenameCommand(defaultCollaborators())
			resolver, err := newSettingsResolver(command, rootConfiguration)
			if err != nil {
				t.Fatalf("resolver: %v", err)
			}
			settings, err := resolveRenameSettings(resolver, rootConfiguration, memoryPhotosDirectory)
			if err != nil {
				t.Fatalf("resolve settings: %v", err)
			}
			if !reflect.DeepEqual(settings.options.Extensions, testCase.expectedExtensions) {
				t.Fatalf("extensions = %q, want %q", settings.options.Extensions, testCase.expectedExtensions)
			}
			if !reflect.DeepEqual(settings.filter, testCase.expectedFilter) {
				t.Fatalf("filter = %q, want %q", settings.filter, testCase.expectedFilter)
			}
			if settings.jpegQuality != testCase.expectedQuality {
				t.Fatalf("jpeg quality = %d, want %d", settings.jpegQuality, testCase.expectedQuality)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList([]string{" .jpg,.png ", "", ".gif"})
	want := []string{".jpg", ".png", ".gif"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitList = %q, want %q", got, want)
	}
}
