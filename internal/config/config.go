package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	emptyModelsErrorMessage                  = "config.models is empty"
	missingDefaultModelErrorMessage          = "no default model found (set models[].default: true)"
	rootConfigurationEmptyContentErrorFormat = "root configuration %s is empty"
	rootConfigurationUnmarshalErrorFormat    = "unmarshal root configuration %s: %w"
	unknownProviderErrorFormat               = "model %q has unknown provider %q"
	duplicateModelErrorFormat                = "model %q is defined more than once"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Root struct {
	Common Common  `yaml:"common"`
	Models []Model `yaml:"models"`
	Rename Rename  `yaml:"rename"`
}

type Common struct {
	API struct {
		Endpoint  string `yaml:"endpoint"`
		APIKeyEnv string `yaml:"api_key_env"`
	} `yaml:"api"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Defaults struct {
		Attempts       int `yaml:"attempts"`
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"defaults"`
}

type Model struct {
	Name                string  `yaml:"name"`
	Provider            string  `yaml:"provider"`
	ModelID             string  `yaml:"model_id"`
	Endpoint            string  `yaml:"endpoint"`
	APIKeyEnv           string  `yaml:"api_key_env"`
	Default             bool    `yaml:"default"`
	SupportsTemperature bool    `yaml:"supports_temperature"`
	DefaultTemperature  float64 `yaml:"default_temperature"`
	MaxCompletionTokens int     `yaml:"max_completion_tokens"`
}

// Rename holds the defaults of the rename command. Flags and environment
// variables override every field.
type Rename struct {
	Delimiter        string   `yaml:"delimiter"`
	Number           int      `yaml:"number"`
	PromptTemplate   string   `yaml:"prompt_template"`
	OutputFormat     string   `yaml:"output_format"`
	Extensions       []string `yaml:"extensions"`
	MetadataFilter   []string `yaml:"metadata_filter"`
	Prefix           string   `yaml:"prefix"`
	Postfix          string   `yaml:"postfix"`
	PrefixTimestamp  bool     `yaml:"prefix_timestamp"`
	PostfixTimestamp bool     `yaml:"postfix_timestamp"`
	MaxDimension     int      `yaml:"max_dimension"`
	JPEGQuality      int      `yaml:"jpeg_quality"`
	Geocoder         struct {
		Endpoint  string `yaml:"endpoint"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"geocoder"`
}

// LoadRoot parses the provided configuration source and validates required fields.
func LoadRoot(source RootConfigurationSource) (Root, error) {
	if len(source.Content) == 0 {
		return Root{}, fmt.Errorf(rootConfigurationEmptyContentErrorFormat, source.Reference)
	}

	var rootConfiguration Root
	if err := yaml.Unmarshal(source.Content, &rootConfiguration); err != nil {
		return Root{}, fmt.Errorf(rootConfigurationUnmarshalErrorFormat, source.Reference, err)
	}

	if len(rootConfiguration.Models) == 0 {
		return Root{}, errors.New(emptyModelsErrorMessage)
	}
	if _, ok := rootConfiguration.DefaultModel(); !ok {
		return Root{}, errors.New(missingDefaultModelErrorMessage)
	}
	seenModels := map[string]bool{}
	for _, modelConfiguration := range rootConfiguration.Models {
		if seenModels[modelConfiguration.Name] {
			return Root{}, fmt.Errorf(duplicateModelErrorFormat, modelConfiguration.Name)
		}
		seenModels[modelConfiguration.Name] = true
		if !IsKnownProvider(modelConfiguration.Provider) {
			return Root{}, fmt.Errorf(unknownProviderErrorFormat, modelConfiguration.Name, modelConfiguration.Provider)
		}
	}
	return rootConfiguration, nil
}

// IsKnownProvider reports whether provider names a supported model backend.
func IsKnownProvider(provider string) bool {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOllama, ProviderOpenAI, ProviderGemini:
		return true
	default:
		return false
	}
}

func (root Root) DefaultModel() (Model, bool) {
	for _, modelConfiguration := range root.Models {
		if modelConfiguration.Default {
			return modelConfiguration, true
		}
	}
	return Model{}, false
}

func (root Root) FindModel(name string) (Model, bool) {
	for _, modelConfiguration := range root.Models {
		if modelConfiguration.Name == name {
			return modelConfiguration, true
		}
	}
	return Model{}, false
}

// ResolveModel finds a model by configured name, then by model identifier.
// An empty name selects the default model.
func (root Root) ResolveModel(name string) (Model, bool) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return root.DefaultModel()
	}
	if modelConfiguration, ok := root.FindModel(trimmedName); ok {
		return modelConfiguration, true
	}
	for _, modelConfiguration := range root.Models {
		if modelConfiguration.ModelID == trimmedName {
			return modelConfiguration, true
		}
	}
	return Model{}, false
}

// AdHocModel runs modelID on the default model's provider and endpoint,
// so `--model llava:13b` works without editing the configuration.
func (root Root) AdHocModel(modelID string) Model {
	adHoc, _ := root.DefaultModel()
	trimmedID := strings.TrimSpace(modelID)
	adHoc.Name = trimmedID
	adHoc.ModelID = trimmedID
	adHoc.Default = false
	return adHoc
}
