package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	// EmbeddedRootConfigurationReference identifies the built-in fallback configuration.
	EmbeddedRootConfigurationReference = "embedded default configuration"
	// ConfigPathEnvironmentVariable names a configuration file searched after the explicit path.
	ConfigPathEnvironmentVariable = "AI_RENAME_IMAGES_CONFIG"

	readConfigurationErrorFormat = "read configuration %s: %w"
	workingDirectoryErrorFormat  = "determine working directory: %w"
	homeEnvironmentVariable      = "HOME"
	configurationFileName        = "config.yaml"
	homeConfigurationDirectory   = ".ai-rename-images"
)

//go:embed default_root_configuration.yaml
var embeddedRootConfiguration []byte

// RootConfigurationSource holds the raw configuration data and its origin.
type RootConfigurationSource struct {
	Reference string
	Content   []byte
}

// RootConfigurationLoader finds the first readable configuration file in
// explicit path, $AI_RENAME_IMAGES_CONFIG, working directory, then
// ~/.ai-rename-images order, falling back to the embedded default.
type RootConfigurationLoader struct {
	fileSystem       afero.Fs
	workingDirectory string
	homeDirectory    string
	environmentPath  string
}

// NewRootConfigurationLoader constructs a loader reading from the OS filesystem.
func NewRootConfigurationLoader(workingDirectory string, homeDirectory string) RootConfigurationLoader {
	return RootConfigurationLoader{
		fileSystem:       afero.NewOsFs(),
		workingDirectory: workingDirectory,
		homeDirectory:    homeDirectory,
	}
}

// NewDefaultRootConfigurationLoader uses the process working directory, HOME
// and AI_RENAME_IMAGES_CONFIG.
func NewDefaultRootConfigurationLoader() (RootConfigurationLoader, error) {
	workingDirectory, err := os.Getwd()
	if err != nil {
		return RootConfigurationLoader{}, fmt.Errorf(workingDirectoryErrorFormat, err)
	}
	loader := NewRootConfigurationLoader(workingDirectory, os.Getenv(homeEnvironmentVariable))
	return loader.WithEnvironmentPath(os.Getenv(ConfigPathEnvironmentVariable)), nil
}

// WithFileSystem returns a copy of the loader reading from fileSystem.
func (loader RootConfigurationLoader) WithFileSystem(fileSystem afero.Fs) RootConfigurationLoader {
	loader.fileSystem = fileSystem
	return loader
}

// WithEnvironmentPath returns a copy of the loader that also tries path
// right after the explicit one.
func (loader RootConfigurationLoader) WithEnvironmentPath(path string) RootConfigurationLoader {
	loader.environmentPath = strings.TrimSpace(path)
	return loader
}

// Load returns the first configuration source found. A candidate that is
// missing or unreadable because of permissions is skipped; other read errors
// on the explicit path are returned.
func (loader RootConfigurationLoader) Load(explicitPath string) (RootConfigurationSource, error) {
	explicitPath = strings.TrimSpace(explicitPath)
	for _, path := range loader.searchPaths(explicitPath) {
		content, err := afero.ReadFile(loader.fileSystem, path)
		if err == nil {
			return RootConfigurationSource{Reference: path, Content: content}, nil
		}
		if path == explicitPath && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission) {
			return RootConfigurationSource{}, fmt.Errorf(readConfigurationErrorFormat, path, err)
		}
	}
	return RootConfigurationSource{Reference: EmbeddedRootConfigurationReference, Content: embeddedRootConfiguration}, nil
}

func (loader RootConfigurationLoader) searchPaths(explicitPath string) []string {
	var paths []string
	if explicitPath != "" {
		paths = append(paths, explicitPath)
	}
	if loader.environmentPath != "" {
		paths = append(paths, loader.environmentPath)
	}
	if loader.workingDirectory != "" {
		paths = append(paths, filepath.Join(loader.workingDirectory, configurationFileName))
	}
	if loader.homeDirectory != "" {
		paths = append(paths, filepath.Join(loader.homeDirectory, homeConfigurationDirectory, configurationFileName))
	}
	return paths
}
