package renameimages

import (
	"fmt"

	"github.com/PedroLopes/ai-rename-images/internal/config"
)

func loadRootConfiguration(configurationPath string) (config.Root, error) {
	configurationLoader, loaderErr := config.NewDefaultRootConfigurationLoader()
	if loaderErr != nil {
		return config.Root{}, fmt.Errorf(configurationLoaderInitializationErrorFormat, loaderErr)
	}
	explicitPath := configurationPath
	if explicitPath == defaultConfigPath {
		explicitPath = ""
	}
	configurationSource, sourceErr := configurationLoader.Load(explicitPath)
	if sourceErr != nil {
		return config.Root{}, fmt.Errorf(configurationSourceResolutionErrorFormat, sourceErr)
	}
	rootConfiguration, loadErr := config.LoadRoot(configurationSource)
	if loadErr != nil {
		return config.Root{}, fmt.Errorf(rootConfigurationLoadErrorFormat, configurationSource.Reference, loadErr)
	}
	return rootConfiguration, nil
}
