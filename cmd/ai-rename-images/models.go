package renameimages

import (
	"fmt"

	"github.com/spf13/cobra"
)

type modelsCommandOptions struct {
	configPath string
}

func newModelsCommand() *cobra.Command {
	options := &modelsCommandOptions{configPath: defaultConfigPath}

	command := &cobra.Command{
		Use:   modelsCommandUse,
		Short: modelsCommandShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModelsCommand(cmd, *options)
		},
	}
	command.Flags().StringVar(&options.configPath, configFlagName, defaultConfigPath, configFlagUsage)
	return command
}

func runModelsCommand(command *cobra.Command, options modelsCommandOptions) error {
	rootConfiguration, err := loadRootConfiguration(options.configPath)
	if err != nil {
		return err
	}

	outputWriter := command.OutOrStdout()
	for _, modelConfiguration := range rootConfiguration.Models {
		marker := ""
		if modelConfiguration.Default {
			marker = ", " + defaultModelMarker
		}
		_, writeErr := fmt.Fprintf(outputWriter, "%s\t(%s, model=%s%s)\n", modelConfiguration.Name, modelConfiguration.Provider, dashIfEmpty(modelConfiguration.ModelID), marker)
		if writeErr != nil {
			return fmt.Errorf("write model listing: %w", writeErr)
		}
	}
	return nil
}

func dashIfEmpty(value string) string {
	if value == "" {
		return dashPlaceholder
	}
	return value
}
