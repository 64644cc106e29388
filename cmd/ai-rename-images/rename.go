package renameimages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/PedroLopes/ai-rename-images/internal/config"
	"github.com/PedroLopes/ai-rename-images/internal/errs"
	"github.com/PedroLopes/ai-rename-images/internal/fsops"
	"github.com/PedroLopes/ai-rename-images/internal/imaging"
	"github.com/PedroLopes/ai-rename-images/internal/keywords"
	"github.com/PedroLopes/ai-rename-images/internal/llm"
	"github.com/PedroLopes/ai-rename-images/internal/metadata"
	"github.com/PedroLopes/ai-rename-images/internal/pipeline"
	"github.com/PedroLopes/ai-rename-images/internal/prompt"
	"github.com/PedroLopes/ai-rename-images/internal/rename"
)

type metadataMode int

const (
	metadataNone metadataMode = iota
	metadataExiftool
	metadataEmbedded
)

// renameSettings is the flag/env/config view of one invocation.
type renameSettings struct {
	options      rename.Options
	metadata     metadataMode
	filter       []string
	geocoderURL  string
	userAgent    string
	keep         bool
	verbose      bool
	attempts     int
	timeout      time.Duration
	maxDimension int
	jpegQuality  int
}

// collaboratorFactory builds the external collaborators; tests replace it.
type collaboratorFactory struct {
	newClient   func(ctx context.Context, model config.Model, common config.Common) (pipeline.LLMClient, error)
	newExiftool func(filter []string) (*metadata.ExiftoolCollector, error)
	fileSystem  fsops.FS
}

func defaultCollaborators() collaboratorFactory {
	return collaboratorFactory{
		newClient: func(ctx context.Context, model config.Model, common config.Common) (pipeline.LLMClient, error) {
			return llm.NewClient(ctx, model, common, os.Getenv)
		},
		newExiftool: metadata.NewExiftoolCollector,
		fileSystem:  fsops.NewOS(),
	}
}

func newRenameCommand(collaborators collaboratorFactory) *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)
	command := &cobra.Command{
		Use:   renameCommandUse,
		Short: renameCommandShort,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == renameCommandArgs+1 && cmd.Flags().Changed(dryRunFlagName) {
				if _, ok := parseBoolChoice(args[renameCommandArgs]); ok {
					return nil
				}
				return fmt.Errorf(invalidDryRunValueErrorFormat, args[renameCommandArgs], dryRunFlagName)
			}
			return cobra.ExactArgs(renameCommandArgs)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			effectiveArgs, dryRunOverride := splitTrailingBool(args, cmd.Flags().Changed(dryRunFlagName), renameCommandArgs)
			if dryRunOverride != nil {
				if err := cmd.Flags().Set(dryRunFlagName, strconv.FormatBool(*dryRunOverride)); err != nil {
					return err
				}
			}
			return runRenameCommand(cmd, configPath, effectiveArgs[0], collaborators)
		},
	}

	flags := command.Flags()
	flags.StringVar(&configPath, configFlagName, defaultConfigPath, configFlagUsage)
	flags.StringP(delimiterFlagName, delimiterFlagShorthand, defaultDelimiter, delimiterFlagUsage)
	flags.IntP(numberFlagName, numberFlagShorthand, defaultNumber, numberFlagUsage)
	flags.StringP(promptFlagName, promptFlagShorthand, "", promptFlagUsage)
	flags.StringP(overrideFlagName, overrideFlagShorthand, "", overrideFlagUsage)
	flags.StringP(modelFlagName, modelFlagShorthand, "", modelFlagUsage)
	flags.BoolP(verboseFlagName, verboseFlagShorthand, false, verboseFlagUsage)
	flags.Bool(directoryNameFlagName, false, directoryNameFlagUsage)
	flags.BoolP(timestampFlagName, timestampFlagShorthand, false, timestampFlagUsage)
	flags.Bool(metadataFlagName, false, metadataFlagUsage)
	flags.Bool(metadataEmbeddedFlagName, false, metadataEmbeddedFlagUsage)
	flags.String(prefixFlagName, "", prefixFlagUsage)
	flags.String(postfixFlagName, "", postfixFlagUsage)
	flags.Bool(prefixTimestampFlagName, false, prefixTimestampFlagUsage)
	flags.Bool(postfixTimestampFlagName, false, postfixTimestampFlagUsage)
	flags.BoolP(keepFlagName, keepFlagShorthand, false, keepFlagUsage)
	registerOptionalBoolFlag(flags, &dryRun, dryRunFlagName, dryRunFlagUsage)
	flags.Bool(uniqueFlagName, false, uniqueFlagUsage)
	flags.Int(attemptsFlagName, 0, attemptsFlagUsage)
	flags.Duration(timeoutFlagName, 0, timeoutFlagUsage)
	flags.Int(maxDimensionFlagName, 0, maxDimensionFlagUsage)
	return command
}

// newSettingsResolver layers changed flags over AI_RENAME_IMAGES_* variables
// over the config file's rename section over flag defaults.
func newSettingsResolver(command *cobra.Command, root config.Root) (*viper.Viper, error) {
	resolver := viper.New()
	resolver.SetEnvPrefix(environmentPrefix)
	resolver.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	resolver.AutomaticEnv()

	renameDefaults := root.Rename
	setDefaultString(resolver, delimiterFlagName, renameDefaults.Delimiter)
	setDefaultString(resolver, prefixFlagName, renameDefaults.Prefix)
	setDefaultString(resolver, postfixFlagName, renameDefaults.Postfix)
	setDefaultPositive(resolver, numberFlagName, renameDefaults.Number)
	setDefaultPositive(resolver, maxDimensionFlagName, renameDefaults.MaxDimension)
	setDefaultPositive(resolver, attemptsFlagName, root.Common.Defaults.Attempts)
	if renameDefaults.PrefixTimestamp {
		resolver.SetDefault(prefixTimestampFlagName, true)
	}
	if renameDefaults.PostfixTimestamp {
		resolver.SetDefault(postfixTimestampFlagName, true)
	}
	if root.Common.Defaults.TimeoutSeconds > 0 {
		resolver.SetDefault(timeoutFlagName, time.Duration(root.Common.Defaults.TimeoutSeconds)*time.Second)
	}
	resolver.SetDefault(extensionsKey, nonEmptyOr(renameDefaults.Extensions, rename.DefaultExtensions))
	resolver.SetDefault(metadataFilterKey, nonEmptyOr(renameDefaults.MetadataFilter, metadata.DefaultFilter))
	resolver.SetDefault(jpegQualityKey, renameDefaults.JPEGQuality)

	if err := resolver.BindPFlags(command.Flags()); err != nil {
		return nil, fmt.Errorf(bindFlagsErrorFormat, err)
	}
	return resolver, nil
}

func setDefaultString(resolver *viper.Viper, key string, value string) {
	if value != "" {
		resolver.SetDefault(key, value)
	}
}

func setDefaultPositive(resolver *viper.Viper, key string, value int) {
	if value > 0 {
		resolver.SetDefault(key, value)
	}
}

func nonEmptyOr(values []string, fallback []string) []string {
	if len(values) > 0 {
		return values
	}
	return fallback
}

// splitList accepts list settings written as "a,b", "a b" or a YAML list.
func splitList(values []string) []string {
	var items []string
	for _, value := range values {
		items = append(items, strings.FieldsFunc(value, func(character rune) bool {
			return character == ',' || unicode.IsSpace(character)
		})...)
	}
	return items
}

func resolveRenameSettings(resolver *viper.Viper, root config.Root, directory string) (renameSettings, error) {
	wordCount := resolver.GetInt(numberFlagName)
	settings := renameSettings{
		options: rename.Options{
			Directory:  directory,
			Extensions: splitList(resolver.GetStringSlice(extensionsKey)),
			Prompt: prompt.Request{
				BaseTemplate: root.Rename.PromptTemplate,
				OutputFormat: root.Rename.OutputFormat,
				OverrideText: resolver.GetString(overrideFlagName),
				AppendText:   resolver.GetString(promptFlagName),
				WordCount:    wordCount,
			},
			Filename: keywords.FilenameSpec{
				Delimiter:        resolver.GetString(delimiterFlagName),
				MaxWords:         wordCount,
				Prefix:           resolver.GetString(prefixFlagName),
				Postfix:          resolver.GetString(postfixFlagName),
				PrefixTimestamp:  resolver.GetBool(prefixTimestampFlagName),
				PostfixTimestamp: resolver.GetBool(postfixTimestampFlagName),
			},
			IncludeDirectory: resolver.GetBool(directoryNameFlagName),
			IncludeTimestamp: resolver.GetBool(timestampFlagName),
			DryRun:           resolver.GetBool(dryRunFlagName),
			Unique:           resolver.GetBool(uniqueFlagName),
		},
		filter:       splitList(resolver.GetStringSlice(metadataFilterKey)),
		geocoderURL:  root.Rename.Geocoder.Endpoint,
		userAgent:    root.Rename.Geocoder.UserAgent,
		keep:         resolver.GetBool(keepFlagName),
		verbose:      resolver.GetBool(verboseFlagName),
		attempts:     max(1, resolver.GetInt(attemptsFlagName)),
		timeout:      resolver.GetDuration(timeoutFlagName),
		maxDimension: resolver.GetInt(maxDimensionFlagName),
		jpegQuality:  resolver.GetInt(jpegQualityKey),
	}

	useExiftool := resolver.GetBool(metadataFlagName)
	useEmbedded := resolver.GetBool(metadataEmbeddedFlagName)
	switch {
	case useExiftool && useEmbedded:
		return renameSettings{}, fmt.Errorf("%w: %s", errs.ErrConfiguration, exclusiveMetadataErrorMessage)
	case useExiftool:
		settings.metadata = metadataExiftool
	case useEmbedded:
		settings.metadata = metadataEmbedded
	}

	if err := settings.options.Validate(); err != nil {
		return renameSettings{}, err
	}
	return settings, nil
}

func runRenameCommand(command *cobra.Command, configPath string, directory string, collaborators collaboratorFactory) error {
	rootConfiguration, err := loadRootConfiguration(configPath)
	if err != nil {
		return err
	}
	resolver, err := newSettingsResolver(command, rootConfiguration)
	if err != nil {
		return err
	}
	settings, err := resolveRenameSettings(resolver, rootConfiguration, directory)
	if err != nil {
		return err
	}

	logger, err := newLogger(rootConfiguration.Common.Logging.Level, rootConfiguration.Common.Logging.Format, settings.verbose, command.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfiguration, err)
	}
	defer func() { _ = logger.Sync() }()

	requestedModel := resolver.GetString(modelFlagName)
	modelConfiguration, found := rootConfiguration.ResolveModel(requestedModel)
	if !found {
		modelConfiguration = rootConfiguration.AdHocModel(requestedModel)
		logger.Info("model not in models[], using default provider", zap.String("model", modelConfiguration.ModelID), zap.String("provider", modelConfiguration.Provider))
	}
	ctx := command.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := collaborators.newClient(ctx, modelConfiguration, rootConfiguration.Common)
	if err != nil {
		return err
	}
	settings.options.Model = modelConfiguration.ModelID

	deps := rename.Dependencies{
		Files:      fsops.NewOps(collaborators.fileSystem),
		Downscaler: imaging.Downscaler{MaxDimension: settings.maxDimension, Quality: settings.jpegQuality},
		Logger:     logger,
	}
	switch settings.metadata {
	case metadataExiftool:
		exiftoolCollector, startErr := collaborators.newExiftool(settings.filter)
		if startErr != nil {
			return fmt.Errorf("%w: %v", errs.ErrConfiguration, startErr)
		}
		defer func() {
			if closeErr := exiftoolCollector.Close(); closeErr != nil {
				logger.Warn("close exiftool", zap.Error(closeErr))
			}
		}()
		deps.Collector = exiftoolCollector
	case metadataEmbedded:
		deps.Collector = metadata.EmbeddedCollector{FS: collaborators.fileSystem}
	}
	if deps.Collector != nil {
		deps.Geocoder = metadata.Nominatim{
			BaseURL:   settings.geocoderURL,
			UserAgent: settings.userAgent,
		}
	}

	task, err := rename.New(settings.options, deps)
	if err != nil {
		return err
	}

	if resetter, ok := client.(llm.Resetter); ok && !settings.keep {
		logger.Info("resetting model conversation", zap.String("model", modelConfiguration.ModelID))
		if resetErr := resetter.Reset(ctx); resetErr != nil {
			logger.Warn("conversation reset failed", zap.Error(resetErr))
		}
	}

	runner := pipeline.Runner{
		Client:  client,
		Options: pipeline.RunOptions{MaxAttempts: settings.attempts, Timeout: settings.timeout},
		Logger:  logger,
	}
	report, runErr := runner.Run(ctx, task)
	if writeErr := writeReport(command.OutOrStdout(), report); writeErr != nil {
		return writeErr
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("interrupted: %w", runErr)
		}
		return fmt.Errorf("run %s: %w", report.Name, runErr)
	}
	return nil
}

func writeReport(output io.Writer, report pipeline.Report) error {
	for _, result := range report.Results {
		var line string
		switch {
		case result.Err != nil:
			line = fmt.Sprintf("failed %s: %v", describeItem(result.Item), result.Err)
		case result.Action.Skipped:
			line = fmt.Sprintf("kept %s (%s)", result.Action.From, result.Action.Reason)
		case result.Action.DryRun:
			line = fmt.Sprintf("would rename %s -> %s", result.Action.From, result.Action.To)
		default:
			line = fmt.Sprintf("renamed %s -> %s", result.Action.From, result.Action.To)
		}
		if _, err := fmt.Fprintln(output, line); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if _, err := fmt.Fprintln(output, report.Summary()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func describeItem(item pipeline.Item) string {
	if stringer, ok := item.(fmt.Stringer); ok {
		return stringer.String()
	}
	return fmt.Sprintf("%v", item)
}
