package renameimages

const (
	rootCommandUse   = "ai-rename-images"
	rootCommandShort = "Rename photos after the keywords a vision model sees in them"

	renameCommandUse   = "rename DIRECTORY"
	renameCommandShort = "Describe every image in DIRECTORY and rename it after the keywords"
	renameCommandArgs  = 1

	modelsCommandUse   = "models"
	modelsCommandShort = "List the models defined in config.yaml"

	environmentPrefix = "AI_RENAME_IMAGES"

	configFlagName            = "config"
	configFlagUsage           = "Path to config.yaml (default: ./config.yaml, then ~/.ai-rename-images/config.yaml, then built-in)"
	delimiterFlagName         = "delimiter"
	delimiterFlagShorthand    = "d"
	delimiterFlagUsage        = "Delimiter between keywords in the file name: '_', '-' or ' '"
	numberFlagName            = "number"
	numberFlagShorthand       = "n"
	numberFlagUsage           = "Number of keywords to ask for and keep"
	promptFlagName            = "prompt"
	promptFlagShorthand       = "p"
	promptFlagUsage           = "Extra text placed before the default prompt"
	overrideFlagName          = "override"
	overrideFlagShorthand     = "o"
	overrideFlagUsage         = "Prompt that replaces the default prompt entirely"
	modelFlagName             = "model"
	modelFlagShorthand        = "m"
	modelFlagUsage            = "Model name from models[] or a model identifier for the default provider"
	verboseFlagName           = "verbose"
	verboseFlagShorthand      = "v"
	verboseFlagUsage          = "Log progress at info level"
	directoryNameFlagName     = "directory-name"
	directoryNameFlagUsage    = "Mention the image's directory name in the prompt"
	timestampFlagName         = "timestamp"
	timestampFlagShorthand    = "t"
	timestampFlagUsage        = "Mention the file's modification date in the prompt"
	metadataFlagName          = "metadata"
	metadataFlagUsage         = "Pass EXIF metadata read with exiftool to the prompt (requires exiftool on PATH)"
	metadataEmbeddedFlagName  = "metadata-embedded"
	metadataEmbeddedFlagUsage = "Pass EXIF metadata decoded in-process to the prompt"
	prefixFlagName            = "prefix"
	prefixFlagUsage           = "Text placed before the keywords"
	postfixFlagName           = "postfix"
	postfixFlagUsage          = "Text placed after the keywords"
	prefixTimestampFlagName   = "prefix-timestamp"
	prefixTimestampFlagUsage  = "Place the modification date (YYYY{d}MM{d}DD) before the keywords"
	postfixTimestampFlagName  = "postfix-timestamp"
	postfixTimestampFlagUsage = "Place the modification date (YYYY{d}MM{d}DD) after the keywords"
	keepFlagName              = "keep"
	keepFlagShorthand         = "k"
	keepFlagUsage             = "Do not reset the model's conversation before the batch"
	dryRunFlagName            = "dry-run"
	dryRunFlagUsage           = "Print the planned renames without touching any file"
	uniqueFlagName            = "unique"
	uniqueFlagUsage           = "Append a counter when the target name is taken instead of skipping the file"
	attemptsFlagName          = "attempts"
	attemptsFlagUsage         = "Model calls per image when the reply is malformed (default from config)"
	timeoutFlagName           = "timeout"
	timeoutFlagUsage          = "Per-call timeout, e.g. 90s; 0 disables (default from config)"
	maxDimensionFlagName      = "max-dimension"
	maxDimensionFlagUsage     = "Downscale images whose longer side exceeds this many pixels before upload; 0 disables"

	extensionsKey     = "extensions"
	metadataFilterKey = "metadata-filter"
	jpegQualityKey    = "jpeg-quality"

	defaultConfigPath = "./config.yaml"
	defaultDelimiter  = "-"
	defaultNumber     = 3

	configurationLoaderInitializationErrorFormat = "initialize configuration loader: %w"
	configurationSourceResolutionErrorFormat     = "resolve configuration source: %w"
	rootConfigurationLoadErrorFormat             = "load root configuration %s: %w"
	bindFlagsErrorFormat                         = "bind flags: %w"
	exclusiveMetadataErrorMessage                = "--metadata and --metadata-embedded are mutually exclusive"
	invalidDryRunValueErrorFormat                = "invalid boolean value %q for --%s"

	dashPlaceholder    = "-"
	defaultModelMarker = "default"
)
