package renameimages

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// optionalBoolValue backs flags that accept "--flag", "--flag=false" and "--flag no".
type optionalBoolValue struct {
	target *bool
}

func (value *optionalBoolValue) String() string {
	if value == nil || value.target == nil {
		return "false"
	}
	return strconv.FormatBool(*value.target)
}

func (value *optionalBoolValue) Set(input string) error {
	parsed, ok := parseBoolChoice(input)
	if !ok {
		return fmt.Errorf("invalid boolean value %q", input)
	}
	*value.target = parsed
	return nil
}

func (value *optionalBoolValue) Type() string {
	return "bool"
}

func registerOptionalBoolFlag(flags *pflag.FlagSet, target *bool, name string, usage string) {
	flags.Var(&optionalBoolValue{target: target}, name, usage)
	if registered := flags.Lookup(name); registered != nil {
		registered.NoOptDefVal = "true"
		registered.DefValue = "false"
	}
}

func parseBoolChoice(input string) (bool, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	switch normalized {
	case "", "true", "t", "1", "yes", "y", "on":
		return true, true
	case "false", "f", "0", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

// splitTrailingBool removes a trailing boolean positional left behind by
// "--dry-run false", returning it separately.
func splitTrailingBool(args []string, flagChanged bool, minimumArgs int) ([]string, *bool) {
	remaining := append([]string(nil), args...)
	if !flagChanged || len(args) <= minimumArgs {
		return remaining, nil
	}
	if parsed, ok := parseBoolChoice(args[len(args)-1]); ok && strings.TrimSpace(args[len(args)-1]) != "" {
		return remaining[:len(remaining)-1], &parsed
	}
	return remaining, nil
}
