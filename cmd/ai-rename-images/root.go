// Package renameimages wires the command-line interface.
package renameimages

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           rootCommandUse,
		Short:         rootCommandShort,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCommand.AddCommand(newRenameCommand(defaultCollaborators()), newModelsCommand())
	return rootCommand
}

// Execute runs the command tree until it finishes or the process is interrupted.
func Execute() error {
	signalContext, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(signalContext)
}
