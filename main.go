package main

import (
	"os"

	"go.uber.org/zap"

	renameimages "github.com/PedroLopes/ai-rename-images/cmd/ai-rename-images"
)

func main() {
	logger := zap.Must(zap.NewProduction())

	executionErr := renameimages.Execute()
	if executionErr != nil {
		logger.Error("command execution failed", zap.Error(executionErr))
		_ = logger.Sync()
		os.Exit(1)
	}

	syncErr := logger.Sync()
	if syncErr != nil {
		os.Exit(1)
	}
}
