package main

import (
	"fmt"
	"os"

	"algo-trader/internal/cli"
	"algo-trader/internal/config"
	"algo-trader/internal/logging"
)

func main() {
	cfg := config.Default()
	logger := logging.NewLoggerWithConfig(logging.LogConfig{
		Level:    cfg.Logging.Level,
		Console:  cfg.Logging.Console,
		File:     cfg.Logging.File,
		FilePath: cfg.Logging.FilePath,
	})

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
