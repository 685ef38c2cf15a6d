// Command badfeatures trains a random forest to tell the rows of two feature
// fields apart and prints its training accuracy.
//
// It takes no arguments. The data directory, field ids and logging are read
// from BADFEATURES_* environment variables; logs go to stderr and stdout
// carries only the result lines.
package main

import (
	"os"

	"github.com/YuminosukeSato/badfeatures/config"
	"github.com/YuminosukeSato/badfeatures/diagnose"
	"github.com/YuminosukeSato/badfeatures/pkg/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.FromEnv()
	if err != nil {
		log.GetLogger().Error("Invalid configuration", err)
		return 1
	}
	if err := log.SetupLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.GetLogger().Error("Failed to set up logging", err)
		return 1
	}

	if _, err := diagnose.Run(cfg, os.Stdout); err != nil {
		log.GetLoggerWithName("badfeatures").Error("Diagnostic failed", err)
		return 1
	}
	return 0
}
