// Package config holds the run configuration of the diagnostic and reads
// overrides from BADFEATURES_* environment variables.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/badfeatures/pkg/errors"
	"github.com/YuminosukeSato/badfeatures/pkg/log"
)

// Environment variable names.
const (
	EnvDataDir     = "BADFEATURES_DATA_DIR"
	EnvFieldA      = "BADFEATURES_FIELD_A"
	EnvFieldB      = "BADFEATURES_FIELD_B"
	EnvNEstimators = "BADFEATURES_N_ESTIMATORS"
	EnvNJobs       = "BADFEATURES_N_JOBS"
	EnvRandomState = "BADFEATURES_RANDOM_STATE"
	EnvLogLevel    = "BADFEATURES_LOG_LEVEL"
	EnvLogFormat   = "BADFEATURES_LOG_FORMAT"
	EnvPlotPath    = "BADFEATURES_PLOT_PATH"
)

// Config is the configuration of one diagnostic run.
type Config struct {
	// DataDir is the directory holding the feature_<id>.dat/.name files.
	DataDir string
	// FieldA and FieldB are the ids of the two fields; rows of FieldA are
	// labelled 0 and rows of FieldB are labelled 1.
	FieldA int
	FieldB int

	NEstimators int
	// NJobs follows the n_jobs convention: -1 uses every CPU.
	NJobs int
	// RandomState seeds the forest; negative means nondeterministic.
	RandomState int64

	LogLevel  string
	LogFormat string

	// PlotPath, when set, receives a histogram of predicted probabilities.
	PlotPath string
}

// Default returns the fixed pipeline configuration.
func Default() Config {
	return Config{
		DataDir:     ".",
		FieldA:      795,
		FieldB:      796,
		NEstimators: 100,
		NJobs:       -1,
		RandomState: -1,
		LogLevel:    "info",
		LogFormat:   log.FormatJSON,
	}
}

// FromEnv returns Default overlaid with the environment and validated.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvDataDir); ok && v != "" {
		cfg.DataDir = v
	}
	if v, ok := lookup(EnvPlotPath); ok {
		cfg.PlotPath = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		cfg.LogFormat = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{EnvFieldA, &cfg.FieldA},
		{EnvFieldB, &cfg.FieldB},
		{EnvNEstimators, &cfg.NEstimators},
		{EnvNJobs, &cfg.NJobs},
	}
	for _, it := range ints {
		v, ok := lookup(it.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, errors.NewValidationError(it.key, "must be an integer", v)
		}
		*it.dst = n
	}

	if v, ok := lookup(EnvRandomState); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return Config{}, errors.NewValidationError(EnvRandomState, "must be an integer", v)
		}
		cfg.RandomState = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.NewValidationError("DataDir", "must not be empty", c.DataDir)
	}
	if c.FieldA < 0 {
		return errors.NewValidationError("FieldA", "must be non-negative", c.FieldA)
	}
	if c.FieldB < 0 {
		return errors.NewValidationError("FieldB", "must be non-negative", c.FieldB)
	}
	if c.NEstimators < 1 {
		return errors.NewValidationError("NEstimators", "must be at least 1", c.NEstimators)
	}
	if c.NJobs == 0 {
		return errors.NewValidationError("NJobs", "must not be 0", c.NJobs)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case log.FormatJSON, log.FormatConsole:
	default:
		return errors.NewValidationError("LogFormat", "must be json or console", c.LogFormat)
	}
	return nil
}
