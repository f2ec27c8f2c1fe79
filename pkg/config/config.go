// Package config reads the run settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/galvezuma/BrachyUMA21/logger"
	"github.com/galvezuma/BrachyUMA21/pkg/align"
	"github.com/galvezuma/BrachyUMA21/pkg/grouping"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
)

const (
	DefaultDataFile  = "datafiles/dehydrins_ecotypes.data"
	DefaultOrderFile = "datafiles/Order.txt"
	DefaultOutDir    = "./result"
)

type Config struct {
	DataFile  string
	OrderFile string
	OutDir    string

	Threshold          float64
	Workers            int
	MinClusterSize     int
	Palette            model.Palette
	ReferenceModel     bool
	AnchorAllVarieties bool
	DropMissing        bool

	// Addr is where the report is served. Empty means exit after writing it.
	Addr     string
	LogLevel zapcore.Level
}

// Load reads .env (if any) and then the BRACHY_* variables. Unset variables
// take their defaults; malformed ones are an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env found, using local environment")
	}
	return FromEnv()
}

// FromEnv is Load without the .env file.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DataFile:  stringEnv("BRACHY_DATA", DefaultDataFile),
		OrderFile: stringEnv("BRACHY_ORDER", DefaultOrderFile),
		OutDir:    stringEnv("BRACHY_OUT", DefaultOutDir),
		Addr:      os.Getenv("BRACHY_ADDR"),
	}

	var err error
	if cfg.Threshold, err = floatEnv("BRACHY_THRESHOLD", grouping.DefaultThreshold); err != nil {
		return nil, err
	}
	if cfg.Workers, err = intEnv("BRACHY_WORKERS", grouping.DefaultWorkers); err != nil {
		return nil, err
	}
	if cfg.MinClusterSize, err = intEnv("BRACHY_MIN_CLUSTER", grouping.DefaultMinClusterSize); err != nil {
		return nil, err
	}
	if cfg.ReferenceModel, err = boolEnv("BRACHY_REFERENCE_MODEL", true); err != nil {
		return nil, err
	}
	if cfg.AnchorAllVarieties, err = boolEnv("BRACHY_ANCHOR_ALL", false); err != nil {
		return nil, err
	}
	if cfg.DropMissing, err = boolEnv("BRACHY_DROP_MISSING", true); err != nil {
		return nil, err
	}

	cfg.Palette = model.DefaultPalette()
	if raw := os.Getenv("BRACHY_PALETTE"); raw != "" {
		if cfg.Palette, err = model.ParsePalette(raw); err != nil {
			return nil, fmt.Errorf("BRACHY_PALETTE: %w", err)
		}
	}

	cfg.LogLevel = zapcore.InfoLevel
	if raw := os.Getenv("BRACHY_LOG_LEVEL"); raw != "" {
		if cfg.LogLevel, err = zapcore.ParseLevel(raw); err != nil {
			return nil, fmt.Errorf("BRACHY_LOG_LEVEL: %w", err)
		}
	}
	return cfg, nil
}

// Grouping builds the grouper settings. Reference genes are labelled with
// the dehydrin codes only when the default palette is in use.
func (c *Config) Grouping() grouping.Config {
	gc := grouping.Config{
		Palette:            c.Palette,
		Threshold:          c.Threshold,
		Workers:            c.Workers,
		Aligner:            align.Default(),
		MinClusterSize:     c.MinClusterSize,
		ReferenceModel:     c.ReferenceModel,
		AnchorAllVarieties: c.AnchorAllVarieties,
	}
	if samePalette(c.Palette, model.DefaultPalette()) {
		gc.ReferenceCodes = model.DehydrinCodes
	}
	return gc
}

func samePalette(a, b model.Palette) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	logger.Debug("Environment variable not set, using default", zap.String("key", key), zap.String("default", fallback))
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
