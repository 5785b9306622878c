// Package config loads nesting configuration from a YAML file with
// environment-variable overrides, using a getEnv-with-default pattern.
// It also implements the mm/dpi → pixel conversion the nesting core
// expects its caller, not itself, to perform.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// MMPerInch is used to convert millimeters to pixels at a given DPI.
const MMPerInch = 25.4

// Config holds everything a front end needs to call session.RunNest:
// physical bin size, margins, and GA parameters.
type Config struct {
	Bin       BinConfig       `yaml:"bin"`
	Margins   MarginConfig    `yaml:"margins"`
	Algorithm AlgorithmConfig `yaml:"algorithm"`
	Server    ServerConfig    `yaml:"server"`
}

// BinConfig is the physical bin size.
type BinConfig struct {
	MMWidth  float64 `yaml:"mm_width"`
	MMHeight float64 `yaml:"mm_height"`
	DPI      float64 `yaml:"dpi"`
}

// MarginConfig holds the margin/padding pixel amounts that the caller
// adds together into the extractor's outset_distance.
type MarginConfig struct {
	MarginPx  int `yaml:"margin_px"`
	PaddingPx int `yaml:"padding_px"`
}

// AlgorithmConfig holds the GA's tunable parameters.
type AlgorithmConfig struct {
	NumGenerations int   `yaml:"num_generations"`
	PopulationSize int   `yaml:"population_size"`
	MutationRate   int   `yaml:"mutation_rate"`
	Rotations      int   `yaml:"rotations"`
	NWorkers       int   `yaml:"n_workers"`
	Seed           int64 `yaml:"seed"`
}

// ServerConfig configures the optional HTTP front end.
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with sane defaults, applied before any
// file or environment overrides.
func Default() *Config {
	return &Config{
		Bin:     BinConfig{MMWidth: 210, MMHeight: 297, DPI: 300},
		Margins: MarginConfig{MarginPx: 4, PaddingPx: 2},
		Algorithm: AlgorithmConfig{
			NumGenerations: 25,
			PopulationSize: 30,
			MutationRate:   10,
			Rotations:      4,
			NWorkers:       4,
			Seed:           0,
		},
		Server: ServerConfig{Host: "0.0.0.0", Port: "8080", LogLevel: "info"},
	}
}

// Load reads path (if non-empty and present) as YAML over the
// defaults, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := getEnv("NEST_MM_WIDTH", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Bin.MMWidth = f
		}
	}
	if v := getEnv("NEST_MM_HEIGHT", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Bin.MMHeight = f
		}
	}
	if v := getEnv("NEST_DPI", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Bin.DPI = f
		}
	}
	if v := getEnv("NEST_N_WORKERS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Algorithm.NWorkers = n
		}
	}
	cfg.Server.Host = getEnv("NEST_SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("NEST_SERVER_PORT", cfg.Server.Port)
	cfg.Server.LogLevel = getEnv("NEST_LOG_LEVEL", cfg.Server.LogLevel)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// BinPixels converts the configured physical bin size to pixels at
// its configured DPI.
func (c *Config) BinPixels() (widthPx, heightPx float64) {
	widthPx = c.Bin.MMWidth * c.Bin.DPI / MMPerInch
	heightPx = c.Bin.MMHeight * c.Bin.DPI / MMPerInch
	return
}

// OutsetDistance is the margin and padding combined, passed verbatim
// to the shape extractor.
func (c *Config) OutsetDistance() int {
	return c.Margins.MarginPx + c.Margins.PaddingPx
}
