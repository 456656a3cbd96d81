package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration file. Every field mirrors an
// environment variable; a set environment variable wins over the file.
type FileConfig struct {
	Exchange        string `yaml:"exchange"`
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	Testnet         *bool  `yaml:"testnet"`
	HTTPTimeoutSecs int    `yaml:"http_timeout_seconds"`

	KlineCategory   string `yaml:"kline_category"`
	ListingCategory string `yaml:"listing_category"`
	StartDate       string `yaml:"start_date"`
	EndDate         string `yaml:"end_date"`
	ChunkHours      int    `yaml:"chunk_hours"`
	Interval        string `yaml:"interval"`
	SampleSize      int    `yaml:"sample_size"`

	OutputDir string `yaml:"output_dir"`
	DBPath    string `yaml:"db_path"`

	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
}

// LoadFile reads a YAML config file and expands ${VAR} environment references.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var fc FileConfig
	if err := yaml.Unmarshal([]byte(expanded), &fc); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &fc, nil
}

// values flattens the file into environment-variable keys. Unset fields are omitted.
func (fc *FileConfig) values() map[string]string {
	out := make(map[string]string)
	put := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	putInt := func(key string, value int) {
		if value != 0 {
			out[key] = strconv.Itoa(value)
		}
	}

	put("EXCHANGE", fc.Exchange)
	put("API_KEY", fc.APIKey)
	put("API_SECRET", fc.APISecret)
	if fc.Testnet != nil {
		out["IS_TESTNET"] = strconv.FormatBool(*fc.Testnet)
	}
	putInt("HTTP_TIMEOUT_SECONDS", fc.HTTPTimeoutSecs)

	put("KLINE_CATEGORY", fc.KlineCategory)
	put("LISTING_CATEGORY", fc.ListingCategory)
	put("START_DATE", fc.StartDate)
	put("END_DATE", fc.EndDate)
	putInt("CHUNK_HOURS", fc.ChunkHours)
	put("INTERVAL", fc.Interval)
	putInt("SAMPLE_SIZE", fc.SampleSize)

	put("OUTPUT_DIR", fc.OutputDir)
	put("DB_PATH", fc.DBPath)

	put("LOG_LEVEL", fc.Log.Level)
	put("LOG_FILE", fc.Log.File)
	putInt("LOG_MAX_SIZE_MB", fc.Log.MaxSizeMB)
	putInt("LOG_MAX_BACKUPS", fc.Log.MaxBackups)
	putInt("LOG_MAX_AGE_DAYS", fc.Log.MaxAgeDays)
	return out
}
