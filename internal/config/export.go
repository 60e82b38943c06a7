package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// ExportConfig holds configuration for the export command.
type ExportConfig struct {
	Store      string
	PGDSN      string
	Out        string
	ContractID string
	Since      time.Time
	BatchSize  int
	LogLevel   string
}

// LoadExport merges config file, environment variables, and flags into ExportConfig.
func LoadExport(cfgFile string, flags *pflag.FlagSet) (ExportConfig, error) {
	v := newViper()
	v.SetDefault("store", StorePostgres)
	v.SetDefault("out", "./data/events.jsonl")
	v.SetDefault("batch-size", 500)

	if err := read(v, cfgFile, flags); err != nil {
		return ExportConfig{}, err
	}

	since, err := ParseTimestamp(v.GetString("since"))
	if err != nil {
		return ExportConfig{}, fmt.Errorf("parse since: %w", err)
	}

	cfg := ExportConfig{
		Store:      strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		PGDSN:      v.GetString("pg-dsn"),
		Out:        v.GetString("out"),
		ContractID: strings.TrimSpace(v.GetString("contract-id")),
		Since:      since,
		BatchSize:  v.GetInt("batch-size"),
		LogLevel:   v.GetString("log-level"),
	}
	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return ExportConfig{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
	if cfg.Store == StorePostgres && cfg.PGDSN == "" {
		return ExportConfig{}, fmt.Errorf("pg-dsn is required when store is %q", StorePostgres)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return cfg, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
// An empty input yields the zero time.
func ParseTimestamp(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(val, 0).UTC(), nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return time.Time{}, err
	}
	return tm.UTC(), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
