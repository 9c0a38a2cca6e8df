package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback. Empty log settings
	// defer to the configuration file.
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("ECOQUEST_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: ECOQUEST_CONFIG)")

	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("ECOQUEST_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: ECOQUEST_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level", "",
		"Log level: debug, info, warn, error (env: ECOQUEST_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format", "",
		"Log format: json, text (env: ECOQUEST_LOG_FORMAT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() {
		printDetailedHelp(fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if cfg.LogLevel != "" && !contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(cfg.LogLevel)) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if cfg.LogFormat != "" && !contains([]string{"json", "text"}, strings.ToLower(cfg.LogFormat)) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

func printDetailedHelp(fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Unified smart meter gateway

Usage: %s [options]

Options:
`, appName, os.Args[0])
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run against the embedded simulator with demo credentials
  %s

  # Run with a config file and text logs
  %s --config=configs/ecoquest.yaml --log-level=debug --log-format=text

  # Point at a live vendor with environment overrides
  export ECOQUEST_QUBE_URL=https://api.qube.example
  export ECOQUEST_QUBE_API_KEY=...
  export ECOQUEST_SIMULATOR_ENABLED=false
  %s

  # Validate configuration only
  %s --config=configs/ecoquest.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
