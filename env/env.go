// Package env resolves command settings from cobra flags and POKEDEX_
// environment variables.
package env

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/agentuity/pokedex/config"
	"github.com/agentuity/pokedex/logger"
	"github.com/spf13/cobra"
)

// Prefix is prepended to every environment variable name read here.
const Prefix = "POKEDEX_"

// FlagOrEnv will try and get a flag from the cobra.Command and if not found, look it up in the environment
// and fallback to defaultValue if non found
func FlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok && val != "" {
		return val
	}
	return defaultValue
}

func LogLevel(cmd *cobra.Command) logger.LogLevel {
	level, _ := logger.ParseLevel(FlagOrEnv(cmd, "log-level", logger.EnvLogLevel, "info"))
	return level
}

// NewLogger returns a console logger by first checking the cobra.Command log-level flag, then use the
// POKEDEX_LOG_LEVEL environment value and falling back to the info logger level
func NewLogger(cmd *cobra.Command) logger.Logger {
	log.SetFlags(0)
	return logger.NewConsoleLogger(LogLevel(cmd))
}

// Apply overrides cfg with any flag or POKEDEX_ variable that is set. The flag
// names match the dotted config keys with dashes, for example --cache-backend
// and POKEDEX_CACHE_BACKEND.
func Apply(cmd *cobra.Command, cfg *config.Config) error {
	cfg.Upstream.BaseURL = FlagOrEnv(cmd, "base-url", Prefix+"BASE_URL", cfg.Upstream.BaseURL)
	cfg.Server.Listen = FlagOrEnv(cmd, "listen", Prefix+"LISTEN", cfg.Server.Listen)
	cfg.Cache.Backend = FlagOrEnv(cmd, "cache-backend", Prefix+"CACHE_BACKEND", cfg.Cache.Backend)

	for flag, target := range map[string]*int{
		"page-size":   &cfg.Catalog.PageSize,
		"concurrency": &cfg.Catalog.Concurrency,
		"list-limit":  &cfg.Upstream.ListLimit,
	} {
		if err := applyInt(cmd, flag, target); err != nil {
			return err
		}
	}

	for flag, target := range map[string]*config.Duration{
		"timeout":        &cfg.Upstream.Timeout,
		"index-ttl":      &cfg.Cache.IndexTTL,
		"category-ttl":   &cfg.Cache.CategoryTTL,
		"membership-ttl": &cfg.Cache.MembershipTTL,
		"detail-ttl":     &cfg.Cache.DetailTTL,
	} {
		if err := applyDuration(cmd, flag, target); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func envName(flag string) string {
	return Prefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

func applyInt(cmd *cobra.Command, flag string, target *int) error {
	v := FlagOrEnv(cmd, flag, envName(flag), "")
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", v, flag, err)
	}
	*target = n
	return nil
}

func applyDuration(cmd *cobra.Command, flag string, target *config.Duration) error {
	v := FlagOrEnv(cmd, flag, envName(flag), "")
	if v == "" {
		return nil
	}
	d, err := config.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", flag, err)
	}
	*target = d
	return nil
}

// AddFlags registers the flags read by Apply and NewLogger as persistent
// string flags on cmd.
func AddFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "path to a YAML config file")
	flags.String("log-level", "", "log level: trace, debug, info, warn or error")
	flags.String("base-url", "", "PokeAPI base URL")
	flags.String("listen", "", "HTTP listen address for serve")
	flags.String("cache-backend", "", "cache backend: memory, sqlite or tiered")
	flags.String("page-size", "", "cards per page")
	flags.String("concurrency", "", "max parallel detail lookups per page, 0 for unbounded")
	flags.String("list-limit", "", "page size requested when loading the master index")
	flags.String("timeout", "", "upstream request timeout, e.g. 10s")
	flags.String("index-ttl", "", "master index TTL, e.g. 6h")
	flags.String("category-ttl", "", "category list TTL")
	flags.String("membership-ttl", "", "category membership TTL")
	flags.String("detail-ttl", "", "detail record TTL, e.g. 1d")
}

// LoadConfig loads the --config file (or POKEDEX_CONFIG) and applies flag and
// environment overrides.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(FlagOrEnv(cmd, "config", Prefix+"CONFIG", ""))
	if err != nil {
		return nil, err
	}
	if err := Apply(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
