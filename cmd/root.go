package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/internal/store"
	"github.com/huangsam/apprank/schema"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// logger is configured by sharedSetup from --log-level and --log-format.
var logger = contract.DiscardLogger()

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "apprank",
	Short: "Track a daily ranking and the rank movement of every entity in it.",
	Long: `Apprank fetches a paginated top-N ranking once per day, archives it, and derives
per-entity rank changes over 24h, 72h, 7d and 30d windows plus lifetime statistics.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A missing .env is the normal case outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		contract.LogWarn("Cannot load .env", err)
	}

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".apprank")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("APPRANK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("endpoint", contract.DefaultEndpoint)
	viper.SetDefault("page-limit", contract.DefaultPageLimit)
	viper.SetDefault("request-rate", contract.DefaultRequestRate)
	viper.SetDefault("max-pages", contract.DefaultMaxPages)
	viper.SetDefault("fetch-timeout", contract.DefaultFetchTimeout)
	viper.SetDefault("store-timeout", contract.DefaultStoreTimeout)
	viper.SetDefault("store-backend", schema.SQLiteBackend)
	viper.SetDefault("store-db-connect", "")
	viper.SetDefault("timezone", contract.DefaultTimezone)
	viper.SetDefault("top-k", contract.DefaultTopK)
	viper.SetDefault("notify", schema.LogNotifier)
	viper.SetDefault("nats-subject", contract.DefaultNATSSubject)
	viper.SetDefault("limit", contract.DefaultResultLimit)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("log-level", logrus.InfoLevel.String())
	viper.SetDefault("log-format", schema.TextLog)
	viper.SetDefault("listen", contract.DefaultListen)
	viper.SetDefault("schedule", contract.DefaultSchedule)
}

// loadConfigFile reads the config file when one exists.
func loadConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// resolveConfig merges defaults, file, env and flags into cfg.
func resolveConfig() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// Hosted databases hand out a single DATABASE_URL.
	if input.StoreDBConnect == "" {
		input.StoreDBConnect = os.Getenv("DATABASE_URL")
	}

	if err := contract.ProcessAndValidate(cfg, input, time.Now()); err != nil {
		return err
	}
	logger = contract.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return nil
}

// sharedSetup resolves config and opens the configured store.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	if err := resolveConfig(); err != nil {
		return err
	}
	if err := store.InitStore(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// configSetupWrapper resolves config without touching the store.
func configSetupWrapper(_ *cobra.Command, _ []string) error {
	return resolveConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
