// Command gradebook serves the gradebook API and bundles its admin tools.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Hansol916/OSSFinal/internal/config"
)

var version = "dev"

// v holds defaults, environment and bound flags; loadConfig resolves it.
var v = config.New()

var rootCmd = &cobra.Command{
	Use:           "gradebook",
	Short:         "Weighted grade computation for course subjects.",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("db-driver", "", "Database driver: sqlite or postgres")
	rootCmd.PersistentFlags().String("db-dsn", "", "Database connection string")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	for key, flag := range map[string]string{
		config.KeyDBDriver: "db-driver",
		config.KeyDBDSN:    "db-dsn",
		config.KeyLogLevel: "log-level",
	} {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(instructorCmd)
	instructorCmd.AddCommand(instructorAddCmd)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(v, file)
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
