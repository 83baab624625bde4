// Command cowfs mounts and manages a copy-on-write versioned filesystem
// backed by a local content-addressed object store and a SQLite metadata
// store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cowfs/cowfs/pkg/logging"
)

var (
	// Version is set via -ldflags at build time.
	Version = "dev"

	storageFlag  string
	logLevelFlag string
	logJSONFlag  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:     "cowfs",
	Short:   "COWFS — copy-on-write versioned filesystem",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&storageFlag, "storage", "s", "", "storage backend directory (default: $COWFS_STORAGE)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSONFlag, "log-json", false, "emit logs as JSON")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(umountCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(logCmd)
}

func initLogging() {
	cfg := logging.DefaultConfig()
	cfg.Level = parseLevel(logLevelFlag)
	if logJSONFlag {
		cfg.Format = logging.JSONFormat
	}
	logging.SetDefault(logging.New(cfg))
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.DebugLevel
	case "warn":
		return logging.WarnLevel
	case "error":
		return logging.ErrorLevel
	default:
		return logging.InfoLevel
	}
}
