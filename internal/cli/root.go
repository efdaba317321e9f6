// Package cli implements the titledex CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/titledex/titledex/internal/archive"
	"github.com/titledex/titledex/internal/logging"
)

var (
	dataDir   string
	logLevel  string
	logFormat string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "titledex",
	Short: "Compressed random-access archives over movie dump files",
	Long: "titledex converts periodic plain-text movie dumps into per-category\n" +
		"compressed archives with external indexes, and resolves title queries\n" +
		"by joining records across them.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logging.Options{Level: logLevel, Format: logFormat})
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dataDir, "data", "d", "", "Archive directory (default: $TITLEDEX_DATA or ~/.titledex)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: console or json")
}

func getDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if env := os.Getenv("TITLEDEX_DATA"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".titledex")
}

func openCurrent() (*archive.Set, error) {
	return archive.OpenCurrent(getDataDir())
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
