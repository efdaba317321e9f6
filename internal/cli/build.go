package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/titledex/titledex/internal/archive"
)

func init() {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build and publish archives from a directory of dump files",
		Run:   runBuild,
	}

	cmd.Flags().StringP("source", "s", "", "Directory holding the dump files (required)")
	cmd.MarkFlagRequired("source")

	RootCmd.AddCommand(cmd)
}

func runBuild(cmd *cobra.Command, args []string) {
	srcDir, _ := cmd.Flags().GetString("source")

	if err := os.MkdirAll(getDataDir(), 0o755); err != nil {
		exitErr("create data dir", err)
	}

	m, err := archive.Rebuild(cmd.Context(), getDataDir(), srcDir)
	if err != nil {
		exitErr("build", err)
	}

	b, _ := json.MarshalIndent(m, "", "  ")
	fmt.Println(string(b))
}
