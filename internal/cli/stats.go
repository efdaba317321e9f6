package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/titledex/titledex/internal/archive"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics for the published build",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	root := getDataDir()
	id, err := archive.CurrentBuild(root)
	if err != nil {
		exitErr("stats", err)
	}

	m, err := archive.ReadManifest(root, id)
	if err != nil {
		exitErr("stats", err)
	}

	b, _ := json.MarshalIndent(m, "", "  ")
	fmt.Println(string(b))
}
