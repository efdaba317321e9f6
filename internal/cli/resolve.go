package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/titledex/titledex/internal/resolve"
)

func init() {
	cmd := &cobra.Command{
		Use:   "resolve <title>",
		Short: "Resolve a title query into one joined entity",
		Args:  cobra.MinimumNArgs(1),
		Run:   runResolve,
	}

	cmd.Flags().IntP("year", "y", 0, "Disambiguating release year")
	cmd.Flags().Bool("strict", false, "Fail on any attribute archive error instead of omitting")

	RootCmd.AddCommand(cmd)
}

func runResolve(cmd *cobra.Command, args []string) {
	year, _ := cmd.Flags().GetInt("year")
	strict, _ := cmd.Flags().GetBool("strict")
	query := strings.Join(args, " ")

	set, err := openCurrent()
	if err != nil {
		exitErr("open archives", err)
	}
	defer set.Close()

	r := resolve.New(set, resolve.Options{Strict: strict})
	entity, err := r.Resolve(cmd.Context(), query, year)

	var amb *resolve.AmbiguousError
	if errors.As(err, &amb) {
		fmt.Fprintf(os.Stderr, "%q is ambiguous; pass --year to pick one of:\n", query)
		for _, c := range amb.Candidates {
			fmt.Fprintf(os.Stderr, "  %s\n", c)
		}
		os.Exit(1)
	}
	if errors.Is(err, resolve.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "no title matches %q\n", query)
		os.Exit(1)
	}
	if err != nil {
		exitErr("resolve", err)
	}

	b, _ := json.MarshalIndent(entity, "", "  ")
	fmt.Println(string(b))
}
