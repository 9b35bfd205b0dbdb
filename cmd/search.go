package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <catalog> <query>",
	Short: "List internal ids containing a string",
	Long: `List every internal id that contains the query, in catalog order.

Examples:
  catalogtool search catalog.json c069
  catalogtool search -b Catalog.bundle ".prefab"`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	f, err := openCatalog(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	matches := f.catalog.SearchInternalIDs(args[1])
	if len(matches) == 0 {
		fmt.Fprintf(out, "No internal id contains %q\n", args[1])
		return nil
	}

	for _, id := range matches {
		fmt.Fprintln(out, id)
	}
	fmt.Fprintf(out, "\n%d match(es)\n", len(matches))
	return nil
}
