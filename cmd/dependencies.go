package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catalogtool/pkg/catalog"
)

var dependenciesCmd = &cobra.Command{
	Use:   "dependencies <catalog> <internal-id>",
	Short: "Output the dependencies of a prefab",
	Long: `Print the internal id of every entry a prefab depends on.

The internal id may be partial: when it is not an exact match, every id
containing it is a candidate, and several candidates are offered in a
numbered prompt. Surround it in quotation marks.

Examples:
  catalogtool dependencies catalog.json "Assets/Share/Addressables/Unit/Model/uBody/Cor0AF/c069/Prefabs/uBody_Cor0AF_c069.prefab"

  # Partial match
  catalogtool dependencies -b Catalog.bundle "uBody_Cor0AF_c069.prefab"`,
	Args: cobra.ExactArgs(2),
	RunE: runDependencies,
}

func init() {
	rootCmd.AddCommand(dependenciesCmd)
}

func runDependencies(cmd *cobra.Command, args []string) error {
	f, err := openCatalog(args[0])
	if err != nil {
		return err
	}
	c := f.catalog

	id, err := resolveInternalID(cmd, c, args[1])
	if err != nil {
		return err
	}

	entry, ok := c.EntryByInternalID(id)
	if !ok {
		return fmt.Errorf("%w, is the file corrupted?", catalog.ErrNoEntry)
	}

	deps, err := c.DependencyIDs(entry)
	if err != nil {
		return fmt.Errorf("%w, is this a prefab?", err)
	}

	for _, dep := range deps {
		fmt.Fprintf(cmd.OutOrStdout(), "Dependency found: %s\n", dep)
	}
	return nil
}
