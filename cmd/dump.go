package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catalogtool/internal/fsutil"
	"github.com/catalogtool/pkg/catalog"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <catalog> <internal-id> <output>",
	Short: "Output an entries file for an existing catalog entry",
	Long: `Describe an existing entry in the format accepted by "add".

A bundle is dumped as itself. A prefab is dumped with its dependencies, and
its first dependency is listed as a bundle. The output is TOML unless its
extension is .json, .yaml or .yml.

Examples:
  catalogtool dump catalog.json "uBody_Cor0AF_c069.prefab" c069.toml
  catalogtool dump -b Catalog.bundle "ubody_cor0af_c069.bundle" c069.json`,
	Args: cobra.ExactArgs(3),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	outputPath := args[2]

	f, err := openCatalog(args[0])
	if err != nil {
		return err
	}

	id, err := resolveInternalID(cmd, f.catalog, args[1])
	if err != nil {
		return err
	}

	entries, err := f.catalog.Dump(id)
	if err != nil {
		return fmt.Errorf("failed to dump entry: %w", err)
	}

	format := catalog.FormatFromPath(outputPath)
	data, err := entries.Encode(format)
	if err != nil {
		return err
	}

	if err := fsutil.WriteBytes(outputPath, data); err != nil {
		return fmt.Errorf("failed to write entries: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Dumped %d bundle(s) and %d prefab(s) as %s to: %s\n",
		len(entries.Bundles), len(entries.Prefabs), format, outputPath)
	return nil
}
