package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/catalogtool/pkg/bundle"
	"github.com/catalogtool/pkg/catalog"
)

var packCmd = &cobra.Command{
	Use:   "pack <bundle> <json> <output>",
	Short: "Store a catalog JSON into a bundle",
	Long: `Replace the catalog TextAsset of an existing bundle with a JSON file.

The JSON must parse as a catalog; it is stored byte for byte. The bundle is
rewritten with the compression from --compression or the config file.

Examples:
  # Repack an edited catalog.json
  catalogtool pack Catalog.bundle catalog.json Catalog_new.bundle

  # Repack without compression
  catalogtool pack Catalog.bundle catalog.json Catalog_new.bundle --compression none`,
	Args: cobra.ExactArgs(3),
	RunE: runPack,
}

func init() {
	rootCmd.AddCommand(packCmd)
}

func runPack(cmd *cobra.Command, args []string) error {
	bundlePath := args[0]
	jsonPath := args[1]
	outputPath := args[2]

	tb, err := bundle.LoadText(bundlePath)
	if err != nil {
		return fmt.Errorf("failed to open bundle: %w", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}

	c, err := catalog.Parse(data)
	if err != nil {
		return err
	}
	logger.Debug("catalog JSON checked", zap.String("locator", c.LocatorID), zap.Int("internal_ids", len(c.InternalIDs)))

	previous := len(tb.Text())
	if err := tb.SetText(data); err != nil {
		return err
	}

	if err := saveBundle(tb, outputPath); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Replaced %s (%d -> %d bytes)\n", tb.Name(), previous, len(data))
	fmt.Fprintf(cmd.OutOrStdout(), "Bundle written to: %s\n", outputPath)
	return nil
}
