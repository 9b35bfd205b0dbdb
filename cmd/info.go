package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoLimit int

var infoCmd = &cobra.Command{
	Use:   "info <catalog>",
	Short: "Display catalog structure",
	Long: `Display the structure of a catalog.

Shows:
  - Locator id and resource providers
  - Size of the key, bucket, entry and extra data tables
  - The first internal ids

Examples:
  catalogtool info catalog.json
  catalogtool info -b Catalog.bundle --limit 50`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().IntVarP(&infoLimit, "limit", "n", 10,
		"number of internal ids to list (0 lists none)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	f, err := openCatalog(args[0])
	if err != nil {
		return err
	}
	c := f.catalog
	stats := c.Stats()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Locator: %s\n", c.LocatorID)
	if f.bundle != nil {
		h := f.bundle.Bundle().Header
		fmt.Fprintf(out, "Bundle: UnityFS v%d, Unity %s, TextAsset %s\n", h.Version, h.UnityRevision, f.bundle.Name())
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Providers (%d):\n", stats.Providers)
	for i, id := range c.ProviderIDs {
		fmt.Fprintf(out, "  [%d] %s\n", i, id)
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Internal ids: %d\n", stats.InternalIDs)
	fmt.Fprintf(out, "Keys:         %d\n", stats.Keys)
	fmt.Fprintf(out, "Buckets:      %d\n", stats.Buckets)
	fmt.Fprintf(out, "Entries:      %d\n", stats.Entries)
	fmt.Fprintf(out, "Extra data:   %d (%d bytes)\n", stats.Extras, stats.ExtraSize)

	limit := min(infoLimit, len(c.InternalIDs))
	if limit <= 0 {
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "First %d internal ids:\n", limit)
	for i, id := range c.InternalIDs[:limit] {
		fmt.Fprintf(out, "  [%d] %s\n", i, id)
	}
	if remaining := len(c.InternalIDs) - limit; remaining > 0 {
		fmt.Fprintf(out, "  ... and %d more\n", remaining)
	}
	return nil
}
