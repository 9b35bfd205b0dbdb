package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/catalogtool/internal/fsutil"
	"github.com/catalogtool/pkg/bundle"
)

var extractPretty bool

var extractCmd = &cobra.Command{
	Use:   "extract <bundle> <output>",
	Short: "Extract the catalog JSON from a bundle",
	Long: `Write the catalog JSON stored as a TextAsset in Catalog.bundle to a file.

The text is written unchanged unless --pretty is given.

Examples:
  # Extract catalog.json from Catalog.bundle
  catalogtool extract Catalog.bundle catalog.json

  # Extract and indent for reading
  catalogtool extract Catalog.bundle catalog.json --pretty`,
	Args: cobra.ExactArgs(2),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().BoolVar(&extractPretty, "pretty", false,
		"indent the extracted JSON")
}

func runExtract(cmd *cobra.Command, args []string) error {
	bundlePath := args[0]
	outputPath := args[1]

	tb, err := bundle.LoadText(bundlePath)
	if err != nil {
		return fmt.Errorf("failed to open bundle: %w", err)
	}

	text := tb.Text()
	if extractPretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, text, "", "  "); err != nil {
			return fmt.Errorf("failed to indent JSON: %w", err)
		}
		text = buf.Bytes()
	}

	logger.Debug("TextAsset found", zap.String("name", tb.Name()), zap.Int("size", len(tb.Text())))

	if err := fsutil.WriteBytes(outputPath, text); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Extracted %s (%d bytes) to: %s\n", tb.Name(), len(text), outputPath)
	return nil
}
