package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/catalogtool/internal/config"
	"github.com/catalogtool/internal/logging"
)

var (
	configFile  string
	bundled     bool
	verbose     bool
	compression string

	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "catalogtool",
	Short: "Consult and edit Unity Addressables catalogs",
	Long: `catalogtool reads and edits Unity Addressables catalogs, either as a
plain catalog.json or stored as a TextAsset inside Catalog.bundle.

Supported operations:
  - Append bundles and prefabs described in a TOML, JSON or YAML file
  - List the dependencies of a prefab
  - Extract the catalog JSON from a bundle, or pack it back
  - Dump an existing entry as an entries file
  - Search internal ids and print catalog statistics

Bundles are detected from their UnityFS signature; -b forces bundle mode.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&bundled, "bundled", "b", false,
		"treat the catalog as a bundle")
	flags.StringVar(&configFile, "config", "",
		"path to a YAML config file (default $"+config.EnvConfigFile+")")
	flags.BoolVarP(&verbose, "verbose", "v", false,
		"print verbose progress information")
	flags.StringVar(&compression, "compression", "",
		"compression for written bundles: none, lz4 or lz4hc (default lz4)")
}

// setup resolves the configuration and builds the logger before any command
// runs.
func setup(cmd *cobra.Command, args []string) error {
	overrides := &config.CLIOverrides{ConfigFile: configFile}
	if cmd.Flags().Changed("bundled") {
		overrides.Bundled = &bundled
	}
	if cmd.Flags().Changed("compression") {
		overrides.Compression = &compression
	}
	if cmd.Flags().Changed("extra-index") {
		overrides.ExtraIndex = &addExtraIndex
	}

	loaded, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logging.New(loaded.LogLevel, verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	cfg = loaded
	logger = log
	logger.Debug("configuration loaded",
		zap.Bool("bundled", cfg.Bundled),
		zap.String("compression", cfg.Compression),
		zap.Int("extra_index", cfg.ExtraIndex),
	)
	return nil
}
