package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/catalogtool/pkg/catalog"
	"github.com/catalogtool/pkg/lookup"
)

var addExtraIndex int

var addCmd = &cobra.Command{
	Use:   "add <catalog> <output> <entries>",
	Short: "Append new entries to a catalog",
	Long: `Append the bundles and prefabs listed in an entries file to a catalog.

The entries file is TOML unless its extension is .json, .yaml or .yml:

  [[bundles]]
  internal_id = "{UnityEngine.AddressableAssets.Addressables.RuntimePath}/Switch/fe_assets_unit/model/ubody/cor0af/c069/prefabs/ubody_cor0af_c069.bundle"
  internal_path = "fe_assets_unit/model/ubody/cor0af/c069/prefabs/ubody_cor0af_c069.bundle"

  [[prefabs]]
  internal_id = "Assets/Share/Addressables/Unit/Model/uBody/Cor0AF/c069/Prefabs/uBody_Cor0AF_c069.prefab"
  internal_path = "Unit/Model/uBody/Cor0AF/c069/Prefabs/uBody_Cor0AF_c069"
  dependencies = ["{UnityEngine.AddressableAssets.Addressables.RuntimePath}/Switch/fe_assets_unit/model/ubody/cor0af/c069/prefabs/ubody_cor0af_c069.bundle"]

Bundles are added first so prefabs can depend on them. New bundles copy the
extra data (AssetBundleRequestOptions) of an existing entry, picked with
--extra-index or, by default, from the first bundle in the catalog.

Examples:
  # Add entries to a JSON catalog
  catalogtool add catalog.json catalog_new.json entries.toml

  # Add entries to Catalog.bundle, copying extra data #200
  catalogtool add -b Catalog.bundle Catalog_new.bundle entries.toml --extra-index 200`,
	Args: cobra.ExactArgs(3),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().IntVar(&addExtraIndex, "extra-index", -1,
		"index of the extra data copied onto new bundles (-1 picks the first bundle's)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	catalogPath := args[0]
	outputPath := args[1]
	entriesPath := args[2]

	entries, err := catalog.LoadEntries(entriesPath)
	if err != nil {
		return err
	}
	if err := entries.Validate(); err != nil {
		return fmt.Errorf("invalid entries file: %w", err)
	}

	f, err := openCatalog(catalogPath)
	if err != nil {
		return err
	}

	var extra lookup.ExtraValue
	if len(entries.Bundles) > 0 {
		extra, err = f.catalog.TemplateExtra(cfg.ExtraIndex)
		if err != nil {
			return fmt.Errorf("failed to pick extra data template: %w", err)
		}
		logger.Debug("extra data template",
			zap.Int("index", cfg.ExtraIndex),
			zap.String("class", extra.ClassName),
		)
	}

	before := f.catalog.Stats()
	if err := f.catalog.Apply(entries, extra); err != nil {
		return fmt.Errorf("failed to add entries: %w", err)
	}
	after := f.catalog.Stats()

	logger.Info("entries added",
		zap.Int("bundles", len(entries.Bundles)),
		zap.Int("prefabs", len(entries.Prefabs)),
		zap.Int("new_keys", after.Keys-before.Keys),
		zap.Int("new_entries", after.Entries-before.Entries),
	)

	if err := f.save(outputPath); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Added %d bundle(s) and %d prefab(s)\n", len(entries.Bundles), len(entries.Prefabs))
	fmt.Fprintf(out, "Catalog written to: %s\n", outputPath)
	return nil
}
