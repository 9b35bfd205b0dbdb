package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/catalogtool/internal/fsutil"
	"github.com/catalogtool/internal/prompt"
	"github.com/catalogtool/pkg/bundle"
	"github.com/catalogtool/pkg/catalog"
	"github.com/catalogtool/pkg/lookup"
)

// catalogFile is a loaded catalog and, when it came from a bundle, the
// bundle to write it back into.
type catalogFile struct {
	catalog *catalog.Catalog
	bundle  *bundle.TextBundle
}

// openCatalog loads a catalog from JSON or from a bundle. Bundles are
// recognized by their signature even without --bundled.
func openCatalog(path string) (*catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	if !cfg.Bundled && !bundle.IsBundle(data) {
		c, err := catalog.Parse(data)
		if err != nil {
			return nil, err
		}
		logger.Debug("catalog loaded", zap.String("path", path), zap.Int("internal_ids", len(c.InternalIDs)))
		return &catalogFile{catalog: c}, nil
	}

	tb, err := bundle.ReadText(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog bundle: %w", err)
	}
	c, err := catalog.Parse(tb.Text())
	if err != nil {
		return nil, err
	}

	logger.Debug("catalog bundle loaded",
		zap.String("path", path),
		zap.String("asset", tb.Name()),
		zap.Uint32("unity_format", tb.Bundle().Header.Version),
		zap.Int("internal_ids", len(c.InternalIDs)),
	)
	return &catalogFile{catalog: c, bundle: tb}, nil
}

// save writes the catalog in the form it was loaded from.
func (f *catalogFile) save(path string) error {
	data, err := f.catalog.Bytes()
	if err != nil {
		return err
	}

	if f.bundle == nil {
		if err := fsutil.WriteBytes(path, data); err != nil {
			return fmt.Errorf("failed to write catalog: %w", err)
		}
		return nil
	}

	if err := f.bundle.SetText(data); err != nil {
		return err
	}
	return saveBundle(f.bundle, path)
}

func saveBundle(tb *bundle.TextBundle, path string) error {
	opts, err := writeOptions()
	if err != nil {
		return err
	}
	if err := tb.Save(path, opts); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	logger.Debug("bundle written", zap.String("path", path), zap.Stringer("compression", opts.Compression))
	return nil
}

func writeOptions() (bundle.WriteOptions, error) {
	c, err := bundle.ParseCompression(cfg.Compression)
	if err != nil {
		return bundle.WriteOptions{}, err
	}
	return bundle.WriteOptions{Compression: c}, nil
}

// resolveInternalID finds an internal id by exact match, then by substring.
// Several candidates are offered in a prompt on stdin.
func resolveInternalID(cmd *cobra.Command, c *catalog.Catalog, query string) (lookup.InternalID, error) {
	if id, ok := c.InternalIDIndex(query); ok {
		return id, nil
	}

	matches := c.SearchInternalIDs(query)

	var chosen string
	switch len(matches) {
	case 0:
		return 0, fmt.Errorf("%w: nothing matches %q, make sure the spelling is right", catalog.ErrMissingInternalID, query)
	case 1:
		chosen = matches[0]
		logger.Info("using the only matching internal id", zap.String("internal_id", chosen))
	default:
		label := fmt.Sprintf("%d internal ids match %q, pick one:", len(matches), query)
		idx, err := prompt.Select(cmd.InOrStdin(), cmd.ErrOrStderr(), label, matches)
		if err != nil {
			return 0, err
		}
		chosen = matches[idx]
	}

	id, _ := c.InternalIDIndex(chosen)
	return id, nil
}
