package catalog

import (
	"fmt"

	"github.com/catalogtool/pkg/lookup"
)

// DependencyIDs returns the internal id strings an entry depends on.
func (c *Catalog) DependencyIDs(entry *lookup.Entry) ([]string, error) {
	deps, err := c.Dependencies(entry)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(deps))
	for _, eid := range deps {
		dep, ok := c.Entry(eid)
		if !ok {
			return nil, fmt.Errorf("dependency entry %d: %w", eid, ErrNoEntry)
		}
		id, ok := c.InternalIDAt(dep.InternalID)
		if !ok {
			return nil, fmt.Errorf("dependency entry %d: %w", eid, ErrMissingInternalID)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// primaryPath returns the string primary key of an entry.
func (c *Catalog) primaryPath(entry *lookup.Entry) (string, error) {
	key, ok := c.Key(entry.PrimaryKey)
	if !ok {
		return "", fmt.Errorf("primary key %d out of range", entry.PrimaryKey)
	}
	if !key.IsString() {
		return "", ErrHashPrimaryKey
	}
	return key.Str, nil
}

// Dump describes an existing entry in the entries file format. A bundle
// dumps as itself; a prefab dumps with its dependencies and the first
// dependency as a bundle.
func (c *Catalog) Dump(id lookup.InternalID) (*Entries, error) {
	internalID, ok := c.InternalIDAt(id)
	if !ok {
		return nil, ErrMissingInternalID
	}

	entry, ok := c.EntryByInternalID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoEntry, internalID)
	}

	path, err := c.primaryPath(entry)
	if err != nil {
		return nil, err
	}

	out := &Entries{
		Bundles: []BundleEntry{},
		Prefabs: []PrefabEntry{},
	}

	if entry.DependencyHash == 0 {
		out.Bundles = append(out.Bundles, BundleEntry{InternalID: internalID, InternalPath: path})
		return out, nil
	}

	deps, err := c.Dependencies(entry)
	if err != nil {
		return nil, err
	}
	depIDs, err := c.DependencyIDs(entry)
	if err != nil {
		return nil, err
	}

	if len(deps) > 0 {
		bundle, ok := c.Entry(deps[0])
		if !ok {
			return nil, fmt.Errorf("dependency entry %d: %w", deps[0], ErrNoEntry)
		}
		bundlePath, err := c.primaryPath(bundle)
		if err != nil {
			return nil, err
		}
		out.Bundles = append(out.Bundles, BundleEntry{InternalID: depIDs[0], InternalPath: bundlePath})
	}

	out.Prefabs = append(out.Prefabs, PrefabEntry{
		InternalID:   internalID,
		InternalPath: path,
		Dependencies: depIDs,
	})

	return out, nil
}
