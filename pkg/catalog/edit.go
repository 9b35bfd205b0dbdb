package catalog

import (
	"fmt"
	"math/rand/v2"

	"github.com/catalogtool/pkg/lookup"
)

// Provider indices and resource types used for new entries
const (
	bundleProviderIndex = 0
	prefabProviderIndex = 2
	bundleResourceType  = 0
	prefabResourceType  = 4
)

// AddInternalID appends a new internal id string.
func (c *Catalog) AddInternalID(internalID string) (lookup.InternalID, error) {
	if _, ok := c.InternalIDIndex(internalID); ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateInternalID, internalID)
	}
	c.InternalIDs = append(c.InternalIDs, internalID)
	return lookup.InternalID(len(c.InternalIDs) - 1), nil
}

// NextKeyOffset returns the key table offset a newly appended key will have.
func (c *Catalog) NextKeyOffset() uint32 {
	buckets := c.BucketData.Buckets
	keys := c.KeyData.Keys
	if len(buckets) == 0 || len(keys) == 0 {
		return c.KeyData.Offset(len(keys))
	}
	return buckets[len(buckets)-1].KeyOffset + keys[len(keys)-1].Size()
}

// NextExtraOffset returns the extra data offset a newly appended value will have.
func (c *Catalog) NextExtraOffset() uint32 {
	return c.ExtraData.Size()
}

// UniqueHash returns a random dependency hash that is neither zero nor
// already used by an Int32 key.
func (c *Catalog) UniqueHash() int32 {
	used := make(map[int32]struct{})
	for _, k := range c.KeyData.Keys {
		if h, ok := k.Hash(); ok {
			used[h] = struct{}{}
		}
	}

	for {
		h := c.randInt32()
		if h == 0 {
			continue
		}
		if _, taken := used[h]; !taken {
			return h
		}
	}
}

func (c *Catalog) randInt32() int32 {
	if c.rng != nil {
		return int32(c.rng.Uint32())
	}
	return int32(rand.Uint32())
}

// AddKey appends a key whose bucket points at the entry that will be appended next.
func (c *Catalog) AddKey(key lookup.Key) lookup.KeyID {
	next := lookup.EntryID(len(c.EntryData.Entries))
	return c.AddDependencyKey(key, []lookup.EntryID{next})
}

// AddDependencyKey appends a key whose bucket lists the given entries.
func (c *Catalog) AddDependencyKey(key lookup.Key, entries []lookup.EntryID) lookup.KeyID {
	offset := c.NextKeyOffset()

	c.KeyData.Keys = append(c.KeyData.Keys, key)
	c.BucketData.Buckets = append(c.BucketData.Buckets, lookup.Bucket{
		KeyOffset: offset,
		Entries:   append([]lookup.EntryID(nil), entries...),
	})

	return lookup.KeyID(len(c.KeyData.Keys) - 1)
}

// AddExtraData appends an extra value and returns its offset.
func (c *Catalog) AddExtraData(extra lookup.ExtraValue) lookup.ExtraID {
	offset := c.NextExtraOffset()
	c.ExtraData.Values = append(c.ExtraData.Values, extra.Clone())
	return lookup.ExtraID(offset)
}

// AddBundle appends an AssetBundle location.
func (c *Catalog) AddBundle(internalID, internalPath string, extra lookup.ExtraValue) error {
	if err := c.checkTables(); err != nil {
		return err
	}

	iid, err := c.AddInternalID(internalID)
	if err != nil {
		return err
	}
	primaryKey := c.AddKey(lookup.StringKey(internalPath))

	c.EntryData.Entries = append(c.EntryData.Entries, lookup.Entry{
		InternalID:     iid,
		ProviderIndex:  bundleProviderIndex,
		DependencyKey:  lookup.NoKey,
		DependencyHash: 0,
		DataIndex:      c.AddExtraData(extra),
		PrimaryKey:     primaryKey,
		ResourceType:   bundleResourceType,
	})

	return nil
}

// AddPrefab appends a prefab location depending on existing internal ids.
// The catalog is left untouched when a dependency cannot be resolved.
func (c *Catalog) AddPrefab(internalID, internalPath string, dependencies []string) error {
	if err := c.checkTables(); err != nil {
		return err
	}
	if _, ok := c.InternalIDIndex(internalID); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateInternalID, internalID)
	}

	deps := make([]lookup.EntryID, 0, len(dependencies))
	for _, dep := range dependencies {
		iid, ok := c.InternalIDIndex(dep)
		if !ok {
			return fmt.Errorf("dependency %s: %w", dep, ErrMissingInternalID)
		}
		eid, ok := c.EntryIDByInternalID(iid)
		if !ok {
			return fmt.Errorf("dependency %s: %w", dep, ErrNoEntry)
		}
		deps = append(deps, eid)
	}

	iid, err := c.AddInternalID(internalID)
	if err != nil {
		return err
	}
	primaryKey := c.AddKey(lookup.StringKey(internalPath))

	hash := c.UniqueHash()
	dependencyKey := c.AddDependencyKey(lookup.HashKey(hash), deps)

	c.EntryData.Entries = append(c.EntryData.Entries, lookup.Entry{
		InternalID:     iid,
		ProviderIndex:  prefabProviderIndex,
		DependencyKey:  dependencyKey,
		DependencyHash: hash,
		DataIndex:      lookup.NoExtra,
		PrimaryKey:     primaryKey,
		ResourceType:   prefabResourceType,
	})

	return nil
}

// checkTables verifies the one bucket per key invariant new keys rely on.
func (c *Catalog) checkTables() error {
	if len(c.KeyData.Keys) != len(c.BucketData.Buckets) {
		return fmt.Errorf("%w: %d keys, %d buckets", ErrTablesOutOfSync, len(c.KeyData.Keys), len(c.BucketData.Buckets))
	}
	return nil
}

// TemplateExtra returns the extra value copied onto new bundles. A negative
// index selects the extra data of the first bundle entry in the catalog.
func (c *Catalog) TemplateExtra(index int) (lookup.ExtraValue, error) {
	if index >= 0 {
		v, ok := c.Extra(index)
		if !ok {
			return lookup.ExtraValue{}, fmt.Errorf("%w: index %d out of %d", ErrMissingExtraData, index, len(c.ExtraData.Values))
		}
		return v.Clone(), nil
	}

	for _, e := range c.EntryData.Entries {
		if e.DependencyHash != 0 || !e.DataIndex.Valid() {
			continue
		}
		if v, ok := c.ExtraAt(e.DataIndex); ok {
			return v.Clone(), nil
		}
	}
	return lookup.ExtraValue{}, ErrMissingExtraData
}

// Apply adds every bundle of entries, then every prefab, so prefabs can
// depend on bundles added from the same file. On error the catalog is
// restored to its state before the call.
func (c *Catalog) Apply(entries *Entries, extra lookup.ExtraValue) error {
	mark := c.mark()
	for _, b := range entries.Bundles {
		if err := c.AddBundle(b.InternalID, b.InternalPath, extra); err != nil {
			c.rollback(mark)
			return fmt.Errorf("failed to add bundle %s: %w", b.InternalID, err)
		}
	}
	for _, p := range entries.Prefabs {
		if err := c.AddPrefab(p.InternalID, p.InternalPath, p.Dependencies); err != nil {
			c.rollback(mark)
			return fmt.Errorf("failed to add prefab %s: %w", p.InternalID, err)
		}
	}
	return nil
}

// tableMark records the table lengths; every edit only appends.
type tableMark struct {
	internalIDs, keys, buckets, entries, extras int
}

func (c *Catalog) mark() tableMark {
	return tableMark{
		internalIDs: len(c.InternalIDs),
		keys:        len(c.KeyData.Keys),
		buckets:     len(c.BucketData.Buckets),
		entries:     len(c.EntryData.Entries),
		extras:      len(c.ExtraData.Values),
	}
}

func (c *Catalog) rollback(m tableMark) {
	c.InternalIDs = c.InternalIDs[:m.internalIDs]
	c.KeyData.Keys = c.KeyData.Keys[:m.keys]
	c.BucketData.Buckets = c.BucketData.Buckets[:m.buckets]
	c.EntryData.Entries = c.EntryData.Entries[:m.entries]
	c.ExtraData.Values = c.ExtraData.Values[:m.extras]
}
