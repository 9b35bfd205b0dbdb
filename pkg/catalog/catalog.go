// Package catalog reads and edits Unity Addressables content catalogs.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/catalogtool/pkg/lookup"
)

// Catalog is the JSON content catalog written by Unity Addressables.
// Field names and order follow the file Unity produces.
type Catalog struct {
	LocatorID            string            `json:"m_LocatorId"`
	InstanceProviderData ProviderData      `json:"m_InstanceProviderData"`
	SceneProviderData    ProviderData      `json:"m_SceneProviderData"`
	ResourceProviderData []ProviderData    `json:"m_ResourceProviderData"`
	ProviderIDs          []string          `json:"m_ProviderIds"`
	InternalIDs          []string          `json:"m_InternalIds"`
	KeyData              lookup.KeyData    `json:"m_KeyDataString"`
	BucketData           lookup.BucketData `json:"m_BucketDataString"`
	EntryData            lookup.EntryData  `json:"m_EntryDataString"`
	ExtraData            lookup.ExtraData  `json:"m_ExtraDataString"`
	ResourceTypes        []ObjectType      `json:"m_resourceTypes"`
	InternalIDPrefixes   []string          `json:"m_InternalIdPrefixes"`

	rng *rand.Rand
}

// ProviderData describes a resource provider.
type ProviderData struct {
	ID         string     `json:"m_Id"`
	ObjectType ObjectType `json:"m_ObjectType"`
	Data       string     `json:"m_Data"`
}

// ObjectType is a serialized .NET type reference.
type ObjectType struct {
	AssemblyName string `json:"m_AssemblyName"`
	ClassName    string `json:"m_ClassName"`
}

// Open reads a catalog JSON file.
func Open(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// ParseString parses catalog JSON held in a string.
func ParseString(s string) (*Catalog, error) {
	return Parse([]byte(s))
}

// Parse parses catalog JSON.
func Parse(data []byte) (*Catalog, error) {
	// Unity writes a UTF-8 BOM on some platforms
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))

	c := &Catalog{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return c, nil
}

// Bytes encodes the catalog as compact JSON. Missing arrays are written
// as [], never null.
func (c *Catalog) Bytes() ([]byte, error) {
	out := *c
	out.ResourceProviderData = nonNil(out.ResourceProviderData)
	out.ProviderIDs = nonNil(out.ProviderIDs)
	out.InternalIDs = nonNil(out.InternalIDs)
	out.ResourceTypes = nonNil(out.ResourceTypes)
	out.InternalIDPrefixes = nonNil(out.InternalIDPrefixes)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("failed to encode catalog JSON: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// SetRand replaces the random source used to generate dependency hashes.
func (c *Catalog) SetRand(r *rand.Rand) {
	c.rng = r
}

// InternalIDIndex returns the index of an internal id string.
func (c *Catalog) InternalIDIndex(internalID string) (lookup.InternalID, bool) {
	for i, id := range c.InternalIDs {
		if id == internalID {
			return lookup.InternalID(i), true
		}
	}
	return 0, false
}

// InternalIDAt returns the internal id string at the given index.
func (c *Catalog) InternalIDAt(id lookup.InternalID) (string, bool) {
	if int(id) >= len(c.InternalIDs) {
		return "", false
	}
	return c.InternalIDs[id], true
}

// SearchInternalIDs returns every internal id containing substr, in catalog order.
func (c *Catalog) SearchInternalIDs(substr string) []string {
	var matches []string
	for _, id := range c.InternalIDs {
		if strings.Contains(id, substr) {
			matches = append(matches, id)
		}
	}
	return matches
}

// Key returns the key at the given index.
func (c *Catalog) Key(id lookup.KeyID) (*lookup.Key, bool) {
	if !id.Valid() || int(id) >= len(c.KeyData.Keys) {
		return nil, false
	}
	return &c.KeyData.Keys[id], true
}

// Bucket returns the bucket of the given key.
func (c *Catalog) Bucket(id lookup.KeyID) (*lookup.Bucket, bool) {
	if !id.Valid() || int(id) >= len(c.BucketData.Buckets) {
		return nil, false
	}
	return &c.BucketData.Buckets[id], true
}

// Entry returns the entry at the given index.
func (c *Catalog) Entry(id lookup.EntryID) (*lookup.Entry, bool) {
	if int(id) >= len(c.EntryData.Entries) {
		return nil, false
	}
	return &c.EntryData.Entries[id], true
}

// EntryByInternalID returns the first entry pointing at the internal id.
func (c *Catalog) EntryByInternalID(id lookup.InternalID) (*lookup.Entry, bool) {
	eid, ok := c.EntryIDByInternalID(id)
	if !ok {
		return nil, false
	}
	return &c.EntryData.Entries[eid], true
}

// EntryIDByInternalID returns the index of the first entry pointing at the internal id.
func (c *Catalog) EntryIDByInternalID(id lookup.InternalID) (lookup.EntryID, bool) {
	for i, e := range c.EntryData.Entries {
		if e.InternalID == id {
			return lookup.EntryID(i), true
		}
	}
	return 0, false
}

// Extra returns the extra value at position index of the extra data table.
func (c *Catalog) Extra(index int) (*lookup.ExtraValue, bool) {
	if index < 0 || index >= len(c.ExtraData.Values) {
		return nil, false
	}
	return &c.ExtraData.Values[index], true
}

// ExtraAt returns the extra value an entry's data index points at.
func (c *Catalog) ExtraAt(offset lookup.ExtraID) (*lookup.ExtraValue, bool) {
	return c.ExtraData.At(offset)
}

// Dependencies returns the entries listed in the dependency bucket of entry.
func (c *Catalog) Dependencies(entry *lookup.Entry) ([]lookup.EntryID, error) {
	bucket, ok := c.Bucket(entry.DependencyKey)
	if !ok {
		return nil, ErrNoDependencies
	}
	return bucket.Entries, nil
}

// Stats summarizes table sizes.
type Stats struct {
	Providers   int
	InternalIDs int
	Keys        int
	Buckets     int
	Entries     int
	Extras      int
	ExtraSize   uint32
}

// Stats returns the size of every catalog table.
func (c *Catalog) Stats() Stats {
	return Stats{
		Providers:   len(c.ProviderIDs),
		InternalIDs: len(c.InternalIDs),
		Keys:        len(c.KeyData.Keys),
		Buckets:     len(c.BucketData.Buckets),
		Entries:     len(c.EntryData.Entries),
		Extras:      len(c.ExtraData.Values),
		ExtraSize:   c.ExtraData.Size(),
	}
}
