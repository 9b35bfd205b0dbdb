// Package lookup handles the binary lookup tables embedded in Unity Addressables catalogs.
//
// A catalog stores four tables as base64 strings: key data, bucket data,
// entry data and extra data. All of them are little-endian.
package lookup

import "errors"

var (
	ErrUnsupportedKeyType = errors.New("unsupported key data type")
	ErrStringTooLong      = errors.New("string does not fit its length prefix")
)

// InternalID indexes the catalog's m_InternalIds array.
type InternalID uint32

// KeyID indexes both the key table and the bucket table.
type KeyID int32

// EntryID indexes the entry table.
type EntryID uint32

// ExtraID is a byte offset into the extra data table.
type ExtraID int32

const (
	NoKey   KeyID   = -1
	NoExtra ExtraID = -1
)

// Valid reports whether the id refers to a key.
func (id KeyID) Valid() bool {
	return id >= 0
}

// Valid reports whether the id refers to extra data.
func (id ExtraID) Valid() bool {
	return id >= 0
}

// Entry table layout constants
const (
	tableCountSize = 4  // u32 count prefix of key, bucket and entry tables
	EntrySize      = 28 // 7 × 4 bytes
)

// Entry is a single resource location (28 bytes).
//
//	0x00: internal id       u32
//	0x04: provider index    u32
//	0x08: dependency key    i32 (-1 when none)
//	0x0C: dependency hash   i32 (0 when none)
//	0x10: data index        i32 (offset into extra data, -1 when none)
//	0x14: primary key       i32
//	0x18: resource type     i32
type Entry struct {
	InternalID     InternalID
	ProviderIndex  uint32
	DependencyKey  KeyID
	DependencyHash int32
	DataIndex      ExtraID
	PrimaryKey     KeyID
	ResourceType   int32
}

// Bucket lists the entries a key resolves to.
type Bucket struct {
	KeyOffset uint32 // byte offset of the key inside the key table
	Entries   []EntryID
}
