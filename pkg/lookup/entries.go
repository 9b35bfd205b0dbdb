package lookup

import (
	"encoding/binary"
	"fmt"
	"io"
)

// EntryData is the m_EntryDataString table.
type EntryData struct {
	Entries []Entry
}

// ParseEntryData parses a decoded entry table.
func ParseEntryData(data []byte) (*EntryData, error) {
	if len(data) < tableCountSize {
		return nil, fmt.Errorf("failed to read entry count: %w", io.ErrUnexpectedEOF)
	}
	count := binary.LittleEndian.Uint32(data)
	pos := tableCountSize

	if int64(count)*EntrySize > int64(len(data)-pos) {
		return nil, fmt.Errorf("entry count %d exceeds table size: %w", count, io.ErrUnexpectedEOF)
	}

	ed := &EntryData{Entries: make([]Entry, count)}
	for i := range ed.Entries {
		ed.Entries[i] = Entry{
			InternalID:     InternalID(binary.LittleEndian.Uint32(data[pos:])),
			ProviderIndex:  binary.LittleEndian.Uint32(data[pos+4:]),
			DependencyKey:  KeyID(binary.LittleEndian.Uint32(data[pos+8:])),
			DependencyHash: int32(binary.LittleEndian.Uint32(data[pos+12:])),
			DataIndex:      ExtraID(binary.LittleEndian.Uint32(data[pos+16:])),
			PrimaryKey:     KeyID(binary.LittleEndian.Uint32(data[pos+20:])),
			ResourceType:   int32(binary.LittleEndian.Uint32(data[pos+24:])),
		}
		pos += EntrySize
	}

	return ed, nil
}

// Bytes encodes the entry table.
func (ed *EntryData) Bytes() []byte {
	b := make([]byte, 0, tableCountSize+len(ed.Entries)*EntrySize)
	b = appendU32(b, uint32(len(ed.Entries)))
	for _, e := range ed.Entries {
		b = appendU32(b, uint32(e.InternalID))
		b = appendU32(b, e.ProviderIndex)
		b = appendU32(b, uint32(e.DependencyKey))
		b = appendU32(b, uint32(e.DependencyHash))
		b = appendU32(b, uint32(e.DataIndex))
		b = appendU32(b, uint32(e.PrimaryKey))
		b = appendU32(b, uint32(e.ResourceType))
	}
	return b
}

// UnmarshalText decodes the base64 form stored in catalog JSON.
func (ed *EntryData) UnmarshalText(text []byte) error {
	data, err := decodeBase64(text)
	if err != nil {
		return fmt.Errorf("failed to decode entry data: %w", err)
	}
	parsed, err := ParseEntryData(data)
	if err != nil {
		return err
	}
	*ed = *parsed
	return nil
}

// MarshalText encodes the table to base64.
func (ed EntryData) MarshalText() ([]byte, error) {
	return encodeBase64(ed.Bytes()), nil
}
