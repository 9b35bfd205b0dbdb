package lookup

import (
	"fmt"
	"io"
)

// BucketData is the m_BucketDataString table. Bucket i belongs to key i.
type BucketData struct {
	Buckets []Bucket
}

// ParseBucketData parses a decoded bucket table.
func ParseBucketData(data []byte) (*BucketData, error) {
	r := &reader{data: data}

	count, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket count: %w", err)
	}

	// Each bucket header is 8 bytes
	if int64(count)*8 > int64(r.remaining()) {
		return nil, fmt.Errorf("bucket count %d exceeds table size: %w", count, io.ErrUnexpectedEOF)
	}

	bd := &BucketData{Buckets: make([]Bucket, 0, count)}
	for i := uint32(0); i < count; i++ {
		offset, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("failed to read bucket %d: %w", i, err)
		}
		n, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("failed to read bucket %d: %w", i, err)
		}
		if int64(n)*4 > int64(r.remaining()) {
			return nil, fmt.Errorf("bucket %d entry count %d exceeds table size: %w", i, n, io.ErrUnexpectedEOF)
		}

		b := Bucket{KeyOffset: offset, Entries: make([]EntryID, n)}
		for j := range b.Entries {
			v, err := r.u32()
			if err != nil {
				return nil, fmt.Errorf("failed to read bucket %d: %w", i, err)
			}
			b.Entries[j] = EntryID(v)
		}
		bd.Buckets = append(bd.Buckets, b)
	}

	return bd, nil
}

// Bytes encodes the bucket table.
func (bd *BucketData) Bytes() []byte {
	b := appendU32(nil, uint32(len(bd.Buckets)))
	for _, bucket := range bd.Buckets {
		b = appendU32(b, bucket.KeyOffset)
		b = appendU32(b, uint32(len(bucket.Entries)))
		for _, id := range bucket.Entries {
			b = appendU32(b, uint32(id))
		}
	}
	return b
}

// UnmarshalText decodes the base64 form stored in catalog JSON.
func (bd *BucketData) UnmarshalText(text []byte) error {
	data, err := decodeBase64(text)
	if err != nil {
		return fmt.Errorf("failed to decode bucket data: %w", err)
	}
	parsed, err := ParseBucketData(data)
	if err != nil {
		return err
	}
	*bd = *parsed
	return nil
}

// MarshalText encodes the table to base64.
func (bd BucketData) MarshalText() ([]byte, error) {
	return encodeBase64(bd.Bytes()), nil
}
