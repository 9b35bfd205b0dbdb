package lookup

import (
	"fmt"
	"io"
	"math"
	"strconv"
)

// KeyType is the type byte that precedes every key in the key table.
type KeyType uint8

const (
	KeyASCIIString   KeyType = 0
	KeyUnicodeString KeyType = 1
	KeyUInt16        KeyType = 2
	KeyUInt32        KeyType = 3
	KeyInt32         KeyType = 4
	KeyHash128       KeyType = 5
	KeyTypeName      KeyType = 6
	KeyJSONObject    KeyType = 7
)

// Key is a single key table value. String keys use Str, numeric keys use Int.
// Unicode keys read from a table keep their UTF-16LE payload in Raw, which is
// written back as is; clear Raw after changing Str.
type Key struct {
	Type KeyType
	Str  string
	Int  int64
	Raw  []byte
}

// StringKey returns an ASCII string key.
func StringKey(s string) Key {
	return Key{Type: KeyASCIIString, Str: s}
}

// HashKey returns an Int32 key, used for dependency hashes.
func HashKey(hash int32) Key {
	return Key{Type: KeyInt32, Int: int64(hash)}
}

// IsString reports whether the key holds a string.
func (k Key) IsString() bool {
	return k.Type == KeyASCIIString || k.Type == KeyUnicodeString
}

// Hash returns the value of an Int32 key.
func (k Key) Hash() (int32, bool) {
	if k.Type != KeyInt32 {
		return 0, false
	}
	return int32(k.Int), true
}

func (k Key) String() string {
	if k.IsString() {
		return k.Str
	}
	return strconv.FormatInt(k.Int, 10)
}

// Size returns the encoded size of the key including its type byte.
func (k Key) Size() uint32 {
	switch k.Type {
	case KeyASCIIString:
		return 5 + uint32(len(k.Str))
	case KeyUnicodeString:
		return 5 + uint32(len(k.unicodePayload()))
	case KeyUInt16:
		return 3
	default:
		return 5
	}
}

func (k Key) appendTo(b []byte) ([]byte, error) {
	b = append(b, byte(k.Type))
	switch k.Type {
	case KeyASCIIString:
		if uint64(len(k.Str)) > math.MaxUint32 {
			return nil, ErrStringTooLong
		}
		b = appendU32(b, uint32(len(k.Str)))
		b = append(b, k.Str...)
	case KeyUnicodeString:
		raw := k.unicodePayload()
		if uint64(len(raw)) > math.MaxUint32 {
			return nil, ErrStringTooLong
		}
		b = appendU32(b, uint32(len(raw)))
		b = append(b, raw...)
	case KeyUInt16:
		b = appendU16(b, uint16(k.Int))
	case KeyUInt32, KeyInt32:
		b = appendU32(b, uint32(k.Int))
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedKeyType, k.Type)
	}
	return b, nil
}

func (k Key) unicodePayload() []byte {
	if k.Raw != nil {
		return k.Raw
	}
	return EncodeUTF16LE(k.Str)
}

func readKey(r *reader) (Key, error) {
	t, err := r.u8()
	if err != nil {
		return Key{}, err
	}

	k := Key{Type: KeyType(t)}
	switch k.Type {
	case KeyASCIIString, KeyUnicodeString:
		n, err := r.u32()
		if err != nil {
			return Key{}, err
		}
		if int64(n) > int64(r.remaining()) {
			return Key{}, fmt.Errorf("string length %d exceeds table: %w", n, io.ErrUnexpectedEOF)
		}
		raw, err := r.bytes(int(n))
		if err != nil {
			return Key{}, err
		}
		if k.Type == KeyUnicodeString {
			k.Raw = append([]byte{}, raw...)
			k.Str = DecodeUTF16LE(raw)
		} else {
			k.Str = string(raw)
		}
	case KeyUInt16:
		v, err := r.u16()
		if err != nil {
			return Key{}, err
		}
		k.Int = int64(v)
	case KeyUInt32:
		v, err := r.u32()
		if err != nil {
			return Key{}, err
		}
		k.Int = int64(v)
	case KeyInt32:
		v, err := r.i32()
		if err != nil {
			return Key{}, err
		}
		k.Int = int64(v)
	default:
		return Key{}, fmt.Errorf("%w: %d", ErrUnsupportedKeyType, t)
	}
	return k, nil
}

// KeyData is the m_KeyDataString table.
type KeyData struct {
	Keys []Key
}

// ParseKeyData parses a decoded key table.
func ParseKeyData(data []byte) (*KeyData, error) {
	r := &reader{data: data}

	count, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("failed to read key count: %w", err)
	}

	// Every key takes at least 3 bytes
	if int64(count)*3 > int64(r.remaining()) {
		return nil, fmt.Errorf("key count %d exceeds table size: %w", count, io.ErrUnexpectedEOF)
	}

	kd := &KeyData{Keys: make([]Key, 0, count)}
	for i := uint32(0); i < count; i++ {
		k, err := readKey(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read key %d: %w", i, err)
		}
		kd.Keys = append(kd.Keys, k)
	}

	return kd, nil
}

// Bytes encodes the key table.
func (kd *KeyData) Bytes() ([]byte, error) {
	b := appendU32(nil, uint32(len(kd.Keys)))
	for i, k := range kd.Keys {
		var err error
		if b, err = k.appendTo(b); err != nil {
			return nil, fmt.Errorf("failed to write key %d: %w", i, err)
		}
	}
	return b, nil
}

// Offset returns the byte offset of key i inside the table.
func (kd *KeyData) Offset(i int) uint32 {
	off := uint32(tableCountSize)
	for _, k := range kd.Keys[:i] {
		off += k.Size()
	}
	return off
}

// UnmarshalText decodes the base64 form stored in catalog JSON.
func (kd *KeyData) UnmarshalText(text []byte) error {
	data, err := decodeBase64(text)
	if err != nil {
		return fmt.Errorf("failed to decode key data: %w", err)
	}
	parsed, err := ParseKeyData(data)
	if err != nil {
		return err
	}
	*kd = *parsed
	return nil
}

// MarshalText encodes the table to base64.
func (kd KeyData) MarshalText() ([]byte, error) {
	data, err := kd.Bytes()
	if err != nil {
		return nil, err
	}
	return encodeBase64(data), nil
}
