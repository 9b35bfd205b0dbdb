package lookup

import (
	"fmt"
	"math"
)

// ExtraValue is a serialized object attached to an entry, usually the
// AssetBundleRequestOptions of a bundle.
//
//	key type   u8 (7 = JsonObject)
//	asm length u8, assembly name
//	cls length u8, class name
//	json len   i32, json bytes (UTF-16LE in Unity builds)
type ExtraValue struct {
	KeyType      uint8
	AssemblyName string
	ClassName    string
	JSON         []byte
}

// Size returns the encoded size of the value.
func (v ExtraValue) Size() uint32 {
	return uint32(1 + 1 + len(v.AssemblyName) + 1 + len(v.ClassName) + 4 + len(v.JSON))
}

// Text returns the JSON payload as a string, decoding UTF-16LE when the
// payload looks like it.
func (v ExtraValue) Text() string {
	if len(v.JSON) >= 2 && len(v.JSON)%2 == 0 && v.JSON[1] == 0 {
		return DecodeUTF16LE(v.JSON)
	}
	return string(v.JSON)
}

// Clone returns a deep copy of the value.
func (v ExtraValue) Clone() ExtraValue {
	c := v
	c.JSON = append([]byte(nil), v.JSON...)
	return c
}

func (v ExtraValue) appendTo(b []byte) ([]byte, error) {
	if len(v.AssemblyName) > math.MaxUint8 || len(v.ClassName) > math.MaxUint8 {
		return nil, ErrStringTooLong
	}
	if uint64(len(v.JSON)) > math.MaxInt32 {
		return nil, ErrStringTooLong
	}
	b = append(b, v.KeyType, uint8(len(v.AssemblyName)))
	b = append(b, v.AssemblyName...)
	b = append(b, uint8(len(v.ClassName)))
	b = append(b, v.ClassName...)
	b = appendU32(b, uint32(len(v.JSON)))
	b = append(b, v.JSON...)
	return b, nil
}

// ExtraData is the m_ExtraDataString table. It has no count prefix: values
// follow each other until the end of the table.
type ExtraData struct {
	Values []ExtraValue
}

// ParseExtraData parses a decoded extra data table.
func ParseExtraData(data []byte) (*ExtraData, error) {
	r := &reader{data: data}
	xd := &ExtraData{}

	for r.remaining() > 0 {
		offset := r.pos
		v, err := readExtraValue(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read extra data at offset %d: %w", offset, err)
		}
		xd.Values = append(xd.Values, v)
	}

	return xd, nil
}

func readExtraValue(r *reader) (ExtraValue, error) {
	var v ExtraValue

	keyType, err := r.u8()
	if err != nil {
		return v, err
	}
	v.KeyType = keyType

	asmLen, err := r.u8()
	if err != nil {
		return v, err
	}
	asm, err := r.bytes(int(asmLen))
	if err != nil {
		return v, err
	}
	v.AssemblyName = string(asm)

	clsLen, err := r.u8()
	if err != nil {
		return v, err
	}
	cls, err := r.bytes(int(clsLen))
	if err != nil {
		return v, err
	}
	v.ClassName = string(cls)

	jsonLen, err := r.i32()
	if err != nil {
		return v, err
	}
	if v.JSON, err = r.bytes(int(jsonLen)); err != nil {
		return v, err
	}

	return v, nil
}

// Bytes encodes the extra data table.
func (xd *ExtraData) Bytes() ([]byte, error) {
	var b []byte
	for i, v := range xd.Values {
		var err error
		if b, err = v.appendTo(b); err != nil {
			return nil, fmt.Errorf("failed to write extra value %d: %w", i, err)
		}
	}
	return b, nil
}

// Size returns the encoded size of the table.
func (xd *ExtraData) Size() uint32 {
	var n uint32
	for _, v := range xd.Values {
		n += v.Size()
	}
	return n
}

// At returns the value stored at the given byte offset.
func (xd *ExtraData) At(offset ExtraID) (*ExtraValue, bool) {
	if !offset.Valid() {
		return nil, false
	}
	var pos uint32
	for i := range xd.Values {
		if pos == uint32(offset) {
			return &xd.Values[i], true
		}
		if pos > uint32(offset) {
			break
		}
		pos += xd.Values[i].Size()
	}
	return nil, false
}

// UnmarshalText decodes the base64 form stored in catalog JSON.
func (xd *ExtraData) UnmarshalText(text []byte) error {
	data, err := decodeBase64(text)
	if err != nil {
		return fmt.Errorf("failed to decode extra data: %w", err)
	}
	parsed, err := ParseExtraData(data)
	if err != nil {
		return err
	}
	*xd = *parsed
	return nil
}

// MarshalText encodes the table to base64.
func (xd ExtraData) MarshalText() ([]byte, error) {
	data, err := xd.Bytes()
	if err != nil {
		return nil, err
	}
	return encodeBase64(data), nil
}
