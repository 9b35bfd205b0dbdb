package lookup

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func le32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestParseKeyData(t *testing.T) {
	raw := concat(
		le32(3),
		[]byte{0}, le32(5), []byte("a.bnd"),
		[]byte{4}, le32(0xFFFFFFFE),
		[]byte{1}, le32(4), []byte{'h', 0, 'i', 0},
	)

	kd, err := ParseKeyData(raw)
	require.NoError(t, err)
	require.Len(t, kd.Keys, 3)

	assert.Equal(t, StringKey("a.bnd"), kd.Keys[0])
	hash, ok := kd.Keys[1].Hash()
	assert.True(t, ok)
	assert.Equal(t, int32(-2), hash)
	assert.Equal(t, "hi", kd.Keys[2].Str)
	assert.True(t, kd.Keys[2].IsString())

	assert.Equal(t, uint32(4), kd.Offset(0))
	assert.Equal(t, uint32(4+10), kd.Offset(1))
	assert.Equal(t, uint32(4+10+5), kd.Offset(2))

	out, err := kd.Bytes()
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestUnicodeKeysKeepTheirBytes(t *testing.T) {
	raw := concat(
		le32(3),
		[]byte{1}, le32(2), []byte{0x00, 0xD8},
		[]byte{1}, le32(3), []byte{'h', 0, 'i'},
		[]byte{4}, le32(7),
	)

	kd, err := ParseKeyData(raw)
	require.NoError(t, err)
	require.Len(t, kd.Keys, 3)

	assert.Equal(t, uint32(4), kd.Offset(0))
	assert.Equal(t, uint32(4+7), kd.Offset(1))
	assert.Equal(t, uint32(4+7+8), kd.Offset(2))
	assert.Equal(t, "h", kd.Keys[1].Str)

	out, err := kd.Bytes()
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestUnicodeKeyWithoutRaw(t *testing.T) {
	k := Key{Type: KeyUnicodeString, Str: "hi"}
	assert.Equal(t, uint32(9), k.Size())

	kd := KeyData{Keys: []Key{k}}
	out, err := kd.Bytes()
	require.NoError(t, err)
	assert.Equal(t, concat(le32(1), []byte{1}, le32(4), []byte{'h', 0, 'i', 0}), out)
}

func TestParseKeyDataErrors(t *testing.T) {
	_, err := ParseKeyData([]byte{1, 0})
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	_, err = ParseKeyData(concat(le32(1), []byte{0}, le32(100), []byte("abc")))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	_, err = ParseKeyData(concat(le32(1), []byte{5}, make([]byte, 16)))
	assert.True(t, errors.Is(err, ErrUnsupportedKeyType))
}

func TestBucketDataRoundTrip(t *testing.T) {
	raw := concat(
		le32(2),
		le32(4), le32(1), le32(0),
		le32(14), le32(2), le32(0), le32(1),
	)

	bd, err := ParseBucketData(raw)
	require.NoError(t, err)

	want := []Bucket{
		{KeyOffset: 4, Entries: []EntryID{0}},
		{KeyOffset: 14, Entries: []EntryID{0, 1}},
	}
	if diff := cmp.Diff(want, bd.Buckets); diff != "" {
		t.Fatalf("buckets mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, raw, bd.Bytes())

	_, err = ParseBucketData(concat(le32(1), le32(4), le32(3), le32(0)))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestEntryDataRoundTrip(t *testing.T) {
	raw := concat(
		le32(1),
		le32(7), le32(2), le32(3), le32(0x12345678), le32(0xFFFFFFFF), le32(1), le32(4),
	)

	ed, err := ParseEntryData(raw)
	require.NoError(t, err)
	require.Len(t, ed.Entries, 1)

	assert.Equal(t, Entry{
		InternalID:     7,
		ProviderIndex:  2,
		DependencyKey:  3,
		DependencyHash: 0x12345678,
		DataIndex:      NoExtra,
		PrimaryKey:     1,
		ResourceType:   4,
	}, ed.Entries[0])
	assert.Equal(t, raw, ed.Bytes())

	_, err = ParseEntryData(concat(le32(2), make([]byte, EntrySize)))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestExtraData(t *testing.T) {
	json := EncodeUTF16LE(`{"m_Crc":0}`)
	value := concat(
		[]byte{7, 3}, []byte("Asm"),
		[]byte{5}, []byte("Class"),
		le32(uint32(len(json))), json,
	)
	raw := concat(value, value)

	xd, err := ParseExtraData(raw)
	require.NoError(t, err)
	require.Len(t, xd.Values, 2)

	v := xd.Values[0]
	assert.Equal(t, uint8(7), v.KeyType)
	assert.Equal(t, "Asm", v.AssemblyName)
	assert.Equal(t, "Class", v.ClassName)
	assert.Equal(t, `{"m_Crc":0}`, v.Text())
	assert.Equal(t, uint32(len(value)), v.Size())
	assert.Equal(t, uint32(len(raw)), xd.Size())

	second, ok := xd.At(ExtraID(len(value)))
	require.True(t, ok)
	assert.Equal(t, "Class", second.ClassName)

	_, ok = xd.At(ExtraID(1))
	assert.False(t, ok)
	_, ok = xd.At(NoExtra)
	assert.False(t, ok)

	out, err := xd.Bytes()
	require.NoError(t, err)
	assert.Equal(t, raw, out)

	_, err = ParseExtraData(raw[:len(raw)-1])
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestExtraValueClone(t *testing.T) {
	v := ExtraValue{KeyType: 7, JSON: []byte("abc")}
	c := v.Clone()
	c.JSON[0] = 'x'
	assert.Equal(t, "abc", string(v.JSON))
}

func TestTextMarshalling(t *testing.T) {
	kd := KeyData{Keys: []Key{StringKey("x"), HashKey(42)}}

	text, err := kd.MarshalText()
	require.NoError(t, err)

	var decoded KeyData
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, kd, decoded)

	var bad KeyData
	assert.Error(t, bad.UnmarshalText([]byte("not base64!")))
}

func TestUTF16(t *testing.T) {
	for _, s := range []string{"", "plain", "ユニティ", "emoji 🎮"} {
		assert.Equal(t, s, DecodeUTF16LE(EncodeUTF16LE(s)))
	}
}
