package bundle

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	classMonoBehaviour = 114

	// ClassTextAsset is the Unity class id of TextAsset.
	ClassTextAsset = 49

	minSerializedVersion = 9
	maxSerializedVersion = 22

	objectAlignment = 8
)

// SerializedType is an entry of the type table. Only the class id is kept.
type SerializedType struct {
	ClassID int32
}

// Object locates one object inside the data section of a SerializedFile.
type Object struct {
	PathID    int64
	ByteStart int64
	ByteSize  uint32
	TypeID    int32
	ClassID   int32

	startPos int
	sizePos  int
}

// SerializedFile is a parsed SerializedFile. Metadata is only read far
// enough to locate objects; every other byte is kept verbatim so that
// objects can be replaced in place.
type SerializedFile struct {
	Version        uint32
	MetadataSize   uint32
	FileSize       int64
	DataOffset     int64
	BigEndian      bool
	UnityVersion   string
	TargetPlatform int32
	Types          []SerializedType
	Objects        []Object

	order byteOrder
	data  []byte
}

// ParseSerializedFile decodes the header and object table of a
// SerializedFile.
func ParseSerializedFile(data []byte) (*SerializedFile, error) {
	f := &SerializedFile{data: data}
	if err := f.readHeader(); err != nil {
		return nil, fmt.Errorf("failed to read serialized file header: %w", err)
	}
	if err := f.readMetadata(); err != nil {
		return nil, fmt.Errorf("failed to read serialized file metadata: %w", err)
	}
	return f, nil
}

func (f *SerializedFile) readHeader() error {
	s := newStream(f.data, binary.BigEndian)

	metadataSize, err := s.u32()
	if err != nil {
		return err
	}
	fileSize, err := s.u32()
	if err != nil {
		return err
	}
	if f.Version, err = s.u32(); err != nil {
		return err
	}
	dataOffset, err := s.u32()
	if err != nil {
		return err
	}
	if f.Version < minSerializedVersion || f.Version > maxSerializedVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedSerialized, f.Version)
	}

	endian, err := s.u8()
	if err != nil {
		return err
	}
	if err := s.skip(3); err != nil {
		return err
	}

	f.MetadataSize = metadataSize
	f.FileSize = int64(fileSize)
	f.DataOffset = int64(dataOffset)

	if f.Version >= 22 {
		if f.MetadataSize, err = s.u32(); err != nil {
			return err
		}
		if f.FileSize, err = s.i64(); err != nil {
			return err
		}
		if f.DataOffset, err = s.i64(); err != nil {
			return err
		}
		if err := s.skip(8); err != nil {
			return err
		}
	}

	if f.DataOffset < int64(s.pos) || f.DataOffset > int64(len(f.data)) {
		return fmt.Errorf("data offset 0x%X out of range", f.DataOffset)
	}

	f.BigEndian = endian != 0
	if f.BigEndian {
		f.order = binary.BigEndian
	} else {
		f.order = binary.LittleEndian
	}

	return nil
}

// headerSize is where the metadata starts.
func (f *SerializedFile) headerSize() int {
	if f.Version >= 22 {
		return 48
	}
	return 20
}

func (f *SerializedFile) readMetadata() error {
	s := newStream(f.data, f.order)
	s.pos = f.headerSize()
	v := f.Version

	var err error
	if f.UnityVersion, err = s.cstring(); err != nil {
		return err
	}
	if f.TargetPlatform, err = s.i32(); err != nil {
		return err
	}

	enableTypeTree := true
	if v >= 13 {
		flag, err := s.u8()
		if err != nil {
			return err
		}
		enableTypeTree = flag != 0
	}

	typeCount, err := s.i32()
	if err != nil {
		return err
	}
	if typeCount < 0 || int(typeCount) > s.remaining() {
		return fmt.Errorf("invalid type count %d", typeCount)
	}
	f.Types = make([]SerializedType, typeCount)
	for i := range f.Types {
		if err := f.readType(s, &f.Types[i], enableTypeTree, false); err != nil {
			return fmt.Errorf("type %d: %w", i, err)
		}
	}

	bigIDEnabled := false
	if v < 14 {
		flag, err := s.i32()
		if err != nil {
			return err
		}
		bigIDEnabled = flag != 0
	}

	objectCount, err := s.i32()
	if err != nil {
		return err
	}
	if objectCount < 0 || int(objectCount) > s.remaining() {
		return fmt.Errorf("invalid object count %d", objectCount)
	}
	f.Objects = make([]Object, objectCount)
	for i := range f.Objects {
		if err := f.readObject(s, &f.Objects[i], bigIDEnabled); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
	}

	return nil
}

func (f *SerializedFile) readType(s *stream, t *SerializedType, enableTypeTree, isRef bool) error {
	v := f.Version

	var err error
	if t.ClassID, err = s.i32(); err != nil {
		return err
	}
	if v >= 16 {
		if _, err := s.u8(); err != nil {
			return err
		}
	}
	scriptTypeIndex := int16(-1)
	if v >= 17 {
		idx, err := s.u16()
		if err != nil {
			return err
		}
		scriptTypeIndex = int16(idx)
	}
	if v >= 13 {
		hasScriptID := (isRef && scriptTypeIndex >= 0) ||
			(v < 16 && t.ClassID < 0) ||
			(v >= 16 && t.ClassID == classMonoBehaviour)
		if hasScriptID {
			if err := s.skip(16); err != nil {
				return err
			}
		}
		if err := s.skip(16); err != nil {
			return err
		}
	}

	if !enableTypeTree {
		return nil
	}

	if v < 12 && v != 10 {
		return fmt.Errorf("%w: legacy type trees (version %d)", ErrUnsupportedSerialized, v)
	}

	nodeCount, err := s.i32()
	if err != nil {
		return err
	}
	stringSize, err := s.i32()
	if err != nil {
		return err
	}
	nodeSize := 24
	if v >= 19 {
		nodeSize = 32
	}
	if nodeCount < 0 || stringSize < 0 {
		return fmt.Errorf("invalid type tree size %d/%d", nodeCount, stringSize)
	}
	if err := s.skip(int(nodeCount)*nodeSize + int(stringSize)); err != nil {
		return err
	}

	if v >= 21 {
		if isRef {
			for range 3 {
				if _, err := s.cstring(); err != nil {
					return err
				}
			}
		} else {
			deps, err := s.i32()
			if err != nil {
				return err
			}
			if deps < 0 {
				return fmt.Errorf("invalid type dependency count %d", deps)
			}
			if err := s.skip(int(deps) * 4); err != nil {
				return err
			}
		}
	}

	return nil
}

func (f *SerializedFile) readObject(s *stream, o *Object, bigIDEnabled bool) error {
	v := f.Version

	var err error
	switch {
	case bigIDEnabled:
		o.PathID, err = s.i64()
	case v < 14:
		var id int32
		id, err = s.i32()
		o.PathID = int64(id)
	default:
		if err = s.align(4); err == nil {
			o.PathID, err = s.i64()
		}
	}
	if err != nil {
		return err
	}

	o.startPos = s.pos
	if v >= 22 {
		o.ByteStart, err = s.i64()
	} else {
		var start uint32
		start, err = s.u32()
		o.ByteStart = int64(start)
	}
	if err != nil {
		return err
	}

	o.sizePos = s.pos
	if o.ByteSize, err = s.u32(); err != nil {
		return err
	}
	if o.TypeID, err = s.i32(); err != nil {
		return err
	}

	if v < 16 {
		classID, err := s.u16()
		if err != nil {
			return err
		}
		o.ClassID = int32(classID)
	} else {
		if o.TypeID < 0 || int(o.TypeID) >= len(f.Types) {
			return fmt.Errorf("type index %d out of range", o.TypeID)
		}
		o.ClassID = f.Types[o.TypeID].ClassID
	}

	if v < 11 {
		if err := s.skip(2); err != nil {
			return err
		}
	}
	if v >= 11 && v < 17 {
		if err := s.skip(2); err != nil {
			return err
		}
	}
	if v == 15 || v == 16 {
		if err := s.skip(1); err != nil {
			return err
		}
	}

	end := f.DataOffset + o.ByteStart + int64(o.ByteSize)
	if o.ByteStart < 0 || end > int64(len(f.data)) {
		return fmt.Errorf("object data exceeds file: %w", io.ErrUnexpectedEOF)
	}

	return nil
}

// Bytes returns the encoded file.
func (f *SerializedFile) Bytes() []byte {
	return f.data
}

// ObjectData returns the raw bytes of object i.
func (f *SerializedFile) ObjectData(i int) []byte {
	o := &f.Objects[i]
	start := f.DataOffset + o.ByteStart
	return f.data[start : start+int64(o.ByteSize)]
}

// FindObject returns the index of the first object of the given class.
func (f *SerializedFile) FindObject(classID int32) (int, bool) {
	for i, o := range f.Objects {
		if o.ClassID == classID {
			return i, true
		}
	}
	return -1, false
}

// ReplaceObject swaps the data of object i for payload. Objects stored
// after it move so that each one still starts on an 8 byte boundary of the
// data section, and every affected offset and size is patched.
func (f *SerializedFile) ReplaceObject(i int, payload []byte) error {
	if i < 0 || i >= len(f.Objects) {
		return fmt.Errorf("object index %d out of range", i)
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("object data too large: %d bytes", len(payload))
	}

	obj := &f.Objects[i]
	start := int(f.DataOffset + obj.ByteStart)
	end := start + int(obj.ByteSize)

	// The next object in file order, not table order.
	next := -1
	for j := range f.Objects {
		o := &f.Objects[j]
		if o.ByteStart > obj.ByteStart && (next < 0 || o.ByteStart < f.Objects[next].ByteStart) {
			next = j
		}
	}

	out := make([]byte, 0, len(f.data)-int(obj.ByteSize)+len(payload)+objectAlignment)
	out = append(out, f.data[:start]...)
	out = append(out, payload...)

	var delta int64
	if next >= 0 {
		for (int64(len(out))-f.DataOffset)%objectAlignment != 0 {
			out = append(out, 0)
		}
		nextStart := f.DataOffset + f.Objects[next].ByteStart
		delta = int64(len(out)) - nextStart
		out = append(out, f.data[nextStart:]...)
	} else if end < len(f.data) {
		out = append(out, f.data[end:]...)
	}

	if f.Version < 22 {
		if uint64(len(out)) > math.MaxUint32 {
			return fmt.Errorf("serialized file too large: %d bytes", len(out))
		}
	}

	for j := range f.Objects {
		o := &f.Objects[j]
		if delta == 0 || o.ByteStart <= obj.ByteStart {
			continue
		}
		o.ByteStart += delta
		f.putOffset(out, o)
	}

	obj.ByteSize = uint32(len(payload))
	f.order.PutUint32(out[obj.sizePos:], obj.ByteSize)

	f.FileSize = int64(len(out))
	if f.Version >= 22 {
		binary.BigEndian.PutUint64(out[24:], uint64(f.FileSize))
	} else {
		binary.BigEndian.PutUint32(out[4:], uint32(f.FileSize))
	}

	f.data = out
	return nil
}

func (f *SerializedFile) putOffset(b []byte, o *Object) {
	if f.Version >= 22 {
		f.order.PutUint64(b[o.startPos:], uint64(o.ByteStart))
		return
	}
	f.order.PutUint32(b[o.startPos:], uint32(o.ByteStart))
}
