package bundle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// stream reads fixed-width values from an in-memory buffer with a
// selectable byte order. Unity headers are big-endian while most object
// data is little-endian.
type stream struct {
	data  []byte
	pos   int
	order byteOrder
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func newStream(data []byte, order byteOrder) *stream {
	return &stream{data: data, order: order}
}

func (s *stream) remaining() int {
	return len(s.data) - s.pos
}

func (s *stream) need(n int) error {
	if n < 0 || s.pos+n > len(s.data) {
		return fmt.Errorf("need %d bytes at offset 0x%X: %w", n, s.pos, io.ErrUnexpectedEOF)
	}
	return nil
}

func (s *stream) u8() (uint8, error) {
	if err := s.need(1); err != nil {
		return 0, err
	}
	v := s.data[s.pos]
	s.pos++
	return v, nil
}

func (s *stream) u16() (uint16, error) {
	if err := s.need(2); err != nil {
		return 0, err
	}
	v := s.order.Uint16(s.data[s.pos:])
	s.pos += 2
	return v, nil
}

func (s *stream) u32() (uint32, error) {
	if err := s.need(4); err != nil {
		return 0, err
	}
	v := s.order.Uint32(s.data[s.pos:])
	s.pos += 4
	return v, nil
}

func (s *stream) i32() (int32, error) {
	v, err := s.u32()
	return int32(v), err
}

func (s *stream) u64() (uint64, error) {
	if err := s.need(8); err != nil {
		return 0, err
	}
	v := s.order.Uint64(s.data[s.pos:])
	s.pos += 8
	return v, nil
}

func (s *stream) i64() (int64, error) {
	v, err := s.u64()
	return int64(v), err
}

// bytes returns a copy of the next n bytes.
func (s *stream) bytes(n int) ([]byte, error) {
	if err := s.need(n); err != nil {
		return nil, err
	}
	v := make([]byte, n)
	copy(v, s.data[s.pos:])
	s.pos += n
	return v, nil
}

func (s *stream) skip(n int) error {
	if err := s.need(n); err != nil {
		return err
	}
	s.pos += n
	return nil
}

// cstring reads a null-terminated string.
func (s *stream) cstring() (string, error) {
	end := bytes.IndexByte(s.data[s.pos:], 0)
	if end < 0 {
		return "", fmt.Errorf("unterminated string at offset 0x%X: %w", s.pos, io.ErrUnexpectedEOF)
	}
	v := string(s.data[s.pos : s.pos+end])
	s.pos += end + 1
	return v, nil
}

// align moves to the next multiple of n from the start of the buffer.
func (s *stream) align(n int) error {
	if pad := (n - s.pos%n) % n; pad > 0 {
		return s.skip(pad)
	}
	return nil
}

// alignedString reads a length-prefixed string padded to 4 bytes, the
// encoding Unity uses for string fields of serialized objects.
func (s *stream) alignedString() ([]byte, error) {
	n, err := s.i32()
	if err != nil {
		return nil, err
	}
	v, err := s.bytes(int(n))
	if err != nil {
		return nil, err
	}
	if err := s.align(4); err != nil {
		return nil, err
	}
	return v, nil
}

// appendAlignedString writes a length-prefixed string and pads it to 4 bytes.
func appendAlignedString(b []byte, order byteOrder, v []byte) []byte {
	b = order.AppendUint32(b, uint32(len(v)))
	b = append(b, v...)
	return padTo(b, 4)
}

// padTo appends zeros until len(b) is a multiple of n.
func padTo(b []byte, n int) []byte {
	for len(b)%n != 0 {
		b = append(b, 0)
	}
	return b
}
