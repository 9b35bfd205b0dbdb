// Package bundle reads and writes UnityFS AssetBundles and edits the
// TextAsset a catalog bundle carries.
package bundle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/catalogtool/internal/fsutil"
)

const (
	signature = "UnityFS"

	flagBlocksAndDirectoryCombined  = 0x40
	flagBlocksInfoAtEnd             = 0x80
	flagBlockInfoNeedPaddingAtStart = 0x200

	// NodeSerializedFile marks a directory node holding a SerializedFile.
	NodeSerializedFile = 0x4

	// DefaultBlockSize is the uncompressed size of each written data block.
	DefaultBlockSize = 128 << 10

	blocksInfoHashSize = 16
)

// Header is the fixed UnityFS header.
type Header struct {
	Signature                  string
	Version                    uint32
	UnityVersion               string
	UnityRevision              string
	Size                       int64
	CompressedBlocksInfoSize   uint32
	UncompressedBlocksInfoSize uint32
	Flags                      uint32
}

// Compression returns the compression of the blocks info section.
func (h *Header) Compression() Compression {
	return Compression(h.Flags & compressionMask)
}

// BlockInfo describes one storage block of the data stream.
type BlockInfo struct {
	UncompressedSize uint32
	CompressedSize   uint32
	Flags            uint16
}

// Compression returns the compression of the block.
func (b BlockInfo) Compression() Compression {
	return Compression(b.Flags & compressionMask)
}

// Node is a file stored in the bundle.
type Node struct {
	Path  string
	Flags uint32
	Data  []byte
}

// IsSerializedFile reports whether the node is flagged as a SerializedFile.
func (n *Node) IsSerializedFile() bool {
	return n.Flags&NodeSerializedFile != 0
}

// Bundle is a decoded UnityFS archive with its files fully decompressed.
type Bundle struct {
	Header Header
	Blocks []BlockInfo
	Nodes  []Node
}

// WriteOptions controls how a bundle is written.
type WriteOptions struct {
	Compression Compression
	BlockSize   int
}

// IsBundle reports whether data starts with the UnityFS signature.
func IsBundle(data []byte) bool {
	return bytes.HasPrefix(data, []byte(signature+"\x00"))
}

// Load reads a bundle from disk.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	return Read(data)
}

// Read decodes a UnityFS archive.
func Read(data []byte) (*Bundle, error) {
	if !IsBundle(data) {
		return nil, ErrInvalidSignature
	}

	s := newStream(data, binary.BigEndian)
	b := &Bundle{}
	h := &b.Header

	var err error
	if h.Signature, err = s.cstring(); err != nil {
		return nil, fmt.Errorf("failed to read signature: %w", err)
	}
	if h.Version, err = s.u32(); err != nil {
		return nil, err
	}
	if h.Version < 6 || h.Version > 8 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.UnityVersion, err = s.cstring(); err != nil {
		return nil, err
	}
	if h.UnityRevision, err = s.cstring(); err != nil {
		return nil, err
	}
	if h.Size, err = s.i64(); err != nil {
		return nil, err
	}
	if h.CompressedBlocksInfoSize, err = s.u32(); err != nil {
		return nil, err
	}
	if h.UncompressedBlocksInfoSize, err = s.u32(); err != nil {
		return nil, err
	}
	if h.Flags, err = s.u32(); err != nil {
		return nil, err
	}

	if h.Version >= 7 {
		if err := s.align(16); err != nil {
			return nil, err
		}
	}

	var raw []byte
	dataEnd := len(data)
	if h.Flags&flagBlocksInfoAtEnd != 0 {
		start := len(data) - int(h.CompressedBlocksInfoSize)
		if start < s.pos {
			return nil, fmt.Errorf("blocks info at end overlaps header: %w", io.ErrUnexpectedEOF)
		}
		raw = data[start:]
		dataEnd = start
	} else {
		if raw, err = s.bytes(int(h.CompressedBlocksInfoSize)); err != nil {
			return nil, fmt.Errorf("failed to read blocks info: %w", err)
		}
	}

	info, err := decompress(h.Compression(), raw, int(h.UncompressedBlocksInfoSize))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress blocks info: %w", err)
	}

	if h.Flags&flagBlockInfoNeedPaddingAtStart != 0 {
		if err := s.align(16); err != nil {
			return nil, err
		}
	}
	if s.pos > dataEnd {
		return nil, fmt.Errorf("data blocks start past the end: %w", io.ErrUnexpectedEOF)
	}

	nodes, err := b.readBlocksInfo(info)
	if err != nil {
		return nil, fmt.Errorf("failed to parse blocks info: %w", err)
	}

	payload, err := decompressBlocks(data[s.pos:dataEnd], b.Blocks)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress data: %w", err)
	}

	for _, n := range nodes {
		if n.offset < 0 || n.size < 0 || n.offset+n.size > int64(len(payload)) {
			return nil, fmt.Errorf("node %s exceeds data stream: %w", n.Path, io.ErrUnexpectedEOF)
		}
		n.Data = payload[n.offset : n.offset+n.size]
		b.Nodes = append(b.Nodes, n.Node)
	}

	return b, nil
}

type nodeEntry struct {
	Node
	offset int64
	size   int64
}

func (b *Bundle) readBlocksInfo(info []byte) ([]nodeEntry, error) {
	s := newStream(info, binary.BigEndian)
	if err := s.skip(blocksInfoHashSize); err != nil {
		return nil, err
	}

	count, err := s.i32()
	if err != nil {
		return nil, err
	}
	if count < 0 || int(count)*10 > len(info)-s.pos {
		return nil, fmt.Errorf("invalid block count %d", count)
	}

	b.Blocks = make([]BlockInfo, count)
	for i := range b.Blocks {
		blk := &b.Blocks[i]
		if blk.UncompressedSize, err = s.u32(); err != nil {
			return nil, err
		}
		if blk.CompressedSize, err = s.u32(); err != nil {
			return nil, err
		}
		if blk.Flags, err = s.u16(); err != nil {
			return nil, err
		}
	}

	count, err = s.i32()
	if err != nil {
		return nil, err
	}
	if count < 0 || int(count)*21 > len(info)-s.pos {
		return nil, fmt.Errorf("invalid node count %d", count)
	}

	nodes := make([]nodeEntry, count)
	for i := range nodes {
		n := &nodes[i]
		if n.offset, err = s.i64(); err != nil {
			return nil, err
		}
		if n.size, err = s.i64(); err != nil {
			return nil, err
		}
		if n.Flags, err = s.u32(); err != nil {
			return nil, err
		}
		if n.Path, err = s.cstring(); err != nil {
			return nil, err
		}
	}

	return nodes, nil
}

// Bytes encodes the bundle. The blocks info is always stored right after
// the header and the data stream is split in opts.BlockSize chunks.
func (b *Bundle) Bytes(opts WriteOptions) ([]byte, error) {
	blockSize := opts.BlockSize
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	var payload []byte
	for _, n := range b.Nodes {
		payload = append(payload, n.Data...)
	}

	blocks, err := compressBlocks(payload, opts.Compression, blockSize)
	if err != nil {
		return nil, err
	}

	info := make([]byte, blocksInfoHashSize)
	info = binary.BigEndian.AppendUint32(info, uint32(len(blocks)))
	for _, blk := range blocks {
		info = binary.BigEndian.AppendUint32(info, blk.info.UncompressedSize)
		info = binary.BigEndian.AppendUint32(info, blk.info.CompressedSize)
		info = binary.BigEndian.AppendUint16(info, blk.info.Flags)
	}
	info = binary.BigEndian.AppendUint32(info, uint32(len(b.Nodes)))
	var offset int64
	for _, n := range b.Nodes {
		info = binary.BigEndian.AppendUint64(info, uint64(offset))
		info = binary.BigEndian.AppendUint64(info, uint64(len(n.Data)))
		info = binary.BigEndian.AppendUint32(info, n.Flags)
		info = append(info, n.Path...)
		info = append(info, 0)
		offset += int64(len(n.Data))
	}

	packedInfo, infoCompression, err := compress(opts.Compression, info)
	if err != nil {
		return nil, fmt.Errorf("failed to compress blocks info: %w", err)
	}

	h := b.Header
	if h.Signature == "" {
		h.Signature = signature
	}
	h.CompressedBlocksInfoSize = uint32(len(packedInfo))
	h.UncompressedBlocksInfoSize = uint32(len(info))
	h.Flags = h.Flags&^(compressionMask|flagBlocksInfoAtEnd) |
		flagBlocksAndDirectoryCombined | uint32(infoCompression)

	out := append([]byte(h.Signature), 0)
	out = binary.BigEndian.AppendUint32(out, h.Version)
	out = append(out, h.UnityVersion...)
	out = append(out, 0)
	out = append(out, h.UnityRevision...)
	out = append(out, 0)
	sizePos := len(out)
	out = binary.BigEndian.AppendUint64(out, 0)
	out = binary.BigEndian.AppendUint32(out, h.CompressedBlocksInfoSize)
	out = binary.BigEndian.AppendUint32(out, h.UncompressedBlocksInfoSize)
	out = binary.BigEndian.AppendUint32(out, h.Flags)
	if h.Version >= 7 {
		out = padTo(out, 16)
	}

	out = append(out, packedInfo...)
	if h.Flags&flagBlockInfoNeedPaddingAtStart != 0 {
		out = padTo(out, 16)
	}
	for _, blk := range blocks {
		out = append(out, blk.data...)
	}

	binary.BigEndian.PutUint64(out[sizePos:], uint64(len(out)))
	return out, nil
}

// Write encodes the bundle to w.
func (b *Bundle) Write(w io.Writer, opts WriteOptions) error {
	data, err := b.Bytes(opts)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Save atomically writes the bundle to path.
func (b *Bundle) Save(path string, opts WriteOptions) error {
	return fsutil.WriteFile(path, func(w io.Writer) error {
		return b.Write(w, opts)
	})
}
