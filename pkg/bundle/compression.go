package bundle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/sync/errgroup"
)

// Compression is the compression type stored in the low bits of header and
// block flags.
type Compression uint32

const (
	CompressionNone  Compression = 0
	CompressionLZMA  Compression = 1
	CompressionLZ4   Compression = 2
	CompressionLZ4HC Compression = 3

	compressionMask = 0x3F
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZMA:
		return "lzma"
	case CompressionLZ4:
		return "lz4"
	case CompressionLZ4HC:
		return "lz4hc"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(c))
	}
}

// ParseCompression parses a compression name as accepted on the command line.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "lz4hc":
		return CompressionLZ4HC, nil
	case "lzma":
		return CompressionLZMA, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCompression, name)
	}
}

// decompress inflates a block or blocks-info section to exactly size bytes.
func decompress(c Compression, src []byte, size int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(src) != size {
			return nil, fmt.Errorf("%w: stored %d bytes, expected %d", ErrCorruptBlock, len(src), size)
		}
		return append([]byte(nil), src...), nil

	case CompressionLZMA:
		return decompressLZMA(src, size)

	case CompressionLZ4, CompressionLZ4HC:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, fmt.Errorf("LZ4 decompression failed: %w", err)
		}
		if n != size {
			return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrCorruptBlock, n, size)
		}
		return dst, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, c)
	}
}

// decompressLZMA inflates a Unity LZMA block. Unity stores the 5-byte
// properties header without the 8-byte size that the classic .lzma
// header carries, so the size is spliced back in.
func decompressLZMA(src []byte, size int) ([]byte, error) {
	if len(src) < 5 {
		return nil, fmt.Errorf("LZMA block too short: %w", io.ErrUnexpectedEOF)
	}

	header := make([]byte, 13)
	copy(header, src[:5])
	binary.LittleEndian.PutUint64(header[5:], uint64(size))

	r, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header), bytes.NewReader(src[5:])))
	if err != nil {
		return nil, fmt.Errorf("LZMA decompression failed: %w", err)
	}

	dst := make([]byte, size)
	if _, err := io.ReadFull(r, dst); err != nil {
		return nil, fmt.Errorf("LZMA decompression failed: %w", err)
	}
	return dst, nil
}

// compress deflates src with c. Data that does not shrink is returned as is
// with CompressionNone.
func compress(c Compression, src []byte) ([]byte, Compression, error) {
	switch c {
	case CompressionNone:
		return src, CompressionNone, nil

	case CompressionLZ4, CompressionLZ4HC:
		dst := make([]byte, lz4.CompressBlockBound(len(src)))

		var n int
		var err error
		if c == CompressionLZ4HC {
			n, err = lz4.CompressBlockHC(src, dst, lz4.Level9, nil, nil)
		} else {
			n, err = lz4.CompressBlock(src, dst, nil)
		}
		if err != nil {
			return nil, 0, fmt.Errorf("LZ4 compression failed: %w", err)
		}
		if n == 0 || n >= len(src) {
			return src, CompressionNone, nil
		}
		return dst[:n], c, nil

	default:
		return nil, 0, fmt.Errorf("%w for writing: %s", ErrUnsupportedCompression, c)
	}
}

// encodedBlock is a compressed chunk of the bundle data stream.
type encodedBlock struct {
	info BlockInfo
	data []byte
}

// compressBlocks splits data in blockSize chunks and compresses them in
// parallel.
func compressBlocks(data []byte, c Compression, blockSize int) ([]encodedBlock, error) {
	count := (len(data) + blockSize - 1) / blockSize
	blocks := make([]encodedBlock, count)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range blocks {
		start := i * blockSize
		end := min(start+blockSize, len(data))
		chunk := data[start:end]

		g.Go(func() error {
			out, used, err := compress(c, chunk)
			if err != nil {
				return fmt.Errorf("block %d: %w", i, err)
			}
			blocks[i] = encodedBlock{
				info: BlockInfo{
					UncompressedSize: uint32(len(chunk)),
					CompressedSize:   uint32(len(out)),
					Flags:            uint16(used),
				},
				data: out,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}

// decompressBlocks inflates every block into one contiguous data stream.
func decompressBlocks(src []byte, blocks []BlockInfo) ([]byte, error) {
	var total, stored int64
	for _, b := range blocks {
		total += int64(b.UncompressedSize)
		stored += int64(b.CompressedSize)
	}
	if stored > int64(len(src)) {
		return nil, fmt.Errorf("blocks need %d bytes, %d available: %w", stored, len(src), io.ErrUnexpectedEOF)
	}

	out := make([]byte, total)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	var inPos, outPos int
	for i, b := range blocks {
		in := src[inPos : inPos+int(b.CompressedSize)]
		dst := out[outPos : outPos+int(b.UncompressedSize)]
		inPos += int(b.CompressedSize)
		outPos += int(b.UncompressedSize)

		g.Go(func() error {
			raw, err := decompress(b.Compression(), in, len(dst))
			if err != nil {
				return fmt.Errorf("block %d: %w", i, err)
			}
			copy(dst, raw)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
