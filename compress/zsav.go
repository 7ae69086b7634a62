// Package compress implements the .zsav block-indexed Deflate container
// (§4.2): a zheader/ztrailer pair describing fixed-size blocks of raw
// Deflate data, inflated one block at a time into a plain byte stream
// that feeds the compression VM exactly like an uncompressed .sav file's
// bytes would.
//
// Grounded on the teacher's compress package (a pluggable Compressor/
// Decompressor codec per format.CompressionType) generalized from
// mebo's whole-payload codecs to a streaming, block-indexed one — .zsav
// can't decompress in one shot because the block index lives at the end
// of the file, discovered only after the data section begins.
package compress

import (
	"bytes"
	"io"
	"math"

	"github.com/klauspost/compress/flate"

	"github.com/sav2arrow/ambers/endian"
	"github.com/sav2arrow/ambers/errs"
	"github.com/sav2arrow/ambers/internal/pool"
)

// ZheaderSize and ztrailerHeaderSize are the fixed sizes, in bytes, of the
// zheader and the fixed portion of the ztrailer (§4.2).
const (
	ZheaderSize        = 24
	ztrailerHeaderSize = 24
	blockDescriptorSize = 24
)

// BlockDescriptor locates one Deflate block within the file and declares
// its compressed and uncompressed sizes (§4.2).
type BlockDescriptor struct {
	UncompressedOffset int64
	CompressedOffset   int64
	UncompressedSize    int32
	CompressedSize      int32
}

// ZsavStream is an io.ReadCloser over a .zsav data section: it reads the
// zheader/ztrailer once at construction, then serves Read calls by
// inflating one block at a time.
type ZsavStream struct {
	src    io.ReadSeeker
	eng    endian.EndianEngine
	blocks []BlockDescriptor
	bias   float64

	blockIdx int
	current  *pool.ByteBuffer
	pos      int
}

// NewZsavStream reads the zheader located at zheaderOffset (the byte
// position immediately following the dictionary's terminating record),
// follows it to the ztrailer, and validates the block index before
// returning a stream positioned to read block 0.
func NewZsavStream(src io.ReadSeeker, zheaderOffset int64, eng endian.EndianEngine) (*ZsavStream, error) {
	if _, err := src.Seek(zheaderOffset, io.SeekStart); err != nil {
		return nil, errs.Io("", err)
	}

	zheader := make([]byte, ZheaderSize)
	if _, err := io.ReadFull(src, zheader); err != nil {
		return nil, errs.Io("", err)
	}
	declaredZheaderOfs := int64(eng.Uint64(zheader[0:8]))
	ztrailerOfs := int64(eng.Uint64(zheader[8:16]))
	ztrailerLen := int64(eng.Uint64(zheader[16:24]))

	if declaredZheaderOfs != zheaderOffset {
		return nil, errs.CorruptStream("zsav: zheader self-offset mismatch")
	}

	if _, err := src.Seek(ztrailerOfs, io.SeekStart); err != nil {
		return nil, errs.Io("", err)
	}
	trailerHdr := make([]byte, ztrailerHeaderSize)
	if _, err := io.ReadFull(src, trailerHdr); err != nil {
		return nil, errs.Io("", err)
	}
	bias := math.Float64frombits(eng.Uint64(trailerHdr[0:8]))
	// trailerHdr[8:16] is a reserved/zero field, unused.
	blockSize := int32(eng.Uint32(trailerHdr[16:20]))
	nBlocks := int32(eng.Uint32(trailerHdr[20:24]))
	_ = blockSize

	if nBlocks < 0 {
		return nil, errs.CorruptStream("zsav: negative block count")
	}
	wantLen := int64(ztrailerHeaderSize) + int64(nBlocks)*blockDescriptorSize
	if ztrailerLen != wantLen {
		return nil, errs.CorruptStream("zsav: ztrailer length disagrees with declared block count")
	}

	descBytes := make([]byte, int64(nBlocks)*blockDescriptorSize)
	if _, err := io.ReadFull(src, descBytes); err != nil {
		return nil, errs.Io("", err)
	}

	blocks := make([]BlockDescriptor, nBlocks)
	for i := range blocks {
		base := i * blockDescriptorSize
		blocks[i] = BlockDescriptor{
			UncompressedOffset: int64(eng.Uint64(descBytes[base : base+8])),
			CompressedOffset:   int64(eng.Uint64(descBytes[base+8 : base+16])),
			UncompressedSize:   int32(eng.Uint32(descBytes[base+16 : base+20])),
			CompressedSize:     int32(eng.Uint32(descBytes[base+20 : base+24])),
		}
	}

	return &ZsavStream{src: src, eng: eng, blocks: blocks, bias: bias}, nil
}

// Bias is the compression bias read from the ztrailer. It is not compared
// against the header's bias field; the reader drives the VM with the
// header's value.
func (z *ZsavStream) Bias() float64 {
	return z.bias
}

// Read implements io.Reader, draining the currently decoded block and
// advancing to the next one as needed. ambers never holds more than one
// decoded block in memory: the previous block's buffer is released back
// to the pool before the next is decoded, satisfying the "at most two
// buffered" ceiling from below rather than by always pre-fetching.
func (z *ZsavStream) Read(p []byte) (int, error) {
	if z.current == nil || z.pos >= z.current.Len() {
		if err := z.advance(); err != nil {
			return 0, err
		}
	}

	n := copy(p, z.current.Bytes()[z.pos:])
	z.pos += n
	return n, nil
}

func (z *ZsavStream) advance() error {
	if z.current != nil {
		pool.PutZsavBlockBuffer(z.current)
		z.current = nil
	}

	if z.blockIdx >= len(z.blocks) {
		return io.EOF
	}
	desc := z.blocks[z.blockIdx]
	z.blockIdx++

	if _, err := z.src.Seek(desc.CompressedOffset, io.SeekStart); err != nil {
		return errs.Io("", err)
	}
	compressed := make([]byte, desc.CompressedSize)
	if _, err := io.ReadFull(z.src, compressed); err != nil {
		return errs.Io("", err)
	}

	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()

	buf := pool.GetZsavBlockBuffer()
	buf.SetLength(int(desc.UncompressedSize))
	if _, err := io.ReadFull(fr, buf.Bytes()); err != nil {
		pool.PutZsavBlockBuffer(buf)
		return errs.CorruptStream("zsav: block inflate failed or short")
	}

	z.current = buf
	z.pos = 0
	return nil
}

// Close releases the currently buffered block back to the pool. It does
// not close the underlying src.
func (z *ZsavStream) Close() error {
	if z.current != nil {
		pool.PutZsavBlockBuffer(z.current)
		z.current = nil
	}
	return nil
}
