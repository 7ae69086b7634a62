package compress

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/require"

	"github.com/sav2arrow/ambers/endian"
)

// deflateRaw compresses data with klauspost/compress/flate at the default
// level, matching the raw-Deflate-per-block shape real .zsav writers
// produce (no zlib wrapper).
func deflateRaw(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func buildZsavFixture(t *testing.T, eng endian.EndianEngine, blocks [][]byte, bias float64) (*bytes.Reader, int64) {
	t.Helper()
	var file bytes.Buffer

	// Leading "dictionary" filler so the zheader isn't at offset 0.
	file.WriteString("DICTIONARYBYTES-")
	zheaderOffset := int64(file.Len())

	// Reserve space for the zheader; patch it in after we know the
	// ztrailer offset.
	zheaderPos := file.Len()
	file.Write(make([]byte, ZheaderSize))

	var descriptors []BlockDescriptor
	for _, block := range blocks {
		compressed := deflateRaw(t, block)
		desc := BlockDescriptor{
			CompressedOffset:   int64(file.Len()),
			CompressedSize:     int32(len(compressed)),
			UncompressedOffset: 0,
			UncompressedSize:   int32(len(block)),
		}
		file.Write(compressed)
		descriptors = append(descriptors, desc)
	}

	ztrailerOffset := int64(file.Len())
	trailerHdr := make([]byte, ztrailerHeaderSize)
	eng.PutUint64(trailerHdr[0:8], math.Float64bits(bias))
	eng.PutUint32(trailerHdr[16:20], 1024)
	eng.PutUint32(trailerHdr[20:24], uint32(len(descriptors)))
	file.Write(trailerHdr)

	for _, d := range descriptors {
		db := make([]byte, blockDescriptorSize)
		eng.PutUint64(db[0:8], uint64(d.UncompressedOffset))
		eng.PutUint64(db[8:16], uint64(d.CompressedOffset))
		eng.PutUint32(db[16:20], uint32(d.UncompressedSize))
		eng.PutUint32(db[20:24], uint32(d.CompressedSize))
		file.Write(db)
	}

	raw := file.Bytes()
	zheaderBytes := make([]byte, ZheaderSize)
	eng.PutUint64(zheaderBytes[0:8], uint64(zheaderOffset))
	eng.PutUint64(zheaderBytes[8:16], uint64(ztrailerOffset))
	eng.PutUint64(zheaderBytes[16:24], uint64(ztrailerHeaderSize+len(descriptors)*blockDescriptorSize))
	copy(raw[zheaderPos:zheaderPos+ZheaderSize], zheaderBytes)

	return bytes.NewReader(raw), zheaderOffset
}

func TestZsavStream_SingleBlockRoundTrip(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated for compressibility, repeated for compressibility")
	src, zheaderOffset := buildZsavFixture(t, eng, [][]byte{payload}, 100.0)

	stream, err := NewZsavStream(src, zheaderOffset, eng)
	require.NoError(t, err)
	require.Equal(t, 100.0, stream.Bias())

	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestZsavStream_MultiBlockRoundTrip(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	block1 := bytes.Repeat([]byte("A"), 200)
	block2 := bytes.Repeat([]byte("B"), 150)
	src, zheaderOffset := buildZsavFixture(t, eng, [][]byte{block1, block2}, 100.0)

	stream, err := NewZsavStream(src, zheaderOffset, eng)
	require.NoError(t, err)

	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, append(append([]byte{}, block1...), block2...), got)
}

func TestZsavStream_ZheaderMismatch(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	src, zheaderOffset := buildZsavFixture(t, eng, [][]byte{[]byte("x")}, 100.0)

	_, err := NewZsavStream(src, zheaderOffset+1, eng)
	require.Error(t, err)
}
