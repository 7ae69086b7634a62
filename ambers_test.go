package ambers

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sav2arrow/ambers/endian"
	"github.com/sav2arrow/ambers/format"
	"github.com/sav2arrow/ambers/section"
)

type fixtureWriter struct {
	buf []byte
	eng endian.EndianEngine
}

func (w *fixtureWriter) i32(v int32) {
	b := make([]byte, 4)
	w.eng.PutUint32(b, uint32(v))
	w.buf = append(w.buf, b...)
}

func (w *fixtureWriter) f64(v float64) {
	b := make([]byte, 8)
	w.eng.PutUint64(b, math.Float64bits(v))
	w.buf = append(w.buf, b...)
}

func (w *fixtureWriter) str(s string, width int) {
	b := make([]byte, width)
	copy(b, s)
	for i := len(s); i < width; i++ {
		b[i] = ' '
	}
	w.buf = append(w.buf, b...)
}

func (w *fixtureWriter) bytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// strCells writes s as a string variable's cell data: padded with spaces
// to width, then further padded out to a whole number of 8-byte cells,
// matching how rowdecoder.decodeShortString reads ceil(width/8) cells.
func (w *fixtureWriter) strCells(s string, width int) {
	cells := (width + 7) / 8
	w.str(s, cells*8)
}

func (w *fixtureWriter) header(compression int32, nvars, cases int32) {
	start := len(w.buf)
	w.bytes([]byte(section.MagicSav))
	w.str("@(#) test product", 60)
	w.i32(2) // layout code
	w.i32(nvars)
	w.i32(compression)
	w.i32(0) // weight index
	w.i32(cases)
	w.f64(100.0) // bias
	w.str("31 Jul 26", 9)
	w.str("12:00:00", 8)
	w.str("a fixture file", 64)
	w.bytes(make([]byte, 3)) // padding
	if len(w.buf)-start != section.HeaderSize {
		panic("fixture header size mismatch")
	}
}

func (w *fixtureWriter) numericVariable(name, label string) {
	w.i32(section.RecTypeVariable)
	w.i32(section.VarTypeNumeric)
	if label != "" {
		w.i32(1)
	} else {
		w.i32(0)
	}
	w.i32(section.MissingNone)
	w.i32(int32(uint32(format.FmtF)<<16 | uint32(8)<<8 | 2))
	w.i32(int32(uint32(format.FmtF)<<16 | uint32(8)<<8 | 2))
	w.str(name, 8)
	if label != "" {
		w.i32(int32(len(label)))
		padded := (len(label) + 3) &^ 3
		w.str(label, padded)
	}
}

func (w *fixtureWriter) stringVariable(name string, width int) {
	w.i32(section.RecTypeVariable)
	w.i32(int32(width))
	w.i32(0)
	w.i32(section.MissingNone)
	w.i32(int32(uint32(format.FmtA)<<16 | uint32(width)<<8))
	w.i32(int32(uint32(format.FmtA)<<16 | uint32(width)<<8))
	w.str(name, 8)

	continuations := (width+7)/8 - 1
	for n := 0; n < continuations; n++ {
		w.i32(section.RecTypeVariable)
		w.i32(section.VarTypeContinuation)
		w.i32(0)
		w.i32(section.MissingNone)
		w.i32(0)
		w.i32(0)
		w.str("        ", 8)
	}
}

func (w *fixtureWriter) dictionaryEnd() {
	w.i32(section.RecTypeDictionaryEnd)
	w.i32(0)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpen_UncompressedNumericAndString(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	w := &fixtureWriter{eng: eng}

	w.header(section.CompressionNone, 3, 2) // age (1 cell) + name (2 cells for width 9)
	w.numericVariable("age", "Age in years")
	w.stringVariable("name", 9)
	w.dictionaryEnd()

	// Row 1: age=30, name="Ada" padded across 2 cells (16 bytes)
	w.f64(30)
	w.strCells("Ada", 9)
	// Row 2: age=sysmiss, name="Bob" padded across 2 cells
	w.f64(format.SysMiss)
	w.strCells("Bob", 9)

	path := writeFile(t, "basic.sav", w.buf)

	md, err := ReadMetadata(path)
	require.NoError(t, err)
	require.Equal(t, []string{"age", "name"}, md.VariableNames)
	require.Equal(t, "Age in years", md.VariableLabels["age"])
	require.Equal(t, int64(2), md.NumberRows)

	records, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	defer records[0].Release()
	require.Equal(t, int64(2), records[0].NumRows())
}

func TestOpen_ByteCodeCompressedNumeric(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	w := &fixtureWriter{eng: eng}

	w.header(section.CompressionByteCode, 1, 3)
	w.numericVariable("amount", "")
	w.dictionaryEnd()

	// One opcode group encoding 10, 20, 30 with bias 100, then end.
	w.bytes([]byte{110, 120, 130, 252, 0, 0, 0, 0})

	path := writeFile(t, "compressed.sav", w.buf)

	records, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	defer records[0].Release()
	require.Equal(t, int64(3), records[0].NumRows())
}

func TestOpenBatchReader_CustomBatchSize(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	w := &fixtureWriter{eng: eng}

	w.header(section.CompressionNone, 1, 4)
	w.numericVariable("x", "")
	w.dictionaryEnd()
	for _, v := range []float64{1, 2, 3, 4} {
		w.f64(v)
	}

	path := writeFile(t, "batched.sav", w.buf)

	r, err := OpenBatchReader(path, 3)
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.NextBatch()
	require.NoError(t, err)
	require.Equal(t, int64(3), rec.NumRows())
	rec.Release()

	rec, err = r.NextBatch()
	require.NoError(t, err)
	require.Equal(t, int64(1), rec.NumRows())
	rec.Release()

	rec, err = r.NextBatch()
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestReadAll_EmptyFileReturnsNoBatches(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	w := &fixtureWriter{eng: eng}

	w.header(section.CompressionNone, 1, 0)
	w.numericVariable("x", "")
	w.dictionaryEnd()

	path := writeFile(t, "empty.sav", w.buf)

	records, err := ReadAll(path)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.sav"))
	require.Error(t, err)
}
