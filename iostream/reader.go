// Package iostream provides the buffered little-endian primitive reader
// every later decoding stage builds on: fixed-size ints and doubles,
// fixed-length byte runs, and the 8-byte "cell" alignment .sav/.zsav data
// records are built from (§4.1).
//
// The reader is a thin, forward-only wrapper over io.Reader — it never
// seeks, so it works identically whether its backing is the raw file or
// a compress.ZsavStream's inflated byte stream.
//
// Grounded on the teacher's encoding/reader primitives (fixed-width
// integer/float decode helpers reused verbatim in spirit, generalized
// from mebo's payload decoding to SPSS's cell-stream decoding).
package iostream

import (
	"bufio"
	"io"
	"math"

	"github.com/sav2arrow/ambers/endian"
	"github.com/sav2arrow/ambers/errs"
)

// CellSize is the fixed width, in bytes, of one "cell" in a .sav/.zsav
// data record: every numeric value and every 8-byte chunk of a string
// value occupies exactly one cell (§4.1, §4.6).
const CellSize = 8

// Reader is a forward-only, buffered little-endian primitive reader.
type Reader struct {
	src    *bufio.Reader
	eng    endian.EndianEngine
	offset int64
}

// NewReader wraps src with a buffered Reader using the given byte order.
func NewReader(src io.Reader, eng endian.EndianEngine) *Reader {
	return &Reader{src: bufio.NewReaderSize(src, 64*1024), eng: eng}
}

// Offset reports the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.offset
}

// ReadFull reads exactly len(buf) bytes into buf.
func (r *Reader) ReadFull(buf []byte) error {
	n, err := io.ReadFull(r.src, buf)
	r.offset += int64(n)
	if err != nil {
		return err
	}
	return nil
}

// Int32 reads one little-endian signed 32-bit integer.
func (r *Reader) Int32() (int32, error) {
	var buf [4]byte
	if err := r.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return int32(r.eng.Uint32(buf[:])), nil
}

// Float64 reads one little-endian IEEE-754 double.
func (r *Reader) Float64() (float64, error) {
	var buf [8]byte
	if err := r.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(r.eng.Uint64(buf[:])), nil
}

// Cell reads exactly one 8-byte cell, raw.
func (r *Reader) Cell() ([CellSize]byte, error) {
	var buf [CellSize]byte
	err := r.ReadFull(buf[:])
	return buf, err
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := r.ReadFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// CellCountForBytes returns how many 8-byte cells are needed to hold n
// bytes of string data: ceil(n / CellSize).
func CellCountForBytes(n int) int {
	return (n + CellSize - 1) / CellSize
}

// WrapTruncated turns an io.ErrUnexpectedEOF/io.EOF into an
// errs.ErrTruncated FormatError carrying row/column context; any other
// error is returned unchanged (the caller is expected to further wrap it
// with errs.Io for I/O failures outside the expected end-of-stream case).
func WrapTruncated(err error, row int, column string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errs.Truncated(row, column)
	}
	return err
}
