// Package rowdecoder drives the cell stream one row at a time against
// the assembled dictionary's physical variable layout (§4.6): one cell
// for a numeric variable, ceil(width/8) cells for a short string, and a
// chain of length-prefixed chunks for a very long string.
//
// Grounded on the teacher's staged Decode() methods, generalized from
// decoding one payload at a time to decoding one dictionary-shaped row
// at a time.
package rowdecoder

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/sav2arrow/ambers/dict"
	"github.com/sav2arrow/ambers/errs"
	"github.com/sav2arrow/ambers/format"
	"github.com/sav2arrow/ambers/vm"
)

// Value is one decoded cell value: exactly one of Number/Text is
// meaningful, selected by the owning LogicalVariable's Kind; Null marks
// a system-missing (or blank) numeric cell. String values are never Null.
type Value struct {
	Null   bool
	Number float64
	Text   string
}

// Row is one decoded row, one Value per logical variable, in dictionary
// order.
type Row struct {
	Values []Value
}

// Decoder decodes successive rows from a vm.CellSource against a fixed
// dictionary.
type Decoder struct {
	vars       []*dict.LogicalVariable
	source     vm.CellSource
	rowIndex   int
	transcoder *encoding.Decoder // nil when the file encoding is already UTF-8
}

// New constructs a Decoder reading cells from source against vars (in
// physical/dictionary order). fileEncoding is the IANA name from the
// dictionary's subtype-20 record ("" if the file carried none); per §9
// "Encoding", an absent name falls back to windows-1252, and a present
// but unrecognized name is reported as errs.UnknownEncoding.
func New(vars []*dict.LogicalVariable, source vm.CellSource, fileEncoding string) (*Decoder, error) {
	transcoder, err := resolveTranscoder(fileEncoding)
	if err != nil {
		return nil, err
	}
	return &Decoder{vars: vars, source: source, transcoder: transcoder}, nil
}

// resolveTranscoder builds the decoder that turns a string cell's raw
// bytes (in the file's declared encoding) into UTF-8. A nil result means
// the file encoding is already UTF-8, so string cells pass through
// unchanged.
func resolveTranscoder(fileEncoding string) (*encoding.Decoder, error) {
	if fileEncoding == "" {
		return charmap.Windows1252.NewDecoder(), nil
	}
	if isUTF8Name(fileEncoding) {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(fileEncoding)
	if err != nil || enc == nil {
		return nil, errs.UnknownEncoding(fileEncoding)
	}
	return enc.NewDecoder(), nil
}

func isUTF8Name(name string) bool {
	n := strings.ToLower(name)
	n = strings.ReplaceAll(n, "-", "")
	n = strings.ReplaceAll(n, "_", "")
	return n == "utf8"
}

// NextRow decodes one row, or returns (nil, nil) at a clean end of
// stream (the first variable's first cell reports CellEnd).
func (d *Decoder) NextRow() (*Row, error) {
	row := &Row{Values: make([]Value, len(d.vars))}

	for i, v := range d.vars {
		val, atEnd, err := d.decodeVariable(v, i == 0)
		if err != nil {
			return nil, err
		}
		if atEnd {
			return nil, nil
		}
		row.Values[i] = val
	}

	d.rowIndex++
	return row, nil
}

func (d *Decoder) decodeVariable(v *dict.LogicalVariable, isFirstOfRow bool) (Value, bool, error) {
	if v.Kind == format.KindNumeric {
		return d.decodeNumeric(v, isFirstOfRow)
	}
	if v.IsVeryLongString {
		return d.decodeVeryLongString(v)
	}
	return d.decodeShortString(v)
}

func (d *Decoder) decodeNumeric(v *dict.LogicalVariable, isFirstOfRow bool) (Value, bool, error) {
	cell, err := d.source.NextCell()
	if err != nil {
		return Value{}, false, d.wrapErr(err, v)
	}
	switch cell.Kind {
	case vm.CellEnd:
		if isFirstOfRow {
			return Value{}, true, nil
		}
		return Value{}, false, errs.Truncated(d.rowIndex, v.Name)
	case vm.CellSysMiss:
		return Value{Null: true}, false, nil
	case vm.CellBlank:
		return Value{Null: true}, false, nil
	default:
		n := decodeFloat(cell.Raw)
		if isSysMiss(n) {
			return Value{Null: true}, false, nil
		}
		return Value{Number: n}, false, nil
	}
}

// isSysMiss reports whether a raw literal cell (read directly off the
// wire, not via the compression VM's dedicated opcode 255) carries the
// system-missing sentinel value (§3, "System-missing" in the glossary).
// Uncompressed files and VM raw-cell opcodes (253) both encode
// system-missing this way rather than through CellSysMiss.
func isSysMiss(v float64) bool {
	return math.Float64bits(v) == math.Float64bits(format.SysMiss)
}

func (d *Decoder) decodeShortString(v *dict.LogicalVariable) (Value, bool, error) {
	nCells := (v.Width + 7) / 8
	if nCells == 0 {
		nCells = 1
	}

	buf := make([]byte, 0, nCells*8)
	for c := 0; c < nCells; c++ {
		cell, err := d.source.NextCell()
		if err != nil {
			return Value{}, false, d.wrapErr(err, v)
		}
		if cell.Kind == vm.CellEnd {
			if c == 0 {
				return Value{}, true, nil
			}
			return Value{}, false, errs.Truncated(d.rowIndex, v.Name)
		}
		if cell.Kind == vm.CellSysMiss {
			// A numeric sysmiss opcode inside string cell data never
			// occurs in a well-formed file; treat it as blank padding.
			buf = append(buf, ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ')
			continue
		}
		buf = append(buf, cell.Raw[:]...)
	}

	text, err := d.decodeText(buf, v.Width)
	if err != nil {
		return Value{}, false, err
	}
	return Value{Text: text}, false, nil
}

// decodeText trims a string cell's raw bytes (in the file's declared
// encoding) down to its declared storage width, then decodes the result
// as UTF-8, transcoding first if the file encoding isn't already UTF-8
// (§4.6: "strip trailing 0x20 bytes down to the declared width, decode as
// UTF-8 using the file encoding").
func (d *Decoder) decodeText(raw []byte, width int) (string, error) {
	trimmed := bytes.TrimRight(raw, " ")
	if len(trimmed) > width {
		trimmed = trimmed[:width]
	}
	if d.transcoder == nil {
		return string(trimmed), nil
	}
	out, err := d.transcoder.Bytes(trimmed)
	if err != nil {
		return "", errs.CorruptRow(d.rowIndex, "string cell failed to transcode: "+err.Error())
	}
	return string(out), nil
}

// decodeVeryLongString reads the length-prefixed chunk chain for a
// string variable wider than 255 bytes (§4.5, §4.6): each chunk begins
// with a 4-byte length L occupying the first 4 bytes of its first cell,
// spans ceil((4+L)/8) cells total, and the chunk chain continues until
// the declared Width bytes have been accumulated.
func (d *Decoder) decodeVeryLongString(v *dict.LogicalVariable) (Value, bool, error) {
	var sb bytes.Buffer
	remaining := v.Width
	first := true

	for remaining > 0 {
		headCell, err := d.source.NextCell()
		if err != nil {
			return Value{}, false, d.wrapErr(err, v)
		}
		if headCell.Kind == vm.CellEnd {
			if first {
				return Value{}, true, nil
			}
			return Value{}, false, errs.Truncated(d.rowIndex, v.Name)
		}
		first = false

		chunkLen := int(binary.LittleEndian.Uint32(headCell.Raw[0:4]))
		if chunkLen < 0 {
			return Value{}, false, errs.CorruptRow(d.rowIndex, "very long string: negative chunk length")
		}

		cellsNeeded := (4 + chunkLen + 7) / 8
		buf := make([]byte, 0, cellsNeeded*8)
		buf = append(buf, headCell.Raw[:]...)
		for c := 1; c < cellsNeeded; c++ {
			cell, err := d.source.NextCell()
			if err != nil {
				return Value{}, false, d.wrapErr(err, v)
			}
			if cell.Kind == vm.CellEnd {
				return Value{}, false, errs.Truncated(d.rowIndex, v.Name)
			}
			buf = append(buf, cell.Raw[:]...)
		}

		if 4+chunkLen > len(buf) {
			return Value{}, false, errs.CorruptRow(d.rowIndex, "very long string: chunk overruns cell buffer")
		}
		sb.Write(buf[4 : 4+chunkLen])
		remaining -= chunkLen
	}

	text, err := d.decodeText(sb.Bytes(), v.Width)
	if err != nil {
		return Value{}, false, err
	}
	return Value{Text: text}, false, nil
}

// wrapErr reports a cell-source failure as a Truncated error carrying
// row/column context; the cell source itself already reports corrupt
// (non-EOF) conditions as a *errs.FormatError, which is returned as-is.
func (d *Decoder) wrapErr(err error, v *dict.LogicalVariable) error {
	if _, ok := err.(*errs.FormatError); ok {
		return err
	}
	return errs.Truncated(d.rowIndex, v.Name)
}

func decodeFloat(raw [8]byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(raw[:]))
}
