// Package vm implements the .sav/.zsav compression VM (§4.3): a
// byte-code scheme where each 8-byte "opcode group" describes the next
// eight cells of the decompressed stream, occasionally followed by a
// literal 8-byte data cell. It is exposed as a pull iterator so
// rowdecoder can ask for exactly as many cells as a row's physical
// schema demands without buffering ahead.
//
// Grounded on the teacher's pull-iterator decoders (blob's columnar
// decoder All()/At() shape, generalized here to NextCell()).
package vm

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/sav2arrow/ambers/errs"
	"github.com/sav2arrow/ambers/iostream"
)

// CellKind tags what NextCell returned.
type CellKind uint8

const (
	// CellData is a literal 8-byte value cell — the caller interprets
	// the bytes as a float64 or a chunk of string bytes depending on
	// the physical variable it belongs to.
	CellData CellKind = iota
	// CellSysMiss is the system-missing numeric sentinel.
	CellSysMiss
	// CellBlank is an all-spaces string padding cell.
	CellBlank
	// CellEnd marks the end of the compressed stream.
	CellEnd
)

// Cell is one decompressed 8-byte unit of the data section.
type Cell struct {
	Kind CellKind
	Raw  [8]byte
}

// Opcode values (§4.3).
const (
	opNoop       = 0
	opNumericLo  = 1
	opNumericHi  = 251
	opEnd        = 252
	opRawCell    = 253
	opBlank      = 254
	opSysMiss    = 255
)

// DefaultBias is the canonical compression bias SPSS writers use.
const DefaultBias = 100.0

// CellSource is a pull iterator over a decompressed cell stream. Both VM
// (compression code 1, or a .zsav stream already inflated by compress)
// and RawCellSource (compression code 0) implement it so rowdecoder
// doesn't need to know which applies.
type CellSource interface {
	NextCell() (Cell, error)
}

// RawCellSource reads cells directly off the wire with no decompression,
// used when the file header declares compression code 0.
type RawCellSource struct {
	r *iostream.Reader
}

// NewRawCellSource wraps r as an uncompressed CellSource.
func NewRawCellSource(r *iostream.Reader) *RawCellSource {
	return &RawCellSource{r: r}
}

// NextCell implements CellSource.
func (s *RawCellSource) NextCell() (Cell, error) {
	raw, err := s.r.Cell()
	if err == io.EOF {
		return Cell{Kind: CellEnd}, nil
	}
	if err != nil {
		return Cell{}, err
	}
	return Cell{Kind: CellData, Raw: raw}, nil
}

// VM is the byte-code compression VM CellSource, used when the file
// header declares compression code 1 (plain byte-code) or 2 (zsav,
// whose inflated byte stream carries the same byte-code encoding).
type VM struct {
	r      *iostream.Reader
	bias   float64
	group  [8]byte
	pos    int // next unconsumed opcode index in group; 8 means exhausted
	ended  bool
}

// NewVM constructs a compression VM reading opcode groups and literal
// cells from r, using bias to recover small numeric values packed into
// an opcode (§4.3).
func NewVM(r *iostream.Reader, bias float64) *VM {
	return &VM{r: r, bias: bias, pos: 8}
}

// NextCell decodes and returns the next cell from the compressed stream.
func (vm *VM) NextCell() (Cell, error) {
	if vm.ended {
		return Cell{Kind: CellEnd}, nil
	}

	for {
		if vm.pos >= 8 {
			group, err := vm.r.Cell()
			if err == io.EOF {
				vm.ended = true
				return Cell{Kind: CellEnd}, nil
			}
			if err != nil {
				return Cell{}, errs.CorruptStream("compression vm: failed reading opcode group")
			}
			vm.group = group
			vm.pos = 0
		}

		op := vm.group[vm.pos]
		vm.pos++

		switch {
		case op == opNoop:
			continue
		case op >= opNumericLo && op <= opNumericHi:
			return Cell{Kind: CellData, Raw: numericCellBytes(float64(op) - vm.bias)}, nil
		case op == opEnd:
			vm.ended = true
			return Cell{Kind: CellEnd}, nil
		case op == opRawCell:
			raw, err := vm.r.Cell()
			if err != nil {
				return Cell{}, errs.CorruptStream("compression vm: truncated raw cell")
			}
			return Cell{Kind: CellData, Raw: raw}, nil
		case op == opBlank:
			return Cell{Kind: CellBlank, Raw: blankCellBytes}, nil
		case op == opSysMiss:
			return Cell{Kind: CellSysMiss}, nil
		default:
			return Cell{}, errs.CorruptStream("compression vm: unrecognized opcode")
		}
	}
}

var blankCellBytes = [8]byte{' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}

func numericCellBytes(v float64) [8]byte {
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], math.Float64bits(v))
	return out
}
