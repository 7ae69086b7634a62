package section

import (
	"io"
	"math"

	"github.com/sav2arrow/ambers/endian"
	"github.com/sav2arrow/ambers/errs"
)

// VariableRecord is one type-2 record: either a standalone variable (string
// width <= 8, or numeric) or one segment of a wider string variable. dict
// groups contiguous string-head-then-continuation runs into a single
// LogicalVariable (§4.5, "segment grouping").
type VariableRecord struct {
	TypeCode     int32 // 0 numeric, >0 string width, -1 continuation
	HasLabel     bool
	Label        string
	MissingCount int32 // see Missing* constants
	Missing      []float64
	PrintFormat  PackedFormat
	WriteFormat  PackedFormat
	ShortName    string
}

// PackedFormat is the raw (type, width, decimals) triple SPSS packs into a
// single int32 print/write format field.
type PackedFormat struct {
	Code     uint8
	Width    uint8
	Decimals uint8
}

func unpackFormat(raw int32) PackedFormat {
	u := uint32(raw)
	return PackedFormat{
		Code:     uint8((u >> 16) & 0xFF),
		Width:    uint8((u >> 8) & 0xFF),
		Decimals: uint8(u & 0xFF),
	}
}

// IsContinuation reports whether this record is a -1 continuation segment
// of a preceding wide string variable.
func (v *VariableRecord) IsContinuation() bool {
	return v.TypeCode == VarTypeContinuation
}

// IsNumeric reports whether this record declares a numeric variable.
func (v *VariableRecord) IsNumeric() bool {
	return v.TypeCode == VarTypeNumeric
}

// ParseVariableRecord reads the body of a type-2 record. The rec_type tag
// itself must already have been consumed by the caller's dispatch loop.
func ParseVariableRecord(r io.Reader, eng endian.EndianEngine) (*VariableRecord, error) {
	hdr := make([]byte, 20)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, errs.Io("", err)
	}

	v := &VariableRecord{
		TypeCode:     int32(eng.Uint32(hdr[0:4])),
		HasLabel:     eng.Uint32(hdr[4:8]) != 0,
		MissingCount: int32(eng.Uint32(hdr[8:12])),
		PrintFormat:  unpackFormat(int32(eng.Uint32(hdr[12:16]))),
		WriteFormat:  unpackFormat(int32(eng.Uint32(hdr[16:20]))),
	}

	name := make([]byte, 8)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, errs.Io("", err)
	}
	v.ShortName = trimSpaceRight(string(name))

	if v.HasLabel {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(r, lenBuf); err != nil {
			return nil, errs.Io("", err)
		}
		labelLen := int(eng.Uint32(lenBuf))
		padded := roundUp4(labelLen)
		raw := make([]byte, padded)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, errs.Io("", err)
		}
		v.Label = string(raw[:labelLen])
	}

	n, err := missingValueDoubleCount(v.MissingCount)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		raw := make([]byte, 8*n)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, errs.Io("", err)
		}
		v.Missing = make([]float64, n)
		for i := 0; i < n; i++ {
			v.Missing[i] = math.Float64frombits(eng.Uint64(raw[i*8 : i*8+8]))
		}
	}

	return v, nil
}

func missingValueDoubleCount(code int32) (int, error) {
	switch {
	case code == MissingNone:
		return 0, nil
	case code >= 1 && code <= 3:
		return int(code), nil
	case code == MissingOneRange:
		return 2, nil
	case code == MissingRangePlusOne:
		return 3, nil
	default:
		return 0, errs.CorruptDictionary("variable record: unrecognized missing-value count code")
	}
}

func roundUp4(n int) int {
	return (n + 3) &^ 3
}
