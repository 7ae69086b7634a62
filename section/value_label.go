package section

import (
	"io"
	"math"

	"github.com/sav2arrow/ambers/endian"
	"github.com/sav2arrow/ambers/errs"
)

// ValueLabelEntry pairs one raw 8-byte value (a float64, or a short string
// stored in its 8-byte numeric slot) with its label text.
type ValueLabelEntry struct {
	RawValue [8]byte
	Label    string
}

// AsFloat64 interprets RawValue as a numeric value-label key.
func (e ValueLabelEntry) AsFloat64(eng endian.EndianEngine) float64 {
	return math.Float64frombits(eng.Uint64(e.RawValue[:]))
}

// AsShortString interprets RawValue as a short (<=8 byte) string
// value-label key, trimmed of trailing padding.
func (e ValueLabelEntry) AsShortString() string {
	return trimSpaceRight(string(e.RawValue[:]))
}

// ValueLabelRecord is a type-3 record: a set of (value, label) pairs not
// yet bound to any variable. The type-4 record immediately following it
// supplies that binding (§4.4).
type ValueLabelRecord struct {
	Entries []ValueLabelEntry
}

// ParseValueLabelRecord reads the body of a type-3 record.
func ParseValueLabelRecord(r io.Reader, eng endian.EndianEngine) (*ValueLabelRecord, error) {
	countBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, countBuf); err != nil {
		return nil, errs.Io("", err)
	}
	count := int(eng.Uint32(countBuf))
	if count < 0 {
		return nil, errs.CorruptDictionary("value label record: negative count")
	}

	rec := &ValueLabelRecord{Entries: make([]ValueLabelEntry, count)}
	for i := 0; i < count; i++ {
		entryHdr := make([]byte, 9) // 8-byte value + 1-byte label length
		if _, err := io.ReadFull(r, entryHdr); err != nil {
			return nil, errs.Io("", err)
		}
		var raw [8]byte
		copy(raw[:], entryHdr[0:8])

		labelLen := int(entryHdr[8])
		// Label text is padded so that (1 length byte + labelLen text)
		// rounds up to a multiple of 8.
		totalPadded := roundUp8(1 + labelLen)
		text := make([]byte, totalPadded-1)
		if _, err := io.ReadFull(r, text); err != nil {
			return nil, errs.Io("", err)
		}

		rec.Entries[i] = ValueLabelEntry{RawValue: raw, Label: string(text[:labelLen])}
	}

	return rec, nil
}

// ValueLabelVarsRecord is a type-4 record: the list of physical variable
// indices (1-based) a preceding type-3 value-label set applies to.
type ValueLabelVarsRecord struct {
	VariableIndices []int32
}

// ParseValueLabelVarsRecord reads the body of a type-4 record.
func ParseValueLabelVarsRecord(r io.Reader, eng endian.EndianEngine) (*ValueLabelVarsRecord, error) {
	countBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, countBuf); err != nil {
		return nil, errs.Io("", err)
	}
	count := int(eng.Uint32(countBuf))
	if count < 0 {
		return nil, errs.CorruptDictionary("value label variable list: negative count")
	}

	raw := make([]byte, 4*count)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errs.Io("", err)
	}

	rec := &ValueLabelVarsRecord{VariableIndices: make([]int32, count)}
	for i := 0; i < count; i++ {
		rec.VariableIndices[i] = int32(eng.Uint32(raw[i*4 : i*4+4]))
	}

	return rec, nil
}

// DocumentRecord is a type-6 record: a sequence of fixed 80-byte lines of
// free-text documentation (§4.4). ambers surfaces these verbatim via
// SpssMetadata but never interprets them.
type DocumentRecord struct {
	Lines []string
}

// ParseDocumentRecord reads the body of a type-6 record.
func ParseDocumentRecord(r io.Reader, eng endian.EndianEngine) (*DocumentRecord, error) {
	countBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, countBuf); err != nil {
		return nil, errs.Io("", err)
	}
	count := int(eng.Uint32(countBuf))
	if count < 0 {
		return nil, errs.CorruptDictionary("document record: negative line count")
	}

	rec := &DocumentRecord{Lines: make([]string, count)}
	for i := 0; i < count; i++ {
		line := make([]byte, 80)
		if _, err := io.ReadFull(r, line); err != nil {
			return nil, errs.Io("", err)
		}
		rec.Lines[i] = trimSpaceRight(string(line))
	}

	return rec, nil
}

func roundUp8(n int) int {
	return (n + 7) &^ 7
}
