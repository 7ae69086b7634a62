// Package section decodes the fixed on-disk record layouts of a .sav/.zsav
// dictionary: the file header, variable records, value-label records, and
// the typed extension (subtype) records. It knows nothing about cell data
// or the compression VM — it only turns bytes into the structured records
// dict then assembles into LogicalVariables.
//
// Grounded on the teacher's section/numeric_header.go and section/const.go:
// same pattern of a fixed-width struct plus a ParseXxx(io.Reader,
// EndianEngine) function, kept one file per record family.
package section

import (
	"io"
	"math"

	"github.com/sav2arrow/ambers/endian"
	"github.com/sav2arrow/ambers/errs"
)

// MagicSav and MagicZsav are the two recognized file-header magic values.
const (
	MagicSav  = "$FL2"
	MagicZsav = "$FL3"
)

// HeaderSize is the fixed size, in bytes, of the file header record.
const HeaderSize = 176

// Compression codes stored in the file header.
const (
	CompressionNone     = 0
	CompressionByteCode = 1
	CompressionZsav     = 2
)

// Header is the fixed 176-byte record at offset 0 (§6).
type Header struct {
	Magic           string
	ProductName     string
	LayoutCode      int32
	NominalCaseSize int32 // number of physical (dictionary) variables
	CompressionCode int32
	WeightIndex     int32 // 1-based physical index of the weight variable, 0 = none
	CaseCount       int32 // -1 if unknown
	Bias            float64
	CreationDate    string
	CreationTime    string
	FileLabel       string
}

// ParseHeader reads and validates the fixed file header from r.
func ParseHeader(r io.Reader, eng endian.EndianEngine) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errs.Io("", err)
	}

	magic := string(buf[0:4])
	if magic != MagicSav && magic != MagicZsav {
		return nil, errs.BadMagic(buf[0:4])
	}

	h := &Header{
		Magic:           magic,
		ProductName:     trimSpaceRight(string(buf[4:64])),
		LayoutCode:      int32(eng.Uint32(buf[64:68])),
		NominalCaseSize: int32(eng.Uint32(buf[68:72])),
		CompressionCode: int32(eng.Uint32(buf[72:76])),
		WeightIndex:     int32(eng.Uint32(buf[76:80])),
		CaseCount:       int32(eng.Uint32(buf[80:84])),
		Bias:            math.Float64frombits(eng.Uint64(buf[84:92])),
		CreationDate:    trimSpaceRight(string(buf[92:101])),
		CreationTime:    trimSpaceRight(string(buf[101:109])),
		FileLabel:       trimSpaceRight(string(buf[109:173])),
	}

	if h.LayoutCode != 2 {
		return nil, errs.UnsupportedLayout(h.LayoutCode)
	}

	wantZsav := magic == MagicZsav
	gotZsav := h.CompressionCode == CompressionZsav
	if wantZsav != gotZsav {
		return nil, errs.CorruptDictionary("file header: magic/compression-code mismatch")
	}
	if h.CompressionCode != CompressionNone && h.CompressionCode != CompressionByteCode && h.CompressionCode != CompressionZsav {
		return nil, errs.UnsupportedCompression(h.CompressionCode)
	}

	return h, nil
}

// FileFormat reports whether the header describes a .sav or .zsav stream.
func (h *Header) FileFormat() string {
	if h.Magic == MagicZsav {
		return "zsav"
	}
	return "sav"
}

func trimSpaceRight(s string) string {
	end := len(s)
	for end > 0 && (s[end-1] == ' ' || s[end-1] == 0) {
		end--
	}
	return s[:end]
}

