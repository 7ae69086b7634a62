package section

import (
	"bytes"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/sav2arrow/ambers/endian"
	"github.com/sav2arrow/ambers/errs"
)

// ExtensionRecord is a type-7 (subtype, size, count) record: size bytes
// per element, count elements, raw payload of size*count bytes (§4.4).
// dict.go interprets Payload according to Subtype; unrecognized subtypes
// are kept raw and simply skipped.
type ExtensionRecord struct {
	Subtype int32
	Size    int32
	Count   int32
	Payload []byte
}

// ParseExtensionRecord reads the (subtype, size, count, payload) body of a
// type-7 record.
func ParseExtensionRecord(r io.Reader, eng endian.EndianEngine) (*ExtensionRecord, error) {
	hdr := make([]byte, 12)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, errs.Io("", err)
	}

	rec := &ExtensionRecord{
		Subtype: int32(eng.Uint32(hdr[0:4])),
		Size:    int32(eng.Uint32(hdr[4:8])),
		Count:   int32(eng.Uint32(hdr[8:12])),
	}
	if rec.Size < 0 || rec.Count < 0 {
		return nil, errs.CorruptDictionary("extension record: negative size/count")
	}

	total := int64(rec.Size) * int64(rec.Count)
	rec.Payload = make([]byte, total)
	if total > 0 {
		if _, err := io.ReadFull(r, rec.Payload); err != nil {
			return nil, errs.Io("", err)
		}
	}

	return rec, nil
}

// IntegerInfo is the decoded payload of an ExtIntegerInfo (subtype 3)
// record: eight int32 fields describing the writer.
type IntegerInfo struct {
	VersionMajor, VersionMinor, VersionRevision int32
	MachineCode                                 int32
	FloatingPointRep                            int32
	CompressionCode                             int32
	EndianCode                                  int32
	CharacterCode                               int32
}

// DecodeIntegerInfo interprets an ExtIntegerInfo record's payload.
func DecodeIntegerInfo(rec *ExtensionRecord, eng endian.EndianEngine) (IntegerInfo, error) {
	if len(rec.Payload) < 32 {
		return IntegerInfo{}, errs.CorruptDictionary("integer info: short payload")
	}
	u := func(i int) int32 { return int32(eng.Uint32(rec.Payload[i*4 : i*4+4])) }
	return IntegerInfo{
		VersionMajor:      u(0),
		VersionMinor:      u(1),
		VersionRevision:   u(2),
		MachineCode:       u(3),
		FloatingPointRep:  u(4),
		CompressionCode:   u(5),
		EndianCode:        u(6),
		CharacterCode:     u(7),
	}, nil
}

// FloatInfo is the decoded payload of an ExtFloatInfo (subtype 4) record:
// the writer's sysmis/highest/lowest numeric sentinels.
type FloatInfo struct {
	SysMiss, Highest, Lowest float64
}

// DecodeFloatInfo interprets an ExtFloatInfo record's payload.
func DecodeFloatInfo(rec *ExtensionRecord, eng endian.EndianEngine) (FloatInfo, error) {
	if len(rec.Payload) < 24 {
		return FloatInfo{}, errs.CorruptDictionary("float info: short payload")
	}
	f := func(i int) float64 { return math.Float64frombits(eng.Uint64(rec.Payload[i*8 : i*8+8])) }
	return FloatInfo{SysMiss: f(0), Highest: f(1), Lowest: f(2)}, nil
}

// DisplayParam is one variable's entry in an ExtDisplayParams (subtype 11)
// record: measure, declared display width, and alignment codes.
type DisplayParam struct {
	Measure   int32
	Width     int32
	Alignment int32
}

// DecodeDisplayParams interprets an ExtDisplayParams record's payload as
// Count triples of (measure, width, alignment), positionally matched
// against the non-continuation variable records in declaration order.
func DecodeDisplayParams(rec *ExtensionRecord, eng endian.EndianEngine) ([]DisplayParam, error) {
	if rec.Size != 12 && rec.Size != 8 {
		return nil, errs.CorruptDictionary("display params: unexpected element size")
	}
	stride := int(rec.Size)
	out := make([]DisplayParam, rec.Count)
	for i := range out {
		base := i * stride
		out[i] = DisplayParam{
			Measure:   int32(eng.Uint32(rec.Payload[base : base+4])),
			Width:     int32(eng.Uint32(rec.Payload[base+4 : base+8])),
		}
		if stride == 12 {
			out[i].Alignment = int32(eng.Uint32(rec.Payload[base+8 : base+12]))
		}
	}
	return out, nil
}

// DecodeLongVarNames parses an ExtLongVarNames (subtype 13) record: a
// '\t'-separated list of "short=long" pairs, mapping each 8-char truncated
// short name to its full-length logical name (§4.5).
func DecodeLongVarNames(rec *ExtensionRecord) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(string(rec.Payload), "\t") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

// DecodeVeryLongStrings parses an ExtVeryLongStrings (subtype 14) record:
// a '\0'-terminated list of "name=width" declarations naming every string
// variable whose true width exceeds 255 bytes (§4.5, "VLS resolution").
func DecodeVeryLongStrings(rec *ExtensionRecord) (map[string]int, error) {
	out := map[string]int{}
	for _, tok := range bytes.Split(rec.Payload, []byte{0}) {
		tok = bytes.TrimSpace(tok)
		if len(tok) == 0 {
			continue
		}
		k, v, ok := strings.Cut(string(tok), "=")
		if !ok {
			return nil, errs.CorruptDictionary("very long strings record: malformed entry")
		}
		width, err := strconv.Atoi(v)
		if err != nil {
			return nil, errs.CorruptDictionary("very long strings record: non-numeric width")
		}
		out[k] = width
	}
	return out, nil
}

// DecodeExtendedCaseCount parses an ExtExtendedCaseCount (subtype 16)
// record's single int64 true case count, used when the header's 32-bit
// case count overflowed or was reported unknown.
func DecodeExtendedCaseCount(rec *ExtensionRecord, eng endian.EndianEngine) (int64, error) {
	if len(rec.Payload) < 8 {
		return 0, errs.CorruptDictionary("extended case count: short payload")
	}
	return int64(eng.Uint64(rec.Payload[0:8])), nil
}

// DecodeEncoding parses an ExtEncoding (subtype 20) record: the raw IANA
// character-encoding name the writer declared for string cell bytes.
func DecodeEncoding(rec *ExtensionRecord) string {
	return strings.TrimSpace(string(rec.Payload))
}

// DecodeKeyValueBlob parses the "key(value)" text grammar used by both
// ExtFileAttributes (subtype 17, whole-payload) and, once split on '/',
// each per-variable block of ExtVariableAttributes (subtype 18).
func DecodeKeyValueBlob(text string) map[string]string {
	out := map[string]string{}
	for _, entry := range strings.Split(text, "\n") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		open := strings.IndexByte(entry, '(')
		if open < 0 || entry[len(entry)-1] != ')' {
			continue
		}
		key := entry[:open]
		val := entry[open+1 : len(entry)-1]
		out[key] = val
	}
	return out
}

// DecodeVariableAttributes parses an ExtVariableAttributes (subtype 18)
// record: '/'-separated blocks, each "shortname:key(value)\nkey2(value2)",
// into a per-variable attribute map.
func DecodeVariableAttributes(rec *ExtensionRecord) map[string]map[string]string {
	out := map[string]map[string]string{}
	for _, block := range strings.Split(string(rec.Payload), "/") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		name, rest, ok := strings.Cut(block, ":")
		if !ok {
			continue
		}
		out[name] = DecodeKeyValueBlob(rest)
	}
	return out
}
