package section

import (
	"github.com/sav2arrow/ambers/endian"
	"github.com/sav2arrow/ambers/errs"
)

// LongStringLabelSet is one variable's entry in an ExtLongStringLabels
// (subtype 21) record: value labels for a string variable wider than the
// short 8-byte value-label slot supports.
type LongStringLabelSet struct {
	VariableName string
	Width        int32
	Labels       map[string]string // raw value -> label text
}

// DecodeLongStringLabels parses an ExtLongStringLabels record: repeated
//
//	varname_len(4) varname value_width(4) n_labels(4)
//	  { value_len(4) value label_len(4) label } -- n_labels times
func DecodeLongStringLabels(rec *ExtensionRecord, eng endian.EndianEngine) ([]LongStringLabelSet, error) {
	buf := rec.Payload
	var out []LongStringLabelSet

	for off := 0; off < len(buf); {
		name, next, err := readLenPrefixedString(buf, off, eng)
		if err != nil {
			return nil, err
		}
		off = next

		if off+8 > len(buf) {
			return nil, errs.CorruptDictionary("long string labels: truncated header")
		}
		width := int32(eng.Uint32(buf[off : off+4]))
		nLabels := int32(eng.Uint32(buf[off+4 : off+8]))
		off += 8

		set := LongStringLabelSet{VariableName: name, Width: width, Labels: map[string]string{}}
		for i := int32(0); i < nLabels; i++ {
			val, next, err := readLenPrefixedString(buf, off, eng)
			if err != nil {
				return nil, err
			}
			off = next

			label, next, err := readLenPrefixedString(buf, off, eng)
			if err != nil {
				return nil, err
			}
			off = next

			set.Labels[val] = label
		}

		out = append(out, set)
	}

	return out, nil
}

// LongStringMissingSet is one variable's entry in an
// ExtLongStringMissing (subtype 22) record: up to three discrete missing
// values for a string variable wider than 8 bytes.
type LongStringMissingSet struct {
	VariableName string
	Values       []string
}

// DecodeLongStringMissing parses an ExtLongStringMissing record: repeated
//
//	varname_len(4) varname n_values(4) value_width(4)
//	  { value(value_width) } -- n_values times
func DecodeLongStringMissing(rec *ExtensionRecord, eng endian.EndianEngine) ([]LongStringMissingSet, error) {
	buf := rec.Payload
	var out []LongStringMissingSet

	for off := 0; off < len(buf); {
		name, next, err := readLenPrefixedString(buf, off, eng)
		if err != nil {
			return nil, err
		}
		off = next

		if off+8 > len(buf) {
			return nil, errs.CorruptDictionary("long string missing: truncated header")
		}
		nValues := int(eng.Uint32(buf[off : off+4]))
		width := int(eng.Uint32(buf[off+4 : off+8]))
		off += 8

		set := LongStringMissingSet{VariableName: name}
		for i := 0; i < nValues; i++ {
			if off+width > len(buf) {
				return nil, errs.CorruptDictionary("long string missing: truncated value")
			}
			set.Values = append(set.Values, trimSpaceRight(string(buf[off:off+width])))
			off += width
		}

		out = append(out, set)
	}

	return out, nil
}

func readLenPrefixedString(buf []byte, off int, eng endian.EndianEngine) (string, int, error) {
	if off+4 > len(buf) {
		return "", 0, errs.CorruptDictionary("extension record: truncated length prefix")
	}
	n := int(eng.Uint32(buf[off : off+4]))
	off += 4
	if n < 0 || off+n > len(buf) {
		return "", 0, errs.CorruptDictionary("extension record: truncated string")
	}
	return string(buf[off : off+n]), off + n, nil
}
