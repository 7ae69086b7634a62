// Package dict walks the dictionary records following the file header
// (§4.4) and assembles them into the LogicalVariable table a reader
// exposes (§4.5). It validates record codes, extension sizes, the
// physical variable count, and value-label application indices as it
// goes; dict is the only layer that understands how segments, long
// names, VLS declarations, and extension records combine into the
// variables a caller actually sees.
//
// Grounded on the teacher's staged Decode() methods (numbered-step
// decoding of a record sequence into a structured result).
package dict

import (
	"io"

	"github.com/sav2arrow/ambers/endian"
	"github.com/sav2arrow/ambers/errs"
	"github.com/sav2arrow/ambers/section"
)

// Raw is the unassembled dictionary: every record parsed in file order,
// before segment grouping and extension application.
type Raw struct {
	Header          *section.Header
	Variables       []*section.VariableRecord // physical order, continuations included
	ValueLabelSets  []valueLabelSet
	Documents       []string
	IntegerInfo     *section.IntegerInfo
	FloatInfo       *section.FloatInfo
	LongVarNames    map[string]string
	VeryLongStrings map[string]int
	ExtendedCases   int64
	HasExtendedCases bool
	Encoding        string
	FileAttributes  map[string]string
	VarAttributes   map[string]map[string]string
	DisplayParams   []section.DisplayParam
	MrSets          []section.MrSet
	LongStringLabels  []section.LongStringLabelSet
	LongStringMissing []section.LongStringMissingSet
}

type valueLabelSet struct {
	labels  *section.ValueLabelRecord
	applies *section.ValueLabelVarsRecord
}

// ParseRaw walks every record after the file header, dispatching on its
// leading record-type tag, until the type-999 dictionary terminator.
func ParseRaw(r io.Reader, header *section.Header, eng endian.EndianEngine) (*Raw, error) {
	raw := &Raw{
		Header:          header,
		LongVarNames:    map[string]string{},
		VeryLongStrings: map[string]int{},
		FileAttributes:  map[string]string{},
		VarAttributes:   map[string]map[string]string{},
	}

	var pendingLabels *section.ValueLabelRecord

	for {
		recType, err := readRecType(r, eng)
		if err != nil {
			return nil, err
		}

		switch recType {
		case section.RecTypeVariable:
			v, err := section.ParseVariableRecord(r, eng)
			if err != nil {
				return nil, err
			}
			raw.Variables = append(raw.Variables, v)

		case section.RecTypeValueLabel:
			if pendingLabels != nil {
				return nil, errs.CorruptDictionary("dictionary: value label record without a preceding application list")
			}
			vl, err := section.ParseValueLabelRecord(r, eng)
			if err != nil {
				return nil, err
			}
			pendingLabels = vl

		case section.RecTypeValueLabelVars:
			if pendingLabels == nil {
				return nil, errs.CorruptDictionary("dictionary: value label application list without a preceding label set")
			}
			applies, err := section.ParseValueLabelVarsRecord(r, eng)
			if err != nil {
				return nil, err
			}
			for _, idx := range applies.VariableIndices {
				if idx < 1 || int(idx) > len(raw.Variables) {
					return nil, errs.CorruptDictionary("dictionary: value label application index out of range")
				}
			}
			raw.ValueLabelSets = append(raw.ValueLabelSets, valueLabelSet{labels: pendingLabels, applies: applies})
			pendingLabels = nil

		case section.RecTypeDocument:
			d, err := section.ParseDocumentRecord(r, eng)
			if err != nil {
				return nil, err
			}
			raw.Documents = append(raw.Documents, d.Lines...)

		case section.RecTypeExtension:
			if err := parseExtension(r, eng, raw); err != nil {
				return nil, err
			}

		case section.RecTypeDictionaryEnd:
			// A trailing int32 filler follows the 999 tag itself.
			if _, err := discard(r, 4); err != nil {
				return nil, err
			}
			if pendingLabels != nil {
				return nil, errs.CorruptDictionary("dictionary: unterminated value label set")
			}
			if int32(len(raw.Variables)) < header.NominalCaseSize {
				return nil, errs.CorruptDictionary("dictionary: fewer variable records than the header declared")
			}
			return raw, nil

		default:
			return nil, errs.CorruptDictionary("dictionary: unrecognized record type")
		}
	}
}

func readRecType(r io.Reader, eng endian.EndianEngine) (int32, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, errs.Io("", err)
	}
	return int32(eng.Uint32(buf)), nil
}

func discard(r io.Reader, n int) (int, error) {
	buf := make([]byte, n)
	return io.ReadFull(r, buf)
}

func parseExtension(r io.Reader, eng endian.EndianEngine, raw *Raw) error {
	ext, err := section.ParseExtensionRecord(r, eng)
	if err != nil {
		return err
	}

	switch ext.Subtype {
	case section.ExtIntegerInfo:
		info, err := section.DecodeIntegerInfo(ext, eng)
		if err != nil {
			return err
		}
		raw.IntegerInfo = &info

	case section.ExtFloatInfo:
		info, err := section.DecodeFloatInfo(ext, eng)
		if err != nil {
			return err
		}
		raw.FloatInfo = &info

	case section.ExtDisplayParams:
		params, err := section.DecodeDisplayParams(ext, eng)
		if err != nil {
			return err
		}
		raw.DisplayParams = params

	case section.ExtLongVarNames:
		for k, v := range section.DecodeLongVarNames(ext) {
			raw.LongVarNames[k] = v
		}

	case section.ExtVeryLongStrings:
		m, err := section.DecodeVeryLongStrings(ext)
		if err != nil {
			return err
		}
		for k, v := range m {
			raw.VeryLongStrings[k] = v
		}

	case section.ExtExtendedCaseCount:
		n, err := section.DecodeExtendedCaseCount(ext, eng)
		if err != nil {
			return err
		}
		raw.ExtendedCases = n
		raw.HasExtendedCases = true

	case section.ExtEncoding:
		raw.Encoding = section.DecodeEncoding(ext)

	case section.ExtFileAttributes:
		for k, v := range section.DecodeKeyValueBlob(string(ext.Payload)) {
			raw.FileAttributes[k] = v
		}

	case section.ExtVariableAttributes:
		for k, v := range section.DecodeVariableAttributes(ext) {
			raw.VarAttributes[k] = v
		}

	case section.ExtMultiResponseSets:
		sets, err := section.DecodeMultiResponseSets(ext)
		if err != nil {
			return err
		}
		raw.MrSets = append(raw.MrSets, sets...)

	case section.ExtLongStringLabels:
		sets, err := section.DecodeLongStringLabels(ext, eng)
		if err != nil {
			return err
		}
		raw.LongStringLabels = append(raw.LongStringLabels, sets...)

	case section.ExtLongStringMissing:
		sets, err := section.DecodeLongStringMissing(ext, eng)
		if err != nil {
			return err
		}
		raw.LongStringMissing = append(raw.LongStringMissing, sets...)

	default:
		// Unrecognized subtype: its (size, count) span has already been
		// fully consumed by ParseExtensionRecord, so simply ignore it.
	}

	return nil
}
