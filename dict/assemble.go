package dict

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/sav2arrow/ambers/errs"
	"github.com/sav2arrow/ambers/format"
	"github.com/sav2arrow/ambers/internal/hash"
	"github.com/sav2arrow/ambers/section"
)

// nameIndex is a hash-indexed lookup table over a dictionary's logical
// variables, keyed by both their resolved Name and their original
// ShortName. Collisions are resolved by falling back to an exact string
// compare, the same two-step (hash, then verify) pattern internal/hash
// documents for the teacher's metric-ID lookups.
type nameIndex struct {
	buckets map[uint64][]*LogicalVariable
}

func newNameIndex(vars []*LogicalVariable) *nameIndex {
	idx := &nameIndex{buckets: map[uint64][]*LogicalVariable{}}
	for _, v := range vars {
		idx.add(v.Name, v)
		if v.ShortName != v.Name {
			idx.add(v.ShortName, v)
		}
	}
	return idx
}

func (idx *nameIndex) add(name string, v *LogicalVariable) {
	h := hash.Name(name)
	idx.buckets[h] = append(idx.buckets[h], v)
}

func (idx *nameIndex) lookup(name string) (*LogicalVariable, bool) {
	for _, v := range idx.buckets[hash.Name(name)] {
		if v.Name == name || v.ShortName == name {
			return v, true
		}
	}
	return nil, false
}

// MissingRule is the decoded shape of a variable's declared missing
// values (§3, Glossary "MissingRule").
type MissingRule struct {
	Discrete   []float64
	HasRange   bool
	Low, High  float64
	StringVals []string // for string variables, from subtype 22
}

// Segment describes one physical record a LogicalVariable spans: its
// 1-based physical index and declared width (0 for numeric).
type Segment struct {
	PhysicalIndex int
	Width         int // declared string width of a segment head; 0 for numeric and for -1 continuations
}

// LogicalVariable is one assembled, user-facing column (§4.5).
type LogicalVariable struct {
	Name             string
	ShortName        string
	Kind             format.VariableKind
	Width            int // total string width; 0 for numeric
	IsVeryLongString bool
	Label            string
	Missing          MissingRule
	PrintFormat      format.PrintFormat
	WriteFormat      format.PrintFormat
	ArrowKind        format.ArrowKind
	Measure          format.Measure
	Alignment        format.Alignment
	DisplayWidth     int32
	ValueLabels      map[string]string
	Attributes       map[string]string
	Segments         []Segment
	IsWeight         bool
}

// Dictionary is the fully assembled result dict.Assemble produces: the
// ordered logical variables plus file-level metadata a reader surfaces
// verbatim.
type Dictionary struct {
	Header         *section.Header
	Variables      []*LogicalVariable
	Documents      []string
	Encoding       string
	FileAttributes map[string]string
	MrSets         []section.MrSet
	CaseCount      int64 // resolved from extended case count if present
}

// Assemble groups Raw's physical variable records into logical
// variables (segment runs, VLS resolution) and layers every extension
// record's metadata on top (§4.5).
func Assemble(raw *Raw) (*Dictionary, error) {
	vars, err := groupSegments(raw)
	if err != nil {
		return nil, err
	}

	applyLongNames(vars, raw.LongVarNames)
	applyDisplayParams(vars, raw.DisplayParams)
	applyValueLabels(vars, raw.ValueLabelSets)
	applyLongStringLabels(vars, raw.LongStringLabels)
	applyLongStringMissing(vars, raw.LongStringMissing)
	applyAttributes(vars, raw.VarAttributes)
	applyWeight(vars, raw.Header.WeightIndex)

	for _, v := range vars {
		v.ArrowKind = format.ArrowKindForFormat(v.Kind, v.PrintFormat.Code)
	}

	caseCount := int64(raw.Header.CaseCount)
	if raw.HasExtendedCases {
		caseCount = raw.ExtendedCases
	}

	return &Dictionary{
		Header:         raw.Header,
		Variables:      vars,
		Documents:      raw.Documents,
		Encoding:       raw.Encoding,
		FileAttributes: raw.FileAttributes,
		MrSets:         raw.MrSets,
		CaseCount:      caseCount,
	}, nil
}

// groupSegments walks the physical variable records in order, starting a
// new LogicalVariable at every non-continuation record and absorbing
// immediately-following -1 continuation records into it (§4.5, "segment
// grouping per type-code contiguity rule"). A string head named in the
// VLS declarations (subtype 14) additionally absorbs its trailing
// segment heads (and each of their own continuation chains) into the
// same LogicalVariable, so a Very Long String never surfaces the ghost
// columns §4.5's contract forbids.
func groupSegments(raw *Raw) ([]*LogicalVariable, error) {
	var out []*LogicalVariable
	consumedVLS := map[string]bool{}

	i := 0
	for i < len(raw.Variables) {
		rec := raw.Variables[i]
		physicalIndex := i + 1 // 1-based

		if rec.IsContinuation() {
			return nil, errs.CorruptDictionary("dictionary: continuation record with no preceding variable")
		}

		lv := &LogicalVariable{
			ShortName:   rec.ShortName,
			Name:        rec.ShortName,
			Label:       rec.Label,
			PrintFormat: format.PrintFormat(rec.PrintFormat),
			WriteFormat: format.PrintFormat(rec.WriteFormat),
			ValueLabels: map[string]string{},
			Attributes:  map[string]string{},
		}
		lv.Missing = missingFromRecord(rec)

		if rec.IsNumeric() {
			lv.Kind = format.KindNumeric
			lv.Segments = []Segment{{PhysicalIndex: physicalIndex}}
			i++
		} else {
			lv.Kind = format.KindString
			width := int(rec.TypeCode)
			lv.Segments = []Segment{{PhysicalIndex: physicalIndex, Width: width}}
			lv.Width = width
			i++

			var err error
			i, err = absorbContinuations(raw, i, lv, width)
			if err != nil {
				return nil, err
			}

			if totalWidth, ok := raw.VeryLongStrings[rec.ShortName]; ok {
				i, err = absorbVLSSegments(raw, i, lv, totalWidth)
				if err != nil {
					return nil, err
				}
				lv.IsVeryLongString = true
				lv.Width = totalWidth
				consumedVLS[rec.ShortName] = true
			}
		}

		out = append(out, lv)
	}

	for name := range raw.VeryLongStrings {
		if !consumedVLS[name] {
			return nil, errs.CorruptDictionary(fmt.Sprintf("very long strings: unknown variable %q", name))
		}
	}

	return out, nil
}

// absorbContinuations appends one Segment per -1 continuation record
// following a string head of the given declared width (§4.5, "segment
// grouping per type-code contiguity rule"), returning the advanced
// physical-record index.
func absorbContinuations(raw *Raw, i int, lv *LogicalVariable, width int) (int, error) {
	continuations := (width+7)/8 - 1
	for n := 0; n < continuations; n++ {
		if i >= len(raw.Variables) || !raw.Variables[i].IsContinuation() {
			return i, errs.CorruptDictionary("dictionary: missing continuation record for wide string variable")
		}
		lv.Segments = append(lv.Segments, Segment{PhysicalIndex: i + 1})
		i++
	}
	return i, nil
}

// absorbVLSSegments appends the trailing segment heads (and each of their
// own continuation chains) a Very Long String of totalWidth bytes is
// stored across, beyond the first segment groupSegments already grouped
// (§4.5, "VLS resolution"). Each trailing segment is itself an ordinary
// type-2 variable record — a head (type code 1..255) possibly followed
// by -1 continuations — written back-to-back with no intervening record.
func absorbVLSSegments(raw *Raw, i int, lv *LogicalVariable, totalWidth int) (int, error) {
	segCount := vlsSegmentCount(totalWidth)
	for s := 1; s < segCount; s++ {
		if i >= len(raw.Variables) {
			return i, errs.CorruptDictionary("very long strings: missing trailing segment")
		}
		seg := raw.Variables[i]
		if seg.IsContinuation() || seg.IsNumeric() {
			return i, errs.CorruptDictionary("very long strings: malformed trailing segment")
		}
		segWidth := int(seg.TypeCode)
		lv.Segments = append(lv.Segments, Segment{PhysicalIndex: i + 1, Width: segWidth})
		i++

		var err error
		i, err = absorbContinuations(raw, i, lv, segWidth)
		if err != nil {
			return i, err
		}
	}
	return i, nil
}

func missingFromRecord(rec *section.VariableRecord) MissingRule {
	switch {
	case rec.MissingCount >= 1 && rec.MissingCount <= 3:
		return MissingRule{Discrete: rec.Missing}
	case rec.MissingCount == section.MissingOneRange:
		return MissingRule{HasRange: true, Low: rec.Missing[0], High: rec.Missing[1]}
	case rec.MissingCount == section.MissingRangePlusOne:
		return MissingRule{HasRange: true, Low: rec.Missing[0], High: rec.Missing[1], Discrete: rec.Missing[2:3]}
	default:
		return MissingRule{}
	}
}

func applyLongNames(vars []*LogicalVariable, longNames map[string]string) {
	for _, v := range vars {
		if long, ok := longNames[v.ShortName]; ok {
			v.Name = long
		}
	}
}

// vlsSegmentCount reports how many physical segment variables SPSS writes
// for a Very Long String of the given declared width: the first (already
// grouped by groupSegments as an ordinary <=255 string head) plus
// ceil(width/252)-1 trailing segment heads, each itself a head variable
// with its own continuation chain (§4.5, "VLS resolution").
func vlsSegmentCount(width int) int {
	if width <= 0 {
		return 1
	}
	return 1 + (width-1)/252
}

func applyDisplayParams(vars []*LogicalVariable, params []section.DisplayParam) {
	// Display params are positional against the *declared* (non-
	// continuation) variable sequence. A Very Long String spans one such
	// record per segment head, so the position advances by the number of
	// segment heads each LogicalVariable absorbed.
	p := 0
	for _, v := range vars {
		if p >= len(params) {
			break
		}
		v.Measure = format.MeasureFromCode(params[p].Measure)
		v.Alignment = format.AlignmentFromCode(params[p].Alignment)
		v.DisplayWidth = params[p].Width

		heads := 1
		if v.Kind == format.KindString {
			heads = 0
			for _, seg := range v.Segments {
				if seg.Width > 0 {
					heads++
				}
			}
		}
		p += heads
	}
}

func applyValueLabels(vars []*LogicalVariable, sets []valueLabelSet) {
	for _, set := range sets {
		for _, idx := range set.applies.VariableIndices {
			v := variableOwningPhysicalIndex(vars, int(idx))
			if v == nil {
				continue
			}
			for _, entry := range set.labels.Entries {
				key := valueLabelKey(v, entry)
				v.ValueLabels[key] = entry.Label
			}
		}
	}
}

func valueLabelKey(v *LogicalVariable, entry section.ValueLabelEntry) string {
	if v.Kind == format.KindString {
		return entry.AsShortString()
	}
	// Value-label entries are always little-endian: layout code 2 is
	// the only layout section.ParseHeader accepts.
	return formatNumericKey(entry.AsFloat64(binary.LittleEndian))
}

func formatNumericKey(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func variableOwningPhysicalIndex(vars []*LogicalVariable, physicalIndex int) *LogicalVariable {
	for _, v := range vars {
		for _, seg := range v.Segments {
			if seg.PhysicalIndex == physicalIndex {
				return v
			}
		}
	}
	return nil
}

func applyLongStringLabels(vars []*LogicalVariable, sets []section.LongStringLabelSet) {
	idx := newNameIndex(vars)
	for _, set := range sets {
		v, ok := idx.lookup(set.VariableName)
		if !ok {
			continue
		}
		for val, label := range set.Labels {
			v.ValueLabels[val] = label
		}
	}
}

func applyLongStringMissing(vars []*LogicalVariable, sets []section.LongStringMissingSet) {
	idx := newNameIndex(vars)
	for _, set := range sets {
		v, ok := idx.lookup(set.VariableName)
		if !ok {
			continue
		}
		v.Missing.StringVals = set.Values
	}
}

func applyAttributes(vars []*LogicalVariable, attrs map[string]map[string]string) {
	idx := newNameIndex(vars)
	for name, kv := range attrs {
		if v, ok := idx.lookup(name); ok {
			for k, val := range kv {
				v.Attributes[k] = val
			}
		}
	}
}

func applyWeight(vars []*LogicalVariable, weightIndex int32) {
	if weightIndex <= 0 {
		return
	}
	if v := variableOwningPhysicalIndex(vars, int(weightIndex)); v != nil {
		v.IsWeight = true
	}
}

