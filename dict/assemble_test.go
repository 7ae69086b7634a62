package dict

import (
	"fmt"
	"testing"

	"github.com/sav2arrow/ambers/format"
	"github.com/sav2arrow/ambers/section"
	"github.com/stretchr/testify/require"
)

// stringHead builds a type-2 head record declaring a string segment of
// the given width, with no label and no missing values.
func stringHead(name string, width int32) *section.VariableRecord {
	return &section.VariableRecord{TypeCode: width, ShortName: name}
}

func continuation() *section.VariableRecord {
	return &section.VariableRecord{TypeCode: section.VarTypeContinuation}
}

// segmentRecords builds one physical segment (a head plus its -1
// continuation chain) for a string variable of the given width, the same
// layout section.ParseVariableRecord produces on the wire (§4.5,
// "segment grouping per type-code contiguity rule").
func segmentRecords(name string, width int) []*section.VariableRecord {
	recs := []*section.VariableRecord{stringHead(name, int32(width))}
	continuations := (width+7)/8 - 1
	for n := 0; n < continuations; n++ {
		recs = append(recs, continuation())
	}
	return recs
}

// vlsRecords builds the full physical record chain for a Very Long
// String of totalWidth bytes: vlsSegmentCount(totalWidth) segments back
// to back, each an ordinary head-plus-continuations run. Segment widths
// are arbitrary (groupSegments trusts the VLS declaration's total width,
// not the sum of its physical segments' widths) but always fit in a
// single type-2 record (<=255).
func vlsRecords(name string, totalWidth int) []*section.VariableRecord {
	segCount := vlsSegmentCount(totalWidth)
	var out []*section.VariableRecord
	for s := 0; s < segCount; s++ {
		segName := name
		if s > 0 {
			segName = fmt.Sprintf("%s_%d", name, s)
		}
		out = append(out, segmentRecords(segName, 8)...)
	}
	return out
}

func TestGroupSegments_PlainNumericAndShortString(t *testing.T) {
	raw := &Raw{
		Variables: []*section.VariableRecord{
			{TypeCode: section.VarTypeNumeric, ShortName: "age"},
			stringHead("name", 5),
		},
		VeryLongStrings: map[string]int{},
	}

	vars, err := groupSegments(raw)
	require.NoError(t, err)
	require.Len(t, vars, 2)

	require.Equal(t, format.KindNumeric, vars[0].Kind)
	require.Equal(t, []Segment{{PhysicalIndex: 1}}, vars[0].Segments)

	require.Equal(t, format.KindString, vars[1].Kind)
	require.Equal(t, 5, vars[1].Width)
	require.Equal(t, []Segment{{PhysicalIndex: 2, Width: 5}}, vars[1].Segments)
}

func TestGroupSegments_WideStringAbsorbsContinuations(t *testing.T) {
	raw := &Raw{
		Variables:       segmentRecords("comment", 16), // head + 1 continuation
		VeryLongStrings: map[string]int{},
	}

	vars, err := groupSegments(raw)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	require.Equal(t, 16, vars[0].Width)
	require.Len(t, vars[0].Segments, 2)
}

// TestGroupSegments_VeryLongStringBoundaryWidths pins down the ghost-
// column fix across the widths where SPSS starts needing a second,
// third, or fourth physical segment (§4.5, "VLS resolution"; §8, "VLS
// non-splitting"): a Very Long String must always assemble into exactly
// one LogicalVariable, regardless of how many physical segment records
// it spans.
func TestGroupSegments_VeryLongStringBoundaryWidths(t *testing.T) {
	cases := []struct {
		name         string
		width        int
		wantSegments int // expected vlsSegmentCount(width)
	}{
		{"w255_twoSegments", 255, 2},
		{"w256_twoSegments", 256, 2},
		{"w504_twoSegments", 504, 2},
		{"w505_threeSegments", 505, 3},
		{"w1000_fourSegments", 1000, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.wantSegments, vlsSegmentCount(tc.width))

			raw := &Raw{
				Variables:       vlsRecords("note", tc.width),
				VeryLongStrings: map[string]int{"note": tc.width},
			}

			vars, err := groupSegments(raw)
			require.NoError(t, err)

			// No ghost columns: exactly one logical variable, no matter
			// how many physical segment records the VLS consumed.
			require.Len(t, vars, 1)
			require.Equal(t, "note", vars[0].ShortName)
			require.True(t, vars[0].IsVeryLongString)
			require.Equal(t, tc.width, vars[0].Width)
			require.Len(t, vars[0].Segments, tc.wantSegments)
		})
	}
}

func TestGroupSegments_VeryLongStringFollowedByAnotherVariable(t *testing.T) {
	// A VLS variable in the middle of the dictionary must not swallow a
	// following, unrelated variable's physical record.
	var recs []*section.VariableRecord
	recs = append(recs, vlsRecords("note", 505)...)
	recs = append(recs, &section.VariableRecord{TypeCode: section.VarTypeNumeric, ShortName: "age"})

	raw := &Raw{
		Variables:       recs,
		VeryLongStrings: map[string]int{"note": 505},
	}

	vars, err := groupSegments(raw)
	require.NoError(t, err)
	require.Len(t, vars, 2)
	require.Equal(t, "note", vars[0].ShortName)
	require.True(t, vars[0].IsVeryLongString)
	require.Equal(t, "age", vars[1].ShortName)
	require.Equal(t, format.KindNumeric, vars[1].Kind)
}

func TestGroupSegments_VeryLongStringMissingTrailingSegmentFails(t *testing.T) {
	raw := &Raw{
		Variables:       segmentRecords("note", 8), // only the first segment, none of the 2 trailing ones
		VeryLongStrings: map[string]int{"note": 505},
	}

	_, err := groupSegments(raw)
	require.Error(t, err)
}

func TestGroupSegments_UnknownVeryLongStringNameFails(t *testing.T) {
	raw := &Raw{
		Variables:       []*section.VariableRecord{stringHead("name", 5)},
		VeryLongStrings: map[string]int{"ghost": 600},
	}

	_, err := groupSegments(raw)
	require.Error(t, err)
}

func TestGroupSegments_LeadingContinuationFails(t *testing.T) {
	raw := &Raw{
		Variables:       []*section.VariableRecord{continuation()},
		VeryLongStrings: map[string]int{},
	}

	_, err := groupSegments(raw)
	require.Error(t, err)
}
