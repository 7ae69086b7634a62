// Package arrowbuild turns decoded rows into Apache Arrow record batches
// (§4.7): one typed builder per projected column, with Batch.Full
// reporting when the configured batch size is reached. Row limits are
// enforced by the reader package, not here.
//
// Each decoded value is appended straight into its column's Arrow
// builder, with no intermediate staging slice; apache/arrow-go/v18 is
// recruited from the wider retrieval pack
// (see SPEC_FULL.md §B) since the teacher never produces Arrow output.
package arrowbuild

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/sav2arrow/ambers/dict"
	"github.com/sav2arrow/ambers/format"
)

// BuildSchema derives the Arrow schema for the projected set of logical
// variables (or all of them, if selected is nil), in dictionary order.
func BuildSchema(vars []*dict.LogicalVariable, selected map[string]bool) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(vars))
	for _, v := range vars {
		if selected != nil && !selected[v.Name] {
			continue
		}
		fields = append(fields, arrow.Field{
			Name:     v.Name,
			Type:     arrowType(v.ArrowKind),
			Nullable: true,
		})
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(kind format.ArrowKind) arrow.DataType {
	switch kind {
	case format.ArrowString:
		return arrow.BinaryTypes.String
	case format.ArrowDate:
		return arrow.FixedWidthTypes.Date32
	case format.ArrowDatetime:
		return &arrow.TimestampType{Unit: arrow.Microsecond}
	case format.ArrowDuration:
		return &arrow.DurationType{Unit: arrow.Microsecond}
	default:
		return arrow.PrimitiveTypes.Float64
	}
}
