package arrowbuild

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/sav2arrow/ambers/dict"
	"github.com/sav2arrow/ambers/format"
	"github.com/sav2arrow/ambers/rowdecoder"
)

// columnBuilder pairs a logical variable with the typed Arrow builder
// backing its column and the value-index into a decoded Row it reads
// from.
type columnBuilder struct {
	variable  *dict.LogicalVariable
	valueIdx  int
	builder   array.Builder
}

// Batch accumulates decoded rows into Arrow column builders; Full reports
// when it reaches the configured size and Finish flushes the rows into an
// arrow.Record (§4.7).
type Batch struct {
	mem      memory.Allocator
	schema   *arrow.Schema
	columns  []columnBuilder
	size     int
	capacity int
}

// NewBatch constructs a Batch over the projected subset of vars (all of
// them if selected is nil), capped at capacity rows.
func NewBatch(vars []*dict.LogicalVariable, selected map[string]bool, capacity int) *Batch {
	mem := memory.NewGoAllocator()
	schema := BuildSchema(vars, selected)

	b := &Batch{mem: mem, schema: schema, capacity: capacity}
	for i, v := range vars {
		if selected != nil && !selected[v.Name] {
			continue
		}
		b.columns = append(b.columns, columnBuilder{
			variable: v,
			valueIdx: i,
			builder:  newBuilder(mem, v.ArrowKind),
		})
	}
	return b
}

func newBuilder(mem memory.Allocator, kind format.ArrowKind) array.Builder {
	switch kind {
	case format.ArrowString:
		return array.NewStringBuilder(mem)
	case format.ArrowDate:
		return array.NewDate32Builder(mem)
	case format.ArrowDatetime:
		return array.NewTimestampBuilder(mem, &arrow.TimestampType{Unit: arrow.Microsecond})
	case format.ArrowDuration:
		return array.NewDurationBuilder(mem, &arrow.DurationType{Unit: arrow.Microsecond})
	default:
		return array.NewFloat64Builder(mem)
	}
}

// Append adds one decoded row to every projected column's builder.
func (b *Batch) Append(row *rowdecoder.Row) {
	for _, col := range b.columns {
		v := row.Values[col.valueIdx]
		appendValue(col.builder, col.variable, v)
	}
	b.size++
}

func appendValue(builder array.Builder, variable *dict.LogicalVariable, v rowdecoder.Value) {
	if variable.Kind == format.KindString {
		sb := builder.(*array.StringBuilder)
		if v.Null {
			sb.AppendNull()
		} else {
			sb.Append(v.Text)
		}
		return
	}

	if v.Null {
		builder.AppendNull()
		return
	}

	switch variable.ArrowKind {
	case format.ArrowDate:
		builder.(*array.Date32Builder).Append(arrow.Date32(format.SecondsToUnixDays(v.Number)))
	case format.ArrowDatetime:
		builder.(*array.TimestampBuilder).Append(arrow.Timestamp(format.SecondsToUnixMicros(v.Number)))
	case format.ArrowDuration:
		builder.(*array.DurationBuilder).Append(arrow.Duration(format.SecondsToMicroDuration(v.Number)))
	default:
		builder.(*array.Float64Builder).Append(v.Number)
	}
}

// Full reports whether the batch has reached its configured capacity.
func (b *Batch) Full() bool {
	return b.capacity > 0 && b.size >= b.capacity
}

// Len reports the number of rows accumulated so far.
func (b *Batch) Len() int {
	return b.size
}

// Finish materializes the accumulated rows into an arrow.Record and
// resets the batch's builders for reuse. Returns nil if no rows were
// accumulated.
func (b *Batch) Finish() arrow.Record {
	if b.size == 0 {
		return nil
	}

	cols := make([]arrow.Array, len(b.columns))
	for i, col := range b.columns {
		cols[i] = col.builder.NewArray()
	}

	rec := array.NewRecord(b.schema, cols, int64(b.size))
	for _, arr := range cols {
		arr.Release()
	}
	b.size = 0
	return rec
}

// Release releases every column builder's resources. Call once the
// Batch will no longer be used.
func (b *Batch) Release() {
	for _, col := range b.columns {
		col.builder.Release()
	}
}
