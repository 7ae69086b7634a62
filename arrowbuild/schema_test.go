package arrowbuild

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sav2arrow/ambers/dict"
	"github.com/sav2arrow/ambers/format"
)

func TestBuildSchema_AllColumns(t *testing.T) {
	vars := []*dict.LogicalVariable{
		{Name: "age", ArrowKind: format.ArrowFloat64},
		{Name: "visit_date", ArrowKind: format.ArrowDate},
		{Name: "created_at", ArrowKind: format.ArrowDatetime},
		{Name: "duration", ArrowKind: format.ArrowDuration},
		{Name: "name", ArrowKind: format.ArrowString},
	}

	schema := BuildSchema(vars, nil)
	require.Equal(t, 5, schema.NumFields())
	for _, f := range schema.Fields() {
		require.True(t, f.Nullable)
	}
}

func TestBuildSchema_Projection(t *testing.T) {
	vars := []*dict.LogicalVariable{
		{Name: "age", ArrowKind: format.ArrowFloat64},
		{Name: "name", ArrowKind: format.ArrowString},
	}

	schema := BuildSchema(vars, map[string]bool{"age": true})
	require.Equal(t, 1, schema.NumFields())
	require.Equal(t, "age", schema.Field(0).Name)
}
