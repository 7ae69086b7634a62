package section

import (
	"bytes"
	"math"
	"testing"

	"github.com/sav2arrow/ambers/endian"
	"github.com/sav2arrow/ambers/format"
	"github.com/stretchr/testify/require"
)

func packFormat(code, width, decimals uint8) int32 {
	return int32(uint32(code)<<16 | uint32(width)<<8 | uint32(decimals))
}

func TestParseVariableRecord_NumericWithLabelAndMissing(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	var buf bytes.Buffer

	write32 := func(v int32) { b := make([]byte, 4); eng.PutUint32(b, uint32(v)); buf.Write(b) }
	write32(VarTypeNumeric)
	write32(1) // has_label
	write32(1) // one discrete missing value
	write32(packFormat(format.FmtF, 8, 2))
	write32(packFormat(format.FmtF, 8, 2))
	buf.WriteString("age     ") // 8-byte short name

	write32(6) // label length
	buf.WriteString("Age in") // padded to 8 (roundUp4(6)=8)
	buf.WriteString("  ")

	missBuf := make([]byte, 8)
	eng.PutUint64(missBuf, math.Float64bits(-9.0))
	buf.Write(missBuf)

	v, err := ParseVariableRecord(&buf, eng)
	require.NoError(t, err)
	require.True(t, v.IsNumeric())
	require.Equal(t, "age", v.ShortName)
	require.Equal(t, "Age in", v.Label)
	require.Len(t, v.Missing, 1)
	require.Equal(t, -9.0, v.Missing[0])
}

func TestParseVariableRecord_Continuation(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	var buf bytes.Buffer
	write32 := func(v int32) { b := make([]byte, 4); eng.PutUint32(b, uint32(v)); buf.Write(b) }
	write32(VarTypeContinuation)
	write32(0)
	write32(MissingNone)
	write32(0)
	write32(0)
	buf.WriteString("        ")

	v, err := ParseVariableRecord(&buf, eng)
	require.NoError(t, err)
	require.True(t, v.IsContinuation())
}

func TestParseVariableRecord_UnrecognizedMissingCode(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	var buf bytes.Buffer
	write32 := func(v int32) { b := make([]byte, 4); eng.PutUint32(b, uint32(v)); buf.Write(b) }
	write32(VarTypeNumeric)
	write32(0)
	write32(-1) // not a valid missing-value count
	write32(0)
	write32(0)
	buf.WriteString("        ")

	_, err := ParseVariableRecord(&buf, eng)
	require.Error(t, err)
}

func TestUnpackFormat(t *testing.T) {
	pf := unpackFormat(packFormat(format.FmtDATE, 11, 0))
	require.Equal(t, uint8(format.FmtDATE), pf.Code)
	require.Equal(t, uint8(11), pf.Width)
	require.Equal(t, uint8(0), pf.Decimals)
}
