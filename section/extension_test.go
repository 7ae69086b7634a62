package section

import (
	"bytes"
	"math"
	"testing"

	"github.com/sav2arrow/ambers/endian"
	"github.com/stretchr/testify/require"
)

func TestParseExtensionRecord(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	var buf bytes.Buffer
	write32 := func(v int32) { b := make([]byte, 4); eng.PutUint32(b, uint32(v)); buf.Write(b) }
	write32(3) // subtype
	write32(4) // size
	write32(2) // count
	buf.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})

	rec, err := ParseExtensionRecord(&buf, eng)
	require.NoError(t, err)
	require.Equal(t, int32(3), rec.Subtype)
	require.Equal(t, 8, len(rec.Payload))
}

func TestDecodeIntegerInfo(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	payload := make([]byte, 32)
	for i := 0; i < 8; i++ {
		eng.PutUint32(payload[i*4:i*4+4], uint32(i+1))
	}
	rec := &ExtensionRecord{Subtype: ExtIntegerInfo, Payload: payload}

	info, err := DecodeIntegerInfo(rec, eng)
	require.NoError(t, err)
	require.Equal(t, int32(1), info.VersionMajor)
	require.Equal(t, int32(8), info.CharacterCode)
}

func TestDecodeFloatInfo(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	payload := make([]byte, 24)
	eng.PutUint64(payload[0:8], math.Float64bits(-1.7976931348623157e+308))
	eng.PutUint64(payload[8:16], math.Float64bits(1e30))
	eng.PutUint64(payload[16:24], math.Float64bits(-1e30))
	rec := &ExtensionRecord{Subtype: ExtFloatInfo, Payload: payload}

	info, err := DecodeFloatInfo(rec, eng)
	require.NoError(t, err)
	require.Equal(t, 1e30, info.Highest)
}

func TestDecodeDisplayParams(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	payload := make([]byte, 24)
	eng.PutUint32(payload[0:4], 1)
	eng.PutUint32(payload[4:8], 8)
	eng.PutUint32(payload[8:12], 1)
	eng.PutUint32(payload[12:16], 3)
	eng.PutUint32(payload[16:20], 10)
	eng.PutUint32(payload[20:24], 0)
	rec := &ExtensionRecord{Subtype: ExtDisplayParams, Size: 12, Count: 2, Payload: payload}

	params, err := DecodeDisplayParams(rec, eng)
	require.NoError(t, err)
	require.Len(t, params, 2)
	require.Equal(t, int32(1), params[0].Measure)
	require.Equal(t, int32(3), params[1].Measure)
}

func TestDecodeLongVarNames(t *testing.T) {
	rec := &ExtensionRecord{Payload: []byte("var0001=LongVariableName\tvar0002=AnotherName")}
	m := DecodeLongVarNames(rec)
	require.Equal(t, "LongVariableName", m["var0001"])
	require.Equal(t, "AnotherName", m["var0002"])
}

func TestDecodeVeryLongStrings(t *testing.T) {
	rec := &ExtensionRecord{Payload: []byte("bignote=00500\x00othernote=00300\x00")}
	m, err := DecodeVeryLongStrings(rec)
	require.NoError(t, err)
	require.Equal(t, 500, m["bignote"])
	require.Equal(t, 300, m["othernote"])
}

func TestDecodeExtendedCaseCount(t *testing.T) {
	eng := endian.GetLittleEndianEngine()
	payload := make([]byte, 8)
	eng.PutUint64(payload, 123456789)
	rec := &ExtensionRecord{Payload: payload}

	n, err := DecodeExtendedCaseCount(rec, eng)
	require.NoError(t, err)
	require.Equal(t, int64(123456789), n)
}

func TestDecodeEncoding(t *testing.T) {
	rec := &ExtensionRecord{Payload: []byte("UTF-8")}
	require.Equal(t, "UTF-8", DecodeEncoding(rec))
}

func TestDecodeKeyValueBlob(t *testing.T) {
	m := DecodeKeyValueBlob("Origin(survey-tool)\nVersion(2)")
	require.Equal(t, "survey-tool", m["Origin"])
	require.Equal(t, "2", m["Version"])
}

func TestDecodeVariableAttributes(t *testing.T) {
	rec := &ExtensionRecord{Payload: []byte("age:Origin(import)\n/income:Origin(import)\nScale(ratio)")}
	m := DecodeVariableAttributes(rec)
	require.Equal(t, "import", m["age"]["Origin"])
	require.Equal(t, "ratio", m["income"]["Scale"])
}
