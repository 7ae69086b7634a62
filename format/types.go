// Package format defines the small enumerations and constants shared by
// every layer of ambers: the exported string enums that make up part of
// the SpssMetadata surface (§6 of the spec), the print/write format codes
// that drive Arrow type selection, and the SPSS date epoch.
package format

import (
	"fmt"
	"time"
)

// FileFormat identifies the on-disk container variant.
type FileFormat uint8

const (
	FileFormatSav FileFormat = iota + 1
	FileFormatZsav
)

func (f FileFormat) String() string {
	switch f {
	case FileFormatSav:
		return "sav"
	case FileFormatZsav:
		return "zsav"
	default:
		return "unknown"
	}
}

// Measure is the measurement-level metadata SPSS attaches to a variable.
type Measure uint8

const (
	MeasureUnknown Measure = iota
	MeasureNominal
	MeasureOrdinal
	MeasureScale
)

func (m Measure) String() string {
	switch m {
	case MeasureNominal:
		return "nominal"
	case MeasureOrdinal:
		return "ordinal"
	case MeasureScale:
		return "scale"
	default:
		return "unknown"
	}
}

// MeasureFromCode maps subtype-11 display-parameter measure codes.
// SPSS encodes 1=nominal, 2=ordinal, 3=scale in the display parameter
// record; 0 and anything else is unknown.
func MeasureFromCode(code int32) Measure {
	switch code {
	case 1:
		return MeasureNominal
	case 2:
		return MeasureOrdinal
	case 3:
		return MeasureScale
	default:
		return MeasureUnknown
	}
}

// Alignment is the display alignment metadata attached to a variable.
//
// Unlike the reference reader (which reports "unknown" unconditionally —
// see SPEC_FULL.md §C), ambers reports the real alignment decoded from
// the subtype-11 display parameter record.
type Alignment uint8

const (
	AlignmentUnknown Alignment = iota
	AlignmentLeft
	AlignmentRight
	AlignmentCenter
)

func (a Alignment) String() string {
	switch a {
	case AlignmentLeft:
		return "left"
	case AlignmentRight:
		return "right"
	case AlignmentCenter:
		return "center"
	default:
		return "unknown"
	}
}

// AlignmentFromCode maps subtype-11 display-parameter alignment codes:
// 0=left, 1=right, 2=center.
func AlignmentFromCode(code int32) Alignment {
	switch code {
	case 0:
		return AlignmentLeft
	case 1:
		return AlignmentRight
	case 2:
		return AlignmentCenter
	default:
		return AlignmentUnknown
	}
}

// VariableKind is the logical type of a LogicalVariable: either Numeric
// or a declared-width String. It is distinct from the Arrow logical type
// (ArrowKind), which further distinguishes date/datetime/duration
// numerics by print format.
type VariableKind uint8

const (
	KindNumeric VariableKind = iota
	KindString
)

// ArrowKind is the Arrow-level logical type a decoded column materializes
// as, derived solely from the print format code (§3, "Arrow logical
// types"); width/decimals never affect this choice.
type ArrowKind uint8

const (
	ArrowFloat64 ArrowKind = iota
	ArrowString
	ArrowDate
	ArrowDatetime
	ArrowDuration
)

// PrintFormat is the (code, width, decimals) triple SPSS stores for the
// print format of a variable (§3). WriteFormat has the same shape and is
// parsed the same way but kept separate because the two rarely but can
// differ.
type PrintFormat struct {
	Code     uint8
	Width    uint8
	Decimals uint8
}

// Print format codes relevant to Arrow type selection (§3). The full SPSS
// format code space is larger (numeric, currency, scientific, ...); codes
// outside this table always select ArrowFloat64 for numeric variables and
// ArrowString for string variables.
const (
	FmtA        = 1 // alphanumeric
	FmtAHEX     = 2
	FmtCOMMA    = 3
	FmtDOLLAR   = 4
	FmtF        = 5 // numeric, no special meaning
	FmtIB       = 6
	FmtPIBHEX   = 7
	FmtP        = 8
	FmtPIB      = 9
	FmtPK       = 10
	FmtRB       = 11
	FmtRBHEX    = 12
	FmtZ        = 15
	FmtN        = 16
	FmtE        = 17
	FmtDATE     = 20
	FmtTIME     = 21
	FmtDATETIME = 22
	FmtADATE    = 23
	FmtJDATE    = 24
	FmtDTIME    = 25
	FmtWKDAY    = 26
	FmtMONTH    = 27
	FmtMOYR     = 28
	FmtQYR      = 29
	FmtWKYR     = 30
	FmtPCT      = 31
	FmtDOT      = 32
	FmtCCA      = 33
	FmtCCB      = 34
	FmtCCC      = 35
	FmtCCD      = 36
	FmtCCE      = 37
	FmtEDATE    = 38
	FmtSDATE    = 39
	FmtYMDHMS   = 41
)

// formatMnemonics maps a print format code to its PSPP/SPSS mnemonic
// prefix, the same token pyreadstat/readstat render into
// original_variable_types (e.g. "F8.2", "A255", "DATE10").
var formatMnemonics = map[uint8]string{
	FmtA:        "A",
	FmtAHEX:     "AHEX",
	FmtCOMMA:    "COMMA",
	FmtDOLLAR:   "DOLLAR",
	FmtF:        "F",
	FmtIB:       "IB",
	FmtPIBHEX:   "PIBHEX",
	FmtP:        "P",
	FmtPIB:      "PIB",
	FmtPK:       "PK",
	FmtRB:       "RB",
	FmtRBHEX:    "RBHEX",
	FmtZ:        "Z",
	FmtN:        "N",
	FmtE:        "E",
	FmtDATE:     "DATE",
	FmtTIME:     "TIME",
	FmtDATETIME: "DATETIME",
	FmtADATE:    "ADATE",
	FmtJDATE:    "JDATE",
	FmtDTIME:    "DTIME",
	FmtWKDAY:    "WKDAY",
	FmtMONTH:    "MONTH",
	FmtMOYR:     "MOYR",
	FmtQYR:      "QYR",
	FmtWKYR:     "WKYR",
	FmtPCT:      "PCT",
	FmtDOT:      "DOT",
	FmtCCA:      "CCA",
	FmtCCB:      "CCB",
	FmtCCC:      "CCC",
	FmtCCD:      "CCD",
	FmtCCE:      "CCE",
	FmtEDATE:    "EDATE",
	FmtSDATE:    "SDATE",
	FmtYMDHMS:   "YMDHMS",
}

// String renders a print/write format as the mnemonic+width[.decimals]
// token SPSS tooling uses (§3, SpssMetadata "spss_variable_types": "F8.2",
// "A255", "DATE10"). An unrecognized code falls back to "F" (numeric) or
// "A" (string) plus its width, since the on-disk code space is wider than
// the table above and a caller still needs a stable, non-empty token.
func (p PrintFormat) String(kind VariableKind) string {
	name, ok := formatMnemonics[p.Code]
	if !ok {
		name = "F"
		if kind == KindString {
			name = "A"
		}
	}
	if p.Decimals > 0 {
		return fmt.Sprintf("%s%d.%d", name, p.Width, p.Decimals)
	}
	return fmt.Sprintf("%s%d", name, p.Width)
}

// ArrowKindForFormat maps a print format code to the Arrow logical type
// it selects, per §3: "the mapping is determined solely by the print
// format code; width/decimals are ignored for type selection."
func ArrowKindForFormat(kind VariableKind, code uint8) ArrowKind {
	if kind == KindString {
		return ArrowString
	}

	switch code {
	case FmtDATE, FmtADATE, FmtEDATE, FmtJDATE, FmtSDATE, FmtMONTH, FmtQYR, FmtWKYR, FmtMOYR:
		return ArrowDate
	case FmtDATETIME, FmtYMDHMS:
		return ArrowDatetime
	case FmtDTIME, FmtTIME:
		return ArrowDuration
	default:
		return ArrowFloat64
	}
}

// SpssEpoch is the origin SPSS numeric dates and datetimes count seconds
// from (§4.6): 1582-10-14 00:00:00 UTC, the start of the Gregorian
// calendar.
var SpssEpoch = time.Date(1582, time.October, 14, 0, 0, 0, 0, time.UTC)

// UnixEpoch is 1970-01-01 00:00:00 UTC, used to convert SPSS seconds-since-
// SpssEpoch values into the Unix-epoch-relative units Arrow expects.
var UnixEpoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// spssToUnixSeconds is the constant offset, in seconds, between SpssEpoch
// and UnixEpoch. Subtracting it from a raw SPSS numeric value converts it
// to Unix-epoch seconds.
var spssToUnixSeconds = int64(UnixEpoch.Sub(SpssEpoch).Seconds())

// SecondsToUnixDays converts a raw SPSS date value (seconds since
// SpssEpoch) to whole days since the Unix epoch, for an Arrow Date32
// value.
func SecondsToUnixDays(spssSeconds float64) int32 {
	unixSeconds := int64(spssSeconds) - spssToUnixSeconds

	return int32(unixSeconds / 86400)
}

// SecondsToUnixMicros converts a raw SPSS datetime value (seconds since
// SpssEpoch) to microseconds since the Unix epoch, for an Arrow
// Timestamp(us) value.
func SecondsToUnixMicros(spssSeconds float64) int64 {
	unixSeconds := spssSeconds - float64(spssToUnixSeconds)

	return int64(unixSeconds * 1e6)
}

// SecondsToMicroDuration converts a raw SPSS duration/time value (seconds,
// not epoch-relative) to microseconds, for an Arrow Duration(us) value.
func SecondsToMicroDuration(spssSeconds float64) int64 {
	return int64(spssSeconds * 1e6)
}

// SysMiss is the SPSS system-missing sentinel double value, surfaced as
// null downstream (§3, Glossary "System-missing"). It is approximately
// -DBL_MAX per the SPSS convention.
const SysMiss = -1.7976931348623157e+308
