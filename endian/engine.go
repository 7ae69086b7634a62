// Package endian provides byte order utilities for binary decoding.
//
// This package wraps the standard library's encoding/binary ByteOrder and
// AppendByteOrder interfaces behind a single EndianEngine so callers don't
// juggle two interfaces when they need both Get/Put and allocation-light
// Append operations.
//
// # Basic usage
//
//	engine := endian.GetLittleEndianEngine()
//	v := engine.Uint32(data[0:4])
//
// SPSS system files declare their byte order via the header's layout code
// (2 == little-endian; any other value is an unsupported big-endian file,
// see section.ParseHeader). The engine is fixed per file, never mixed.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
// into a single interface. binary.LittleEndian and binary.BigEndian both
// satisfy it already.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine used by every
// supported .sav / .zsav file (layout code 2).
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine. The decoding path
// does not use it: section.ParseHeader reads the layout code little-endian
// and reports any value other than 2 as errs.ErrUnsupportedLayout.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
