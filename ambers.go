// Package ambers reads SPSS .sav and .zsav files and streams their cases
// as Apache Arrow record batches.
//
// # Core Features
//
//   - Full dictionary decoding: variable labels, value labels, missing
//     value rules, multi-response sets, long names, long strings
//   - Byte-code (§4.3) and block-indexed Deflate (.zsav, §4.2) decompression
//   - Arrow logical type selection from SPSS print formats (numeric,
//     string, date, datetime, duration)
//   - Streaming batch iteration with column projection and row limits
//
// # Basic Usage
//
// Reading a file's metadata and streaming all of its batches:
//
//	r, err := ambers.Open("survey.sav")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	md := r.Metadata()
//	fmt.Println(md.VariableNames)
//
//	for {
//	    batch, err := r.NextBatch()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if batch == nil {
//	        break
//	    }
//	    // ... consume batch (arrow.Record) ...
//	    batch.Release()
//	}
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the reader
// package, covering the common open/stream/close workflow. For direct
// control over batch size, column projection, and UTF-8 strictness, use
// the reader package directly.
package ambers

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/sav2arrow/ambers/reader"
)

// Metadata is the file-level and per-variable metadata a reader exposes.
type Metadata = reader.Metadata

// BatchReader streams an opened .sav/.zsav file as successive Arrow
// record batches.
type BatchReader = reader.BatchReader

// Open opens path, reads its header and dictionary, and returns a
// BatchReader positioned to stream rows via NextBatch.
//
// For batch size or strict-UTF-8 control, call reader.Open directly with
// reader.WithBatchSize / reader.WithStrictUTF8.
func Open(path string) (*BatchReader, error) {
	return reader.Open(path)
}

// OpenBatchReader opens path with a caller-chosen batch size (rows per
// NextBatch call), a convenience over reader.Open with
// reader.WithBatchSize.
func OpenBatchReader(path string, batchSize int) (*BatchReader, error) {
	return reader.Open(path, reader.WithBatchSize(batchSize))
}

// ReadMetadata opens path, reads only its header and dictionary, and
// returns the assembled Metadata without streaming any rows.
func ReadMetadata(path string) (*Metadata, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.Metadata(), nil
}

// ReadAll opens path and decodes every row into a single slice of Arrow
// record batches, releasing the reader before returning. Intended for
// small files and tests; large files should drive reader.BatchReader's
// NextBatch loop directly to bound memory use.
func ReadAll(path string) ([]arrow.Record, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []arrow.Record
	for {
		rec, err := r.NextBatch()
		if err != nil {
			for _, b := range out {
				b.Release()
			}
			return nil, err
		}
		if rec == nil {
			break
		}
		out = append(out, rec)
	}

	return out, nil
}
