// Package reader assembles iostream, compress, vm, dict, and arrowbuild
// into the top-level BatchReader state machine a caller drives (§4.8):
// Unopened -> HeaderRead -> DictionaryRead -> Streaming -> Done|Failed.
//
// Grounded on the teacher's staged Decode() pipeline and functional
// options configuration (internal/options), generalized from decoding
// one blob to driving an entire file's lifecycle.
package reader

import (
	"io"
	"os"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/sav2arrow/ambers/arrowbuild"
	"github.com/sav2arrow/ambers/compress"
	"github.com/sav2arrow/ambers/dict"
	"github.com/sav2arrow/ambers/endian"
	"github.com/sav2arrow/ambers/errs"
	"github.com/sav2arrow/ambers/format"
	"github.com/sav2arrow/ambers/internal/options"
	"github.com/sav2arrow/ambers/iostream"
	"github.com/sav2arrow/ambers/rowdecoder"
	"github.com/sav2arrow/ambers/section"
	"github.com/sav2arrow/ambers/vm"
)

// State is one stage of a BatchReader's lifecycle (§4.8).
type State uint8

const (
	Unopened State = iota
	HeaderRead
	DictionaryRead
	Streaming
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case HeaderRead:
		return "header_read"
	case DictionaryRead:
		return "dictionary_read"
	case Streaming:
		return "streaming"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultBatchSize is the row count a batch flushes at if the caller
// never calls WithBatchSize (§4.7).
const DefaultBatchSize = 100_000

// BatchReader streams an opened .sav/.zsav file as successive Arrow
// record batches.
type BatchReader struct {
	path string
	file *os.File

	eng        endian.EndianEngine
	dictionary *dict.Dictionary
	decoder    *rowdecoder.Decoder
	zsav       *compress.ZsavStream

	state State

	batchSize  int
	strictUTF8 bool
	selected   map[string]bool
	limit      int64 // -1 means unlimited
	emitted    int64
}

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) options.Option[*BatchReader] {
	return options.New(func(r *BatchReader) error {
		if n <= 0 {
			return errs.InvalidSelection("batch size must be positive")
		}
		r.batchSize = n
		return nil
	})
}

// WithStrictUTF8 makes NextBatch fail the whole batch if any string cell
// fails strict UTF-8 validation (§7), instead of passing the bytes
// through as-is.
func WithStrictUTF8(strict bool) options.Option[*BatchReader] {
	return options.NoError(func(r *BatchReader) { r.strictUTF8 = strict })
}

// Open opens path and reads its header and dictionary, leaving the
// reader positioned to stream rows.
func Open(path string, opts ...options.Option[*BatchReader]) (*BatchReader, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NotFound(path)
		}
		return nil, errs.Io(path, err)
	}

	r := &BatchReader{
		path:      path,
		file:      f,
		state:     Unopened,
		batchSize: DefaultBatchSize,
		limit:     -1,
	}

	if err := options.Apply(r, opts...); err != nil {
		f.Close()
		return nil, err
	}

	if err := r.open(); err != nil {
		r.state = Failed
		f.Close()
		return nil, err
	}

	return r, nil
}

func (r *BatchReader) open() error {
	r.eng = endian.GetLittleEndianEngine()

	header, err := section.ParseHeader(r.file, r.eng)
	if err != nil {
		return err
	}
	r.state = HeaderRead

	raw, err := dict.ParseRaw(r.file, header, r.eng)
	if err != nil {
		return err
	}
	r.state = DictionaryRead

	assembled, err := dict.Assemble(raw)
	if err != nil {
		return err
	}
	r.dictionary = assembled

	source, err := r.openCellSource(header)
	if err != nil {
		return err
	}
	decoder, err := rowdecoder.New(assembled.Variables, source, assembled.Encoding)
	if err != nil {
		return err
	}
	r.decoder = decoder
	r.state = Streaming

	return nil
}

func (r *BatchReader) openCellSource(header *section.Header) (vm.CellSource, error) {
	switch header.CompressionCode {
	case section.CompressionNone:
		return vm.NewRawCellSource(iostream.NewReader(r.file, r.eng)), nil

	case section.CompressionByteCode:
		return vm.NewVM(iostream.NewReader(r.file, r.eng), header.Bias), nil

	case section.CompressionZsav:
		offset, err := r.file.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, errs.Io(r.path, err)
		}
		stream, err := compress.NewZsavStream(r.file, offset, r.eng)
		if err != nil {
			return nil, err
		}
		r.zsav = stream
		return vm.NewVM(iostream.NewReader(stream, r.eng), header.Bias), nil

	default:
		return nil, errs.UnsupportedCompression(header.CompressionCode)
	}
}

// Metadata reports the file-level and per-variable metadata assembled
// from the dictionary. Safe to call any time after Open succeeds.
func (r *BatchReader) Metadata() *Metadata {
	return buildMetadata(r.dictionary)
}

// Schema returns the Arrow schema for the currently selected columns
// (all columns if Select was never called).
func (r *BatchReader) Schema() *arrow.Schema {
	return arrowbuild.BuildSchema(r.dictionary.Variables, r.selected)
}

// Select restricts NextBatch to the named columns. Every name must
// match a logical variable or InvalidSelection is returned and the
// reader is left unaffected.
func (r *BatchReader) Select(columns []string) error {
	known := map[string]bool{}
	for _, v := range r.dictionary.Variables {
		known[v.Name] = true
	}
	selected := map[string]bool{}
	for _, c := range columns {
		if !known[c] {
			return errs.InvalidSelection(c)
		}
		selected[c] = true
	}
	r.selected = selected
	return nil
}

// Limit caps the total number of rows NextBatch will ever emit. A
// negative n means unlimited (the default).
func (r *BatchReader) Limit(n int64) {
	r.limit = n
}

// State reports the reader's current lifecycle stage (§4.8).
func (r *BatchReader) State() State {
	return r.state
}

// NextBatch decodes and returns the next batch of rows as an
// arrow.Record, or (nil, nil) once the stream is exhausted. Once it
// returns an error the reader transitions to Failed and every
// subsequent call returns ErrReaderFailed.
func (r *BatchReader) NextBatch() (arrow.Record, error) {
	if r.state == Failed {
		return nil, errs.ErrReaderFailed
	}
	if r.state == Done {
		return nil, nil
	}

	batch := arrowbuild.NewBatch(r.dictionary.Variables, r.selected, r.batchSize)

	for !batch.Full() {
		if r.limit >= 0 && r.emitted >= r.limit {
			r.state = Done
			break
		}

		row, err := r.decoder.NextRow()
		if err != nil {
			r.state = Failed
			batch.Release()
			return nil, err
		}
		if row == nil {
			r.state = Done
			break
		}

		if r.strictUTF8 {
			if badCol, ok := firstInvalidUTF8(r.dictionary.Variables, row); ok {
				r.state = Failed
				batch.Release()
				return nil, errs.InvalidUtf8(badCol, int(r.emitted))
			}
		}

		batch.Append(row)
		r.emitted++
	}

	rec := batch.Finish()
	batch.Release()
	return rec, nil
}

func firstInvalidUTF8(vars []*dict.LogicalVariable, row *rowdecoder.Row) (string, bool) {
	for i, v := range vars {
		if v.Kind == format.KindString && !utf8.ValidString(row.Values[i].Text) {
			return v.Name, true
		}
	}
	return "", false
}

// Close releases any compression stream buffers and closes the
// underlying file.
func (r *BatchReader) Close() error {
	if r.zsav != nil {
		r.zsav.Close()
	}
	return r.file.Close()
}
