package bgen

import (
	"io"
	"os"

	"github.com/grailbio/bgen/bgenerrors"
	"github.com/grailbio/bgen/bgenindex"
	"github.com/grailbio/bgen/bgenio"
	"github.com/grailbio/bgen/internal/variant"
)

// Options configures how a BGEN is opened.
type Options struct {
	// IndexPath overrides the default <path>.bgi companion location.
	IndexPath string
	// SamplePath records a .sample companion path. Parsing it is out
	// of scope: it only changes SampleIDs' error behavior when no
	// sample IDs are embedded, making the embedded-over-.sample
	// precedence explicit rather than implicit.
	SamplePath string
	// Quality is the per-call quality threshold q used to mask
	// low-confidence dosages to NaN. Zero disables masking.
	Quality float64
}

// Reader provides random access to one BGEN file's variant and
// genotype data, optionally backed by a .bgi companion index.
//
// A Reader is single-threaded: concurrent operations against the same
// instance are not supported. Distinct Readers opened on the same
// path each own their own file handle and index connection. The
// underlying file is opened lazily around each read operation; the
// index connection, if any, is opened at construction and held for
// the Reader's lifetime.
type Reader struct {
	path string
	opts Options

	offset             uint32
	headerSize         uint32
	variantCount       uint32
	sampleCount        uint32
	layout             int
	compressionCode    uint8
	compressed         bool
	hasEmbeddedSamples bool
	variantStart       uint32

	sampleIDs []string

	index     *bgenindex.Index
	ownsIndex bool

	sampleSel  Selector
	variantSel Selector
}

// Open parses a BGEN file's header and, if present, its embedded
// sample block. If a .bgi companion exists at opts.IndexPath (or
// <path>.bgi by default), it is opened and validated against the
// header.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, bgenerrors.E(path, bgenerrors.Io, err)
	}

	br := bgenio.NewReader(f)
	h, err := parseHeader(br, path)
	if err != nil {
		f.Close()
		return nil, err
	}

	var sampleIDs []string
	if h.hasEmbeddedSamples {
		sampleIDs, err = parseSampleBlock(br, path, h)
		if err != nil {
			f.Close()
			return nil, err
		}
	}
	f.Close()

	r := &Reader{
		path:               path,
		opts:               opts,
		offset:             h.offset,
		headerSize:         h.headerSize,
		variantCount:       h.variantCount,
		sampleCount:        h.sampleCount,
		layout:             h.layout,
		compressionCode:    h.compressionCode,
		compressed:         h.compressed,
		hasEmbeddedSamples: h.hasEmbeddedSamples,
		variantStart:       h.variantStart,
		sampleIDs:          sampleIDs,
		sampleSel:          FullRange(int(h.sampleCount)),
		variantSel:         FullRange(int(h.variantCount)),
	}

	idxPath := opts.IndexPath
	if idxPath == "" {
		idxPath = path + ".bgi"
	}
	if _, statErr := os.Stat(idxPath); statErr == nil {
		idx, err := bgenindex.Open(idxPath, h.variantCount, h.variantStart)
		if err != nil {
			return nil, err
		}
		r.index = idx
		r.ownsIndex = true
	}
	return r, nil
}

// Close releases the .bgi index connection, if this Reader owns one.
// Readers produced by Slice share their parent's index connection and
// do not close it.
func (r *Reader) Close() error {
	if r.index != nil && r.ownsIndex {
		return r.index.Close()
	}
	return nil
}

// VariantCount is the total number of variants declared by the header.
func (r *Reader) VariantCount() int { return int(r.variantCount) }

// SampleCount is the total number of samples declared by the header.
func (r *Reader) SampleCount() int { return int(r.sampleCount) }

// Layout is 1 or 2.
func (r *Reader) Layout() int { return r.layout }

// Compressed reports whether the header's compression code is nonzero.
func (r *Reader) Compressed() bool { return r.compressed }

// HasIndex reports whether a .bgi companion was opened.
func (r *Reader) HasIndex() bool { return r.index != nil }

func (r *Reader) decompressor() (bgenio.Decompressor, error) {
	d, err := bgenio.SelectDecompressor(r.compressionCode)
	if err != nil {
		return nil, bgenerrors.E(r.path, bgenerrors.Malformed, err)
	}
	return d, nil
}

// withFile opens the BGEN file read-only for the duration of fn,
// the file handle is opened lazily around read operations, not held
// for the Reader's lifetime.
func (r *Reader) withFile(fn func(f *os.File) error) error {
	f, err := os.Open(r.path)
	if err != nil {
		return bgenerrors.E(r.path, bgenerrors.Io, err)
	}
	defer f.Close()
	return fn(f)
}

// decodeAt seeks to offset and decodes a variant's info stage, and
// (when wantPayload) its dosage vector and, for layout 2, its
// probability triples.
func (r *Reader) decodeAt(f *os.File, offset int64, wantPayload bool) (Variant, []float64, [][3]float64, error) {
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return Variant{}, nil, nil, bgenerrors.E(r.path, bgenerrors.Io, err)
	}
	br := bgenio.NewReader(f)
	info, err := variant.DecodeInfo(br, r.path, r.layout, r.sampleCount)
	if err != nil {
		return Variant{}, nil, nil, err
	}
	if !wantPayload {
		return info, nil, nil, nil
	}

	decompress, err := r.decompressor()
	if err != nil {
		return Variant{}, nil, nil, err
	}

	if r.layout == 1 {
		p1, err := variant.DecodeLayout1Payload(br, r.path, r.sampleCount, r.compressed, decompress)
		if err != nil {
			return Variant{}, nil, nil, err
		}
		return info, p1.Dosage(r.opts.Quality), nil, nil
	}

	p2, err := variant.DecodeLayout2Payload(br, r.path, r.sampleCount, r.compressed, decompress)
	if err != nil {
		return Variant{}, nil, nil, err
	}
	return info, p2.Dosage(r.opts.Quality), p2.Probabilities(), nil
}

// Slice returns a new Reader sharing this Reader's file path and index
// connection but carrying refined selectors; no file or index I/O is
// performed.
func (r *Reader) Slice(sampleSel, variantSel Selector) *Reader {
	clone := *r
	clone.ownsIndex = false
	clone.sampleSel = sampleSel
	clone.variantSel = variantSel
	return &clone
}

// CreateBGI synthesises a .bgi companion at destPath by linearly
// scanning this BGEN file and recording each variant's start offset
// and byte length. Only defined for layout 2; calling it a second time
// with the same destPath is a no-op.
func (r *Reader) CreateBGI(destPath string) error {
	decompress, err := r.decompressor()
	if err != nil {
		return err
	}
	return bgenindex.CreateBGI(r.path, destPath, r.variantStart, r.variantCount, r.sampleCount, r.compressed, decompress, r.layout)
}
