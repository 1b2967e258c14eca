package bgen

import (
	"bytes"
	"fmt"

	"github.com/grailbio/bgen/bgenerrors"
	"github.com/grailbio/bgen/bgenio"
)

var bgenMagic = []byte{'b', 'g', 'e', 'n'}
var zeroMagic = []byte{0, 0, 0, 0}

// header is the file-level state established once at Open and held
// immutable thereafter.
type header struct {
	offset             uint32
	headerSize         uint32
	variantCount       uint32
	sampleCount        uint32
	layout             int
	compressionCode    uint8
	compressed         bool
	hasEmbeddedSamples bool
	variantStart       uint32
}

// parseHeader reads the fixed prelude, the free area, and the flag
// word.
func parseHeader(r *bgenio.Reader, path string) (header, error) {
	offset, err := r.Uint32()
	if err != nil {
		return header{}, bgenerrors.E(path, bgenerrors.Io, err)
	}
	headerSize, err := r.Uint32()
	if err != nil {
		return header{}, bgenerrors.E(path, bgenerrors.Io, err)
	}
	if headerSize > offset {
		return header{}, bgenerrors.E(path, bgenerrors.Malformed,
			fmt.Sprintf("header_size %d exceeds offset %d", headerSize, offset))
	}
	if headerSize < 20 {
		return header{}, bgenerrors.E(path, bgenerrors.Malformed,
			fmt.Sprintf("header_size %d is too small for the fixed prelude", headerSize))
	}

	variantCount, err := r.Uint32()
	if err != nil {
		return header{}, bgenerrors.E(path, bgenerrors.Io, err)
	}
	sampleCount, err := r.Uint32()
	if err != nil {
		return header{}, bgenerrors.E(path, bgenerrors.Io, err)
	}

	magic, err := r.Bytes(4)
	if err != nil {
		return header{}, bgenerrors.E(path, bgenerrors.Io, err)
	}
	if !bytes.Equal(magic, bgenMagic) && !bytes.Equal(magic, zeroMagic) {
		return header{}, bgenerrors.E(path, bgenerrors.Malformed, "bad magic number")
	}

	if _, err := r.Bytes(int(headerSize) - 20); err != nil {
		return header{}, bgenerrors.E(path, bgenerrors.Io, err)
	}

	flagWord, err := r.Uint32()
	if err != nil {
		return header{}, bgenerrors.E(path, bgenerrors.Io, err)
	}
	bits := bgenio.FlagBits(flagWord)
	compressionCode := uint8(bgenio.BitsToUint(bits[0:2]))
	if compressionCode > 2 {
		return header{}, bgenerrors.E(path, bgenerrors.Malformed,
			fmt.Sprintf("bad compression code %d", compressionCode))
	}
	layout := int(bgenio.BitsToUint(bits[2:6]))
	if layout != 1 && layout != 2 {
		return header{}, bgenerrors.E(path, bgenerrors.Malformed,
			fmt.Sprintf("bad layout code %d", layout))
	}

	return header{
		offset:             offset,
		headerSize:         headerSize,
		variantCount:       variantCount,
		sampleCount:        sampleCount,
		layout:             layout,
		compressionCode:    compressionCode,
		compressed:         compressionCode != 0,
		hasEmbeddedSamples: bits[31],
		variantStart:       offset + 4,
	}, nil
}

// parseSampleBlock reads the embedded sample-identifier block that
// immediately follows the header when h.hasEmbeddedSamples is true.
func parseSampleBlock(r *bgenio.Reader, path string, h header) ([]string, error) {
	blockSize, err := r.Uint32()
	if err != nil {
		return nil, bgenerrors.E(path, bgenerrors.Io, err)
	}
	if blockSize+h.headerSize != h.offset {
		return nil, bgenerrors.E(path, bgenerrors.Malformed,
			fmt.Sprintf("sample block_size %d + header_size %d != offset %d", blockSize, h.headerSize, h.offset))
	}
	n, err := r.Uint32()
	if err != nil {
		return nil, bgenerrors.E(path, bgenerrors.Io, err)
	}
	if n != h.sampleCount {
		return nil, bgenerrors.E(path, bgenerrors.HeaderMismatch,
			fmt.Sprintf("sample block declares %d samples, header declares %d", n, h.sampleCount))
	}

	samples := make([]string, n)
	for i := range samples {
		s, err := r.StringUint16()
		if err != nil {
			return nil, bgenerrors.E(path, bgenerrors.Io, err)
		}
		samples[i] = s
	}
	return samples, nil
}
