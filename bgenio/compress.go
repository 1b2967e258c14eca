package bgenio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Decompressor inflates a compressed BGEN payload in one shot.
type Decompressor func([]byte) ([]byte, error)

func identity(b []byte) ([]byte, error) {
	return b, nil
}

func inflateZlib(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func inflateZstd(b []byte) ([]byte, error) {
	zr, err := zstd.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// SelectDecompressor returns the Decompressor named by the header flag's
// low two bits: 0 is identity, 1 is zlib (github.com/klauspost/compress/zlib),
// 2 is zstd (github.com/klauspost/compress/zstd). Any other code is an error.
func SelectDecompressor(code uint8) (Decompressor, error) {
	switch code {
	case 0:
		return identity, nil
	case 1:
		return inflateZlib, nil
	case 2:
		return inflateZstd, nil
	default:
		return nil, fmt.Errorf("bgenio: unknown compression code %d", code)
	}
}
