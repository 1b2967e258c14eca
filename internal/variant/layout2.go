package variant

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/grailbio/bgen/bgenerrors"
	"github.com/grailbio/bgen/bgenio"
)

// Payload2 holds a layout-2 variant's explicit probabilities (the third,
// P(aa), is implicit: 1-P0-P1) and per-sample missingness.
type Payload2 struct {
	P0, P1  []float64
	Missing []bool
}

// DecodeLayout2Payload reads a layout-2 payload: a u32 total length C,
// optionally followed by a u32 expected decompressed length D, then the
// (possibly compressed) probability block. The decompressed block is
// n:u32, K:u16, min/max ploidy:u8, sampleCount ploidy/missingness
// bytes, phased:u8, b:u8, then a b-bit-packed stream of 2*sampleCount
// probabilities.
func DecodeLayout2Payload(r *bgenio.Reader, path string, sampleCount uint32, compressed bool, decompress bgenio.Decompressor) (Payload2, error) {
	c, err := r.Uint32()
	if err != nil {
		return Payload2{}, bgenerrors.E(path, bgenerrors.Io, err)
	}

	var raw []byte
	if compressed {
		d, err := r.Uint32()
		if err != nil {
			return Payload2{}, bgenerrors.E(path, bgenerrors.Io, err)
		}
		if c < 4 {
			return Payload2{}, bgenerrors.E(path, bgenerrors.Malformed, fmt.Sprintf("payload length C=%d too short for compressed block", c))
		}
		buf, err := r.Bytes(int(c - 4))
		if err != nil {
			return Payload2{}, bgenerrors.E(path, bgenerrors.Io, err)
		}
		raw, err = decompress(buf)
		if err != nil {
			return Payload2{}, bgenerrors.E(path, bgenerrors.Malformed, err)
		}
		if uint32(len(raw)) != d {
			return Payload2{}, bgenerrors.E(path, bgenerrors.Malformed,
				fmt.Sprintf("decompressed length %d disagrees with declared D=%d", len(raw), d))
		}
	} else {
		buf, err := r.Bytes(int(c))
		if err != nil {
			return Payload2{}, bgenerrors.E(path, bgenerrors.Io, err)
		}
		raw = buf
	}

	return decodeLayout2Block(path, raw, sampleCount)
}

func decodeLayout2Block(path string, raw []byte, sampleCount uint32) (Payload2, error) {
	const fixedHeader = 4 + 2 + 1 + 1 // n, K, min_ploidy, max_ploidy
	if len(raw) < fixedHeader {
		return Payload2{}, bgenerrors.E(path, bgenerrors.Malformed, "layout-2 block shorter than its fixed header")
	}

	n := binary.LittleEndian.Uint32(raw[0:4])
	if n != sampleCount {
		return Payload2{}, bgenerrors.E(path, bgenerrors.HeaderMismatch,
			fmt.Sprintf("layout-2 block declares %d samples, header declares %d", n, sampleCount))
	}
	k := binary.LittleEndian.Uint16(raw[4:6])
	if k != 2 {
		return Payload2{}, bgenerrors.E(path, bgenerrors.Unsupported, fmt.Sprintf("%d alleles declared, only 2 are supported", k))
	}
	minPloidy, maxPloidy := raw[6], raw[7]
	if minPloidy != 2 || maxPloidy != 2 {
		return Payload2{}, bgenerrors.E(path, bgenerrors.Unsupported,
			fmt.Sprintf("ploidy range [%d,%d], only ploidy 2 is supported", minPloidy, maxPloidy))
	}

	off := fixedHeader
	if len(raw) < off+int(sampleCount)+2 {
		return Payload2{}, bgenerrors.E(path, bgenerrors.Malformed, "layout-2 block too short for ploidy/missingness and phased/b fields")
	}
	ploidyBytes := raw[off : off+int(sampleCount)]
	off += int(sampleCount)

	phased := raw[off]
	off++
	if phased != 0 {
		return Payload2{}, bgenerrors.E(path, bgenerrors.Unsupported, "phased data is not supported")
	}
	b := raw[off]
	off++
	if b < 1 || b > 32 {
		return Payload2{}, bgenerrors.E(path, bgenerrors.Malformed, fmt.Sprintf("bit width %d out of range [1,32]", b))
	}

	values, err := bgenio.UnpackBits(raw[off:], int(b))
	if err != nil {
		return Payload2{}, bgenerrors.E(path, bgenerrors.Malformed, err)
	}
	if uint32(len(values)) < 2*sampleCount {
		return Payload2{}, bgenerrors.E(path, bgenerrors.Malformed, "short layout-2 probability stream")
	}

	maxVal := float64((uint64(1) << uint(b)) - 1)
	p0 := make([]float64, sampleCount)
	p1 := make([]float64, sampleCount)
	missing := make([]bool, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		p0[i] = float64(values[2*i]) / maxVal
		p1[i] = float64(values[2*i+1]) / maxVal
		missing[i] = ploidyBytes[i]&0x80 != 0
	}
	return Payload2{P0: p0, P1: p1, Missing: missing}, nil
}

// Probabilities reshapes the decoded pairs into (P0, P1, P2) triples,
// with P2 = 1-P0-P1 filled in, and sets every missing row to NaN
// across all three columns.
func (p Payload2) Probabilities() [][3]float64 {
	out := make([][3]float64, len(p.P0))
	for i := range p.P0 {
		if p.Missing[i] {
			out[i] = [3]float64{math.NaN(), math.NaN(), math.NaN()}
			continue
		}
		p2 := 1 - p.P0[i] - p.P1[i]
		out[i] = [3]float64{p.P0[i], p.P1[i], p2}
	}
	return out
}

// Dosage computes 2*P2+P1 per sample, where P2 = 1-P0-P1. When q > 0,
// a sample's dosage is masked to NaN unless P0, P1 or the implicit P2
// meets or exceeds q. Unlike layout 1, layout 2's third probability is
// never read off the wire, so it must be checked explicitly. Missing
// rows are always NaN regardless of q.
func (p Payload2) Dosage(q float64) []float64 {
	out := make([]float64, len(p.P0))
	for i := range p.P0 {
		if p.Missing[i] {
			out[i] = math.NaN()
			continue
		}
		p2 := 1 - p.P0[i] - p.P1[i]
		d := 2*p2 + p.P1[i]
		if q > 0 && !(p.P0[i] >= q || p.P1[i] >= q || p2 >= q) {
			d = math.NaN()
		}
		out[i] = d
	}
	return out
}
