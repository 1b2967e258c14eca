package variant

import (
	"math"

	"github.com/grailbio/bgen/bgenerrors"
	"github.com/grailbio/bgen/bgenio"
)

// Payload1 holds a layout-1 variant's per-sample genotype call
// probability triple (P(AA), P(Aa), P(aa)).
type Payload1 struct {
	Probs [][3]float64
}

// DecodeLayout1Payload reads a layout-1 payload: sampleCount*6 raw
// bytes if uncompressed, or a u32-length-prefixed compressed block
// otherwise. The payload is a flat sampleCount*3 array of u16
// probabilities scaled by 1/32768.
func DecodeLayout1Payload(r *bgenio.Reader, path string, sampleCount uint32, compressed bool, decompress bgenio.Decompressor) (Payload1, error) {
	var raw []byte
	if compressed {
		c, err := r.Uint32()
		if err != nil {
			return Payload1{}, bgenerrors.E(path, bgenerrors.Io, err)
		}
		buf, err := r.Bytes(int(c))
		if err != nil {
			return Payload1{}, bgenerrors.E(path, bgenerrors.Io, err)
		}
		raw, err = decompress(buf)
		if err != nil {
			return Payload1{}, bgenerrors.E(path, bgenerrors.Malformed, err)
		}
	} else {
		buf, err := r.Bytes(int(sampleCount) * 6)
		if err != nil {
			return Payload1{}, bgenerrors.E(path, bgenerrors.Io, err)
		}
		raw = buf
	}

	values, err := bgenio.UnpackBits(raw, 16)
	if err != nil {
		return Payload1{}, bgenerrors.E(path, bgenerrors.Malformed, err)
	}
	if len(values) < int(sampleCount)*3 {
		return Payload1{}, bgenerrors.E(path, bgenerrors.Malformed, "short layout-1 probability stream")
	}

	probs := make([][3]float64, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		probs[i] = [3]float64{
			float64(values[i*3+0]) / 32768,
			float64(values[i*3+1]) / 32768,
			float64(values[i*3+2]) / 32768,
		}
	}
	return Payload1{Probs: probs}, nil
}

// Dosage computes 2*P(aa)+P(Aa) per sample. When q > 0, a sample's
// dosage is masked to NaN unless one of its three explicit
// probabilities meets or exceeds q. Layout 1's triple is all-explicit,
// so there is no implicit third column to also check (unlike layout 2;
// see Payload2.Dosage).
func (p Payload1) Dosage(q float64) []float64 {
	out := make([]float64, len(p.Probs))
	for i, pr := range p.Probs {
		d := 2*pr[2] + pr[1]
		if q > 0 && !(pr[0] >= q || pr[1] >= q || pr[2] >= q) {
			d = math.NaN()
		}
		out[i] = d
	}
	return out
}

// Probabilities returns the decoded (P(AA), P(Aa), P(aa)) triples
// unmodified; layout 1 has no missingness bit to mask against.
func (p Payload1) Probabilities() [][3]float64 {
	out := make([][3]float64, len(p.Probs))
	copy(out, p.Probs)
	return out
}
