// Package variant implements the per-variant decoder state machine:
// the info stage common to both BGEN layouts, and the layout-specific
// payload stages that turn a compressed byte stream into probabilities
// and dosages (the densest, most bit-fiddly part of the module).
package variant

import (
	"fmt"

	"github.com/grailbio/bgen/bgenerrors"
	"github.com/grailbio/bgen/bgenio"
)

// Info is the flat (chromosome, position, rsid, allele1, allele2)
// variant record. Treated as a plain tuple, not a rich type.
type Info struct {
	Chromosome string
	Position   uint32
	RSID       string
	Allele1    string
	Allele2    string
}

// DecodeInfo reads the info stage at the current file position. Layout
// 1 first reads and checks a per-variant sample-count prefix; layout 2
// reads an explicit allele count instead of assuming 2. Both layouts
// require exactly 2 alleles: a layout-2 allele count other than 2 fails
// with Unsupported before any allele string is read.
func DecodeInfo(r *bgenio.Reader, path string, layout int, sampleCount uint32) (Info, error) {
	if layout == 1 {
		n, err := r.Uint32()
		if err != nil {
			return Info{}, bgenerrors.E(path, bgenerrors.Io, err)
		}
		if n != sampleCount {
			return Info{}, bgenerrors.E(path, bgenerrors.HeaderMismatch,
				fmt.Sprintf("variant declares %d samples, header declares %d", n, sampleCount))
		}
	}

	if _, err := r.StringUint16(); err != nil { // variant identifier, discarded
		return Info{}, bgenerrors.E(path, bgenerrors.Io, err)
	}
	rsid, err := r.StringUint16()
	if err != nil {
		return Info{}, bgenerrors.E(path, bgenerrors.Io, err)
	}
	chromosome, err := r.StringUint16()
	if err != nil {
		return Info{}, bgenerrors.E(path, bgenerrors.Io, err)
	}
	position, err := r.Uint32()
	if err != nil {
		return Info{}, bgenerrors.E(path, bgenerrors.Io, err)
	}

	alleleCount := uint16(2)
	if layout == 2 {
		alleleCount, err = r.Uint16()
		if err != nil {
			return Info{}, bgenerrors.E(path, bgenerrors.Io, err)
		}
	}
	if alleleCount != 2 {
		return Info{}, bgenerrors.E(path, bgenerrors.Unsupported,
			fmt.Sprintf("%d alleles declared, only 2 are supported", alleleCount))
	}

	var alleles [2]string
	for i := 0; i < int(alleleCount); i++ {
		a, err := r.StringUint32()
		if err != nil {
			return Info{}, bgenerrors.E(path, bgenerrors.Io, err)
		}
		if i < 2 {
			alleles[i] = a
		}
	}

	return Info{
		Chromosome: chromosome,
		Position:   position,
		RSID:       rsid,
		Allele1:    alleles[0],
		Allele2:    alleles[1],
	}, nil
}
