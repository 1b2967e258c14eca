package bgen

import (
	"os"
	"strconv"

	"github.com/grailbio/bgen/bgenerrors"
)

// SampleID is a (FID, IID) pair. When sample identifiers are embedded
// in the BGEN, both fields carry the same embedded string (BGEN embeds
// only a single identifier per sample); otherwise they carry the
// synthesised "(i, i)" pair.
type SampleID struct {
	FID string
	IID string
}

// VariantBundle pairs a variant's info record with its projected
// dosage vector.
type VariantBundle struct {
	Info   Variant
	Dosage []float64
}

func (r *Reader) requireIndex() error {
	if r.index == nil {
		return bgenerrors.E(r.path, bgenerrors.IndexMissing, "no .bgi companion index is open")
	}
	return nil
}

// SampleIDs returns the identifiers of the samples selected by this
// Reader's sample selector.
func (r *Reader) SampleIDs() ([]SampleID, error) {
	if r.sampleIDs == nil && r.opts.SamplePath != "" {
		return nil, bgenerrors.E(r.path, bgenerrors.Unsupported, ".sample parsing is not supported")
	}
	idx, err := r.sampleSel.resolve(r.path, int(r.sampleCount))
	if err != nil {
		return nil, err
	}
	out := make([]SampleID, len(idx))
	for i, si := range idx {
		if r.sampleIDs != nil {
			out[i] = SampleID{FID: r.sampleIDs[si], IID: r.sampleIDs[si]}
		} else {
			s := strconv.Itoa(si)
			out[i] = SampleID{FID: s, IID: s}
		}
	}
	return out, nil
}

// VariantInfo returns the full Variant records selected by this
// Reader's variant selector. Requires a .bgi companion index.
func (r *Reader) VariantInfo() ([]Variant, error) {
	if err := r.requireIndex(); err != nil {
		return nil, err
	}
	all, err := r.index.AllVariants()
	if err != nil {
		return nil, err
	}
	sel, err := r.variantSel.resolve(r.path, len(all))
	if err != nil {
		return nil, err
	}
	out := make([]Variant, len(sel))
	for i, vi := range sel {
		out[i] = all[vi]
	}
	return out, nil
}

// VariantIDs returns the rsids of the variants selected by this
// Reader's variant selector. Requires a .bgi companion index.
func (r *Reader) VariantIDs() ([]string, error) {
	infos, err := r.VariantInfo()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(infos))
	for i, v := range infos {
		out[i] = v.RSID
	}
	return out, nil
}

func (r *Reader) projectSamples(values []float64) ([]float64, error) {
	idx, err := r.sampleSel.resolve(r.path, int(r.sampleCount))
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(idx))
	for i, si := range idx {
		out[i] = values[si]
	}
	return out, nil
}

func (r *Reader) projectSampleProbs(values [][3]float64) ([][3]float64, error) {
	idx, err := r.sampleSel.resolve(r.path, int(r.sampleCount))
	if err != nil {
		return nil, err
	}
	out := make([][3]float64, len(idx))
	for i, si := range idx {
		out[i] = values[si]
	}
	return out, nil
}

// DosageMatrix returns a (selected_variants, selected_samples) matrix
// of dosages. Requires a .bgi companion index.
func (r *Reader) DosageMatrix() ([][]float64, error) {
	if err := r.requireIndex(); err != nil {
		return nil, err
	}
	offsets, err := r.index.AllOffsets()
	if err != nil {
		return nil, err
	}
	variantIdx, err := r.variantSel.resolve(r.path, len(offsets))
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(variantIdx))
	err = r.withFile(func(f *os.File) error {
		for outI, vi := range variantIdx {
			_, dosage, _, err := r.decodeAt(f, offsets[vi], true)
			if err != nil {
				return err
			}
			projected, err := r.projectSamples(dosage)
			if err != nil {
				return err
			}
			out[outI] = projected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ProbabilityTensor returns a (selected_variants, selected_samples, 3)
// tensor of genotype call probabilities. Layout 2 only. Requires a
// .bgi companion index.
func (r *Reader) ProbabilityTensor() ([][][3]float64, error) {
	if r.layout != 2 {
		return nil, bgenerrors.E(r.path, bgenerrors.Unsupported, "probability tensor requires layout 2")
	}
	if err := r.requireIndex(); err != nil {
		return nil, err
	}
	offsets, err := r.index.AllOffsets()
	if err != nil {
		return nil, err
	}
	variantIdx, err := r.variantSel.resolve(r.path, len(offsets))
	if err != nil {
		return nil, err
	}

	out := make([][][3]float64, len(variantIdx))
	err = r.withFile(func(f *os.File) error {
		for outI, vi := range variantIdx {
			_, _, probs, err := r.decodeAt(f, offsets[vi], true)
			if err != nil {
				return err
			}
			projected, err := r.projectSampleProbs(probs)
			if err != nil {
				return err
			}
			out[outI] = projected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VariantBundle returns, for every variant selected by this Reader's
// variant selector, its info record paired with its projected dosage
// vector. Requires a .bgi companion index.
func (r *Reader) VariantBundle() ([]VariantBundle, error) {
	if err := r.requireIndex(); err != nil {
		return nil, err
	}
	infos, err := r.index.AllVariants()
	if err != nil {
		return nil, err
	}
	offsets, err := r.index.AllOffsets()
	if err != nil {
		return nil, err
	}
	if len(infos) != len(offsets) {
		return nil, bgenerrors.E(r.path, bgenerrors.IndexMismatch, "info and offset queries returned mismatched row counts")
	}

	variantIdx, err := r.variantSel.resolve(r.path, len(offsets))
	if err != nil {
		return nil, err
	}

	out := make([]VariantBundle, len(variantIdx))
	err = r.withFile(func(f *os.File) error {
		for outI, vi := range variantIdx {
			_, dosage, _, err := r.decodeAt(f, offsets[vi], true)
			if err != nil {
				return err
			}
			projected, err := r.projectSamples(dosage)
			if err != nil {
				return err
			}
			out[outI] = VariantBundle{Info: infos[vi], Dosage: projected}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VariantsByID returns the info/dosage bundles for the variants whose
// rsid is in ids. Requires a .bgi companion index.
func (r *Reader) VariantsByID(ids []string) ([]VariantBundle, error) {
	if err := r.requireIndex(); err != nil {
		return nil, err
	}
	infos, err := r.index.VariantsByIdentifiers(ids)
	if err != nil {
		return nil, err
	}
	offsets, err := r.index.OffsetsByIdentifiers(ids)
	if err != nil {
		return nil, err
	}
	if len(infos) != len(offsets) {
		return nil, bgenerrors.E(r.path, bgenerrors.IndexMismatch, "identifier query returned mismatched info/offset counts")
	}

	out := make([]VariantBundle, len(infos))
	err = r.withFile(func(f *os.File) error {
		for i := range infos {
			_, dosage, _, err := r.decodeAt(f, offsets[i], true)
			if err != nil {
				return err
			}
			projected, err := r.projectSamples(dosage)
			if err != nil {
				return err
			}
			out[i] = VariantBundle{Info: infos[i], Dosage: projected}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SampleIndexLookup returns the positions (into this Reader's selected
// sample axis) of the given sample identifiers. If reportMissing is
// true, an unknown identifier yields -1; otherwise it is silently
// omitted from the result.
func (r *Reader) SampleIndexLookup(ids []string, reportMissing bool) ([]int, error) {
	sel, err := r.SampleIDs()
	if err != nil {
		return nil, err
	}
	lookup := make(map[string]int, len(sel))
	for i, s := range sel {
		lookup[s.IID] = i
	}

	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if idx, ok := lookup[id]; ok {
			out = append(out, idx)
		} else if reportMissing {
			out = append(out, -1)
		}
	}
	return out, nil
}
