package bgen

import "github.com/grailbio/bgen/internal/variant"

// Variant is the flat (chromosome, position, rsid, allele1, allele2)
// record. It is treated as a plain tuple, not a rich abstraction: the
// Variant value type is treated as an external collaborator, not an
// internal implementation detail.
type Variant = variant.Info
