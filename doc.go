// Package bgen provides a random-access reader for the BGEN v1.1/v1.2
// binary genotype file format: a container that stores genotype
// probabilities for millions of variants across tens to hundreds of
// thousands of samples.
//
// A Reader exposes per-variant information (chromosome, position,
// identifier, alleles) and per-variant genotype data (per-sample
// dosages or full probability triples), with support for selecting a
// subset of samples and variants via Selector. Random access by
// variant identifier or bulk offset requires a companion .bgi SQLite
// index (package bgenindex), which this package can also synthesise
// from scratch via Reader.CreateBGI.
//
// Writing BGEN files, parsing the .sample companion, and a
// command-line surface are out of scope for this package.
package bgen
