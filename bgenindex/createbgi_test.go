package bgenindex

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/bgen/bgenio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putStringU16(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint16(len(s)))
	buf.WriteString(s)
}

func putStringU32(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}

// buildLayout2Variant writes one uncompressed layout-2 variant block:
// info fields followed by a 4-byte C length and a tiny fabricated
// probability block (contents are irrelevant to offset bookkeeping).
func buildLayout2Variant(rsid, chrom string, pos uint32) []byte {
	var buf bytes.Buffer
	putStringU16(&buf, "v")
	putStringU16(&buf, rsid)
	putStringU16(&buf, chrom)
	binary.Write(&buf, binary.LittleEndian, pos)
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	putStringU32(&buf, "A")
	putStringU32(&buf, "G")

	payload := []byte{1, 2, 3, 4}
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

func TestCreateBGIScansVariantsAndIsIdempotent(t *testing.T) {
	variantStart := uint32(0)
	var file bytes.Buffer
	file.Write(buildLayout2Variant("rs1", "1", 1000))
	file.Write(buildLayout2Variant("rs2", "1", 2000))

	dir := t.TempDir()
	bgenPath := filepath.Join(dir, "test.bgen")
	require.NoError(t, os.WriteFile(bgenPath, file.Bytes(), 0o644))
	destPath := filepath.Join(dir, "test.bgi")

	d, err := bgenio.SelectDecompressor(0)
	require.NoError(t, err)
	err = CreateBGI(bgenPath, destPath, variantStart, 2, 10, false, d, 2)
	require.NoError(t, err)

	idx, err := Open(destPath, 2, variantStart)
	require.NoError(t, err)
	defer idx.Close()

	variants, err := idx.AllVariants()
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, "rs1", variants[0].RSID)
	assert.Equal(t, "rs2", variants[1].RSID)

	offsets, err := idx.AllOffsets()
	require.NoError(t, err)
	assert.Equal(t, int64(0), offsets[0])

	info, err := os.Stat(destPath)
	require.NoError(t, err)
	modTime := info.ModTime()

	// A second call against the same destPath is a no-op.
	err = CreateBGI(bgenPath, destPath, variantStart, 2, 10, false, d, 2)
	require.NoError(t, err)
	info2, err := os.Stat(destPath)
	require.NoError(t, err)
	assert.Equal(t, modTime, info2.ModTime())
}

func TestCreateBGIRejectsLayout1(t *testing.T) {
	dir := t.TempDir()
	d, _ := bgenio.SelectDecompressor(0)
	err := CreateBGI(filepath.Join(dir, "x.bgen"), filepath.Join(dir, "x.bgi"), 0, 1, 1, false, d, 1)
	assert.Error(t, err)
}
