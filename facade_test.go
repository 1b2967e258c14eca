package bgen

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

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

// buildLayout2VariantBlock writes one uncompressed layout-2 variant:
// its info fields, then a 4-byte C length, then a decoded-shape
// probability block for 2 samples at bit width 8.
func buildLayout2VariantBlock(rsid, chrom string, pos uint32, p0p1 [4]uint8) []byte {
	var buf bytes.Buffer
	putStringU16(&buf, "v")
	putStringU16(&buf, rsid)
	putStringU16(&buf, chrom)
	binary.Write(&buf, binary.LittleEndian, pos)
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	putStringU32(&buf, "A")
	putStringU32(&buf, "G")

	var payload bytes.Buffer
	binary.Write(&payload, binary.LittleEndian, uint32(2)) // n
	binary.Write(&payload, binary.LittleEndian, uint16(2)) // K
	payload.WriteByte(2)                                   // min ploidy
	payload.WriteByte(2)                                   // max ploidy
	payload.WriteByte(2)                                   // sample0 ploidy, not missing
	payload.WriteByte(2)                                   // sample1 ploidy, not missing
	payload.WriteByte(0)                                   // phased
	payload.WriteByte(8)                                   // b
	for _, v := range p0p1 {
		payload.WriteByte(v)
	}

	binary.Write(&buf, binary.LittleEndian, uint32(payload.Len()))
	buf.Write(payload.Bytes())
	return buf.Bytes()
}

func buildTestBGEN(t *testing.T) (bgenPath, bgiPath string) {
	t.Helper()
	raw := buildHeader(t, 2, 0, true, 2, 2)
	variantStart := int64(len(raw))

	v1 := buildLayout2VariantBlock("rs1", "1", 1000, [4]uint8{255, 0, 0, 255})
	v2 := buildLayout2VariantBlock("rs2", "1", 2000, [4]uint8{0, 255, 255, 0})

	var file bytes.Buffer
	file.Write(raw)
	file.Write(v1)
	file.Write(v2)

	dir := t.TempDir()
	bgenPath = filepath.Join(dir, "test.bgen")
	require.NoError(t, os.WriteFile(bgenPath, file.Bytes(), 0o644))

	bgiPath = bgenPath + ".bgi"
	db, err := sql.Open("sqlite", bgiPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE Variant (file_start_position INTEGER, size_in_bytes INTEGER, chromosome INTEGER, position INTEGER, rsid TEXT, allele1 TEXT, allele2 TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO Variant VALUES (?, ?, ?, ?, ?, ?, ?)`, variantStart, len(v1), "1", 1000, "rs1", "A", "G")
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO Variant VALUES (?, ?, ?, ?, ?, ?, ?)`, variantStart+int64(len(v1)), len(v2), "1", 2000, "rs2", "C", "T")
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return bgenPath, bgiPath
}

func TestOpenAndFacadeEndToEnd(t *testing.T) {
	bgenPath, _ := buildTestBGEN(t)

	r, err := Open(bgenPath, Options{})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 2, r.VariantCount())
	assert.Equal(t, 2, r.SampleCount())
	assert.Equal(t, 2, r.Layout())
	assert.True(t, r.HasIndex())

	ids, err := r.SampleIDs()
	require.NoError(t, err)
	assert.Equal(t, []SampleID{{FID: "S1", IID: "S1"}, {FID: "S2", IID: "S2"}}, ids)

	variantIDs, err := r.VariantIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"rs1", "rs2"}, variantIDs)

	matrix, err := r.DosageMatrix()
	require.NoError(t, err)
	require.Len(t, matrix, 2)
	// variant rs1: sample0 P0=1,P1=0 -> dosage 0; sample1 P0=0,P1=1 -> dosage 1
	assert.InDelta(t, 0.0, matrix[0][0], 1e-6)
	assert.InDelta(t, 1.0, matrix[0][1], 1e-6)

	bundles, err := r.VariantsByID([]string{"rs2"})
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Equal(t, "rs2", bundles[0].Info.RSID)

	lookup, err := r.SampleIndexLookup([]string{"S2", "unknown"}, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, lookup)

	lookup, err = r.SampleIndexLookup([]string{"S2", "unknown"}, true)
	require.NoError(t, err)
	assert.Equal(t, []int{1, -1}, lookup)
}

func TestSliceNarrowsSelectionWithoutExtraIO(t *testing.T) {
	bgenPath, _ := buildTestBGEN(t)

	r, err := Open(bgenPath, Options{})
	require.NoError(t, err)
	defer r.Close()

	sliced := r.Slice(FullRange(2), ListSelector([]int{1}))
	infos, err := sliced.VariantInfo()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "rs2", infos[0].RSID)
}

func TestRequireIndexErrorsWithoutBGI(t *testing.T) {
	bgenPath, bgiPath := buildTestBGEN(t)
	require.NoError(t, os.Remove(bgiPath))

	r, err := Open(bgenPath, Options{})
	require.NoError(t, err)
	defer r.Close()
	assert.False(t, r.HasIndex())

	_, err = r.VariantInfo()
	assert.Error(t, err)
}

func TestProbabilityTensorLayout2(t *testing.T) {
	bgenPath, _ := buildTestBGEN(t)
	r, err := Open(bgenPath, Options{})
	require.NoError(t, err)
	defer r.Close()

	tensor, err := r.ProbabilityTensor()
	require.NoError(t, err)
	require.Len(t, tensor, 2)
	assert.InDelta(t, 1.0, tensor[0][0][0], 1e-6)
	assert.False(t, math.IsNaN(tensor[0][0][0]))
}
