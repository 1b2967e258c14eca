// Package bgenindex integrates the .bgi SQLite companion: opening and
// validating it against a BGEN header, running the bulk selection
// queries the façade needs, and synthesising a .bgi from scratch when
// none exists.
//
// It uses modernc.org/sqlite, a pure-Go database/sql driver, preferred
// over github.com/mattn/go-sqlite3 because it needs no cgo.
package bgenindex

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/grailbio/bgen/bgenerrors"
	"github.com/grailbio/bgen/bgenio"
	"github.com/grailbio/bgen/internal/variant"
)

const createTableSQL = `CREATE TABLE Variant (
	file_start_position INTEGER,
	size_in_bytes INTEGER,
	chromosome INTEGER,
	position INTEGER,
	rsid TEXT,
	allele1 TEXT,
	allele2 TEXT
)`

// Index wraps a validated .bgi companion database.
type Index struct {
	db               *sql.DB
	path             string
	lastVariantBlock int64
}

// Open connects to the .bgi at path and validates it against the
// BGEN header's variantCount and variantStart: COUNT(rsid) must equal
// variantCount and MIN(file_start_position) must equal variantStart.
func Open(path string, variantCount uint32, variantStart uint32) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, bgenerrors.E(path, bgenerrors.Io, err)
	}

	var count, minPos, maxPos sql.NullInt64
	row := db.QueryRow(`SELECT COUNT(rsid), MIN(file_start_position), MAX(file_start_position) FROM Variant`)
	if err := row.Scan(&count, &minPos, &maxPos); err != nil {
		db.Close()
		return nil, bgenerrors.E(path, bgenerrors.IndexMismatch, err)
	}
	if !count.Valid || uint32(count.Int64) != variantCount || !minPos.Valid || uint32(minPos.Int64) != variantStart {
		db.Close()
		return nil, bgenerrors.E(path, bgenerrors.IndexMismatch,
			fmt.Sprintf("bgi reports count=%d min=%d, header expects count=%d min=%d",
				count.Int64, minPos.Int64, variantCount, variantStart))
	}

	var last int64
	if maxPos.Valid {
		last = maxPos.Int64
	}
	return &Index{db: db, path: path, lastVariantBlock: last}, nil
}

// Close closes the underlying database connection.
func (x *Index) Close() error { return x.db.Close() }

// LastVariantBlock returns MAX(file_start_position), recorded at Open
// for bounds checks.
func (x *Index) LastVariantBlock() int64 { return x.lastVariantBlock }

func scanVariantRows(rows *sql.Rows) ([]variant.Info, error) {
	defer rows.Close()
	var out []variant.Info
	for rows.Next() {
		var v variant.Info
		if err := rows.Scan(&v.Chromosome, &v.Position, &v.RSID, &v.Allele1, &v.Allele2); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AllVariants returns every variant's info, ordered by
// file_start_position.
func (x *Index) AllVariants() ([]variant.Info, error) {
	rows, err := x.db.Query(`SELECT chromosome, position, rsid, allele1, allele2 FROM Variant ORDER BY file_start_position`)
	if err != nil {
		return nil, bgenerrors.E(x.path, bgenerrors.Io, err)
	}
	out, err := scanVariantRows(rows)
	if err != nil {
		return nil, bgenerrors.E(x.path, bgenerrors.Io, err)
	}
	return out, nil
}

// AllOffsets returns every variant's file_start_position, ordered
// ascending.
func (x *Index) AllOffsets() ([]int64, error) {
	rows, err := x.db.Query(`SELECT file_start_position FROM Variant ORDER BY file_start_position`)
	if err != nil {
		return nil, bgenerrors.E(x.path, bgenerrors.Io, err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var pos int64
		if err := rows.Scan(&pos); err != nil {
			return nil, bgenerrors.E(x.path, bgenerrors.Io, err)
		}
		out = append(out, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, bgenerrors.E(x.path, bgenerrors.Io, err)
	}
	return out, nil
}

// identifierQuery builds the WHERE clause for a set of rsids: an
// equality test for exactly one identifier, a parameterised IN(...)
// for two or more, and no query at all for zero (a no-op).
// Parameterised placeholders are mandatory here: string-interpolating
// identifiers directly into the SQL text breaks on any rsid containing
// a quote and is a SQL injection hazard.
func identifierQuery(selectCols string, ids []string) (string, []interface{}) {
	switch len(ids) {
	case 0:
		return "", nil
	case 1:
		return fmt.Sprintf(`SELECT %s FROM Variant WHERE rsid = ?`, selectCols), []interface{}{ids[0]}
	default:
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		args := make([]interface{}, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		return fmt.Sprintf(`SELECT %s FROM Variant WHERE rsid IN (%s)`, selectCols, placeholders), args
	}
}

// VariantsByIdentifiers returns the info records for the variants
// whose rsid is in ids.
func (x *Index) VariantsByIdentifiers(ids []string) ([]variant.Info, error) {
	query, args := identifierQuery("chromosome, position, rsid, allele1, allele2", ids)
	if query == "" {
		return nil, nil
	}
	rows, err := x.db.Query(query, args...)
	if err != nil {
		return nil, bgenerrors.E(x.path, bgenerrors.Io, err)
	}
	out, err := scanVariantRows(rows)
	if err != nil {
		return nil, bgenerrors.E(x.path, bgenerrors.Io, err)
	}
	return out, nil
}

// OffsetsByIdentifiers returns file_start_position for the variants
// whose rsid is in ids, in the same row order as VariantsByIdentifiers.
func (x *Index) OffsetsByIdentifiers(ids []string) ([]int64, error) {
	query, args := identifierQuery("file_start_position", ids)
	if query == "" {
		return nil, nil
	}
	rows, err := x.db.Query(query, args...)
	if err != nil {
		return nil, bgenerrors.E(x.path, bgenerrors.Io, err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var pos int64
		if err := rows.Scan(&pos); err != nil {
			return nil, bgenerrors.E(x.path, bgenerrors.Io, err)
		}
		out = append(out, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, bgenerrors.E(x.path, bgenerrors.Io, err)
	}
	return out, nil
}

// CreateBGI synthesises a .bgi at destPath by linearly scanning the
// BGEN file at bgenPath starting from variantStart, recording each
// variant's file_start_position and size_in_bytes. Only defined for
// layout 2. If destPath already exists, this is a no-op, making
// repeated calls idempotent.
//
// size_in_bytes is computed as (offset-after-reading-C - file_start_position) + C,
// i.e. C does not count its own four bytes: the byte range an
// external reader must skip to reach the next variant.
func CreateBGI(bgenPath, destPath string, variantStart, variantCount, sampleCount uint32, compressed bool, decompress bgenio.Decompressor, layout int) error {
	if layout != 2 {
		return bgenerrors.E(bgenPath, bgenerrors.Unsupported, "CreateBGI is only defined for layout 2")
	}
	if _, err := os.Stat(destPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return bgenerrors.E(destPath, bgenerrors.Io, err)
	}

	f, err := os.Open(bgenPath)
	if err != nil {
		return bgenerrors.E(bgenPath, bgenerrors.Io, err)
	}
	defer f.Close()
	if _, err := f.Seek(int64(variantStart), io.SeekStart); err != nil {
		return bgenerrors.E(bgenPath, bgenerrors.Io, err)
	}

	db, err := sql.Open("sqlite", destPath)
	if err != nil {
		return bgenerrors.E(destPath, bgenerrors.Io, err)
	}
	defer db.Close()
	if _, err := db.Exec(createTableSQL); err != nil {
		return bgenerrors.E(destPath, bgenerrors.Io, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return bgenerrors.E(destPath, bgenerrors.Io, err)
	}
	stmt, err := tx.Prepare(`INSERT INTO Variant VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return bgenerrors.E(destPath, bgenerrors.Io, err)
	}
	defer stmt.Close()

	for i := uint32(0); i < variantCount; i++ {
		start, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			tx.Rollback()
			return bgenerrors.E(bgenPath, bgenerrors.Io, err)
		}

		br := bgenio.NewReader(f)
		info, err := variant.DecodeInfo(br, bgenPath, layout, sampleCount)
		if err != nil {
			tx.Rollback()
			return err
		}

		c, err := br.Uint32()
		if err != nil {
			tx.Rollback()
			return bgenerrors.E(bgenPath, bgenerrors.Io, err)
		}
		afterC, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			tx.Rollback()
			return bgenerrors.E(bgenPath, bgenerrors.Io, err)
		}
		sizeInBytes := (afterC - start) + int64(c)

		if _, err := f.Seek(int64(c), io.SeekCurrent); err != nil {
			tx.Rollback()
			return bgenerrors.E(bgenPath, bgenerrors.Io, err)
		}

		if _, err := stmt.Exec(start, sizeInBytes, info.Chromosome, info.Position, info.RSID, info.Allele1, info.Allele2); err != nil {
			tx.Rollback()
			return bgenerrors.E(destPath, bgenerrors.Io, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return bgenerrors.E(destPath, bgenerrors.Io, err)
	}
	return nil
}
