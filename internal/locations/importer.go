package locations

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Row is one line of the locations CSV.
type Row struct {
	PostcodeInitials string
	Region           string
	CityName         string
}

type ImportResult struct {
	Inserted int
	Updated  int
}

var (
	ErrNoRows = errors.New("csv has no data rows")

	postcodeRe = regexp.MustCompile(`^[A-Z]{1,2}$`)
)

// ParseCSV reads postcode_initials, region and city_name columns. Postcode
// initials are upper-cased and must be one or two letters.
func ParseCSV(in io.Reader) ([]Row, error) {
	r := csv.NewReader(bufio.NewReader(in))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	headers, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	idx := map[string]int{}
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"postcode_initials", "region", "city_name"} {
		if _, ok := idx[k]; !ok {
			return nil, fmt.Errorf("missing required column: %s", k)
		}
	}

	seen := map[string]int{}
	var out []Row
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}
		get := func(name string) string {
			i := idx[name]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		pc := strings.ToUpper(get("postcode_initials"))
		if pc == "" && get("region") == "" && get("city_name") == "" {
			continue
		}
		if !postcodeRe.MatchString(pc) {
			return nil, fmt.Errorf("line %d: postcode_initials must be one or two letters (got %q)", line, pc)
		}
		if prev, dup := seen[pc]; dup {
			return nil, fmt.Errorf("line %d: duplicate postcode_initials %q (first on line %d)", line, pc, prev)
		}
		seen[pc] = line

		out = append(out, Row{PostcodeInitials: pc, Region: get("region"), CityName: get("city_name")})
	}

	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}

const upsertLocation = `
	INSERT INTO clientmap.locations (postcode_initials, region, city_name, created_at, updated_at)
	VALUES ($1, $2, $3, now(), now())
	ON CONFLICT (postcode_initials) DO UPDATE
		SET region = EXCLUDED.region, city_name = EXCLUDED.city_name, updated_at = now()
	RETURNING (xmax = 0) AS inserted`

// Import upserts rows in one transaction keyed on postcode_initials. A
// non-zero advisoryKey guards against concurrent runs.
func Import(ctx context.Context, conn *sql.DB, rows []Row, advisoryKey int64) (ImportResult, error) {
	var res ImportResult

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if advisoryKey != 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryKey); err != nil {
			return res, fmt.Errorf("advisory lock: %w", err)
		}
	}

	for _, row := range rows {
		var inserted bool
		if err := tx.QueryRowContext(ctx, upsertLocation, row.PostcodeInitials, row.Region, row.CityName).Scan(&inserted); err != nil {
			return ImportResult{}, fmt.Errorf("upsert %s: %w", row.PostcodeInitials, err)
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}
