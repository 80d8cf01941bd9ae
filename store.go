// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// CountsStore provides the cell_counts table.
type CountsStore interface {
	CellCounts(ctx context.Context) ([]CellCounts, error)
}

// MetadataStore provides the metadata table.
type MetadataStore interface {
	Samples(ctx context.Context) ([]Sample, error)
}

// Store keeps the cell_counts and metadata tables in a SQLite file
// or, if the DSN is a postgres:// URL, a Postgres database.
type Store struct {
	db     *sql.DB
	driver string
}

var _ CountsStore = (*Store)(nil)
var _ MetadataStore = (*Store)(nil)

func storeDriver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "pgx"
	}
	return "sqlite"
}

// OpenStore opens (creating if needed) the store at dsn.
func OpenStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("open store: empty DSN")
	}
	driver := storeDriver(dsn)
	if driver == "sqlite" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create dirs: %w", err)
			}
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// a single connection keeps transactions and reads on
		// the same database handle
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for tests and ad hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

// rebind rewrites ? placeholders as $1, $2, ... for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var schema = []string{
	`DROP TABLE IF EXISTS cell_counts`,
	`DROP TABLE IF EXISTS metadata`,
	`CREATE TABLE cell_counts (
		sample_id TEXT PRIMARY KEY,
		b_cell BIGINT NOT NULL,
		cd8_t_cell BIGINT NOT NULL,
		cd4_t_cell BIGINT NOT NULL,
		nk_cell BIGINT NOT NULL,
		monocyte BIGINT NOT NULL
	)`,
	`CREATE TABLE metadata (
		sample_id TEXT PRIMARY KEY,
		project TEXT,
		subject TEXT,
		condition TEXT,
		age INTEGER,
		sex TEXT,
		treatment TEXT,
		response TEXT,
		sample_type TEXT,
		time_from_treatment_start INTEGER
	)`,
}

// Replace drops and recreates both tables and inserts the given
// records, all in one transaction.
func (s *Store) Replace(ctx context.Context, counts []CellCounts, samples []Sample) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	insCounts, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO cell_counts (sample_id, b_cell, cd8_t_cell, cd4_t_cell, nk_cell, monocyte) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer insCounts.Close()
	for _, cc := range counts {
		_, err := insCounts.ExecContext(ctx, cc.SampleID, cc.Counts[0], cc.Counts[1], cc.Counts[2], cc.Counts[3], cc.Counts[4])
		if err != nil {
			return fmt.Errorf("insert %s %q: %w", TableCellCounts, cc.SampleID, err)
		}
	}

	insMeta, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO metadata (sample_id, project, subject, condition, age, sex, treatment, response, sample_type, time_from_treatment_start) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer insMeta.Close()
	for _, sm := range samples {
		_, err := insMeta.ExecContext(ctx, sm.SampleID, sm.Project, sm.Subject, sm.Condition, nullInt(sm.Age), sm.Sex, sm.Treatment, sm.Response, sm.SampleType, nullInt(sm.TimeFromTreatmentStart))
		if err != nil {
			return fmt.Errorf("insert %s %q: %w", TableMetadata, sm.SampleID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"driver":      s.driver,
		"cell_counts": len(counts),
		"metadata":    len(samples),
	}).Info("store loaded")
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

// CellCounts returns every cell_counts row, sorted by sample_id.
func (s *Store) CellCounts(ctx context.Context) ([]CellCounts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sample_id, b_cell, cd8_t_cell, cd4_t_cell, nk_cell, monocyte FROM cell_counts`)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", TableCellCounts, err)
	}
	defer func() { _ = rows.Close() }()
	var ret []CellCounts
	for rows.Next() {
		var cc CellCounts
		if err := rows.Scan(&cc.SampleID, &cc.Counts[0], &cc.Counts[1], &cc.Counts[2], &cc.Counts[3], &cc.Counts[4]); err != nil {
			return nil, fmt.Errorf("scan %s: %w", TableCellCounts, err)
		}
		ret = append(ret, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].SampleID < ret[j].SampleID })
	return ret, nil
}

// Samples returns every metadata row, sorted by sample_id.
func (s *Store) Samples(ctx context.Context) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sample_id, project, subject, condition, age, sex, treatment, response, sample_type, time_from_treatment_start FROM metadata`)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", TableMetadata, err)
	}
	defer func() { _ = rows.Close() }()
	var ret []Sample
	for rows.Next() {
		var sm Sample
		var age, tfts sql.NullInt64
		var project, subject, condition, sex, treatment, response, sampleType sql.NullString
		if err := rows.Scan(&sm.SampleID, &project, &subject, &condition, &age, &sex, &treatment, &response, &sampleType, &tfts); err != nil {
			return nil, fmt.Errorf("scan %s: %w", TableMetadata, err)
		}
		sm.Project = project.String
		sm.Subject = subject.String
		sm.Condition = condition.String
		sm.Sex = sex.String
		sm.Treatment = treatment.String
		sm.Response = response.String
		sm.SampleType = sampleType.String
		sm.Age = intPtr(age)
		sm.TimeFromTreatmentStart = intPtr(tfts)
		ret = append(ret, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].SampleID < ret[j].SampleID })
	return ret, nil
}

func (s *Store) querySampleIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// JoinedSampleIDs returns the sample IDs present in both tables.
func (s *Store) JoinedSampleIDs(ctx context.Context) ([]string, error) {
	ids, err := s.querySampleIDs(ctx, `SELECT cc.sample_id FROM cell_counts cc JOIN metadata m ON cc.sample_id = m.sample_id`)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	return ids, nil
}

// Orphans returns one OrphanRecordError for each row (in either table)
// without a partner in the other table.
func (s *Store) Orphans(ctx context.Context) ([]*OrphanRecordError, error) {
	var orphans []*OrphanRecordError
	for _, q := range []struct {
		table string
		query string
	}{
		{TableCellCounts, `SELECT cc.sample_id FROM cell_counts cc LEFT JOIN metadata m ON cc.sample_id = m.sample_id WHERE m.sample_id IS NULL`},
		{TableMetadata, `SELECT m.sample_id FROM metadata m LEFT JOIN cell_counts cc ON cc.sample_id = m.sample_id WHERE cc.sample_id IS NULL`},
	} {
		ids, err := s.querySampleIDs(ctx, q.query)
		if err != nil {
			return nil, fmt.Errorf("%s anti-join: %w", q.table, err)
		}
		for _, id := range ids {
			orphans = append(orphans, &OrphanRecordError{Table: q.table, SampleID: id})
		}
	}
	return orphans, nil
}

// CohortSampleIDs selects, in SQL, the samples present in both tables
// that satisfy crit.
func (s *Store) CohortSampleIDs(ctx context.Context, crit Criteria) (Cohort, error) {
	query := `SELECT m.sample_id FROM metadata m JOIN cell_counts cc ON cc.sample_id = m.sample_id WHERE m.condition = ? AND m.treatment = ? AND m.sample_type = ?`
	args := []interface{}{crit.Condition, crit.Treatment, crit.SampleType}
	if crit.Timepoint != nil {
		query += ` AND m.time_from_treatment_start = ?`
		args = append(args, *crit.Timepoint)
	}
	ids, err := s.querySampleIDs(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cohort query: %w", err)
	}
	return NewCohort(ids...), nil
}
