// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

var validate = validator.New()

// IntegrityReport describes how the two tables relate after loading.
type IntegrityReport struct {
	CellCounts int
	Metadata   int
	// Rows matched by the inner join on sample_id.
	Matched int
	Orphans []*OrphanRecordError
}

// Err returns nil if every row has a partner, otherwise all orphan
// errors joined together.
func (r *IntegrityReport) Err() error {
	errs := make([]error, len(r.Orphans))
	for i, o := range r.Orphans {
		errs[i] = o
	}
	return errors.Join(errs...)
}

// Load validates the records, replaces the contents of store with
// them, and checks referential integrity. A duplicate sample_id in
// either table is returned as a *DuplicateKeyError before anything is
// written. Orphans are listed in the report and are not an error.
func Load(ctx context.Context, store *Store, counts []CellCounts, samples []Sample) (*IntegrityReport, error) {
	if err := checkRecords(counts, samples); err != nil {
		return nil, err
	}
	if err := store.Replace(ctx, counts, samples); err != nil {
		return nil, err
	}
	return VerifyIntegrity(ctx, store)
}

func checkRecords(counts []CellCounts, samples []Sample) error {
	seen := make(map[string]bool, len(counts))
	for i := range counts {
		cc := &counts[i]
		if err := validate.Struct(cc); err != nil {
			return fmt.Errorf("%s row %d (sample_id %q): %w", TableCellCounts, i+1, cc.SampleID, err)
		}
		if seen[cc.SampleID] {
			return &DuplicateKeyError{Table: TableCellCounts, SampleID: cc.SampleID}
		}
		seen[cc.SampleID] = true
	}
	seen = make(map[string]bool, len(samples))
	for i := range samples {
		sm := &samples[i]
		if err := validate.Struct(sm); err != nil {
			return fmt.Errorf("%s row %d (sample_id %q): %w", TableMetadata, i+1, sm.SampleID, err)
		}
		if seen[sm.SampleID] {
			return &DuplicateKeyError{Table: TableMetadata, SampleID: sm.SampleID}
		}
		seen[sm.SampleID] = true
	}
	return nil
}

// VerifyIntegrity joins the two tables in store and reports matched
// rows and orphans.
func VerifyIntegrity(ctx context.Context, store *Store) (*IntegrityReport, error) {
	counts, err := store.CellCounts(ctx)
	if err != nil {
		return nil, err
	}
	samples, err := store.Samples(ctx)
	if err != nil {
		return nil, err
	}
	joined, err := store.JoinedSampleIDs(ctx)
	if err != nil {
		return nil, err
	}
	orphans, err := store.Orphans(ctx)
	if err != nil {
		return nil, err
	}
	report := &IntegrityReport{
		CellCounts: len(counts),
		Metadata:   len(samples),
		Matched:    len(joined),
		Orphans:    orphans,
	}
	for _, o := range orphans {
		log.Warn(o)
	}
	log.WithFields(log.Fields{
		"cell_counts": report.CellCounts,
		"metadata":    report.Metadata,
		"matched":     report.Matched,
		"orphans":     len(report.Orphans),
	}).Info("integrity check done")
	return report, nil
}
