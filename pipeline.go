// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Pipeline is the context of one run: the relational store the
// stages read from, and the settings they share.
type Pipeline struct {
	Store  *Store
	Policy DegeneratePolicy
	RunID  string
}

func NewPipeline(store *Store, policy DegeneratePolicy) *Pipeline {
	return &Pipeline{Store: store, Policy: policy, RunID: uuid.NewString()}
}

// Results holds every derived table of one run.
type Results struct {
	RunID         string
	Integrity     *IntegrityReport
	Normalization *Normalization
	// Samples in both tables that match ComparisonCriteria and
	// BaselineCriteria.
	Cohort     Cohort
	Baseline   Cohort
	Comparison []ComparisonResult
	Boxplot    []BoxplotSummary
	Subsets    map[Category][]AggregationResult
}

// Ingest loads the records into the store. See Load.
func (p *Pipeline) Ingest(ctx context.Context, counts []CellCounts, samples []Sample) (*IntegrityReport, error) {
	return Load(ctx, p.Store, counts, samples)
}

// Run recomputes every derived table from the store, one stage at a
// time.
func (p *Pipeline) Run(ctx context.Context) (*Results, error) {
	res := &Results{RunID: p.RunID}
	var err error
	log.WithField("run_id", p.RunID).Info("run starting")

	res.Integrity, err = VerifyIntegrity(ctx, p.Store)
	if err != nil {
		return nil, fmt.Errorf("integrity: %w", err)
	}

	res.Normalization, err = Normalize(ctx, p.Store, p.Policy)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	samples, err := p.Store.Samples(ctx)
	if err != nil {
		return nil, err
	}
	// Cohorts come from the join, so orphans are excluded from
	// analysis.
	res.Cohort, err = p.Store.CohortSampleIDs(ctx, ComparisonCriteria)
	if err != nil {
		return nil, err
	}
	res.Baseline, err = p.Store.CohortSampleIDs(ctx, BaselineCriteria)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"comparison": len(res.Cohort),
		"baseline":   len(res.Baseline),
	}).Info("cohorts selected")

	res.Comparison = Compare(res.Normalization.Records, res.Cohort, samples)
	res.Boxplot = Boxplot(res.Normalization.Records, res.Cohort, samples)
	res.Subsets = Aggregate(samples, res.Baseline)
	log.WithField("run_id", p.RunID).Info("run done")
	return res, nil
}

// Output selects which derived files WriteOutputs produces.
type Output uint

const (
	OutputFrequencies Output = 1 << iota
	OutputComparison
	OutputSubsets
	OutputIntegrity
	OutputNumpy
	OutputWorkbook
	OutputManifest

	OutputTables = OutputFrequencies | OutputComparison | OutputSubsets | OutputIntegrity
	OutputAll    = OutputTables | OutputNumpy | OutputWorkbook | OutputManifest
)

func (res *Results) tables(which Output) []table {
	var tables []table
	if which&OutputFrequencies != 0 {
		tables = append(tables, frequencyTable(res.Normalization), skippedTable(res.Normalization))
	}
	if which&OutputComparison != 0 {
		tables = append(tables,
			comparisonTable("comparison", res.Comparison),
			comparisonTable("significant", Significant(res.Comparison)),
			boxplotTable(res.Boxplot))
	}
	if which&OutputSubsets != 0 {
		for _, cat := range Categories {
			tables = append(tables, subsetTable(cat, res.Subsets[cat]))
		}
	}
	if which&OutputIntegrity != 0 && res.Integrity != nil {
		tables = append(tables, integrityTable(res.Integrity))
	}
	return tables
}

// WriteOutputs writes the selected outputs to dir and returns a
// manifest of the files written.
func (res *Results) WriteOutputs(dir string, which Output, gzip bool) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, err
	}
	manifest := &Manifest{RunID: res.RunID}
	ext := ".csv"
	if gzip {
		ext = ".csv.gz"
	}
	tables := res.tables(which)
	thr := &throttle{Max: runtime.GOMAXPROCS(0)}
	for _, t := range tables {
		t := t
		fnm := filepath.Join(dir, t.name+ext)
		thr.Go(func() error {
			log.Infof("writing %s (%d rows)", fnm, len(t.rows))
			f, err := zcreate(fnm)
			if err != nil {
				return err
			}
			if err := t.writeCSV(f); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", fnm, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", fnm, err)
			}
			return nil
		})
	}
	if err := thr.Wait(); err != nil {
		return nil, err
	}
	// Digest in table order so the manifest does not depend on
	// which file finished first.
	for _, t := range tables {
		if err := manifest.add(filepath.Join(dir, t.name+ext)); err != nil {
			return nil, err
		}
	}
	if which&OutputNumpy != 0 {
		if len(res.Normalization.Records) == 0 {
			log.Warn("no normalized samples, not writing numpy matrix")
		} else {
			fnm := filepath.Join(dir, "frequencies.npy")
			labels := filepath.Join(dir, "frequencies_samples"+ext)
			if err := writeNumpy(fnm, labels, res.Normalization); err != nil {
				return nil, fmt.Errorf("write %s: %w", fnm, err)
			}
			for _, f := range []string{fnm, labels} {
				if err := manifest.add(f); err != nil {
					return nil, err
				}
			}
		}
	}
	if which&OutputWorkbook != 0 {
		fnm := filepath.Join(dir, "report.xlsx")
		if err := writeWorkbook(fnm, tables); err != nil {
			return nil, err
		}
	}
	if which&OutputManifest != 0 {
		if err := manifest.write(filepath.Join(dir, "manifest.json")); err != nil {
			return nil, err
		}
	}
	return manifest, nil
}

// writeMetrics records res in a prometheus textfile.
func (res *Results) writeMetrics(fnm string, elapsed time.Duration) error {
	m := newRunMetrics()
	m.observe(res, elapsed)
	return m.writeTextfile(fnm)
}
