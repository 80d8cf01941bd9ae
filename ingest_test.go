// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"context"
	"errors"

	"gopkg.in/check.v1"
)

type ingestSuite struct{}

var _ = check.Suite(&ingestSuite{})

func intp(i int) *int { return &i }

// testSample returns a sample in the comparison cohort.
func testSample(id, subject, response string, timepoint int) Sample {
	return Sample{
		SampleID:               id,
		Project:                "prj1",
		Subject:                subject,
		Condition:              "melanoma",
		Age:                    intp(60),
		Sex:                    "F",
		Treatment:              "miraclib",
		Response:               response,
		SampleType:             "PBMC",
		TimeFromTreatmentStart: intp(timepoint),
	}
}

func testCounts(id string, counts ...int64) CellCounts {
	cc := CellCounts{SampleID: id}
	copy(cc.Counts[:], counts)
	return cc
}

func openTestStore(c *check.C) *Store {
	store, err := OpenStore(context.Background(), c.MkDir()+"/sub/cell_info.db")
	c.Assert(err, check.IsNil)
	return store
}

func (s *ingestSuite) TestLoad(c *check.C) {
	ctx := context.Background()
	store := openTestStore(c)
	defer store.Close()
	counts := []CellCounts{
		testCounts("s2", 1, 2, 3, 4, 5),
		testCounts("s1", 10, 20, 30, 40, 50),
	}
	samples := []Sample{
		testSample("s1", "sbj1", "yes", 0),
		testSample("s2", "sbj2", "no", 7),
	}
	samples[1].Age = nil
	report, err := Load(ctx, store, counts, samples)
	c.Assert(err, check.IsNil)
	c.Check(report.CellCounts, check.Equals, 2)
	c.Check(report.Metadata, check.Equals, 2)
	c.Check(report.Matched, check.Equals, 2)
	c.Check(report.Orphans, check.HasLen, 0)
	c.Check(report.Err(), check.IsNil)

	got, err := store.CellCounts(ctx)
	c.Assert(err, check.IsNil)
	c.Check(got, check.DeepEquals, []CellCounts{counts[1], counts[0]})
	gotSamples, err := store.Samples(ctx)
	c.Assert(err, check.IsNil)
	c.Check(gotSamples, check.DeepEquals, samples)

	// loading again replaces the previous contents
	report, err = Load(ctx, store, counts[:1], samples[1:])
	c.Assert(err, check.IsNil)
	c.Check(report.Matched, check.Equals, 1)
	got, err = store.CellCounts(ctx)
	c.Assert(err, check.IsNil)
	c.Check(got, check.HasLen, 1)
}

func (s *ingestSuite) TestDuplicateKey(c *check.C) {
	ctx := context.Background()
	store := openTestStore(c)
	defer store.Close()
	for _, trial := range []struct {
		counts  []CellCounts
		samples []Sample
		table   string
	}{
		{
			counts:  []CellCounts{testCounts("s1", 1), testCounts("s1", 2)},
			samples: []Sample{testSample("s1", "sbj1", "yes", 0)},
			table:   TableCellCounts,
		},
		{
			counts:  []CellCounts{testCounts("s1", 1)},
			samples: []Sample{testSample("s1", "sbj1", "yes", 0), testSample("s1", "sbj1", "no", 0)},
			table:   TableMetadata,
		},
	} {
		_, err := Load(ctx, store, trial.counts, trial.samples)
		var dup *DuplicateKeyError
		c.Assert(errors.As(err, &dup), check.Equals, true, check.Commentf("%v", err))
		c.Check(dup.Table, check.Equals, trial.table)
		c.Check(dup.SampleID, check.Equals, "s1")
	}
}

func (s *ingestSuite) TestDuplicateKeyWritesNothing(c *check.C) {
	ctx := context.Background()
	store := openTestStore(c)
	defer store.Close()
	_, err := Load(ctx, store, []CellCounts{testCounts("s0", 1)}, []Sample{testSample("s0", "sbj0", "yes", 0)})
	c.Assert(err, check.IsNil)
	_, err = Load(ctx, store, []CellCounts{testCounts("s1", 1), testCounts("s1", 1)}, nil)
	c.Assert(err, check.NotNil)
	got, err := store.CellCounts(ctx)
	c.Assert(err, check.IsNil)
	c.Check(got, check.DeepEquals, []CellCounts{testCounts("s0", 1)})
}

func (s *ingestSuite) TestOrphans(c *check.C) {
	ctx := context.Background()
	store := openTestStore(c)
	defer store.Close()
	report, err := Load(ctx, store,
		[]CellCounts{testCounts("s1", 1), testCounts("s2", 1)},
		[]Sample{testSample("s2", "sbj2", "yes", 0), testSample("s3", "sbj3", "no", 0)})
	c.Assert(err, check.IsNil)
	c.Check(report.Matched, check.Equals, 1)
	c.Check(report.Orphans, check.DeepEquals, []*OrphanRecordError{
		{Table: TableCellCounts, SampleID: "s1"},
		{Table: TableMetadata, SampleID: "s3"},
	})
	err = report.Err()
	var orphan *OrphanRecordError
	c.Check(errors.As(err, &orphan), check.Equals, true)
	c.Check(err, check.ErrorMatches, `(?s)cell_counts: sample_id "s1" has no matching metadata row.*metadata: sample_id "s3" has no matching cell_counts row`)

	joined, err := store.JoinedSampleIDs(ctx)
	c.Assert(err, check.IsNil)
	c.Check(joined, check.DeepEquals, []string{"s2"})
}

func (s *ingestSuite) TestValidation(c *check.C) {
	ctx := context.Background()
	store := openTestStore(c)
	defer store.Close()
	_, err := Load(ctx, store, []CellCounts{testCounts("s1", 1, -2)}, nil)
	c.Check(err, check.ErrorMatches, `cell_counts row 1 \(sample_id "s1"\): .*min.*`)
	_, err = Load(ctx, store, nil, []Sample{{}})
	c.Check(err, check.ErrorMatches, `metadata row 1 \(sample_id ""\): .*required.*`)
	sm := testSample("s1", "sbj1", "yes", 0)
	sm.Age = intp(-1)
	_, err = Load(ctx, store, nil, []Sample{sm})
	c.Check(err, check.ErrorMatches, `metadata row 1 .*Age.*`)
}

func (s *ingestSuite) TestPreTreatmentTimepoint(c *check.C) {
	ctx := context.Background()
	store := openTestStore(c)
	defer store.Close()
	samples := []Sample{
		testSample("s1", "sbj1", "yes", -7),
		testSample("s2", "sbj1", "yes", 0),
	}
	counts := []CellCounts{testCounts("s1", 1, 1, 1, 1, 1), testCounts("s2", 1, 1, 1, 1, 1)}
	report, err := Load(ctx, store, counts, samples)
	c.Assert(err, check.IsNil)
	c.Check(report.Matched, check.Equals, 2)

	got, err := store.Samples(ctx)
	c.Assert(err, check.IsNil)
	c.Check(got, check.DeepEquals, samples)
	baseline, err := store.CohortSampleIDs(ctx, BaselineCriteria)
	c.Assert(err, check.IsNil)
	c.Check(baseline, check.DeepEquals, Cohort{"s2"})
	compared, err := store.CohortSampleIDs(ctx, ComparisonCriteria)
	c.Assert(err, check.IsNil)
	c.Check(compared, check.DeepEquals, Cohort{"s1", "s2"})
	c.Check(filterSamples(samples, BaselineCriteria), check.DeepEquals, Cohort{"s2"})
}

func (s *ingestSuite) TestRebind(c *check.C) {
	st := &Store{driver: "pgx"}
	c.Check(st.rebind(`a = ? AND b = ?`), check.Equals, `a = $1 AND b = $2`)
	st.driver = "sqlite"
	c.Check(st.rebind(`a = ?`), check.Equals, `a = ?`)
	c.Check(storeDriver("postgres://u@host/db"), check.Equals, "pgx")
	c.Check(storeDriver("postgresql://u@host/db"), check.Equals, "pgx")
	c.Check(storeDriver("data/cell_info.db"), check.Equals, "sqlite")
}
