// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"context"

	"gopkg.in/check.v1"
)

type cohortSuite struct{}

var _ = check.Suite(&cohortSuite{})

func cohortTestSamples() []Sample {
	samples := []Sample{
		testSample("s1", "sbj1", "yes", 0),
		testSample("s2", "sbj1", "yes", 7),
		testSample("s3", "sbj2", "no", 0),
		testSample("s4", "sbj3", "no", 0),
		testSample("s5", "sbj4", "yes", 0),
		testSample("s6", "sbj5", "no", 0),
		testSample("s7", "sbj6", "", 0),
	}
	samples[3].Condition = "carcinoma"
	samples[4].Treatment = "phauximab"
	samples[5].SampleType = "WB"
	samples[6].TimeFromTreatmentStart = nil
	return samples
}

func (s *cohortSuite) TestMatch(c *check.C) {
	samples := cohortTestSamples()
	c.Check(filterSamples(samples, ComparisonCriteria), check.DeepEquals, Cohort{"s1", "s2", "s3", "s7"})
	c.Check(filterSamples(samples, BaselineCriteria), check.DeepEquals, Cohort{"s1", "s3"})
	c.Check(filterSamples(samples, Criteria{Condition: "healthy"}), check.HasLen, 0)
	c.Check(filterSamples(nil, ComparisonCriteria), check.HasLen, 0)
}

func (s *cohortSuite) TestIdempotent(c *check.C) {
	samples := cohortTestSamples()
	first := filterSamples(samples, ComparisonCriteria)
	var again []Sample
	for _, sm := range samples {
		if first.Contains(sm.SampleID) {
			again = append(again, sm)
		}
	}
	c.Check(filterSamples(again, ComparisonCriteria), check.DeepEquals, first)
}

func (s *cohortSuite) TestStoreAgrees(c *check.C) {
	ctx := context.Background()
	store := openTestStore(c)
	defer store.Close()
	samples := cohortTestSamples()
	var counts []CellCounts
	for _, sm := range samples {
		if sm.SampleID != "s3" {
			counts = append(counts, testCounts(sm.SampleID, 1, 1, 1, 1, 1))
		}
	}
	_, err := Load(ctx, store, counts, samples)
	c.Assert(err, check.IsNil)

	for _, crit := range []Criteria{ComparisonCriteria, BaselineCriteria} {
		fromGo, err := FilterCohort(ctx, store, crit)
		c.Assert(err, check.IsNil)
		fromSQL, err := store.CohortSampleIDs(ctx, crit)
		c.Assert(err, check.IsNil)
		// s3 has no counts, so the SQL join leaves it out
		c.Check(fromSQL, check.DeepEquals, fromGo.Intersect(NewCohort(sampleIDs(counts)...)))
	}
	cohort, err := store.CohortSampleIDs(ctx, BaselineCriteria)
	c.Assert(err, check.IsNil)
	c.Check(cohort, check.DeepEquals, Cohort{"s1"})
}

func sampleIDs(counts []CellCounts) []string {
	var ids []string
	for _, cc := range counts {
		ids = append(ids, cc.SampleID)
	}
	return ids
}

func (s *cohortSuite) TestCohortSet(c *check.C) {
	cohort := NewCohort("b", "a", "c", "a")
	c.Check(cohort, check.DeepEquals, Cohort{"a", "b", "c"})
	c.Check(cohort.Contains("b"), check.Equals, true)
	c.Check(cohort.Contains("d"), check.Equals, false)
	c.Check(cohort.Intersect(NewCohort("c", "d", "a")), check.DeepEquals, Cohort{"a", "c"})
	c.Check(cohort.Intersect(nil), check.HasLen, 0)
	c.Check(NewCohort(), check.HasLen, 0)
}
