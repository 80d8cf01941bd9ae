// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"context"
	"sort"
)

type Criteria struct {
	Condition  string
	Treatment  string
	SampleType string
	// If non-nil, only samples taken this many days after the
	// start of treatment match.
	Timepoint *int
}

var baselineTimepoint = 0

var (
	// ComparisonCriteria selects the responder/non-responder
	// comparison cohort.
	ComparisonCriteria = Criteria{Condition: "melanoma", Treatment: "miraclib", SampleType: "PBMC"}
	// BaselineCriteria selects the subset used for aggregation.
	BaselineCriteria = Criteria{Condition: "melanoma", Treatment: "miraclib", SampleType: "PBMC", Timepoint: &baselineTimepoint}
)

func (crit *Criteria) Match(sm *Sample) bool {
	if sm.Condition != crit.Condition || sm.Treatment != crit.Treatment || sm.SampleType != crit.SampleType {
		return false
	}
	if crit.Timepoint != nil {
		return sm.TimeFromTreatmentStart != nil && *sm.TimeFromTreatmentStart == *crit.Timepoint
	}
	return true
}

// Cohort is a sorted set of sample IDs.
type Cohort []string

func NewCohort(ids ...string) Cohort {
	c := append(Cohort(nil), ids...)
	sort.Strings(c)
	out := c[:0]
	for _, id := range c {
		if len(out) == 0 || id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

func (c Cohort) Contains(id string) bool {
	i := sort.SearchStrings(c, id)
	return i < len(c) && c[i] == id
}

// Intersect returns the samples present in both c and other.
func (c Cohort) Intersect(other Cohort) Cohort {
	var out Cohort
	for _, id := range c {
		if other.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// FilterCohort returns the IDs of samples in store that match crit.
// No matches is an empty cohort, not an error.
func FilterCohort(ctx context.Context, store MetadataStore, crit Criteria) (Cohort, error) {
	samples, err := store.Samples(ctx)
	if err != nil {
		return nil, err
	}
	return filterSamples(samples, crit), nil
}

func filterSamples(samples []Sample, crit Criteria) Cohort {
	var ids []string
	for i := range samples {
		if crit.Match(&samples[i]) {
			ids = append(ids, samples[i].SampleID)
		}
	}
	return NewCohort(ids...)
}
