// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"sort"
)

// Empty attribute values are reported as this.
const unknownValue = "unknown"

func (sm *Sample) attribute(cat Category) string {
	var v string
	switch cat {
	case CategoryProject:
		v = sm.Project
	case CategoryResponse:
		v = sm.Response
	case CategorySex:
		v = sm.Sex
	}
	if v == "" {
		return unknownValue
	}
	return v
}

// Aggregate counts the samples in cohort (and the distinct non-empty
// subjects they came from) by project, response, and sex. For each category
// the results partition the cohort: sample counts add up to the number
// of cohort samples that have metadata. Results are sorted by value.
func Aggregate(samples []Sample, cohort Cohort) map[Category][]AggregationResult {
	ret := make(map[Category][]AggregationResult, len(Categories))
	for _, cat := range Categories {
		nsamples := map[string]int{}
		subjects := map[string]map[string]bool{}
		for i := range samples {
			sm := &samples[i]
			if !cohort.Contains(sm.SampleID) {
				continue
			}
			v := sm.attribute(cat)
			nsamples[v]++
			if subjects[v] == nil {
				subjects[v] = map[string]bool{}
			}
			if sm.Subject != "" {
				subjects[v][sm.Subject] = true
			}
		}
		results := make([]AggregationResult, 0, len(nsamples))
		for v, n := range nsamples {
			results = append(results, AggregationResult{
				Category: cat,
				Value:    v,
				Samples:  n,
				Subjects: len(subjects[v]),
			})
		}
		sort.Slice(results, func(i, j int) bool { return results[i].Value < results[j].Value })
		ret[cat] = results
	}
	return ret
}
