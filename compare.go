// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"math"

	"github.com/immunoprofile/cellfreq/ranksum"
	log "github.com/sirupsen/logrus"
)

// Rank-sum tests are not attempted with fewer samples than this in
// either response group.
const minGroupSize = 2

// responseGroups returns, for each population, the percentages of
// responders (index 0) and non-responders (index 1) in cohort, in
// sample order. Samples with an unknown response, or no metadata, are
// ignored.
func responseGroups(freqs []FrequencyRecord, cohort Cohort, samples []Sample) map[Population]*[2][]float64 {
	response := make(map[string]string, len(cohort))
	for i := range samples {
		if cohort.Contains(samples[i].SampleID) {
			response[samples[i].SampleID] = samples[i].Response
		}
	}
	groups := make(map[Population]*[2][]float64, nPopulations)
	for _, pop := range Populations {
		groups[pop] = &[2][]float64{}
	}
	for _, fr := range freqs {
		resp, ok := response[fr.SampleID]
		if !ok {
			continue
		}
		g := groups[fr.Population]
		if g == nil {
			continue
		}
		switch resp {
		case ResponseYes:
			g[0] = append(g[0], fr.Percentage)
		case ResponseNo:
			g[1] = append(g[1], fr.Percentage)
		}
	}
	return groups
}

// Compare runs a two-sided Mann-Whitney U test per population,
// responders vs non-responders, over the samples in cohort. Every
// population gets a result, in the order of Populations; populations
// with too few samples are marked StatusInsufficientData. Each
// population is judged against SignificanceLevel on its own (no
// multiple-comparison correction).
func Compare(freqs []FrequencyRecord, cohort Cohort, samples []Sample) []ComparisonResult {
	groups := responseGroups(freqs, cohort, samples)
	results := make([]ComparisonResult, 0, nPopulations)
	for _, pop := range Populations {
		yes, no := groups[pop][0], groups[pop][1]
		res := ComparisonResult{
			Population:    pop,
			Responders:    len(yes),
			NonResponders: len(no),
			Statistic:     math.NaN(),
			PValue:        math.NaN(),
		}
		if len(yes) < minGroupSize || len(no) < minGroupSize {
			res.Status = StatusInsufficientData
			res.Err = &InsufficientDataError{Population: pop, Responders: len(yes), NonResponders: len(no)}
			log.Warn(res.Err)
			results = append(results, res)
			continue
		}
		mwu, err := ranksum.MannWhitneyU(yes, no)
		if err != nil {
			res.Status = StatusInsufficientData
			res.Err = err
			log.Warnf("%s: %s", pop, err)
			results = append(results, res)
			continue
		}
		res.Status = StatusTested
		res.Statistic = mwu.U
		res.PValue = mwu.P
		res.Method = string(mwu.Method)
		res.Significant = mwu.P < SignificanceLevel
		log.WithFields(log.Fields{
			"population":     pop,
			"responders":     res.Responders,
			"non_responders": res.NonResponders,
			"U":              res.Statistic,
			"p":              res.PValue,
			"method":         res.Method,
		}).Info("rank-sum test")
		results = append(results, res)
	}
	return results
}

// Significant returns the tested results with p below
// SignificanceLevel.
func Significant(results []ComparisonResult) []ComparisonResult {
	var sig []ComparisonResult
	for _, r := range results {
		if r.Tested() && r.Significant {
			sig = append(sig, r)
		}
	}
	return sig
}
