// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// BoxplotSummary is the distribution of one population's percentages
// within one response group: what a boxplot of the comparison cohort
// draws.
type BoxplotSummary struct {
	Population Population
	Response   string
	N          int
	Min        float64
	Q1         float64
	Median     float64
	Q3         float64
	Max        float64
	Mean       float64
}

// Boxplot summarizes the comparison cohort's percentages for each
// population and response group (responders first). Quantiles use the
// empirical CDF. A group with no samples has N == 0 and NaN values.
func Boxplot(freqs []FrequencyRecord, cohort Cohort, samples []Sample) []BoxplotSummary {
	groups := responseGroups(freqs, cohort, samples)
	var out []BoxplotSummary
	for _, pop := range Populations {
		for i, resp := range []string{ResponseYes, ResponseNo} {
			out = append(out, summarize(pop, resp, groups[pop][i]))
		}
	}
	return out
}

func summarize(pop Population, resp string, vals []float64) BoxplotSummary {
	bs := BoxplotSummary{Population: pop, Response: resp, N: len(vals)}
	if len(vals) == 0 {
		nan := math.NaN()
		bs.Min, bs.Q1, bs.Median, bs.Q3, bs.Max, bs.Mean = nan, nan, nan, nan, nan, nan
		return bs
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	bs.Min = sorted[0]
	bs.Max = floats.Max(sorted)
	bs.Q1 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	bs.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	bs.Q3 = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	bs.Mean = stat.Mean(sorted, nil)
	return bs
}
