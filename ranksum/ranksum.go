// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package ranksum implements the two-sided Mann-Whitney U (Wilcoxon
// rank-sum) test for two independent samples.
package ranksum

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

type Method string

const (
	Exact      Method = "exact"
	Asymptotic Method = "asymptotic"
)

// Samples larger than this (in both groups) always use the normal
// approximation.
const MaxExact = 8

var (
	ErrEmptySample = errors.New("ranksum: empty sample")
	ErrNaN         = errors.New("ranksum: NaN observation")
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

type Result struct {
	// U statistic of the first sample: R1 - n1(n1+1)/2.
	U      float64
	P      float64
	Method Method
	Ties   bool
}

// MannWhitneyU compares x and y. Tied observations get the average of
// the ranks they span, and the variance of the normal approximation
// is corrected for ties. The exact null distribution is used when
// there are no ties and at least one sample has no more than MaxExact
// observations; otherwise the normal approximation with continuity
// correction is used. The returned p-value is clipped to [0, 1].
func MannWhitneyU(x, y []float64) (Result, error) {
	n1, n2 := len(x), len(y)
	if n1 == 0 || n2 == 0 {
		return Result{}, ErrEmptySample
	}
	type obs struct {
		val   float64
		first bool
	}
	all := make([]obs, 0, n1+n2)
	for _, v := range x {
		if math.IsNaN(v) {
			return Result{}, fmt.Errorf("first sample: %w", ErrNaN)
		}
		all = append(all, obs{v, true})
	}
	for _, v := range y {
		if math.IsNaN(v) {
			return Result{}, fmt.Errorf("second sample: %w", ErrNaN)
		}
		all = append(all, obs{v, false})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].val < all[j].val })

	var r1, tieSum float64
	for i := 0; i < len(all); {
		j := i
		for j < len(all) && all[j].val == all[i].val {
			j++
		}
		rank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if all[k].first {
				r1 += rank
			}
		}
		if t := float64(j - i); t > 1 {
			tieSum += t*t*t - t
		}
		i = j
	}

	fn1, fn2 := float64(n1), float64(n2)
	u1 := r1 - fn1*(fn1+1)/2
	u := math.Max(u1, fn1*fn2-u1)
	res := Result{U: u1, Ties: tieSum > 0}

	if res.Ties || (n1 > MaxExact && n2 > MaxExact) {
		res.Method = Asymptotic
		n := fn1 + fn2
		sd := math.Sqrt(fn1 * fn2 / 12 * ((n + 1) - tieSum/(n*(n-1))))
		if sd == 0 {
			// every observation has the same value
			res.P = 1
			return res, nil
		}
		z := (u - fn1*fn2/2 - 0.5) / sd
		res.P = clip(2 * stdNormal.Survival(z))
		return res, nil
	}
	res.Method = Exact
	res.P = clip(2 * exactSurvival(n1, n2, int(math.Round(u))))
	return res, nil
}

// exactSurvival returns P(U >= u) under the null hypothesis, for
// sample sizes n1 and n2 with no ties.
func exactSurvival(n1, n2, u int) float64 {
	freq := frequencies(n1, n2)
	var total, tail float64
	for k, f := range freq {
		total += f
		if k >= u {
			tail += f
		}
	}
	return tail / total
}

// frequencies returns f where f[k] is the number of orderings of n1
// and n2 distinct observations for which U == k. The generating
// function of f is the Gaussian binomial coefficient
//
//	prod(i=1..m) (1 - q^(n+i)) / (1 - q^i)
//
// with m = min(n1,n2), n = max(n1,n2). Each factor is applied in place
// to a single series truncated at degree m*n, so time is O(m*m*n) and
// memory O(m*n).
func frequencies(n1, n2 int) []float64 {
	m, n := n1, n2
	if m > n {
		m, n = n, m
	}
	f := make([]float64, m*n+1)
	f[0] = 1
	for i := 1; i <= m; i++ {
		// multiply by (1 - q^(n+i))
		for k := len(f) - 1; k >= n+i; k-- {
			f[k] -= f[k-n-i]
		}
		// divide by (1 - q^i)
		for k := i; k < len(f); k++ {
			f[k] += f[k-i]
		}
	}
	return f
}

func clip(p float64) float64 {
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}
