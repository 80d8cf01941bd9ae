// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"math"
)

type Population string

const (
	BCell    Population = "b_cell"
	CD8TCell Population = "cd8_t_cell"
	CD4TCell Population = "cd4_t_cell"
	NKCell   Population = "nk_cell"
	Monocyte Population = "monocyte"
)

const nPopulations = 5

// Populations lists the measured populations in the fixed order used
// by every table this package reads or writes.
var Populations = [nPopulations]Population{BCell, CD8TCell, CD4TCell, NKCell, Monocyte}

const (
	ResponseYes = "yes"
	ResponseNo  = "no"
)

type Sample struct {
	SampleID               string `validate:"required"`
	Project                string
	Subject                string
	Condition              string
	Age                    *int `validate:"omitempty,min=0"`
	Sex                    string
	Treatment              string
	Response               string
	SampleType             string
	TimeFromTreatmentStart *int
}

// IsResponder and IsNonResponder classify the response label; any
// value other than "yes" or "no" is unknown.
func (s *Sample) IsResponder() bool    { return s.Response == ResponseYes }
func (s *Sample) IsNonResponder() bool { return s.Response == ResponseNo }

func (s *Sample) IsBaseline() bool {
	return s.TimeFromTreatmentStart != nil && *s.TimeFromTreatmentStart == 0
}

type CellCounts struct {
	SampleID string              `validate:"required"`
	Counts   [nPopulations]int64 `validate:"dive,min=0"`
}

func (cc *CellCounts) Total() int64 {
	var total int64
	for _, n := range cc.Counts {
		total += n
	}
	return total
}

func (cc *CellCounts) Count(pop Population) int64 {
	for i, p := range Populations {
		if p == pop {
			return cc.Counts[i]
		}
	}
	return 0
}

type FrequencyRecord struct {
	SampleID   string
	Population Population
	Count      int64
	TotalCount int64
	// Full precision; tables round to PercentagePrecision decimal
	// places on output.
	Percentage float64
}

// PercentagePrecision is the number of decimal places percentages are
// rounded to in emitted tables.
const PercentagePrecision = 2

func roundPercentage(pct float64) float64 {
	scale := math.Pow(10, PercentagePrecision)
	return math.Round(pct*scale) / scale
}

type ComparisonStatus string

const (
	StatusTested           ComparisonStatus = "tested"
	StatusInsufficientData ComparisonStatus = "insufficient_data"
)

// SignificanceLevel is applied to each population independently; no
// multiple-comparison correction is made.
const SignificanceLevel = 0.05

type ComparisonResult struct {
	Population    Population
	Status        ComparisonStatus
	Responders    int
	NonResponders int
	// Statistic is the Mann-Whitney U of the responder group.
	// Statistic and PValue are NaN unless Status is StatusTested.
	Statistic   float64
	PValue      float64
	Method      string
	Significant bool
	// Reason a population was not tested.
	Err error
}

func (r *ComparisonResult) Tested() bool { return r.Status == StatusTested }

type Category string

const (
	CategoryProject  Category = "project"
	CategoryResponse Category = "response"
	CategorySex      Category = "sex"
)

var Categories = []Category{CategoryProject, CategoryResponse, CategorySex}

type AggregationResult struct {
	Category Category
	Value    string
	Samples  int
	// Distinct subjects contributing samples with this value.
	Subjects int
}
