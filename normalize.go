// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// DegeneratePolicy says what to do with a sample whose total count is
// zero.
type DegeneratePolicy string

const (
	// SkipDegenerate omits the sample from the frequency table,
	// logs a warning, and lists it in Normalization.Skipped.
	SkipDegenerate DegeneratePolicy = "skip"
	// AbortOnDegenerate fails the whole normalization.
	AbortOnDegenerate DegeneratePolicy = "abort"
)

func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch p := DegeneratePolicy(s); p {
	case SkipDegenerate, AbortOnDegenerate:
		return p, nil
	default:
		return "", fmt.Errorf("invalid degenerate sample policy %q (must be %q or %q)", s, SkipDegenerate, AbortOnDegenerate)
	}
}

type Normalization struct {
	// Five records per sample, grouped by sample in sample_id
	// order, populations in the order of Populations.
	Records []FrequencyRecord
	Skipped []*DegenerateSampleError
}

// SampleIDs returns the normalized samples in table order.
func (n *Normalization) SampleIDs() []string {
	ids := make([]string, 0, len(n.Records)/nPopulations)
	for i := 0; i < len(n.Records); i += nPopulations {
		ids = append(ids, n.Records[i].SampleID)
	}
	return ids
}

// Normalize converts the raw counts in store to relative frequencies.
func Normalize(ctx context.Context, store CountsStore, policy DegeneratePolicy) (*Normalization, error) {
	counts, err := store.CellCounts(ctx)
	if err != nil {
		return nil, err
	}
	return NormalizeCounts(counts, policy)
}

// NormalizeCounts converts counts to relative frequencies, in the
// given sample order.
func NormalizeCounts(counts []CellCounts, policy DegeneratePolicy) (*Normalization, error) {
	if _, err := ParseDegeneratePolicy(string(policy)); err != nil {
		return nil, err
	}
	norm := &Normalization{Records: make([]FrequencyRecord, 0, len(counts)*nPopulations)}
	for _, cc := range counts {
		total := cc.Total()
		if total == 0 {
			err := &DegenerateSampleError{SampleID: cc.SampleID}
			if policy == AbortOnDegenerate {
				return nil, err
			}
			log.Warnf("skipping %s", err)
			norm.Skipped = append(norm.Skipped, err)
			continue
		}
		for i, pop := range Populations {
			norm.Records = append(norm.Records, FrequencyRecord{
				SampleID:   cc.SampleID,
				Population: pop,
				Count:      cc.Counts[i],
				TotalCount: total,
				Percentage: 100 * float64(cc.Counts[i]) / float64(total),
			})
		}
	}
	log.WithFields(log.Fields{
		"samples": len(norm.Records) / nPopulations,
		"skipped": len(norm.Skipped),
	}).Info("normalization done")
	return norm, nil
}
