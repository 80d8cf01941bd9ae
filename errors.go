// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"errors"
	"fmt"
)

const (
	TableCellCounts = "cell_counts"
	TableMetadata   = "metadata"
)

// DuplicateKeyError means a sample_id occurs more than once in one
// input table. Ingestion stops and nothing is written.
type DuplicateKeyError struct {
	Table    string
	SampleID string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: duplicate sample_id %q", e.Table, e.SampleID)
}

// OrphanRecordError means a sample_id is present in Table but has no
// matching row in the other table.
type OrphanRecordError struct {
	Table    string
	SampleID string
}

func (e *OrphanRecordError) Error() string {
	other := TableMetadata
	if e.Table == TableMetadata {
		other = TableCellCounts
	}
	return fmt.Sprintf("%s: sample_id %q has no matching %s row", e.Table, e.SampleID, other)
}

type DegenerateSampleError struct {
	SampleID string
}

func (e *DegenerateSampleError) Error() string {
	return fmt.Sprintf("sample %q: total cell count is 0, relative frequencies are undefined", e.SampleID)
}

var ErrInsufficientData = errors.New("insufficient data")

type InsufficientDataError struct {
	Population    Population
	Responders    int
	NonResponders int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: %s: need at least %d samples per response group, have %d responders and %d non-responders", e.Population, ErrInsufficientData, minGroupSize, e.Responders, e.NonResponders)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }
