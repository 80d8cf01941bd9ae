// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var metadataColumns = []string{"sample_id", "project", "subject", "condition", "age", "sex", "treatment", "response", "sample_type", "time_from_treatment_start"}

func countsColumns() []string {
	cols := []string{"sample_id"}
	for _, pop := range Populations {
		cols = append(cols, string(pop))
	}
	return cols
}

// readTable reads a CSV file with a header row, checks that every
// required column is present, and calls fn once per data row with a
// function that returns the value of a named column. A "sample"
// column is accepted in place of "sample_id".
func readTable(r io.Reader, name string, required []string, fn func(get func(col string) string) error) error {
	rdr := csv.NewReader(r)
	rdr.TrimLeadingSpace = true
	rdr.ReuseRecord = true
	header, err := rdr.Read()
	if err == io.EOF {
		return fmt.Errorf("%s: empty file, no header row", name)
	} else if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	colIdx := map[string]int{}
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if col == "sample" {
			col = "sample_id"
		}
		colIdx[col] = i
	}
	for _, col := range required {
		if _, ok := colIdx[col]; !ok {
			return fmt.Errorf("%s: no column named %q in header row %q", name, col, strings.Join(header, ","))
		}
	}
	for {
		row, err := rdr.Read()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		lineNum, _ := rdr.FieldPos(0)
		get := func(col string) string {
			return strings.TrimSpace(row[colIdx[col]])
		}
		if err := fn(get); err != nil {
			return fmt.Errorf("%s line %d: %w", name, lineNum, err)
		}
	}
}

func parseCounts(get func(string) string) (CellCounts, error) {
	cc := CellCounts{SampleID: get("sample_id")}
	for i, pop := range Populations {
		n, err := strconv.ParseInt(get(string(pop)), 10, 64)
		if err != nil {
			return cc, fmt.Errorf("%s: %w", pop, err)
		}
		cc.Counts[i] = n
	}
	return cc, nil
}

func parseOptionalInt(col, s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", col, err)
	}
	return &i, nil
}

func parseSample(get func(string) string) (Sample, error) {
	sm := Sample{
		SampleID:   get("sample_id"),
		Project:    get("project"),
		Subject:    get("subject"),
		Condition:  get("condition"),
		Sex:        get("sex"),
		Treatment:  get("treatment"),
		Response:   get("response"),
		SampleType: get("sample_type"),
	}
	var err error
	if sm.Age, err = parseOptionalInt("age", get("age")); err != nil {
		return sm, err
	}
	if sm.TimeFromTreatmentStart, err = parseOptionalInt("time_from_treatment_start", get("time_from_treatment_start")); err != nil {
		return sm, err
	}
	return sm, nil
}

// ReadCountsTable reads a counts CSV (sample_id and one column per
// population).
func ReadCountsTable(r io.Reader, name string) ([]CellCounts, error) {
	var ret []CellCounts
	err := readTable(r, name, countsColumns(), func(get func(string) string) error {
		cc, err := parseCounts(get)
		if err != nil {
			return err
		}
		ret = append(ret, cc)
		return nil
	})
	return ret, err
}

// ReadMetadataTable reads a metadata CSV.
func ReadMetadataTable(r io.Reader, name string) ([]Sample, error) {
	var ret []Sample
	err := readTable(r, name, metadataColumns, func(get func(string) string) error {
		sm, err := parseSample(get)
		if err != nil {
			return err
		}
		ret = append(ret, sm)
		return nil
	})
	return ret, err
}

// ReadCombinedTable reads a CSV with both the counts and the metadata
// columns on each row, and splits it into the two tables.
func ReadCombinedTable(r io.Reader, name string) ([]CellCounts, []Sample, error) {
	var counts []CellCounts
	var samples []Sample
	required := append(countsColumns(), metadataColumns[1:]...)
	err := readTable(r, name, required, func(get func(string) string) error {
		cc, err := parseCounts(get)
		if err != nil {
			return err
		}
		sm, err := parseSample(get)
		if err != nil {
			return err
		}
		counts = append(counts, cc)
		samples = append(samples, sm)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return counts, samples, nil
}

var (
	errNoInput    = errors.New("no input: specify a combined table, or both a counts table and a metadata table")
	errStdinTwice = errors.New("counts and metadata tables cannot both be read from stdin")
)

// readInputs reads either one combined table or a counts table plus a
// metadata table. Filenames ending in .gz are decompressed.
func readInputs(combined, countsFile, metadataFile string, stdin io.Reader) ([]CellCounts, []Sample, error) {
	if combined != "" {
		f, err := zopen(combined, stdin)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		return ReadCombinedTable(f, combined)
	}
	if countsFile == "" || metadataFile == "" {
		return nil, nil, errNoInput
	}
	if countsFile == "-" && metadataFile == "-" {
		return nil, nil, errStdinTwice
	}
	f, err := zopen(countsFile, stdin)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	counts, err := ReadCountsTable(f, countsFile)
	if err != nil {
		return nil, nil, err
	}
	g, err := zopen(metadataFile, stdin)
	if err != nil {
		return nil, nil, err
	}
	defer g.Close()
	samples, err := ReadMetadataTable(g, metadataFile)
	if err != nil {
		return nil, nil, err
	}
	return counts, samples, nil
}
