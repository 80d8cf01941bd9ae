// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// table is one derived output table. Cells are string, int, int64,
// float64 or bool; nil and NaN cells are written empty.
type table struct {
	name   string
	header []string
	rows   [][]interface{}
}

func formatCell(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case Population:
		return string(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func (t *table) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return err
	}
	rec := make([]string, len(t.header))
	for _, row := range t.rows {
		for i, v := range row {
			rec[i] = formatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func frequencyTable(norm *Normalization) table {
	t := table{
		name:   "frequencies",
		header: []string{"sample", "total_count", "population", "count", "percentage"},
		rows:   make([][]interface{}, 0, len(norm.Records)),
	}
	for _, fr := range norm.Records {
		t.rows = append(t.rows, []interface{}{fr.SampleID, fr.TotalCount, fr.Population, fr.Count, roundPercentage(fr.Percentage)})
	}
	return t
}

func comparisonTable(name string, results []ComparisonResult) table {
	t := table{
		name:   name,
		header: []string{"population", "status", "n_responders", "n_non_responders", "statistic", "p_value", "method", "significant"},
	}
	for _, r := range results {
		var significant interface{}
		if r.Tested() {
			significant = r.Significant
		}
		t.rows = append(t.rows, []interface{}{r.Population, string(r.Status), r.Responders, r.NonResponders, r.Statistic, r.PValue, r.Method, significant})
	}
	return t
}

func boxplotTable(summaries []BoxplotSummary) table {
	t := table{
		name:   "boxplot",
		header: []string{"population", "response", "n", "min", "q1", "median", "q3", "max", "mean"},
	}
	for _, bs := range summaries {
		t.rows = append(t.rows, []interface{}{bs.Population, bs.Response, bs.N, bs.Min, bs.Q1, bs.Median, bs.Q3, bs.Max, bs.Mean})
	}
	return t
}

func subsetTable(cat Category, results []AggregationResult) table {
	t := table{
		name:   "subset_" + string(cat),
		header: []string{string(cat), "sample_count", "subject_count"},
	}
	for _, ar := range results {
		t.rows = append(t.rows, []interface{}{ar.Value, ar.Samples, ar.Subjects})
	}
	return t
}

func integrityTable(report *IntegrityReport) table {
	t := table{
		name:   "integrity",
		header: []string{"check", "table", "sample_id", "count"},
		rows: [][]interface{}{
			{"rows", TableCellCounts, nil, report.CellCounts},
			{"rows", TableMetadata, nil, report.Metadata},
			{"matched", nil, nil, report.Matched},
		},
	}
	for _, o := range report.Orphans {
		t.rows = append(t.rows, []interface{}{"orphan", o.Table, o.SampleID, nil})
	}
	return t
}

func skippedTable(norm *Normalization) table {
	t := table{
		name:   "degenerate_samples",
		header: []string{"sample", "reason"},
	}
	for _, e := range norm.Skipped {
		t.rows = append(t.rows, []interface{}{e.SampleID, "total count is 0"})
	}
	return t
}
