// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// runMetrics holds gauges describing one pipeline run. They are
// written to a node_exporter textfile rather than served, since a run
// is a short batch job.
type runMetrics struct {
	reg         *prometheus.Registry
	rows        *prometheus.GaugeVec
	orphans     prometheus.Gauge
	degenerate  prometheus.Gauge
	cohort      *prometheus.GaugeVec
	pvalue      *prometheus.GaugeVec
	significant prometheus.Gauge
	duration    prometheus.Gauge
	lastRun     prometheus.Gauge
}

func newRunMetrics() *runMetrics {
	m := &runMetrics{
		reg: prometheus.NewRegistry(),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cellfreq",
			Name:      "table_rows",
			Help:      "Rows in each relational table.",
		}, []string{"table"}),
		orphans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cellfreq",
			Name:      "orphan_records",
			Help:      "Rows without a partner in the other table.",
		}),
		degenerate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cellfreq",
			Name:      "degenerate_samples",
			Help:      "Samples skipped because their total count is 0.",
		}),
		cohort: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cellfreq",
			Name:      "cohort_samples",
			Help:      "Samples in each analysis cohort.",
		}, []string{"cohort"}),
		pvalue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cellfreq",
			Name:      "population_pvalue",
			Help:      "Rank-sum p-value per tested population.",
		}, []string{"population"}),
		significant: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cellfreq",
			Name:      "significant_populations",
			Help:      "Populations with p below the significance level.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cellfreq",
			Name:      "run_duration_seconds",
			Help:      "Wall clock time of the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cellfreq",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	m.reg.MustRegister(m.rows, m.orphans, m.degenerate, m.cohort, m.pvalue, m.significant, m.duration, m.lastRun)
	return m
}

func (m *runMetrics) observe(res *Results, elapsed time.Duration) {
	if res.Integrity != nil {
		m.rows.WithLabelValues(TableCellCounts).Set(float64(res.Integrity.CellCounts))
		m.rows.WithLabelValues(TableMetadata).Set(float64(res.Integrity.Metadata))
		m.orphans.Set(float64(len(res.Integrity.Orphans)))
	}
	m.degenerate.Set(float64(len(res.Normalization.Skipped)))
	m.cohort.WithLabelValues("comparison").Set(float64(len(res.Cohort)))
	m.cohort.WithLabelValues("baseline").Set(float64(len(res.Baseline)))
	for _, r := range res.Comparison {
		if r.Tested() {
			m.pvalue.WithLabelValues(string(r.Population)).Set(r.PValue)
		}
	}
	m.significant.Set(float64(len(Significant(res.Comparison))))
	m.duration.Set(elapsed.Seconds())
	m.lastRun.SetToCurrentTime()
}

func (m *runMetrics) writeTextfile(fnm string) error {
	return prometheus.WriteToTextfile(fnm, m.reg)
}
