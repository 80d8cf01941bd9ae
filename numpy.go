// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"bufio"
	"fmt"
	"os"

	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
)

// frequencyMatrix returns the percentages as a row-major samples x
// populations matrix, at full precision.
func frequencyMatrix(norm *Normalization) (data []float64, rows, cols int) {
	cols = nPopulations
	rows = len(norm.Records) / cols
	data = make([]float64, 0, rows*cols)
	for _, fr := range norm.Records {
		data = append(data, fr.Percentage)
	}
	return
}

// writeNumpy writes the frequency matrix to fnm, and a labels table
// (row index, sample ID) that maps matrix rows back to samples.
func writeNumpy(fnm, labelsFnm string, norm *Normalization) error {
	data, rows, cols := frequencyMatrix(norm)
	output, err := os.Create(fnm)
	if err != nil {
		return err
	}
	defer output.Close()
	bufw := bufio.NewWriter(output)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return fmt.Errorf("gonpy.NewWriter: %w", err)
	}
	log.WithFields(log.Fields{
		"filename": fnm,
		"rows":     rows,
		"cols":     cols,
	}).Infof("writing numpy: %s", fnm)
	npw.Shape = []int{rows, cols}
	if err := npw.WriteFloat64(data); err != nil {
		return err
	}
	if err := bufw.Flush(); err != nil {
		return err
	}
	if err := output.Close(); err != nil {
		return err
	}

	labels := table{
		name:   "frequencies_samples",
		header: []string{"index", "sample"},
	}
	for i, id := range norm.SampleIDs() {
		labels.rows = append(labels.rows, []interface{}{i, id})
	}
	f, err := zcreate(labelsFnm)
	if err != nil {
		return err
	}
	if err := labels.writeCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
