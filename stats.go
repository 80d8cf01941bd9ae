// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"
)

type statsCmd struct{}

func (cmd *statsCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	cfg, err := LoadConfig()
	if err != nil {
		return 1
	}
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	outputFilename := flags.String("o", "-", "output `file`")
	cfg.Flags(flags)
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("unexpected arguments: %q", flags.Args())
		return 2
	}
	err = cfg.Check()
	if err != nil {
		return 2
	}
	policy, err := ParseDegeneratePolicy(cfg.DegeneratePolicy)
	if err != nil {
		return 2
	}
	servePprof(*pprof)

	ctx := context.Background()
	store, err := OpenStore(ctx, cfg.DSN)
	if err != nil {
		return 1
	}
	defer store.Close()

	var output io.WriteCloser
	if *outputFilename == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = zcreate(*outputFilename)
		if err != nil {
			return 1
		}
		defer output.Close()
	}
	bufw := bufio.NewWriter(output)
	err = doStats(ctx, store, policy, bufw)
	if err != nil {
		return 1
	}
	err = bufw.Flush()
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}

// StoreStats summarizes the contents of the store.
type StoreStats struct {
	CellCounts int
	Metadata   int
	Matched    int
	Orphans    int
	Degenerate int
	// Samples with a frequency table.
	Samples int
	// Mean percentage of each population across Samples.
	MeanPercentage map[Population]float64
	MostAbundant   Population `json:",omitempty"`
	LeastAbundant  Population `json:",omitempty"`
	// Sample counts in the comparison and baseline cohorts.
	Cohort   int
	Baseline int
}

func doStats(ctx context.Context, store *Store, policy DegeneratePolicy, output io.Writer) error {
	integrity, err := VerifyIntegrity(ctx, store)
	if err != nil {
		return err
	}
	norm, err := Normalize(ctx, store, policy)
	if err != nil {
		return err
	}
	cohort, err := store.CohortSampleIDs(ctx, ComparisonCriteria)
	if err != nil {
		return err
	}
	baseline, err := store.CohortSampleIDs(ctx, BaselineCriteria)
	if err != nil {
		return err
	}
	ret := summarizeFrequencies(norm)
	ret.CellCounts = integrity.CellCounts
	ret.Metadata = integrity.Metadata
	ret.Matched = integrity.Matched
	ret.Orphans = len(integrity.Orphans)
	ret.Cohort = len(cohort)
	ret.Baseline = len(baseline)
	enc := json.NewEncoder(output)
	enc.SetIndent("", "  ")
	return enc.Encode(ret)
}

func summarizeFrequencies(norm *Normalization) StoreStats {
	ret := StoreStats{
		Degenerate:     len(norm.Skipped),
		Samples:        len(norm.Records) / nPopulations,
		MeanPercentage: map[Population]float64{},
	}
	if ret.Samples == 0 {
		return ret
	}
	byPop := map[Population][]float64{}
	for _, fr := range norm.Records {
		byPop[fr.Population] = append(byPop[fr.Population], fr.Percentage)
	}
	var most, least float64
	for i, pop := range Populations {
		mean := stat.Mean(byPop[pop], nil)
		ret.MeanPercentage[pop] = roundPercentage(mean)
		if i == 0 || mean > most {
			most, ret.MostAbundant = mean, pop
		}
		if i == 0 || mean < least {
			least, ret.LeastAbundant = mean, pop
		}
	}
	return ret
}
