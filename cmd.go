// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"git.arvados.org/arvados.git/lib/cmd"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

var (
	handler = cmd.Multi(map[string]cmd.Handler{
		"version":   cmd.Version,
		"-version":  cmd.Version,
		"--version": cmd.Version,

		"ingest":       &ingestCmd{},
		"normalize":    &analyzeCmd{outputs: OutputFrequencies | OutputManifest},
		"compare":      &analyzeCmd{outputs: OutputComparison | OutputManifest},
		"subset":       &analyzeCmd{outputs: OutputSubsets | OutputManifest},
		"export-numpy": &analyzeCmd{outputs: OutputNumpy | OutputManifest},
		"run":          &analyzeCmd{outputs: OutputAll, ingest: true},
		"stats":        &statsCmd{},
	})
)

func Main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		log.StandardLogger().Formatter = &log.TextFormatter{DisableTimestamp: true}
	}
	os.Exit(handler.RunCommand(os.Args[0], os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// inputFlags name the CSV tables to load.
type inputFlags struct {
	combined string
	counts   string
	metadata string
}

func (in *inputFlags) Flags(flags *flag.FlagSet) {
	flags.StringVar(&in.combined, "i", "", "combined counts+metadata input `file` (.csv or .csv.gz, - for stdin)")
	flags.StringVar(&in.counts, "counts", "", "cell counts input `file`")
	flags.StringVar(&in.metadata, "metadata", "", "sample metadata input `file`")
}

func (in *inputFlags) given() bool {
	return in.combined != "" || in.counts != "" || in.metadata != ""
}

func servePprof(addr string) {
	if addr != "" {
		go func() {
			log.Println(http.ListenAndServe(addr, nil))
		}()
	}
}

type ingestCmd struct{}

func (cmd *ingestCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	var in inputFlags
	in.Flags(flags)
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
	servePprof(*pprof)

	ctx := context.Background()
	counts, samples, err := readInputs(in.combined, in.counts, in.metadata, stdin)
	if err != nil {
		return 1
	}
	store, err := OpenStore(ctx, cfg.DSN)
	if err != nil {
		return 1
	}
	defer store.Close()
	report, err := Load(ctx, store, counts, samples)
	if err != nil {
		return 1
	}
	tbl := integrityTable(report)
	err = tbl.writeCSV(stdout)
	if err != nil {
		return 1
	}
	return 0
}

// analyzeCmd recomputes the pipeline from the store and writes the
// selected outputs.
type analyzeCmd struct {
	outputs Output
	// Accept input flags, and load the inputs into the store
	// before running.
	ingest bool
}

func (cmd *analyzeCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	var in inputFlags
	if cmd.ingest {
		in.Flags(flags)
	}
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

	start := time.Now()
	ctx := context.Background()
	store, err := OpenStore(ctx, cfg.DSN)
	if err != nil {
		return 1
	}
	defer store.Close()
	pipeline := NewPipeline(store, policy)
	if in.given() {
		var counts []CellCounts
		var samples []Sample
		counts, samples, err = readInputs(in.combined, in.counts, in.metadata, stdin)
		if err != nil {
			return 1
		}
		_, err = pipeline.Ingest(ctx, counts, samples)
		if err != nil {
			return 1
		}
	}
	res, err := pipeline.Run(ctx)
	if err != nil {
		return 1
	}
	outputs := cmd.outputs
	if !cfg.Workbook {
		outputs &^= OutputWorkbook
	}
	manifest, err := res.WriteOutputs(cfg.OutputDir, outputs, cfg.Gzip)
	if err != nil {
		return 1
	}
	if cfg.MetricsTextfile != "" && cmd.outputs == OutputAll {
		err = res.writeMetrics(cfg.MetricsTextfile, time.Since(start))
		if err != nil {
			return 1
		}
	}
	for _, mf := range manifest.Files {
		fmt.Fprintln(stdout, mf.Name)
	}
	return 0
}
