// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
)

// zopen returns a reader for the given file, transparently
// decompressing the input if fnm ends with ".gz". "-" means stdin.
func zopen(fnm string, stdin io.Reader) (io.ReadCloser, error) {
	var f io.ReadCloser
	if fnm == "-" {
		f = io.NopCloser(stdin)
	} else {
		var err error
		f, err = os.Open(fnm)
		if err != nil {
			return nil, err
		}
	}
	if !strings.HasSuffix(fnm, ".gz") {
		return f, nil
	}
	rdr, err := pgzip.NewReader(bufio.NewReaderSize(f, 4*1024*1024))
	if err != nil {
		f.Close()
		return nil, err
	}
	return gzipr{rdr, f}, nil
}

// gzipr wraps a ReadCloser and a Closer, presenting a single Close()
// method that closes both wrapped objects.
type gzipr struct {
	io.ReadCloser
	io.Closer
}

func (gr gzipr) Close() error {
	e1 := gr.ReadCloser.Close()
	e2 := gr.Closer.Close()
	if e1 != nil {
		return e1
	}
	return e2
}

// zcreate creates fnm, compressing everything written to it if fnm
// ends with ".gz". Close must be called to flush the output.
func zcreate(fnm string) (io.WriteCloser, error) {
	f, err := os.OpenFile(fnm, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return nil, err
	}
	bufw := bufio.NewWriterSize(f, 1<<20)
	w := &zwriter{f: f, bufw: bufw, out: bufw}
	if strings.HasSuffix(fnm, ".gz") {
		w.gzw = pgzip.NewWriter(bufw)
		w.out = w.gzw
	}
	return w, nil
}

type zwriter struct {
	f    *os.File
	bufw *bufio.Writer
	gzw  *pgzip.Writer
	out  io.Writer
}

func (w *zwriter) Write(p []byte) (int, error) { return w.out.Write(p) }

func (w *zwriter) Close() error {
	if w.gzw != nil {
		if err := w.gzw.Close(); err != nil {
			w.f.Close()
			return err
		}
	}
	if err := w.bufw.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
