// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"bytes"
	"os"
	"strings"

	"gopkg.in/check.v1"
)

type tablesSuite struct{}

var _ = check.Suite(&tablesSuite{})

func (s *tablesSuite) TestReadCombined(c *check.C) {
	counts, samples, err := readInputs("testdata/cell-count.csv", "", "", nil)
	c.Assert(err, check.IsNil)
	c.Assert(counts, check.HasLen, 16)
	c.Assert(samples, check.HasLen, 16)
	c.Check(counts[0], check.DeepEquals, testCounts("s01", 100, 200, 300, 100, 300))
	c.Check(samples[0], check.DeepEquals, Sample{
		SampleID:               "s01",
		Project:                "prj1",
		Subject:                "sbj01",
		Condition:              "melanoma",
		Age:                    intp(57),
		Sex:                    "M",
		Treatment:              "miraclib",
		Response:               "yes",
		SampleType:             "PBMC",
		TimeFromTreatmentStart: intp(0),
	})
	c.Check(samples[12].SampleID, check.Equals, "s13")
	c.Check(samples[12].Age, check.IsNil)
	c.Check(samples[12].TimeFromTreatmentStart, check.IsNil)
	c.Check(samples[12].Response, check.Equals, "")
}

func (s *tablesSuite) TestReadSeparate(c *check.C) {
	tmpdir := c.MkDir()
	err := os.WriteFile(tmpdir+"/counts.csv", []byte("\ufeffsample_id,monocyte,b_cell,cd8_t_cell,cd4_t_cell,nk_cell\ns1, 5,1,2,3,4\n"), 0666)
	c.Assert(err, check.IsNil)
	err = os.WriteFile(tmpdir+"/meta.csv", []byte(strings.Join(metadataColumns, ",")+"\ns1,p,sbj,melanoma,,F,miraclib,no,PBMC,14\n"), 0666)
	c.Assert(err, check.IsNil)
	counts, samples, err := readInputs("", tmpdir+"/counts.csv", tmpdir+"/meta.csv", nil)
	c.Assert(err, check.IsNil)
	c.Check(counts, check.DeepEquals, []CellCounts{testCounts("s1", 1, 2, 3, 4, 5)})
	c.Assert(samples, check.HasLen, 1)
	c.Check(samples[0].Age, check.IsNil)
	c.Check(*samples[0].TimeFromTreatmentStart, check.Equals, 14)

	_, _, err = readInputs("", tmpdir+"/counts.csv", "", nil)
	c.Check(err, check.Equals, errNoInput)
	_, _, err = readInputs("", "-", "-", strings.NewReader("sample_id\n"))
	c.Check(err, check.Equals, errStdinTwice)
}

func (s *tablesSuite) TestStdin(c *check.C) {
	counts, err := ReadCountsTable(strings.NewReader("sample,b_cell,cd8_t_cell,cd4_t_cell,nk_cell,monocyte\ns9,0,0,0,0,1\n"), "-")
	c.Assert(err, check.IsNil)
	c.Check(counts, check.DeepEquals, []CellCounts{testCounts("s9", 0, 0, 0, 0, 1)})

	f, err := zopen("-", bytes.NewBufferString("x"))
	c.Assert(err, check.IsNil)
	c.Check(f.Close(), check.IsNil)
}

func (s *tablesSuite) TestErrors(c *check.C) {
	for _, trial := range []struct {
		input string
		err   string
	}{
		{"", `input: empty file, no header row`},
		{"sample_id,b_cell\ns1,1\n", `input: no column named "cd8_t_cell" in header row .*`},
		{"sample_id,b_cell,cd8_t_cell,cd4_t_cell,nk_cell,monocyte\ns1,1,2,x,4,5\n", `input line 2: .*cd4_t_cell.*`},
		{"sample_id,b_cell,cd8_t_cell,cd4_t_cell,nk_cell,monocyte\ns1,1,2,3,4,5\ns2,1,2\n", `input: .*wrong number of fields.*`},
	} {
		_, err := ReadCountsTable(strings.NewReader(trial.input), "input")
		c.Check(err, check.ErrorMatches, trial.err, check.Commentf("%q", trial.input))
	}

	meta := strings.Join(metadataColumns, ",") + "\ns1,p,sbj,melanoma,old,F,miraclib,no,PBMC,0\n"
	_, err := ReadMetadataTable(strings.NewReader(meta), "meta")
	c.Check(err, check.ErrorMatches, `meta line 2: .*age.*`)
}

func (s *tablesSuite) TestGzipRoundTrip(c *check.C) {
	fnm := c.MkDir() + "/t.csv.gz"
	t := table{header: []string{"a", "b"}, rows: [][]interface{}{{"x", 1.5}, {nil, int64(7)}}}
	w, err := zcreate(fnm)
	c.Assert(err, check.IsNil)
	c.Assert(t.writeCSV(w), check.IsNil)
	c.Assert(w.Close(), check.IsNil)
	c.Check(readCSV(c, fnm), check.DeepEquals, [][]string{{"a", "b"}, {"x", "1.5"}, {"", "7"}})
}
