// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"flag"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/check.v1"
)

type configSuite struct {
	env map[string]string
}

var _ = check.Suite(&configSuite{})

func (s *configSuite) setenv(c *check.C, key, value string) {
	if _, ok := s.env[key]; !ok {
		old, _ := os.LookupEnv(key)
		s.env[key] = old
	}
	c.Assert(os.Setenv(key, value), check.IsNil)
}

func (s *configSuite) SetUpTest(c *check.C) {
	s.env = map[string]string{}
}

func (s *configSuite) TearDownTest(c *check.C) {
	for key, old := range s.env {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	}
	log.SetLevel(log.InfoLevel)
}

func (s *configSuite) TestDefaults(c *check.C) {
	cfg, err := LoadConfig()
	c.Assert(err, check.IsNil)
	c.Check(cfg, check.DeepEquals, DefaultConfig())
	c.Check(cfg.Check(), check.IsNil)
}

func (s *configSuite) TestFileEnvFlags(c *check.C) {
	fnm := c.MkDir() + "/cellfreq.yml"
	err := os.WriteFile(fnm, []byte(`
dsn: /var/lib/cellfreq/cells.db
output_dir: /tmp/out
gzip: true
degenerate_policy: abort
`), 0666)
	c.Assert(err, check.IsNil)
	s.setenv(c, "CELLFREQ_CONFIG", fnm)
	s.setenv(c, "CELLFREQ_OUTPUT_DIR", "/tmp/env-out")
	s.setenv(c, "CELLFREQ_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	c.Assert(err, check.IsNil)
	c.Check(cfg.DSN, check.Equals, "/var/lib/cellfreq/cells.db")
	c.Check(cfg.OutputDir, check.Equals, "/tmp/env-out")
	c.Check(cfg.Gzip, check.Equals, true)
	c.Check(cfg.DegeneratePolicy, check.Equals, "abort")
	c.Check(cfg.Workbook, check.Equals, true)
	c.Check(cfg.LogLevel, check.Equals, "debug")

	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	cfg.Flags(flags)
	c.Assert(flags.Parse([]string{"-output-dir", "/tmp/flag-out", "-workbook=false"}), check.IsNil)
	c.Check(cfg.OutputDir, check.Equals, "/tmp/flag-out")
	c.Check(cfg.Workbook, check.Equals, false)
	c.Check(cfg.DSN, check.Equals, "/var/lib/cellfreq/cells.db")

	c.Check(cfg.Check(), check.IsNil)
	c.Check(log.GetLevel(), check.Equals, log.DebugLevel)
}

func (s *configSuite) TestBadConfig(c *check.C) {
	fnm := c.MkDir() + "/cellfreq.yml"
	c.Assert(os.WriteFile(fnm, []byte("no_such_key: 1\n"), 0666), check.IsNil)
	s.setenv(c, "CELLFREQ_CONFIG", fnm)
	_, err := LoadConfig()
	c.Check(err, check.ErrorMatches, `config file .*no_such_key.*`)

	s.setenv(c, "CELLFREQ_CONFIG", "")
	s.setenv(c, "CELLFREQ_GZIP", "maybe")
	_, err = LoadConfig()
	c.Check(err, check.ErrorMatches, `config from environment: .*`)

	cfg := DefaultConfig()
	cfg.DegeneratePolicy = "ignore"
	c.Check(cfg.Check(), check.ErrorMatches, `invalid degenerate sample policy.*`)
	cfg = DefaultConfig()
	cfg.LogLevel = "chatty"
	c.Check(cfg.Check(), check.NotNil)
	cfg = DefaultConfig()
	cfg.DSN = ""
	c.Check(cfg.Check(), check.ErrorMatches, `no database specified`)
}
