// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
)

// Manifest lists the files written by one run with their BLAKE2b-256
// digests, so reruns on the same input can be checked for identical
// output.
type Manifest struct {
	RunID string         `json:"run_id"`
	Files []ManifestFile `json:"files"`
}

type ManifestFile struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Blake2b string `json:"blake2b"`
}

func digestFile(fnm string) (ManifestFile, error) {
	f, err := os.Open(fnm)
	if err != nil {
		return ManifestFile{}, err
	}
	defer f.Close()
	h, err := blake2b.New256(nil)
	if err != nil {
		return ManifestFile{}, err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return ManifestFile{}, err
	}
	return ManifestFile{
		Name:    filepath.Base(fnm),
		Size:    n,
		Blake2b: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func (m *Manifest) add(fnm string) error {
	mf, err := digestFile(fnm)
	if err != nil {
		return err
	}
	m.Files = append(m.Files, mf)
	return nil
}

// Digest returns the recorded digest of the named file, or "" if the
// manifest does not include it.
func (m *Manifest) Digest(name string) string {
	for _, mf := range m.Files {
		if mf.Name == name {
			return mf.Blake2b
		}
	}
	return ""
}

func (m *Manifest) write(fnm string) error {
	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fnm, append(buf, '\n'), 0666)
}
