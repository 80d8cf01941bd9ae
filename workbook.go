// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellfreq

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook saves the given tables as sheets of one .xlsx file,
// for spreadsheet and dashboard users.
func writeWorkbook(fnm string, tables []table) error {
	f := excelize.NewFile()
	defer f.Close()
	for _, t := range tables {
		if _, err := f.NewSheet(t.name); err != nil {
			return fmt.Errorf("%s: sheet %s: %w", fnm, t.name, err)
		}
		header := make([]interface{}, len(t.header))
		for i, h := range t.header {
			header[i] = h
		}
		if err := f.SetSheetRow(t.name, "A1", &header); err != nil {
			return fmt.Errorf("%s: sheet %s: %w", fnm, t.name, err)
		}
		for r, row := range t.rows {
			cells := make([]interface{}, len(row))
			for i, v := range row {
				cells[i] = workbookCell(v)
			}
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(t.name, cell, &cells); err != nil {
				return fmt.Errorf("%s: sheet %s row %d: %w", fnm, t.name, r+2, err)
			}
		}
	}
	if len(tables) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
		idx, err := f.GetSheetIndex(tables[0].name)
		if err != nil {
			return err
		}
		f.SetActiveSheet(idx)
	}
	log.Infof("writing %s (%d sheets)", fnm, len(tables))
	return f.SaveAs(fnm)
}

func workbookCell(v interface{}) interface{} {
	switch v := v.(type) {
	case nil:
		return nil
	case Population:
		return string(v)
	case float64:
		if math.IsNaN(v) {
			return nil
		}
		return v
	default:
		return v
	}
}
