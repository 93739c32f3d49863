package report

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// WriteXLSX renders the workbook as an Office Open XML spreadsheet.
func WriteXLSX(w io.Writer, wb Workbook) error {
	if len(wb.Sheets) == 0 {
		return errors.New("empty workbook")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}

	for i, sheet := range wb.Sheets {
		if i == 0 {
			if err = f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return errors.Wrapf(err, "naming sheet %q", sheet.Name)
			}
		} else if _, err = f.NewSheet(sheet.Name); err != nil {
			return errors.Wrapf(err, "creating sheet %q", sheet.Name)
		}
		if err = writeSheet(f, sheet, bold); err != nil {
			return errors.Wrapf(err, "writing sheet %q", sheet.Name)
		}
	}
	f.SetActiveSheet(0)

	return errors.Wrap(f.Write(w), "writing workbook")
}

func writeSheet(f *excelize.File, sheet Sheet, boldStyle int) error {
	for i, row := range sheet.Rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err = f.SetSheetRow(sheet.Name, cell, &r); err != nil {
			return err
		}
	}

	for i, width := range sheet.ColWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err = f.SetColWidth(sheet.Name, col, col, width); err != nil {
			return err
		}
	}

	for _, rowNum := range sheet.BoldRows {
		if rowNum < 1 || rowNum > len(sheet.Rows) || len(sheet.Rows[rowNum-1]) == 0 {
			continue
		}
		first, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(sheet.Rows[rowNum-1]), rowNum)
		if err != nil {
			return err
		}
		if err = f.SetCellStyle(sheet.Name, first, last, boldStyle); err != nil {
			return err
		}
	}
	return nil
}
