package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// Write renders header and rows as a single-sheet xlsx workbook.
func Write(w io.Writer, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := f.SetSheetRow(defaultSheet, "A1", &hdr); err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(defaultSheet, 1, 1, style)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := r
		if err := f.SetSheetRow(defaultSheet, cell, &r); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if len(header) > 0 {
		last, _ := excelize.ColumnNumberToName(len(header))
		_ = f.SetColWidth(defaultSheet, "A", last, 16)
	}
	return f.Write(w)
}

// templateRows are the two sample students of the import template.
var templateRows = [][]any{
	{"2024001", "张三", "男", "六年级", "1班", 165, 52, 2800, 8.5, 150, "", 12.5, 185},
	{"2024002", "李四", "女", "六年级", "1班", 160, 48, 2600, 9.2, 140, 45, 15.0, 175},
}

// WriteTemplate writes the import template.
func WriteTemplate(w io.Writer) error {
	return Write(w, TemplateColumns, templateRows)
}
