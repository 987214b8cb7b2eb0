package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"

	"github.com/hamed0406/siteprobe/internal/domain"
)

const SheetName = "Results"

type XLSXWriter struct{}

func (XLSXWriter) Write(w io.Writer, v domain.Variant, results []domain.ProbeResult) (err error) {
	f := excelize.NewFile()
	defer multierr.AppendInvoke(&err, multierr.Invoke(f.Close))

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	cols := columns(v)
	if err := f.SetSheetRow(SheetName, "A1", &cols); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return err
	}

	rows := sorted(results)
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := cellValues(v, r)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(cols))
	_ = f.SetColWidth(SheetName, "A", "A", 36)
	_ = f.SetColWidth(SheetName, "B", lastCol, 24)
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	if len(rows) > 0 {
		ref := "A1:" + lastCol + strconv.Itoa(len(rows)+1)
		if err := f.AutoFilter(SheetName, ref, nil); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// cellValues keeps numeric status codes numeric in the sheet.
func cellValues(v domain.Variant, r domain.ProbeResult) []any {
	rec := record(v, r)
	out := make([]any, len(rec))
	for i, s := range rec {
		out[i] = s
	}
	if v != domain.VariantCapture && r.Artifact.StatusCode != 0 {
		out[1] = r.Artifact.StatusCode
	}
	return out
}
