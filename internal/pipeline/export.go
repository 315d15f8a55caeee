package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tickerize/internal"
)

// ExportRunToXLSX writes one row per annotated headline of a run.
func ExportRunToXLSX(rows []internal.AnnotationExportRow, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{
		"index", "headline", "status",
		"org_parse", "org_change_made",
		"org_sub_obj_parse", "org_sub_obj_change_made",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.Index)
		set(2, row.Headline)
		set(3, row.Status)
		set(4, derefString(row.OrgParse))
		set(5, row.OrgChangeMade)
		set(6, derefString(row.OrgSubObjParse))
		set(7, row.OrgSubObjChangeMade)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) any {
	if v == nil {
		return ""
	}
	return *v
}
