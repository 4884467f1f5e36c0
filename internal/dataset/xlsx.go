package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// loadXLSX reads one worksheet: the first row is the header, blank rows are skipped,
// and short rows are padded because spreadsheets omit trailing empty cells.
func loadXLSX(path string, opt Options) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &LoadError{Path: path, Op: "parse", Err: fmt.Errorf("workbook has no sheets")}
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		sheet = ""
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, &LoadError{Path: path, Op: "parse", Err: fmt.Errorf("sheet %q not found (available: %s)", opt.Sheet, strings.Join(sheets, ", "))}
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "parse", Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}
	var kept [][]string
	width := 0
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		kept = append(kept, row)
		if len(row) > width {
			width = len(row)
		}
	}
	if len(kept) == 0 {
		return nil, &LoadError{Path: path, Op: "parse", Err: fmt.Errorf("sheet %q is empty: no header row", sheet)}
	}
	header := make([]string, width)
	copy(header, kept[0])

	return &Dataset{
		Name:               filepath.Base(path),
		Path:               path,
		Encoding:           "xlsx",
		EncodingConfidence: 100,
		Columns:            build(header, kept[1:], naSet(opt.NAValues)),
		Rows:               len(kept) - 1,
	}, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
