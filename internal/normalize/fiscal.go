package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parseFiscalProfiles reads per-pupil expenditure figures out of the
// statewide fiscal profiles workbook. The sheet is expected to carry a
// header row whose first column names the district and whose remaining
// columns are years; anything else is skipped. NYSED reshuffles this
// workbook from time to time, so absence of usable rows is not an error.
func parseFiscalProfiles(path, sourceURL string) ([]ExpenditureRow, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}

	headerIdx, yearCols := findHeader(rows)
	if headerIdx < 0 {
		return nil, nil
	}

	cols := make([]int, 0, len(yearCols))
	for col := range yearCols {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	var out []ExpenditureRow
	for _, row := range rows[headerIdx+1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		district := strings.TrimSpace(row[0])
		for _, col := range cols {
			if col >= len(row) {
				continue
			}
			value, err := parseDollars(row[col])
			if err != nil {
				continue
			}
			out = append(out, ExpenditureRow{
				District:  district,
				Year:      yearCols[col],
				PerPupil:  value,
				SourceURL: sourceURL,
			})
		}
	}
	return out, nil
}

// findHeader locates the header row ("District", then year columns) and
// maps column index to year.
func findHeader(rows [][]string) (int, map[int]int) {
	for i, row := range rows {
		if len(row) < 2 || !strings.Contains(strings.ToLower(strings.TrimSpace(row[0])), "district") {
			continue
		}
		yearCols := make(map[int]int)
		for col, cell := range row[1:] {
			if year, ok := parseYear(cell); ok {
				yearCols[col+1] = year
			}
		}
		if len(yearCols) > 0 {
			return i, yearCols
		}
	}
	return -1, nil
}

// parseYear accepts "2019" and school-year forms like "2019-20".
func parseYear(cell string) (int, bool) {
	s := strings.TrimSpace(cell)
	if idx := strings.IndexAny(s, "-/"); idx > 0 {
		s = s[:idx]
	}
	year, err := strconv.Atoi(s)
	if err != nil || year < 1990 || year > 2100 {
		return 0, false
	}
	return year, true
}

func parseDollars(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	return strconv.ParseFloat(s, 64)
}
