package parser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractXlsx flattens every sheet: a "## <sheet>" header, then one line per
// non-empty row with cells joined by tabs.
func extractXlsx(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var out strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		out.WriteString("## ")
		out.WriteString(sheet)
		out.WriteByte('\n')
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}
	return strings.TrimSpace(out.String()), nil
}
