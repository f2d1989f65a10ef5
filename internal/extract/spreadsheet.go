package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

// extractSpreadsheet renders every sheet as tab-separated rows, stopping
// once the text cap is exceeded.
func extractSpreadsheet(path string, maxTextBytes int64) (Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{}, silerrors.New(silerrors.ErrCodeExtractDecode,
			fmt.Sprintf("failed to open spreadsheet %s", path), err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return Result{}, silerrors.New(silerrors.ErrCodeExtractDecode,
				fmt.Sprintf("failed to read sheet %q of %s", sheet, path), err)
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteByte('\n')
			if int64(sb.Len()) > maxTextBytes {
				break
			}
		}
		if int64(sb.Len()) > maxTextBytes {
			break
		}
	}

	text, truncated := capText([]byte(sb.String()), maxTextBytes)
	return Result{Kind: KindSpreadsheet, Text: text, Truncated: truncated}, nil
}
