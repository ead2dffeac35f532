package decode

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheets renders every worksheet of a workbook as tab-separated text.
//
// Each sheet starts with a "Sheet: <name>" line; every cell of a row is
// followed by a tab and every row ends with a newline. A blank line closes
// each sheet. Legacy binary .xls workbooks are not readable by excelize and
// fail here.
type Sheets struct{}

func (d *Sheets) Decode(ctx context.Context, _ string, data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sb strings.Builder
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", name, err)
		}
		sb.WriteString("Sheet: ")
		sb.WriteString(name)
		sb.WriteByte('\n')
		for _, row := range rows {
			for _, cell := range row {
				sb.WriteString(cell)
				sb.WriteByte('\t')
			}
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
