package export

import (
	"fmt"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/table"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

func encodeXLSX(t table.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet: %w", err)
	}

	if err := writeRow(sw, 1, t.Columns); err != nil {
		return nil, err
	}
	for i, row := range t.Rows {
		if err := writeRow(sw, i+2, row); err != nil {
			return nil, err
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func writeRow(sw *excelize.StreamWriter, rowNum int, values []string) error {
	for _, v := range values {
		if len([]rune(v)) > excelize.TotalCellChars {
			return fmt.Errorf("row %d: %w", rowNum, excelize.ErrCellCharsLength)
		}
	}

	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}

	axis, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := sw.SetRow(axis, cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}
