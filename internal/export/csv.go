package export

import (
	"bytes"
	"encoding/csv"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/table"
)

func encodeCSV(t table.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Columns); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
