package export

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/table"
)

// ErrUnknownFormat is returned by Lookup for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// EncodingError reports that a table could not be written in a format.
type EncodingError struct {
	Format string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode %s: %v", e.Format, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Format is a downloadable rendering of a table.
type Format struct {
	Name      string
	Extension string
	MIME      string

	encode func(table.Table) ([]byte, error)
}

var (
	CSV = Format{
		Name:      "csv",
		Extension: "csv",
		MIME:      "text/csv",
		encode:    encodeCSV,
	}
	XLSX = Format{
		Name:      "xlsx",
		Extension: "xlsx",
		MIME:      "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		encode:    encodeXLSX,
	}
	DOCX = Format{
		Name:      "docx",
		Extension: "docx",
		MIME:      "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		encode:    encodeDOCX,
	}
)

// Formats lists every supported format in display order.
func Formats() []Format {
	return []Format{CSV, XLSX, DOCX}
}

// Lookup finds a format by name or extension, ignoring case.
func Lookup(name string) (Format, error) {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")
	for _, f := range Formats() {
		if f.Name == name {
			return f, nil
		}
	}
	// Spreadsheet users often ask for "excel".
	if name == "excel" {
		return XLSX, nil
	}
	return Format{}, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Encode renders t. Any failure is returned as an *EncodingError.
func (f Format) Encode(t table.Table) ([]byte, error) {
	if err := checkUTF8(t); err != nil {
		return nil, &EncodingError{Format: f.Name, Err: err}
	}
	data, err := f.encode(t)
	if err != nil {
		return nil, &EncodingError{Format: f.Name, Err: err}
	}
	return data, nil
}

// Filename names the download. index is the 1-based position of the table
// among several; zero means the table stands alone.
func (f Format) Filename(index int) string {
	if index > 0 {
		return fmt.Sprintf("table_%d.%s", index, f.Extension)
	}
	return "table." + f.Extension
}

func checkUTF8(t table.Table) error {
	for j, col := range t.Columns {
		if !utf8.ValidString(col) {
			return fmt.Errorf("column %d name is not valid UTF-8", j+1)
		}
	}
	for i, row := range t.Rows {
		for j, v := range row {
			if !utf8.ValidString(v) {
				return fmt.Errorf("row %d column %d is not valid UTF-8", i+1, j+1)
			}
		}
	}
	return nil
}
