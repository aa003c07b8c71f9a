package table

import (
	"fmt"
)

// Table is a grid of text cells under a header row. A table straight out of
// the extractor is a raw table; the output of Reconcile is a reconciled one.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Page    int        `json:"page,omitempty"`
}

// New builds a Table from a detected grid whose first row is the header.
// Body rows are padded or cut to the header width.
func New(grid [][]string, page int) Table {
	if len(grid) == 0 {
		return Table{Page: page}
	}

	columns := DedupeColumns(grid[0])
	rows := make([][]string, 0, len(grid)-1)
	for _, row := range grid[1:] {
		rows = append(rows, fitRow(row, len(columns)))
	}

	return Table{
		Columns: columns,
		Rows:    rows,
		Page:    page,
	}
}

// Width returns the number of columns.
func (t Table) Width() int {
	return len(t.Columns)
}

// Validate checks that every row has one cell per column and that column
// names are unique.
func (t Table) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if seen[col] {
			return fmt.Errorf("duplicate column name %q", col)
		}
		seen[col] = true
	}

	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
	}

	return nil
}

// SameColumns reports whether two column sequences are identical in names,
// order and count.
func SameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DedupeColumns makes column names unique by suffixing the second and later
// occurrences of a name with a counter: name, name_1, name_2. A suffixed name
// that collides with a literal column further along the header is skipped
// over, so the result never repeats a name.
func DedupeColumns(cols []string) []string {
	out := make([]string, 0, len(cols))
	counts := make(map[string]int, len(cols))
	used := make(map[string]bool, len(cols))
	for _, col := range cols {
		used[col] = true
	}

	for _, col := range cols {
		n, ok := counts[col]
		if !ok {
			counts[col] = 0
			out = append(out, col)
			continue
		}

		name := col
		for {
			n++
			name = fmt.Sprintf("%s_%d", col, n)
			if !used[name] {
				break
			}
		}
		counts[col] = n
		used[name] = true
		out = append(out, name)
	}

	return out
}

func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}
