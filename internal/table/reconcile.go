package table

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoTables is returned when there is nothing to reconcile because the
// document yielded no tables.
var ErrNoTables = errors.New("no tables detected")

// MergeMode controls whether several raw tables are combined into one.
type MergeMode string

const (
	// MergeOff keeps every table separate.
	MergeOff MergeMode = "off"
	// MergeExact concatenates tables only when all column sequences match.
	MergeExact MergeMode = "exact"
	// MergeAlign pads, truncates and renames columns of every table onto the
	// first table's header, then concatenates.
	MergeAlign MergeMode = "align"
)

// ParseMergeMode accepts "off", "exact", "align" and a few boolean spellings
// used by checkbox inputs. Empty input means MergeOff.
func ParseMergeMode(s string) (MergeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "false", "0", "no":
		return MergeOff, nil
	case "exact", "on", "true", "1", "yes":
		return MergeExact, nil
	case "align":
		return MergeAlign, nil
	}
	return "", fmt.Errorf("unknown merge mode %q", s)
}

// Mismatch describes a table whose columns differ from the first table's.
type Mismatch struct {
	Table     int      `json:"table"`
	Columns   []string `json:"columns"`
	Padded    int      `json:"padded,omitempty"`
	Truncated int      `json:"truncated,omitempty"`
}

func (m Mismatch) String() string {
	msg := fmt.Sprintf("table %d columns %q differ from table 1", m.Table, m.Columns)
	switch {
	case m.Padded > 0:
		msg += fmt.Sprintf("; %d empty column(s) appended", m.Padded)
	case m.Truncated > 0:
		msg += fmt.Sprintf("; %d trailing column(s) dropped", m.Truncated)
	}
	return msg
}

// Result is the outcome of Reconcile.
type Result struct {
	Tables     []Table    `json:"tables"`
	Merged     bool       `json:"merged"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// Reconcile decides whether the raw tables form one logical table.
func Reconcile(tables []Table, mode MergeMode) (Result, error) {
	if len(tables) == 0 {
		return Result{}, ErrNoTables
	}
	if len(tables) == 1 || mode == MergeOff || mode == "" {
		return Result{Tables: tables}, nil
	}

	base := tables[0].Columns
	var mismatches []Mismatch

	switch mode {
	case MergeExact:
		for i, t := range tables[1:] {
			if !SameColumns(t.Columns, base) {
				mismatches = append(mismatches, Mismatch{Table: i + 2, Columns: t.Columns})
			}
		}
		if len(mismatches) > 0 {
			return Result{Tables: tables, Mismatches: mismatches}, nil
		}
		return Result{Tables: []Table{Concat(base, tables...)}, Merged: true}, nil

	case MergeAlign:
		aligned := make([]Table, 0, len(tables))
		aligned = append(aligned, tables[0])
		for i, t := range tables[1:] {
			at, m := Align(t, base)
			if m != nil {
				m.Table = i + 2
				mismatches = append(mismatches, *m)
			}
			aligned = append(aligned, at)
		}
		return Result{
			Tables:     []Table{Concat(base, aligned...)},
			Merged:     true,
			Mismatches: mismatches,
		}, nil
	}

	return Result{}, fmt.Errorf("unknown merge mode %q", mode)
}

// Align fits t onto the base header: missing trailing columns are appended
// as empty strings, extra trailing columns are dropped, and the base names
// replace t's own. The returned Mismatch is nil when t already matched.
func Align(t Table, base []string) (Table, *Mismatch) {
	var m *Mismatch
	if !SameColumns(t.Columns, base) {
		m = &Mismatch{Columns: t.Columns}
		if d := len(base) - t.Width(); d > 0 {
			m.Padded = d
		} else if d < 0 {
			m.Truncated = -d
		}
	}

	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = fitRow(row, len(base))
	}

	columns := make([]string, len(base))
	copy(columns, base)

	return Table{Columns: columns, Rows: rows, Page: t.Page}, m
}

// Concat stacks the rows of tables, in order, beneath base. Rows are fitted
// to the base width.
func Concat(base []string, tables ...Table) Table {
	columns := make([]string, len(base))
	copy(columns, base)

	out := Table{Columns: columns, Rows: [][]string{}}
	if len(tables) > 0 {
		out.Page = tables[0].Page
	}
	for _, t := range tables {
		for _, row := range t.Rows {
			out.Rows = append(out.Rows, fitRow(row, len(base)))
		}
	}
	return out
}
