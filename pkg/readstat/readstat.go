// Package readstat reads statistical-package data files into a neutral
// column-oriented table.
//
// It covers the two binary survey formats cohort ingests, SPSS system files
// (.sav) and Stata datasets (.dta, modern tagged releases 117 and 118),
// delivering columns in stable file order together with variable labels and
// value-label codebooks. Cells are stringified: numeric cells with no
// fractional part render as integers, missing cells render as the empty
// string.
package readstat

// Table is the neutral result of reading a datafile: one entry per column,
// in file order.
type Table struct {
	// Names holds the variable names as recorded in the file.
	Names []string
	// Labels holds the variable labels (question wording); empty when the
	// file records none.
	Labels []string
	// Columns holds the cell values, Columns[i][j] being column i, row j.
	Columns [][]string
	// ValueLabels maps a variable name to its code→label mapping, for
	// variables that carry one.
	ValueLabels map[string]map[string]string
}

// Rows returns the number of rows in the table.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0])
}

// Cols returns the number of columns in the table.
func (t *Table) Cols() int {
	return len(t.Names)
}
