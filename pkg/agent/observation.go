// Package agent turns column-oriented responses into per-respondent
// observations and materializes one direct-answer agent per observation.
package agent

import (
	"go.uber.org/zap"

	"github.com/cohortdata/cohort/pkg/column"
	"github.com/cohortdata/cohort/pkg/convert"
)

// Observation is one respondent's full set of answers, keyed by question
// name.
type Observation map[string]convert.Value

// Transpose converts ordered columns into row-oriented observations. Every
// column contributes a value for every observation index; columns shorter
// than the longest are padded with Missing so no observation lacks a key.
func Transpose(columns []*column.ResponseColumn, logger *zap.Logger) []Observation {
	rows := 0
	ragged := false
	for _, col := range columns {
		if rows != 0 && col.Len() != rows {
			ragged = true
		}
		if col.Len() > rows {
			rows = col.Len()
		}
	}
	if ragged && logger != nil {
		logger.Warn("columns have unequal lengths, padding short columns with missing values",
			zap.Int("rows", rows))
	}

	observations := make([]Observation, rows)
	for i := range observations {
		observations[i] = make(Observation, len(columns))
	}

	for _, col := range columns {
		values := col.Values()
		for i := 0; i < rows; i++ {
			if i < len(values) {
				observations[i][col.Name] = values[i]
			} else {
				observations[i][col.Name] = convert.Missing
			}
		}
	}

	return observations
}
