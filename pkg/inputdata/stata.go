package inputdata

import (
	"github.com/cohortdata/cohort/pkg/config"
	"github.com/cohortdata/cohort/pkg/readstat"
)

// LoadStata ingests a Stata dataset (.dta, format releases 117 and 118).
// Variable labels become the question texts and value labels become the
// answer codebook.
func LoadStata(path string, cfg *config.IngestConfig, opts ...Option) (*InputData, error) {
	table, err := readstat.OpenDTA(path)
	if err != nil {
		return nil, err
	}
	opts = append(opts, withFormat("dta", true))
	return New(path, table, cfg, opts...)
}
