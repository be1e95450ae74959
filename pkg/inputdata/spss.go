package inputdata

import (
	"github.com/cohortdata/cohort/pkg/config"
	"github.com/cohortdata/cohort/pkg/readstat"
)

// LoadSPSS ingests an SPSS system file (.sav). Variable labels become the
// question texts and value labels become the answer codebook.
func LoadSPSS(path string, cfg *config.IngestConfig, opts ...Option) (*InputData, error) {
	table, err := readstat.OpenSAV(path)
	if err != nil {
		return nil, err
	}
	opts = append(opts, withFormat("sav", true))
	return New(path, table, cfg, opts...)
}
