// Package cohort converts raw survey response files into typed surveys and
// synthetic respondent agents.
//
// Cohort reads a datafile (CSV, SPSS .sav, or Stata .dta), normalizes the
// column headers into unique identifiers, decodes value-label codebooks,
// infers a question type for every column from its response statistics, and
// materializes one direct-answer agent per respondent row. Per-column
// failures never abort a run; they are collected and reported alongside the
// successfully converted questions.
//
// # Quick Start
//
// Ingest a CSV file:
//
//	import (
//	    "context"
//
//	    "github.com/cohortdata/cohort/internal/pipeline"
//	    "github.com/cohortdata/cohort/pkg/config"
//	    "github.com/cohortdata/cohort/pkg/logger"
//	)
//
//	cfg := config.NewIngestConfig("responses.csv")
//	cfg.Sampling.Size = 100
//	cfg.Sampling.Seed = 42
//
//	result, err := pipeline.New(cfg, logger.Get()).Run(context.Background())
//	if err != nil {
//	    // the datafile could not be loaded
//	}
//	// result.Survey holds the typed questions,
//	// result.Agents one agent per sampled respondent.
//
// # Key Packages
//
//	pkg/inputdata   - Aggregate root: loading, mutation, serialization
//	pkg/readstat    - Native SPSS .sav and Stata .dta readers
//	pkg/column      - Response columns and their statistics
//	pkg/inference   - Statistical question-type classification
//	pkg/survey      - Question building and survey assembly
//	pkg/agent       - Observation transposition and agent materialization
//	pkg/identifier  - Header-to-identifier normalization
//	pkg/convert     - Tagged-union response value conversion
package cohort
