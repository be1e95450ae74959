// Package pipeline orchestrates one end-to-end ingestion run: load a survey
// datafile, normalize and classify its columns, assemble the Survey, and
// materialize the respondent agents.
//
// The run is a sequence of phases (load, assemble, materialize); each phase
// is traced and timed, and per-column failures collect in the Result instead
// of aborting the run.
//
// # Basic Usage
//
//	p := pipeline.New(cfg, logger.Get())
//	result, err := p.Run(ctx)
//	if err != nil {
//	    // the datafile could not be loaded at all
//	}
//	// result.Survey, result.Agents, result.Failures
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cohortdata/cohort/pkg/agent"
	"github.com/cohortdata/cohort/pkg/compression"
	"github.com/cohortdata/cohort/pkg/config"
	"github.com/cohortdata/cohort/pkg/errors"
	"github.com/cohortdata/cohort/pkg/inputdata"
	"github.com/cohortdata/cohort/pkg/logger"
	"github.com/cohortdata/cohort/pkg/observability"
	"github.com/cohortdata/cohort/pkg/survey"
)

// Result is the outcome of one ingestion run. Survey and Agents hold every
// successfully converted column and observation; Failures maps question
// names (and agent/trait pairs) to what went wrong with them.
type Result struct {
	Data   *inputdata.InputData
	Survey *survey.Survey
	Agents agent.List

	// QuestionFailures maps question names to their build errors.
	QuestionFailures map[string]error
	// TraitFailures maps "agent_<i>/<key>" to the missing-trait reason.
	TraitFailures map[string]string

	// Phase durations.
	LoadDuration        time.Duration
	AssembleDuration    time.Duration
	MaterializeDuration time.Duration
}

// Pipeline runs ingestions for one configuration.
type Pipeline struct {
	cfg    *config.IngestConfig
	logger *zap.Logger
	opts   []inputdata.Option
}

// New creates a Pipeline. Extra inputdata options (a repair capability, an
// option orderer) are passed through to every load.
func New(cfg *config.IngestConfig, log *zap.Logger, opts ...inputdata.Option) *Pipeline {
	if log == nil {
		log = logger.Get()
	}
	return &Pipeline{cfg: cfg, logger: log, opts: append(opts, inputdata.WithLogger(log))}
}

// Run ingests the configured datafile. A load failure aborts the run;
// question and trait failures are collected in the Result.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	path := p.cfg.Datafile
	format, err := p.resolveFormat(path)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, logger.DatafileKey, path)
	ctx = context.WithValue(ctx, logger.FormatKey, format)
	log := p.logger.With(zap.String("datafile", path), zap.String("format", format))

	result := &Result{}

	start := time.Now()
	err = observability.TracePhase(ctx, "load", func(ctx context.Context) error {
		d, loadErr := p.load(path, format)
		result.Data = d
		return loadErr
	})
	result.LoadDuration = time.Since(start)
	if err != nil {
		log.Error("ingestion failed during load", zap.Error(err))
		return nil, err
	}

	start = time.Now()
	_ = observability.TracePhase(ctx, "assemble", func(ctx context.Context) error {
		result.Survey, result.QuestionFailures = result.Data.Survey()
		return nil
	})
	result.AssembleDuration = time.Since(start)

	start = time.Now()
	_ = observability.TracePhase(ctx, "materialize", func(ctx context.Context) error {
		result.Agents, result.TraitFailures = result.Data.Agents(agent.Options{})
		return nil
	})
	result.MaterializeDuration = time.Since(start)

	log.Info("ingestion complete",
		zap.Int("questions", result.Survey.Len()),
		zap.Int("agents", len(result.Agents)),
		zap.Int("question_failures", len(result.QuestionFailures)),
		zap.Int("trait_failures", len(result.TraitFailures)),
		zap.Duration("load", result.LoadDuration),
		zap.Duration("assemble", result.AssembleDuration),
		zap.Duration("materialize", result.MaterializeDuration))

	return result, nil
}

func (p *Pipeline) load(path, format string) (*inputdata.InputData, error) {
	switch format {
	case "csv":
		return inputdata.LoadCSV(path, p.cfg, p.opts...)
	case "sav":
		return inputdata.LoadSPSS(path, p.cfg, p.opts...)
	case "dta":
		return inputdata.LoadStata(path, p.cfg, p.opts...)
	}
	return nil, errors.New(errors.ErrorTypeConfig, "unsupported datafile format").
		WithDetail("format", format)
}

// resolveFormat prefers the configured format and falls back to the file
// extension, looking through a trailing .gz.
func (p *Pipeline) resolveFormat(path string) (string, error) {
	if p.cfg.Format != "" {
		return p.cfg.Format, nil
	}

	switch filepath.Ext(compression.Strip(path)) {
	case ".csv":
		return "csv", nil
	case ".sav":
		return "sav", nil
	case ".dta":
		return "dta", nil
	}
	return "", errors.New(errors.ErrorTypeConfig, "cannot detect datafile format from extension").
		WithDetail("path", path)
}
