// Package inputdata is the aggregate root of survey ingestion: it owns the
// question records and raw response vectors loaded from a datafile and
// drives identifier normalization, codebook decoding, type inference, survey
// assembly, and agent materialization.
//
// Questions live in one ordered record collection indexed by name; responses
// and codebooks are keyed by the same names. Every mutating operation either
// updates all owned structures or none of them.
package inputdata

import (
	"go.uber.org/zap"

	"github.com/cohortdata/cohort/pkg/agent"
	"github.com/cohortdata/cohort/pkg/column"
	"github.com/cohortdata/cohort/pkg/config"
	"github.com/cohortdata/cohort/pkg/errors"
	"github.com/cohortdata/cohort/pkg/identifier"
	"github.com/cohortdata/cohort/pkg/inference"
	"github.com/cohortdata/cohort/pkg/metrics"
	"github.com/cohortdata/cohort/pkg/readstat"
	"github.com/cohortdata/cohort/pkg/survey"
)

// QuestionRecord is one question's definition inside the aggregate.
type QuestionRecord struct {
	Name    string
	Text    string
	Type    inference.QuestionType
	Options []string

	// pinned marks Options as an explicit override that survives survey
	// assembly instead of being recomputed from the responses.
	pinned bool
}

// InputData holds one datafile's worth of survey responses.
type InputData struct {
	datafileName string
	format       string
	binary       bool
	cfg          *config.IngestConfig
	logger       *zap.Logger

	records []*QuestionRecord
	index   map[string]int
	// responses holds the raw (undecoded) response vectors by question name;
	// codebooks are applied when columns are built.
	responses map[string][]string
	codebook  map[string]map[string]string

	repair  identifier.RepairFunc
	orderer survey.OptionOrderer

	engine    *inference.Engine
	assembler *survey.Assembler
}

// Option configures construction.
type Option func(*InputData)

// WithLogger sets the logger; the default is the global logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *InputData) { d.logger = logger }
}

// WithRepair installs a custom identifier-repair capability.
func WithRepair(fn identifier.RepairFunc) Option {
	return func(d *InputData) { d.repair = fn }
}

// WithOptionOrderer installs a custom option-ordering capability.
func WithOptionOrderer(fn survey.OptionOrderer) Option {
	return func(d *InputData) { d.orderer = fn }
}

func withFormat(format string, binary bool) Option {
	return func(d *InputData) {
		d.format = format
		d.binary = binary
	}
}

// New constructs an InputData from a loaded table. Question names are
// normalized to unique identifiers; value-label codebooks are re-keyed to
// the normalized names; every column gets an inferred type.
//
// Construction validates the caller contract and fails fast on violation:
// column/name/label counts must agree and every codebook key must name a
// column.
func New(datafileName string, table *readstat.Table, cfg *config.IngestConfig, opts ...Option) (*InputData, error) {
	d := &InputData{
		datafileName: datafileName,
		format:       "csv",
		cfg:          cfg,
		index:        make(map[string]int),
		responses:    make(map[string][]string),
		codebook:     make(map[string]map[string]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	d.engine = inference.NewEngine(cfg.Inference, d.logger)
	d.assembler = survey.NewAssembler(d.engine, survey.NewBuilder(d.orderer, d.logger), d.logger)

	if err := validateTable(table); err != nil {
		return nil, err
	}

	normOpts := []identifier.Option{identifier.WithMaxAttempts(cfg.Identifier.MaxRepairAttempts)}
	if d.repair != nil {
		normOpts = append(normOpts, identifier.WithRepair(d.repair))
	}
	normalizer := identifier.NewNormalizer(d.logger, normOpts...)

	names, err := normalizer.NormalizeAll(table.Names)
	if err != nil {
		return nil, err
	}

	for i, name := range names {
		text := table.Names[i]
		if i < len(table.Labels) && table.Labels[i] != "" {
			text = table.Labels[i]
		}

		d.records = append(d.records, &QuestionRecord{Name: name, Text: text})
		d.index[name] = i
		d.responses[name] = table.Columns[i]
		if labels, ok := table.ValueLabels[table.Names[i]]; ok {
			d.codebook[name] = labels
		}
	}

	d.inferAll()

	for range d.records {
		metrics.ColumnsIngested.WithLabelValues(d.format, "success").Inc()
	}
	d.logger.Info("constructed input data",
		zap.String("datafile", datafileName),
		zap.String("format", d.format),
		zap.Int("questions", len(d.records)),
		zap.Int("observations", d.NumObservations()))

	return d, nil
}

func validateTable(table *readstat.Table) error {
	if len(table.Columns) != len(table.Names) {
		return errors.New(errors.ErrorTypeValidation, "column count does not match question name count").
			WithDetail("columns", len(table.Columns)).
			WithDetail("names", len(table.Names))
	}
	if len(table.Labels) != 0 && len(table.Labels) != len(table.Names) {
		return errors.New(errors.ErrorTypeValidation, "question text count does not match question name count").
			WithDetail("texts", len(table.Labels)).
			WithDetail("names", len(table.Names))
	}

	known := make(map[string]bool, len(table.Names))
	for _, name := range table.Names {
		known[name] = true
	}
	for key := range table.ValueLabels {
		if !known[key] {
			return errors.New(errors.ErrorTypeValidation, "answer codebook references unknown question").
				WithDetail("question", key)
		}
	}
	return nil
}

// inferAll (re)classifies every record that has no type yet.
func (d *InputData) inferAll() {
	for _, rec := range d.records {
		if rec.Type != "" {
			continue
		}
		timer := metrics.NewTimer()
		rec.Type = d.engine.Infer(d.Column(rec.Name).Stats())
		metrics.InferenceLatency.WithLabelValues(string(rec.Type)).Observe(timer.Stop().Seconds())
	}
}

// Column builds the decoded response column for one question. The codebook,
// when present, is applied to a fresh copy: the stored raw responses are
// never rewritten, so serialization stays faithful to the file.
func (d *InputData) Column(name string) *column.ResponseColumn {
	i, ok := d.index[name]
	if !ok {
		return nil
	}
	rec := d.records[i]

	responses := make([]string, len(d.responses[name]))
	copy(responses, d.responses[name])

	col := column.New(rec.Name, rec.Text, responses)
	col.ApplyCodebook(d.codebook[name])
	return col
}

// Columns builds all decoded columns in question order.
func (d *InputData) Columns() []*column.ResponseColumn {
	out := make([]*column.ResponseColumn, 0, len(d.records))
	for _, rec := range d.records {
		out = append(out, d.Column(rec.Name))
	}
	return out
}

// Names returns the question names in column order.
func (d *InputData) Names() []string {
	out := make([]string, len(d.records))
	for i, rec := range d.records {
		out[i] = rec.Name
	}
	return out
}

// Record returns the question record for a name.
func (d *InputData) Record(name string) (QuestionRecord, bool) {
	i, ok := d.index[name]
	if !ok {
		return QuestionRecord{}, false
	}
	return *d.records[i], true
}

// NumQuestions returns the number of questions.
func (d *InputData) NumQuestions() int {
	return len(d.records)
}

// NumObservations returns the respondent count (the longest column's
// length).
func (d *InputData) NumObservations() int {
	rows := 0
	for _, responses := range d.responses {
		if len(responses) > rows {
			rows = len(responses)
		}
	}
	return rows
}

// DatafileName returns the path the data was loaded from.
func (d *InputData) DatafileName() string {
	return d.datafileName
}

// Survey assembles the questions into an ordered Survey using each record's
// current type. Failures are collected per question name; the survey
// contains every buildable question in original column order. Options of
// successfully built multiple choice questions are copied back onto the
// records.
func (d *InputData) Survey() (*survey.Survey, map[string]error) {
	types := make(map[string]inference.QuestionType, len(d.records))
	for _, rec := range d.records {
		types[rec.Name] = rec.Type
	}

	s, failures := d.assembler.AssembleTyped(d.Columns(), types)

	byName := make(map[string]survey.Question, len(s.Questions))
	for _, q := range s.Questions {
		rec := d.records[d.index[q.Name]]
		if rec.pinned {
			q.Options = append([]string(nil), rec.Options...)
		} else {
			rec.Options = q.Options
		}
		byName[q.Name] = q
	}

	// An explicit option list stands in for options the responses cannot
	// supply, e.g. a choice question whose column is entirely missing.
	for name := range failures {
		rec := d.records[d.index[name]]
		choice := rec.Type == inference.TypeMultipleChoice || rec.Type == inference.TypeMultipleChoiceWithOther
		if rec.pinned && choice && len(rec.Options) > 0 {
			byName[name] = survey.Question{
				Name:    rec.Name,
				Text:    survey.SanitizeText(rec.Text),
				Type:    inference.TypeMultipleChoice,
				Options: append([]string(nil), rec.Options...),
			}
			delete(failures, name)
		}
	}

	s.Questions = s.Questions[:0]
	for _, rec := range d.records {
		if q, ok := byName[rec.Name]; ok {
			s.Questions = append(s.Questions, q)
		}
	}
	return s, failures
}

// Observations transposes the decoded columns into per-respondent rows.
func (d *InputData) Observations() []agent.Observation {
	return agent.Transpose(d.Columns(), d.logger)
}

// Agents materializes one direct-answer agent per observation, honoring the
// configured sample size and seed when opts leaves them zero.
func (d *InputData) Agents(opts agent.Options) (agent.List, map[string]string) {
	if opts.SampleSize == 0 {
		opts.SampleSize = d.cfg.Sampling.Size
	}
	if opts.Seed == 0 {
		opts.Seed = d.cfg.Sampling.Seed
	}
	agents, failures := agent.Materialize(d.Observations(), opts, d.logger)
	metrics.ObservationCount.WithLabelValues(d.datafileName).Set(float64(d.NumObservations()))
	return agents, failures
}
