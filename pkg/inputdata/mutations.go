package inputdata

import (
	"go.uber.org/zap"

	"github.com/cohortdata/cohort/pkg/errors"
	"github.com/cohortdata/cohort/pkg/identifier"
	"github.com/cohortdata/cohort/pkg/inference"
)

// RenameOptions controls Rename behavior.
type RenameOptions struct {
	// IgnoreMissing turns a rename of an absent question into a no-op
	// instead of a lookup error.
	IgnoreMissing bool
}

// Rename changes a question's name, re-keying the response vector and any
// codebook along with it. The new name must be a valid, unused identifier.
func (d *InputData) Rename(old, new string, opts RenameOptions) error {
	if !identifier.IsValid(new) {
		return errors.New(errors.ErrorTypeValidation, "new question name is not a valid identifier").
			WithDetail("name", new)
	}
	if _, taken := d.index[new]; taken {
		return errors.New(errors.ErrorTypeValidation, "new question name already in use").
			WithDetail("name", new)
	}

	i, ok := d.index[old]
	if !ok {
		if opts.IgnoreMissing {
			d.logger.Debug("rename skipped, question not present", zap.String("name", old))
			return nil
		}
		return errors.New(errors.ErrorTypeLookup, "cannot rename unknown question").
			WithDetail("name", old)
	}

	d.records[i].Name = new
	delete(d.index, old)
	d.index[new] = i

	d.responses[new] = d.responses[old]
	delete(d.responses, old)

	if labels, hasCodebook := d.codebook[old]; hasCodebook {
		d.codebook[new] = labels
		delete(d.codebook, old)
	}

	d.logger.Info("renamed question", zap.String("from", old), zap.String("to", new))
	return nil
}

// Drop removes the named questions and their responses. Every name must
// exist; an unknown name fails the whole call before anything is removed.
func (d *InputData) Drop(names ...string) error {
	dropped := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := d.index[name]; !ok {
			return errors.New(errors.ErrorTypeLookup, "cannot drop unknown question").
				WithDetail("name", name)
		}
		dropped[name] = true
	}

	kept := d.records[:0]
	for _, rec := range d.records {
		if dropped[rec.Name] {
			delete(d.responses, rec.Name)
			delete(d.codebook, rec.Name)
			continue
		}
		kept = append(kept, rec)
	}
	d.records = kept
	d.rebuildIndex()

	d.logger.Info("dropped questions", zap.Strings("names", names), zap.Int("remaining", len(d.records)))
	return nil
}

// Select builds a new InputData containing only the named questions, in the
// requested order. The receiver is left untouched.
func (d *InputData) Select(names ...string) (*InputData, error) {
	records := make([]*QuestionRecord, 0, len(names))
	for _, name := range names {
		i, ok := d.index[name]
		if !ok {
			return nil, errors.New(errors.ErrorTypeLookup, "cannot select unknown question").
				WithDetail("name", name)
		}
		records = append(records, d.records[i])
	}
	return d.subset(records), nil
}

// Keep builds a new InputData containing only the named questions, in
// original column order regardless of argument order.
func (d *InputData) Keep(names ...string) (*InputData, error) {
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := d.index[name]; !ok {
			return nil, errors.New(errors.ErrorTypeLookup, "cannot keep unknown question").
				WithDetail("name", name)
		}
		want[name] = true
	}

	records := make([]*QuestionRecord, 0, len(want))
	for _, rec := range d.records {
		if want[rec.Name] {
			records = append(records, rec)
		}
	}
	return d.subset(records), nil
}

// ModifyQuestionType overrides a question's inferred type. When the new type
// is multiple choice the options may be replaced or dropped; a rebuild of
// the question validates the result, and on failure the record is restored
// to its prior state.
func (d *InputData) ModifyQuestionType(name string, newType inference.QuestionType, dropOptions bool, newOptions []string) error {
	i, ok := d.index[name]
	if !ok {
		return errors.New(errors.ErrorTypeLookup, "cannot modify unknown question").
			WithDetail("name", name)
	}
	if !newType.Valid() {
		return errors.New(errors.ErrorTypeValidation, "unknown question type").
			WithDetail("type", string(newType))
	}

	if newOptions != nil && len(newOptions) == 0 {
		return errors.New(errors.ErrorTypeValidation, "explicit option list must not be empty").
			WithDetail("question", name)
	}

	rec := d.records[i]
	prevType, prevOptions, prevPinned := rec.Type, rec.Options, rec.pinned

	rec.Type = newType
	switch {
	case dropOptions:
		rec.Options = nil
		rec.pinned = false
	case newOptions != nil:
		rec.Options = append([]string(nil), newOptions...)
		rec.pinned = true
	}

	if _, failures := d.Survey(); failures[name] != nil {
		rec.Type, rec.Options, rec.pinned = prevType, prevOptions, prevPinned
		return errors.Wrap(failures[name], errors.ErrorTypeRollback, "question type change rejected, previous type restored").
			WithDetail("question", name).
			WithDetail("requested_type", string(newType))
	}

	d.logger.Info("modified question type",
		zap.String("question", name),
		zap.String("from", string(prevType)),
		zap.String("to", string(newType)))
	return nil
}

// subset clones the aggregate around a chosen record list. Records, response
// vectors, and codebooks are deep-copied so the two aggregates never share
// mutable state.
func (d *InputData) subset(records []*QuestionRecord) *InputData {
	out := &InputData{
		datafileName: d.datafileName,
		format:       d.format,
		binary:       d.binary,
		cfg:          d.cfg,
		logger:       d.logger,
		index:        make(map[string]int, len(records)),
		responses:    make(map[string][]string, len(records)),
		codebook:     make(map[string]map[string]string),
		repair:       d.repair,
		orderer:      d.orderer,
		engine:       d.engine,
		assembler:    d.assembler,
	}
	for i, rec := range records {
		clone := *rec
		clone.Options = append([]string(nil), rec.Options...)
		out.records = append(out.records, &clone)
		out.index[clone.Name] = i

		out.responses[clone.Name] = append([]string(nil), d.responses[rec.Name]...)
		if labels, ok := d.codebook[rec.Name]; ok {
			copied := make(map[string]string, len(labels))
			for k, v := range labels {
				copied[k] = v
			}
			out.codebook[clone.Name] = copied
		}
	}
	return out
}

func (d *InputData) rebuildIndex() {
	d.index = make(map[string]int, len(d.records))
	for i, rec := range d.records {
		d.index[rec.Name] = i
	}
}
