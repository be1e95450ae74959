// Package inference classifies a response column into a question type from
// its statistics alone.
//
// The classification is purely statistical: the same response vector always
// produces the same type, with no external calls. The rules, in order:
//
//  1. Few enough distinct responses → multiple choice.
//  2. Mostly numeric responses → numerical.
//  3. A dominant head of frequent responses → multiple choice with an
//     open "other" tail.
//  4. Anything else → free text.
package inference

import (
	"go.uber.org/zap"

	"github.com/cohortdata/cohort/pkg/column"
	"github.com/cohortdata/cohort/pkg/config"
)

// QuestionType is the inferred kind of a survey question.
type QuestionType string

const (
	// TypeMultipleChoice is a closed question answered from a fixed option set.
	TypeMultipleChoice QuestionType = "multiple_choice"
	// TypeMultipleChoiceWithOther is a closed question with an open tail; it
	// is downgraded to TypeMultipleChoice when the final question is built.
	TypeMultipleChoiceWithOther QuestionType = "multiple_choice_with_other"
	// TypeNumerical is an open numeric question.
	TypeNumerical QuestionType = "numerical"
	// TypeFreeText is an open text question.
	TypeFreeText QuestionType = "free_text"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeMultipleChoice, TypeMultipleChoiceWithOther, TypeNumerical, TypeFreeText:
		return true
	}
	return false
}

// Engine classifies columns using configured thresholds.
type Engine struct {
	thresholds config.InferenceConfig
	logger     *zap.Logger
}

// NewEngine creates an inference engine.
func NewEngine(thresholds config.InferenceConfig, logger *zap.Logger) *Engine {
	return &Engine{thresholds: thresholds, logger: logger}
}

// Infer classifies a column from its statistics.
func (e *Engine) Infer(stats column.Stats) QuestionType {
	questionType := e.classify(stats)

	if e.logger != nil {
		e.logger.Debug("classified column",
			zap.String("type", string(questionType)),
			zap.Int("unique", stats.NumUnique),
			zap.Float64("frac_numerical", stats.FracNumerical),
			zap.Float64("top5_share", stats.FracObsFromTop5))
	}
	return questionType
}

func (e *Engine) classify(stats column.Stats) QuestionType {
	if stats.NumUnique <= e.thresholds.MaxUniqueForChoice {
		return TypeMultipleChoice
	}
	if stats.FracNumerical > e.thresholds.MinNumericFraction {
		return TypeNumerical
	}
	if stats.FracObsFromTop5 > e.thresholds.MinTopShare {
		return TypeMultipleChoiceWithOther
	}
	return TypeFreeText
}
