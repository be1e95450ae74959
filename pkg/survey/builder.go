package survey

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cohortdata/cohort/pkg/column"
	"github.com/cohortdata/cohort/pkg/errors"
	"github.com/cohortdata/cohort/pkg/identifier"
	"github.com/cohortdata/cohort/pkg/inference"
)

// OptionOrderer reorders multiple choice options for presentation. The full
// system can back this with a language model; ordering is a best-effort
// enhancement and any failure falls back to insertion order.
type OptionOrderer func(options []string) ([]string, error)

// Builder converts one classified column into a validated Question.
type Builder struct {
	orderOptions OptionOrderer
	logger       *zap.Logger
}

// NewBuilder creates a Builder. orderer may be nil.
func NewBuilder(orderer OptionOrderer, logger *zap.Logger) *Builder {
	return &Builder{orderOptions: orderer, logger: logger}
}

// Build constructs a question from a column and its inferred type. It
// reports failures instead of raising: the returned error carries the
// question name, text snippets, and the underlying cause, and is meant to be
// collected by the assembler.
func (b *Builder) Build(col *column.ResponseColumn, questionType inference.QuestionType) (Question, error) {
	sanitized := SanitizeText(col.Text)

	if !identifier.IsValid(col.Name) {
		return Question{}, b.buildError(col, sanitized,
			errors.New(errors.ErrorTypeValidation, "question name is not a valid identifier"))
	}
	if !questionType.Valid() {
		return Question{}, b.buildError(col, sanitized,
			errors.New(errors.ErrorTypeValidation, fmt.Sprintf("unknown question type %q", questionType)))
	}

	q := Question{
		Name: col.Name,
		Text: sanitized,
		Type: questionType,
	}

	switch questionType {
	case inference.TypeMultipleChoice, inference.TypeMultipleChoiceWithOther:
		// "with other" is not a distinct question type downstream.
		q.Type = inference.TypeMultipleChoice
		options := col.UniqueResponses()
		if len(options) == 0 {
			return Question{}, b.buildError(col, sanitized,
				errors.New(errors.ErrorTypeConversion, "multiple choice question has no options"))
		}
		q.Options = b.orderedOptions(col.Name, options)
	}

	return q, nil
}

// orderedOptions applies the ordering capability, falling back to the
// insertion order on error, panic, or a result that is not a permutation of
// the input.
func (b *Builder) orderedOptions(name string, options []string) (ordered []string) {
	if b.orderOptions == nil {
		return options
	}

	defer func() {
		if r := recover(); r != nil {
			if b.logger != nil {
				b.logger.Warn("option orderer panicked, keeping insertion order",
					zap.String("question", name), zap.Any("panic", r))
			}
			ordered = options
		}
	}()

	result, err := b.orderOptions(options)
	if err != nil || !samePermutation(options, result) {
		if b.logger != nil {
			b.logger.Warn("option orderer failed, keeping insertion order",
				zap.String("question", name), zap.Error(err))
		}
		return options
	}
	return result
}

func samePermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	for _, s := range b {
		counts[s]--
		if counts[s] < 0 {
			return false
		}
	}
	return true
}

func (b *Builder) buildError(col *column.ResponseColumn, sanitized string, cause *errors.Error) error {
	return errors.Wrap(cause, errors.ErrorTypeConversion, "failed to build question").
		WithDetail("question_name", col.Name).
		WithDetail("raw_text", snippet(col.Text)).
		WithDetail("sanitized_text", snippet(sanitized))
}

func snippet(s string) string {
	const max = 80
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
