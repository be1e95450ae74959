package inference

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/cohortdata/cohort/pkg/column"
	"github.com/cohortdata/cohort/pkg/config"
)

func newEngine() *Engine {
	return NewEngine(config.NewIngestConfig("").Inference, zap.NewNop())
}

// responses builds a vector with the given number of distinct values, a
// numeric-parseable share, and optional repetition of the head values.
func numericMix(unique int, numericCount int) []string {
	out := make([]string, 0, unique)
	for i := 0; i < unique; i++ {
		if i < numericCount {
			out = append(out, strconv.Itoa(i))
		} else {
			out = append(out, fmt.Sprintf("text_%d", i))
		}
	}
	return out
}

func TestInferBoundaries(t *testing.T) {
	e := newEngine()

	t.Run("15 unique values is multiple choice regardless of numeric content", func(t *testing.T) {
		col := column.New("q", "", numericMix(15, 15))
		assert.Equal(t, TypeMultipleChoice, e.Infer(col.Stats()))
	})

	t.Run("16 unique values with 85 percent numeric is numerical", func(t *testing.T) {
		// 100 responses, 16 distinct, 85 parse as numbers.
		responses := make([]string, 0, 100)
		for i := 0; i < 85; i++ {
			responses = append(responses, strconv.Itoa(i%15)) // 15 numeric uniques
		}
		for i := 0; i < 15; i++ {
			responses = append(responses, "other response") // 1 text unique
		}
		col := column.New("q", "", responses)
		s := col.Stats()
		assert.Equal(t, 16, s.NumUnique)
		assert.InDelta(t, 0.85, s.FracNumerical, 1e-9)
		assert.Equal(t, TypeNumerical, e.Infer(s))
	})

	t.Run("20 unique, 30 percent numeric, top-5 covers 60 percent is multiple choice with other", func(t *testing.T) {
		// 100 responses: 5 head values cover 60, the tail is 15 distinct
		// text values padded to 40 observations. 30 observations parse as
		// numbers.
		responses := make([]string, 0, 100)
		for i := 0; i < 5; i++ {
			for j := 0; j < 12; j++ {
				responses = append(responses, strconv.Itoa(i)) // 60 numeric head
			}
		}
		// 40 tail observations, none numeric: 15 distinct values.
		for i := 0; i < 40; i++ {
			responses = append(responses, fmt.Sprintf("tail_%d", i%15))
		}
		// Head is 60 numeric out of 100: rebuild so only 30 are numeric.
		for i := 30; i < 60; i++ {
			responses[i] = "common answer"
		}
		col := column.New("q", "", responses)
		s := col.Stats()
		assert.Equal(t, 30, int(s.FracNumerical*float64(100)+0.5))
		assert.Greater(t, s.NumUnique, 15)
		assert.Greater(t, s.FracObsFromTop5, 0.5)
		assert.Equal(t, TypeMultipleChoiceWithOther, e.Infer(s))
	})

	t.Run("high cardinality text is free text", func(t *testing.T) {
		responses := make([]string, 0, 100)
		for i := 0; i < 100; i++ {
			responses = append(responses, fmt.Sprintf("a unique comment %d", i))
		}
		col := column.New("q", "", responses)
		assert.Equal(t, TypeFreeText, e.Infer(col.Stats()))
	})
}

func TestInferDeterministic(t *testing.T) {
	e := newEngine()
	col := column.New("q", "", numericMix(40, 10))

	first := e.Infer(col.Stats())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Infer(col.Stats()))
	}
}

func TestQuestionTypeValid(t *testing.T) {
	assert.True(t, TypeMultipleChoice.Valid())
	assert.True(t, TypeFreeText.Valid())
	assert.False(t, QuestionType("linear_scale").Valid())
	assert.False(t, QuestionType("").Valid())
}
