package survey

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cohortdata/cohort/pkg/column"
	"github.com/cohortdata/cohort/pkg/config"
	coherrors "github.com/cohortdata/cohort/pkg/errors"
	"github.com/cohortdata/cohort/pkg/inference"
)

func newAssembler(orderer OptionOrderer) *Assembler {
	logger := zap.NewNop()
	engine := inference.NewEngine(config.NewIngestConfig("").Inference, logger)
	return NewAssembler(engine, NewBuilder(orderer, logger), logger)
}

func TestBuildMultipleChoice(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())
	col := column.New("satisfaction", "How satisfied are you?", []string{"5", "4", "5", ""})

	q, err := b.Build(col, inference.TypeMultipleChoice)
	require.NoError(t, err)
	assert.Equal(t, "satisfaction", q.Name)
	assert.Equal(t, inference.TypeMultipleChoice, q.Type)
	assert.Equal(t, []string{"5", "4"}, q.Options)
}

func TestBuildWithOtherDowngrades(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())
	col := column.New("brand", "", []string{"acme", "globex", "acme"})

	q, err := b.Build(col, inference.TypeMultipleChoiceWithOther)
	require.NoError(t, err)
	assert.Equal(t, inference.TypeMultipleChoice, q.Type)
	assert.Equal(t, []string{"acme", "globex"}, q.Options)
}

func TestBuildNumericalHasNoOptions(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())
	col := column.New("age", "Your age", []string{"34", "29"})

	q, err := b.Build(col, inference.TypeNumerical)
	require.NoError(t, err)
	assert.Nil(t, q.Options)
}

func TestBuildSanitizesText(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())
	col := column.New("q1", "Rate {product} from 1 to {max}", []string{"1"})

	q, err := b.Build(col, inference.TypeMultipleChoice)
	require.NoError(t, err)
	assert.Equal(t, "Rate (product) from 1 to (max)", q.Text)
}

func TestBuildFailures(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())

	t.Run("invalid type", func(t *testing.T) {
		col := column.New("q1", "text", []string{"a"})
		_, err := b.Build(col, inference.QuestionType("checkbox"))
		require.Error(t, err)
		assert.True(t, coherrors.IsType(err, coherrors.ErrorTypeConversion))
	})

	t.Run("invalid name", func(t *testing.T) {
		col := column.New("Bad Name", "text", []string{"a"})
		_, err := b.Build(col, inference.TypeFreeText)
		require.Error(t, err)
	})

	t.Run("multiple choice without options", func(t *testing.T) {
		col := column.New("q1", "text", []string{"", ""})
		_, err := b.Build(col, inference.TypeMultipleChoice)
		require.Error(t, err)
	})
}

func TestOptionOrdererApplied(t *testing.T) {
	orderer := func(options []string) ([]string, error) {
		out := make([]string, len(options))
		copy(out, options)
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		return out, nil
	}
	b := NewBuilder(orderer, zap.NewNop())
	col := column.New("q1", "", []string{"low", "mid", "high"})

	q, err := b.Build(col, inference.TypeMultipleChoice)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "mid", "low"}, q.Options)
}

func TestOptionOrdererFallsBack(t *testing.T) {
	col := column.New("q1", "", []string{"low", "mid", "high"})

	t.Run("error", func(t *testing.T) {
		b := NewBuilder(func([]string) ([]string, error) {
			return nil, errors.New("model unavailable")
		}, zap.NewNop())

		q, err := b.Build(col, inference.TypeMultipleChoice)
		require.NoError(t, err)
		assert.Equal(t, []string{"low", "mid", "high"}, q.Options)
	})

	t.Run("panic", func(t *testing.T) {
		b := NewBuilder(func([]string) ([]string, error) {
			panic("boom")
		}, zap.NewNop())

		q, err := b.Build(col, inference.TypeMultipleChoice)
		require.NoError(t, err)
		assert.Equal(t, []string{"low", "mid", "high"}, q.Options)
	})

	t.Run("dropped option", func(t *testing.T) {
		b := NewBuilder(func(options []string) ([]string, error) {
			return options[:1], nil
		}, zap.NewNop())

		q, err := b.Build(col, inference.TypeMultipleChoice)
		require.NoError(t, err)
		assert.Equal(t, []string{"low", "mid", "high"}, q.Options)
	})
}

func TestAssemblePartialFailure(t *testing.T) {
	columns := []*column.ResponseColumn{
		column.New("age", "", []string{"34", "29", "41"}),
		column.New("Broken Name", "", []string{"x", "y"}),
		column.New("city", "", []string{"berlin", "madrid"}),
	}

	s, failures := newAssembler(nil).Assemble(columns)

	require.Len(t, failures, 1)
	assert.Contains(t, failures, "Broken Name")
	require.Equal(t, 2, s.Len())
	// Original column order is preserved across the failure.
	assert.Equal(t, "age", s.Questions[0].Name)
	assert.Equal(t, "city", s.Questions[1].Name)
}

func TestAssembleAllColumns(t *testing.T) {
	freeText := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		freeText = append(freeText, "unique comment number "+strconv.Itoa(i))
	}

	columns := []*column.ResponseColumn{
		column.New("satisfaction", "", []string{"5", "4", "5"}),
		column.New("comments", "", freeText),
	}

	s, failures := newAssembler(nil).Assemble(columns)

	assert.Empty(t, failures)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, inference.TypeMultipleChoice, s.Questions[0].Type)
	assert.Equal(t, inference.TypeFreeText, s.Questions[1].Type)

	q, ok := s.Get("comments")
	require.True(t, ok)
	assert.Nil(t, q.Options)
}

func TestAssembleTypedOverride(t *testing.T) {
	columns := []*column.ResponseColumn{
		column.New("age", "", []string{"34", "29", "41"}),
	}

	s, failures := newAssembler(nil).AssembleTyped(columns,
		map[string]inference.QuestionType{"age": inference.TypeNumerical})

	assert.Empty(t, failures)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, inference.TypeNumerical, s.Questions[0].Type)
	assert.Nil(t, s.Questions[0].Options)
}
