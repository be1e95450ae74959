package column

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCodebook(t *testing.T) {
	col := New("q1", "Do you agree?", []string{"1", "2", "3"})
	col.ApplyCodebook(map[string]string{"1": "Yes", "2": "No"})

	// Mapped codes are decoded; unmapped codes pass through unchanged.
	assert.Equal(t, []string{"Yes", "No", "3"}, col.Responses)
}

func TestApplyCodebookOnce(t *testing.T) {
	// A codebook whose labels are themselves codes must not be re-applied.
	col := New("q1", "", []string{"1", "2"})
	labels := map[string]string{"1": "2", "2": "1"}

	col.ApplyCodebook(labels)
	col.ApplyCodebook(labels)

	assert.Equal(t, []string{"2", "1"}, col.Responses)
}

func TestStatsOnDecodedValues(t *testing.T) {
	// Inference must operate on decoded labels, not the raw codes.
	col := New("q1", "", []string{"1", "2", "1", "1", ""})
	col.ApplyCodebook(map[string]string{"1": "Yes", "2": "No"})

	s := col.Stats()
	assert.Equal(t, 5, s.NumResponses)
	assert.Equal(t, 1, s.Missing)
	assert.Equal(t, 2, s.NumUnique)
	assert.Equal(t, []string{"Yes", "No"}, s.Unique)
	assert.Equal(t, 0.0, s.FracNumerical)
}

func TestStatsFracNumerical(t *testing.T) {
	col := New("age", "", []string{"34", "29", "unknown", "41", ""})

	s := col.Stats()
	assert.Equal(t, 1, s.Missing)
	assert.InDelta(t, 0.75, s.FracNumerical, 1e-9)
	require.NotNil(t, s.Numeric)
	assert.Equal(t, 29.0, s.Numeric.Min)
	assert.Equal(t, 41.0, s.Numeric.Max)
}

func TestStatsTop5(t *testing.T) {
	responses := []string{
		"a", "a", "a",
		"b", "b",
		"c", "c",
		"d", "e", "f", "g",
	}
	col := New("q", "", responses)

	s := col.Stats()
	// c ties b on count; b was seen first. d/e/f/g tie; first-seen order wins.
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, s.Top5)
	assert.InDelta(t, 9.0/11.0, s.FracObsFromTop5, 1e-9)
}

func TestStatsFewerThanFiveUnique(t *testing.T) {
	col := New("q", "", []string{"x", "y", "x"})

	s := col.Stats()
	assert.Equal(t, []string{"x", "y"}, s.Top5)
	assert.Equal(t, 1.0, s.FracObsFromTop5)
}

func TestStatsEmptyColumn(t *testing.T) {
	col := New("q", "", nil)

	s := col.Stats()
	assert.Equal(t, 0, s.NumResponses)
	assert.Equal(t, 0, s.NumUnique)
	assert.Nil(t, s.Top5)
	assert.Nil(t, s.Numeric)
}

func TestUniqueResponsesFirstSeenOrder(t *testing.T) {
	col := New("q", "", []string{"5", "4", "5", "", "3", "4"})
	assert.Equal(t, []string{"5", "4", "3"}, col.UniqueResponses())
}

func TestStatsRecomputed(t *testing.T) {
	responses := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		responses = append(responses, strconv.Itoa(i))
	}
	col := New("q", "", responses)
	require.Equal(t, 20, col.Stats().NumUnique)

	// Stats are derived from the current responses, never cached.
	col.Responses = col.Responses[:5]
	assert.Equal(t, 5, col.Stats().NumUnique)
}
