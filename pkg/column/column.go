// Package column stores one survey question's full response vector and
// derives the statistics that drive type inference.
package column

import (
	"github.com/cohortdata/cohort/pkg/convert"
)

// ResponseColumn owns a single question's responses: the normalized question
// name, the original question text, and one response string per respondent.
// The codebook, when present, is applied exactly once before any statistics
// are computed.
type ResponseColumn struct {
	Name      string
	Text      string
	Responses []string

	codebookApplied bool
}

// New creates a ResponseColumn. Responses are kept in respondent order.
func New(name, text string, responses []string) *ResponseColumn {
	return &ResponseColumn{
		Name:      name,
		Text:      text,
		Responses: responses,
	}
}

// ApplyCodebook rewrites every raw response through the code→label mapping in
// place. Unmapped codes pass through unchanged. A second application is a
// no-op: statistics must always see decoded values, never re-decoded ones.
func (c *ResponseColumn) ApplyCodebook(labels map[string]string) {
	if c.codebookApplied || len(labels) == 0 {
		return
	}
	for i, raw := range c.Responses {
		if label, ok := labels[raw]; ok {
			c.Responses[i] = label
		}
	}
	c.codebookApplied = true
}

// UniqueResponses returns the distinct non-missing responses in first-seen
// order.
func (c *ResponseColumn) UniqueResponses() []string {
	seen := make(map[string]bool)
	unique := make([]string, 0)
	for _, r := range c.Responses {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		unique = append(unique, r)
	}
	return unique
}

// Values converts the responses into typed values, one per respondent.
func (c *ResponseColumn) Values() []convert.Value {
	values := make([]convert.Value, len(c.Responses))
	for i, r := range c.Responses {
		values[i] = convert.Convert(r)
	}
	return values
}

// Len returns the number of respondents in the column.
func (c *ResponseColumn) Len() int {
	return len(c.Responses)
}
