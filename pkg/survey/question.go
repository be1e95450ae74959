// Package survey builds validated question definitions from classified
// response columns and assembles them into an ordered Survey.
package survey

import (
	"strings"

	"github.com/cohortdata/cohort/pkg/inference"
)

// Question is one validated survey item. Name is a globally unique
// identifier; Text is the sanitized question wording; Options is populated
// only for multiple choice questions.
type Question struct {
	Name    string                 `json:"question_name"`
	Text    string                 `json:"question_text"`
	Type    inference.QuestionType `json:"question_type"`
	Options []string               `json:"question_options,omitempty"`
}

// Survey is an ordered sequence of questions, one per successfully converted
// column, in original column order.
type Survey struct {
	Questions []Question `json:"questions"`
}

// Get returns the question with the given name.
func (s *Survey) Get(name string) (Question, bool) {
	for _, q := range s.Questions {
		if q.Name == name {
			return q, true
		}
	}
	return Question{}, false
}

// Len returns the number of questions.
func (s *Survey) Len() int {
	return len(s.Questions)
}

// braceReplacer substitutes characters that collide with downstream
// templating syntax. Parentheses keep the text readable and the substitution
// is position-preserving, so the original wording stays recoverable.
var braceReplacer = strings.NewReplacer("{", "(", "}", ")")

// SanitizeText rewrites question text so it is safe to embed in templates.
func SanitizeText(text string) string {
	return braceReplacer.Replace(text)
}
