package survey

import (
	"go.uber.org/zap"

	"github.com/cohortdata/cohort/pkg/column"
	"github.com/cohortdata/cohort/pkg/inference"
	"github.com/cohortdata/cohort/pkg/metrics"
)

// Assembler aggregates built questions into a Survey with partial-failure
// semantics: one bad column never blocks the rest.
type Assembler struct {
	engine  *inference.Engine
	builder *Builder
	logger  *zap.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(engine *inference.Engine, builder *Builder, logger *zap.Logger) *Assembler {
	return &Assembler{engine: engine, builder: builder, logger: logger}
}

// Assemble infers a type for each column in order, builds its question, and
// collects failures by question name. The Survey keeps original column
// order. It never returns an error: callers inspect the failures map.
func (a *Assembler) Assemble(columns []*column.ResponseColumn) (*Survey, map[string]error) {
	return a.AssembleTyped(columns, nil)
}

// AssembleTyped is Assemble with per-column type overrides. Columns absent
// from types get an inferred type.
func (a *Assembler) AssembleTyped(columns []*column.ResponseColumn, types map[string]inference.QuestionType) (*Survey, map[string]error) {
	s := &Survey{Questions: make([]Question, 0, len(columns))}
	failures := make(map[string]error)

	for _, col := range columns {
		questionType, ok := types[col.Name]
		if !ok {
			timer := metrics.NewTimer()
			questionType = a.engine.Infer(col.Stats())
			metrics.InferenceLatency.WithLabelValues(string(questionType)).Observe(timer.Stop().Seconds())
		}

		q, err := a.builder.Build(col, questionType)
		if err != nil {
			failures[col.Name] = err
			metrics.QuestionsBuilt.WithLabelValues(string(questionType), "failure").Inc()
			a.logger.Warn("skipping unbuildable question",
				zap.String("question", col.Name),
				zap.Error(err))
			continue
		}

		s.Questions = append(s.Questions, q)
		metrics.QuestionsBuilt.WithLabelValues(string(q.Type), "success").Inc()
	}

	if len(failures) > 0 {
		a.logger.Warn("survey assembled with failures",
			zap.Int("attempted", len(columns)),
			zap.Int("failures", len(failures)))
	} else {
		a.logger.Info("survey assembled",
			zap.Int("questions", s.Len()))
	}

	return s, failures
}
