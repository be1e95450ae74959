package agent

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cohortdata/cohort/pkg/convert"
	"github.com/cohortdata/cohort/pkg/metrics"
)

// Agent is a synthetic respondent: one observation's traits plus a
// direct-answer capability. Agents are immutable once built.
type Agent struct {
	ID     string
	traits map[string]convert.Value
}

// Answer returns the agent's recorded value for a question, by direct lookup
// rather than any model inference. ok is false when the agent has no trait
// for the name.
func (a *Agent) Answer(questionName string) (convert.Value, bool) {
	v, ok := a.traits[questionName]
	return v, ok
}

// Trait is an alias of Answer for callers thinking in trait terms.
func (a *Agent) Trait(name string) (convert.Value, bool) {
	return a.Answer(name)
}

// TraitNames returns the agent's trait keys in sorted order.
func (a *Agent) TraitNames() []string {
	names := make([]string, 0, len(a.traits))
	for name := range a.traits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List is an ordered collection of agents whose order matches observation
// order, or a subsample thereof.
type List []*Agent

// Options controls materialization.
type Options struct {
	// TraitKeys restricts which question names become traits; empty means
	// all keys present in each observation.
	TraitKeys []string
	// SampleSize, when positive and smaller than the materialized list,
	// selects an unweighted random sample without replacement.
	SampleSize int
	// Seed drives sampling. It is always applied so runs are reproducible.
	Seed int64
}

// Materialize builds one agent per observation. Requested trait keys absent
// from an observation are recorded in the failures map (keyed
// "agent_<index>/<key>") and skipped for that agent; they never abort agent
// creation.
func Materialize(observations []Observation, opts Options, logger *zap.Logger) (List, map[string]string) {
	failures := make(map[string]string)
	agents := make(List, 0, len(observations))

	for i, obs := range observations {
		traits := make(map[string]convert.Value)
		if len(opts.TraitKeys) == 0 {
			for name, v := range obs {
				traits[name] = v
			}
		} else {
			for _, key := range opts.TraitKeys {
				v, ok := obs[key]
				if !ok {
					failures[fmt.Sprintf("agent_%d/%s", i, key)] = "trait key absent from observation"
					continue
				}
				traits[key] = v
			}
		}

		agents = append(agents, &Agent{
			ID:     uuid.NewString(),
			traits: traits,
		})
	}

	sampled := false
	if opts.SampleSize > 0 && len(agents) >= opts.SampleSize {
		agents = sample(agents, opts.SampleSize, opts.Seed)
		sampled = true
	}

	metrics.AgentsMaterialized.WithLabelValues(fmt.Sprintf("%t", sampled)).Add(float64(len(agents)))
	if logger != nil {
		logger.Info("materialized agents",
			zap.Int("agents", len(agents)),
			zap.Int("observations", len(observations)),
			zap.Bool("sampled", sampled),
			zap.Int("trait_failures", len(failures)))
	}

	return agents, failures
}

// sample draws an unweighted sample without replacement, preserving the
// agents' relative order.
func sample(agents List, size int, seed int64) List {
	rng := rand.New(rand.NewSource(seed))
	picked := rng.Perm(len(agents))[:size]
	sort.Ints(picked)

	out := make(List, 0, size)
	for _, idx := range picked {
		out = append(out, agents[idx])
	}
	return out
}
