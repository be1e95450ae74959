// Package identifier turns arbitrary column headers into unique, valid
// question names.
//
// Survey files arrive with headers like "Q1.", "Household #", or free-form
// question text. Downstream code addresses questions by identifier, so every
// header must normalize to a distinct lowercase identifier. Normalization is
// deterministic for a given header ordering; unresolvable names are delegated
// to a pluggable repair capability.
package identifier

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cohortdata/cohort/pkg/errors"
)

// RepairFunc produces a candidate identifier for a raw name that failed
// validation. It may be retried with its own output until a valid candidate
// appears. The full system can back this with a language model; the default
// is DefaultRepair.
type RepairFunc func(rawName string) string

// Normalizer resolves raw column headers to unique identifiers. One
// Normalizer is owned by one ingestion run; its caches never leak across
// runs.
type Normalizer struct {
	repair      RepairFunc
	maxAttempts int
	logger      *zap.Logger

	// repairCache maps a raw name to its repaired candidate so the same bad
	// header resolves identically across columns within a run.
	repairCache map[string]string
	used        map[string]bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithRepair installs a custom repair capability.
func WithRepair(fn RepairFunc) Option {
	return func(n *Normalizer) { n.repair = fn }
}

// WithMaxAttempts caps repair retries per name before the deterministic
// fallback is applied.
func WithMaxAttempts(max int) Option {
	return func(n *Normalizer) { n.maxAttempts = max }
}

// NewNormalizer creates a Normalizer with the default deterministic repair.
func NewNormalizer(logger *zap.Logger, opts ...Option) *Normalizer {
	n := &Normalizer{
		repair:      DefaultRepair,
		maxAttempts: 5,
		logger:      logger,
		repairCache: make(map[string]string),
		used:        make(map[string]bool),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize resolves one raw header to a unique, valid identifier and marks
// it used. The first header that resolves to a given base keeps it; later
// headers resolving to the same base get _2, _3, ... suffixes.
func (n *Normalizer) Normalize(rawName string) (string, error) {
	base, err := n.resolveBase(rawName)
	if err != nil {
		return "", err
	}

	name := base
	for i := 2; n.used[name]; i++ {
		name = base + "_" + strconv.Itoa(i)
	}
	n.used[name] = true
	return name, nil
}

// NormalizeAll resolves a full header list. The result has the same length
// as the input and contains only distinct, valid identifiers.
func (n *Normalizer) NormalizeAll(rawNames []string) ([]string, error) {
	names := make([]string, len(rawNames))
	for i, raw := range rawNames {
		name, err := n.Normalize(raw)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}

// resolveBase produces a valid identifier for the raw name, consulting the
// per-run cache before invoking repair.
func (n *Normalizer) resolveBase(rawName string) (string, error) {
	if cached, ok := n.repairCache[rawName]; ok {
		return cached, nil
	}

	lowered := strings.ToLower(rawName)
	if IsValid(lowered) {
		n.repairCache[rawName] = lowered
		return lowered, nil
	}

	candidate := rawName
	for attempt := 0; attempt < n.maxAttempts; attempt++ {
		candidate = n.repair(candidate)
		lowered = strings.ToLower(candidate)
		if IsValid(lowered) {
			if n.logger != nil {
				n.logger.Debug("repaired question name",
					zap.String("raw", rawName),
					zap.String("resolved", lowered),
					zap.Int("attempts", attempt+1))
			}
			n.repairCache[rawName] = lowered
			return lowered, nil
		}
	}

	// Repair did not converge; sanitize mechanically as a last resort.
	fallback := sanitize(rawName)
	if !IsValid(fallback) {
		return "", errors.New(errors.ErrorTypeValidation, "cannot repair question name").
			WithDetail("raw_name", rawName)
	}
	if n.logger != nil {
		n.logger.Warn("repair capability did not converge, used sanitized fallback",
			zap.String("raw", rawName),
			zap.String("resolved", fallback))
	}
	n.repairCache[rawName] = fallback
	return fallback, nil
}

// reserved names collide with agent trait accessors and must be repaired.
var reserved = map[string]bool{
	"class": true,
	"name":  true,
}

// IsValid reports whether s is a valid lowercase identifier: a lowercase
// letter or underscore followed by lowercase letters, digits, or
// underscores, and not a reserved trait name.
func IsValid(s string) bool {
	if len(s) == 0 || reserved[s] {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// DefaultRepair is the deterministic text-substitution repair: it rewrites a
// handful of known-problematic headers and strips invalid characters. It
// needs no network and always returns a non-empty candidate.
func DefaultRepair(rawName string) string {
	s := strings.ToLower(strings.TrimSpace(rawName))
	s = strings.ReplaceAll(s, "#", "_num")

	switch s {
	case "class":
		return "social_class"
	case "name":
		return "respondent_name"
	}

	return sanitize(s)
}

// sanitize mechanically rewrites a name into identifier form: invalid runes
// become underscores, runs collapse, and digit-leading names get a q_
// prefix.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	out = strings.Trim(out, "_")

	if out == "" {
		return "question"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "q_" + out
	}
	return out
}
