package column

import (
	"sort"

	mstats "github.com/montanaflynn/stats"

	"github.com/cohortdata/cohort/pkg/convert"
)

// Stats summarizes one response column. It is derived on demand from the
// current responses and never cached, so a codebook application or type
// override is always reflected.
type Stats struct {
	// NumResponses counts all respondents, missing included.
	NumResponses int
	// NumUnique counts distinct non-missing responses.
	NumUnique int
	// Missing counts empty responses.
	Missing int
	// Unique holds the distinct non-missing responses in first-seen order.
	Unique []string
	// FracNumerical is the fraction of non-missing responses that parse as a
	// number.
	FracNumerical float64
	// Top5 holds the five most frequent responses, ties broken by first-seen
	// order.
	Top5 []string
	// FracObsFromTop5 is the combined frequency share of Top5 over all
	// non-missing responses.
	FracObsFromTop5 float64
	// Numeric summarizes the numeric-parseable responses; nil when the column
	// has none.
	Numeric *NumericSummary
}

// NumericSummary holds descriptive statistics over the numeric responses.
type NumericSummary struct {
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	StdDev float64
}

// Stats computes the column's statistics.
func (c *ResponseColumn) Stats() Stats {
	s := Stats{NumResponses: len(c.Responses)}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	numbers := make([]float64, 0)
	numeric := 0
	nonMissing := 0

	for i, r := range c.Responses {
		if r == "" {
			s.Missing++
			continue
		}
		nonMissing++
		if _, ok := counts[r]; !ok {
			firstSeen[r] = i
			s.Unique = append(s.Unique, r)
		}
		counts[r]++

		if v := convert.Convert(r); v.Kind == convert.KindInt || v.Kind == convert.KindFloat {
			numeric++
			f, _ := v.AsFloat()
			numbers = append(numbers, f)
		}
	}

	s.NumUnique = len(s.Unique)
	if nonMissing > 0 {
		s.FracNumerical = float64(numeric) / float64(nonMissing)
	}

	s.Top5, s.FracObsFromTop5 = topValues(s.Unique, counts, firstSeen, nonMissing, 5)
	s.Numeric = summarize(numbers)
	return s
}

// topValues picks the n most frequent responses, breaking count ties by
// first-seen position, and reports their combined share of observations.
func topValues(unique []string, counts, firstSeen map[string]int, nonMissing, n int) ([]string, float64) {
	if len(unique) == 0 {
		return nil, 0
	}

	ranked := make([]string, len(unique))
	copy(ranked, unique)
	sort.SliceStable(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return firstSeen[ranked[i]] < firstSeen[ranked[j]]
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}

	covered := 0
	for _, r := range ranked {
		covered += counts[r]
	}
	return ranked, float64(covered) / float64(nonMissing)
}

func summarize(numbers []float64) *NumericSummary {
	if len(numbers) == 0 {
		return nil
	}

	min, _ := mstats.Min(numbers)
	max, _ := mstats.Max(numbers)
	mean, _ := mstats.Mean(numbers)
	median, _ := mstats.Median(numbers)
	stddev, _ := mstats.StandardDeviation(numbers)

	return &NumericSummary{
		Min:    min,
		Max:    max,
		Mean:   mean,
		Median: median,
		StdDev: stddev,
	}
}
