// Package similarity flags historical plate numbers that look like a new sighting,
// typically OCR misreads of the same vehicle.
package similarity

import (
	"math"
	"sort"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

const (
	DefaultThreshold = 0.8
	DefaultLimit     = 5
)

// Match is a known plate scored against a candidate.
type Match struct {
	PlateNumber string  `json:"plate_number"`
	Score       float64 `json:"similarity"`
}

// Scanner scores plates with the Sorensen-Dice coefficient over character bigrams.
type Scanner struct {
	threshold float64
	limit     int
	metric    strutil.StringMetric
}

// NewScanner returns a scanner. A NaN threshold, one outside [0,1) or a non-positive limit
// falls back to the defaults.
func NewScanner(threshold float64, limit int) *Scanner {
	if math.IsNaN(threshold) || threshold < 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	dice := metrics.NewSorensenDice()
	dice.CaseSensitive = true
	dice.NgramSize = 2
	return &Scanner{threshold: threshold, limit: limit, metric: dice}
}

// Threshold returns the minimum score (exclusive) for a match.
func (s *Scanner) Threshold() float64 { return s.threshold }

// Limit returns the maximum number of matches returned.
func (s *Scanner) Limit() int { return s.limit }

// Score returns the similarity of a and b in [0,1]; identical strings score 1.
func (s *Scanner) Score(a, b string) float64 {
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, s.metric)
}

// FindSimilar scores every known plate against candidate and returns those scoring
// strictly above the threshold, best first. Equal scores keep the order of known.
func (s *Scanner) FindSimilar(candidate string, known []string) []Match {
	if len(known) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(known))
	matches := make([]Match, 0, s.limit)
	for _, plate := range known {
		if _, dup := seen[plate]; dup {
			continue
		}
		seen[plate] = struct{}{}

		score := s.Score(candidate, plate)
		if score > s.threshold {
			matches = append(matches, Match{PlateNumber: plate, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > s.limit {
		matches = matches[:s.limit]
	}
	return matches
}

// FindSimilar runs a one-off scan with explicit parameters.
func FindSimilar(candidate string, known []string, threshold float64, limit int) []Match {
	return NewScanner(threshold, limit).FindSimilar(candidate, known)
}
