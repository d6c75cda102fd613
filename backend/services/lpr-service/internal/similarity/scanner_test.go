package similarity

import (
	"fmt"
	"math"
	"testing"
)

func TestFindSimilarEmptyKnown(t *testing.T) {
	if got := FindSimilar("ABC123", nil, DefaultThreshold, DefaultLimit); len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestFindSimilarSelfMatch(t *testing.T) {
	got := FindSimilar("ABC123", []string{"XYZ987", "ABC123"}, DefaultThreshold, DefaultLimit)
	if len(got) != 1 {
		t.Fatalf("expected exactly the identical plate, got %v", got)
	}
	if got[0].PlateNumber != "ABC123" || got[0].Score != 1 {
		t.Fatalf("unexpected self match %+v", got[0])
	}
}

func TestScoreSymmetricAndBounded(t *testing.T) {
	s := NewScanner(DefaultThreshold, DefaultLimit)
	pairs := [][2]string{
		{"ABC1234", "ABC1235"},
		{"ABC1234", "XYZ9876"},
		{"KL01AB1234", "KL01A81234"},
		{"", "A1"},
	}
	for _, p := range pairs {
		ab, ba := s.Score(p[0], p[1]), s.Score(p[1], p[0])
		if ab != ba {
			t.Fatalf("score not symmetric for %v: %v vs %v", p, ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Fatalf("score out of range for %v: %v", p, ab)
		}
	}
	if s.Score("ABC1234", "ABC1235") <= s.Score("ABC1234", "XYZ9876") {
		t.Fatalf("expected one-character misread to score above an unrelated plate")
	}
}

func TestFindSimilarOrderingThresholdAndLimit(t *testing.T) {
	known := []string{
		"NOPE000",
		"ABC1235",
		"ABC1234",
		"ABD1234",
		"ABC1236",
		"ABC1237",
		"ABC1238",
		"ABC1239",
		"ZZZ9999",
	}

	for _, threshold := range []float64{0, 0.3, 0.5, 0.8, 0.9} {
		for _, limit := range []int{1, 3, 5, 10} {
			got := FindSimilar("ABC1234", known, threshold, limit)
			if len(got) > limit {
				t.Fatalf("threshold=%v limit=%d: got %d matches", threshold, limit, len(got))
			}
			for i, m := range got {
				if m.Score <= threshold {
					t.Fatalf("threshold=%v: match %+v not above threshold", threshold, m)
				}
				if i > 0 && got[i-1].Score < m.Score {
					t.Fatalf("threshold=%v: matches not descending: %v", threshold, got)
				}
			}
		}
	}

	got := FindSimilar("ABC1234", known, DefaultThreshold, DefaultLimit)
	if len(got) == 0 || got[0].PlateNumber != "ABC1234" {
		t.Fatalf("expected identical plate first, got %v", got)
	}
}

func TestFindSimilarTiesKeepKnownOrder(t *testing.T) {
	known := []string{"ABC1239", "ABC1235", "ABC1238", "ABC1236"}
	got := FindSimilar("ABC1234", known, 0.5, 10)
	if len(got) != len(known) {
		t.Fatalf("expected all one-off plates to match, got %v", got)
	}
	for i, m := range got {
		if m.PlateNumber != known[i] {
			t.Fatalf("tie order broken at %d: got %v", i, got)
		}
	}
}

func TestFindSimilarSkipsRepeatedKnownPlates(t *testing.T) {
	got := FindSimilar("ABC123", []string{"ABC123", "ABC123", "ABC123"}, DefaultThreshold, DefaultLimit)
	if len(got) != 1 {
		t.Fatalf("expected repeated plates scored once, got %v", got)
	}
}

func TestNewScannerDefaults(t *testing.T) {
	for _, tc := range []struct {
		threshold float64
		limit     int
	}{{-1, 0}, {1, -3}, {2, 0}, {math.NaN(), 5}} {
		s := NewScanner(tc.threshold, tc.limit)
		if s.Threshold() != DefaultThreshold || s.Limit() != DefaultLimit {
			t.Fatalf("%s: expected defaults, got %v/%d", fmt.Sprint(tc), s.Threshold(), s.Limit())
		}
	}
}
