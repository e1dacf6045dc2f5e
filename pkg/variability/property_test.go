package variability

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/logflow/logvar/internal/model"
)

func drawSequence(t *rapid.T, label string, maxLen int) model.Sequence {
	labels := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b", "c", "d"}), 0, maxLen).Draw(t, label)
	return model.Sequence(labels)
}

// naiveMatches is a direct transcription of the recursive longest-block
// alignment with a brute-force block search.
func naiveMatches(a, b []int32, alo, ahi, blo, bhi int) int {
	besti, bestj, bestk := alo, blo, 0
	for i := alo; i < ahi; i++ {
		for j := blo; j < bhi; j++ {
			k := 0
			for i+k < ahi && j+k < bhi && a[i+k] == b[j+k] {
				k++
			}
			if k > bestk {
				besti, bestj, bestk = i, j, k
			}
		}
	}
	if bestk == 0 {
		return 0
	}
	return bestk +
		naiveMatches(a, b, alo, besti, blo, bestj) +
		naiveMatches(a, b, besti+bestk, ahi, bestj+bestk, bhi)
}

func TestSimilarity_MatchesBruteForce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := drawSequence(t, "a", 15)
		b := drawSequence(t, "b", 15)

		abc := newAlphabet([]model.Sequence{a, b})
		ea, eb := abc.encode(a), abc.encode(b)
		m := newMatcher(abc.size())
		m.setB(eb)

		got := m.matches(ea)
		want := naiveMatches(ea, eb, 0, len(ea), 0, len(eb))
		if got != want {
			t.Fatalf("matches(%v, %v) = %d, want %d", a, b, got, want)
		}
	})
}

func TestSimilarity_Identity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := drawSequence(t, "a", 20)
		if got := Similarity(a, a); got != 1.0 {
			t.Fatalf("Similarity(%v, %v) = %v, want 1", a, a, got)
		}
	})
}

func TestSimilarity_SymmetricAndBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := drawSequence(t, "a", 20)
		b := drawSequence(t, "b", 20)

		ab, ba := Similarity(a, b), Similarity(b, a)
		if ab != ba {
			t.Fatalf("Similarity not symmetric: (%v, %v) = %v, reversed = %v", a, b, ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Fatalf("Similarity(%v, %v) = %v, outside [0, 1]", a, b, ab)
		}
	})
}

func TestMetrics_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "traces")
		seqs := make([][]string, n)
		for i := range seqs {
			seqs[i] = drawSequence(t, "trace", 8)
		}
		log := logOf(seqs...)

		variants, err := VariantCount(log)
		if err != nil {
			t.Fatalf("VariantCount: %v", err)
		}
		if variants > n {
			t.Fatalf("variant count %d exceeds trace count %d", variants, n)
		}

		got, err := MeanPairwiseSimilarity(log)
		if err != nil {
			t.Fatalf("MeanPairwiseSimilarity: %v", err)
		}
		want := naiveMean(seqs)
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("MeanPairwiseSimilarity = %v, pairwise mean = %v", got, want)
		}

		if d := LengthDispersion(log); d < 0 || math.IsNaN(d) {
			t.Fatalf("LengthDispersion = %v", d)
		}
	})
}

func naiveMean(seqs [][]string) float64 {
	if len(seqs) < 2 {
		return 0
	}
	var sum float64
	var pairs int
	for i := 0; i < len(seqs); i++ {
		for j := i + 1; j < len(seqs); j++ {
			sum += Similarity(model.Sequence(seqs[i]), model.Sequence(seqs[j]))
			pairs++
		}
	}
	return sum / float64(pairs)
}
