package variability

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/logflow/logvar/internal/model"
)

// ProgressFunc receives pairwise comparison progress. done and total count
// variant-pair comparisons, not trace pairs.
type ProgressFunc func(done, total int64)

// Option configures an Engine.
type Option func(*Engine)

// WithProgress registers a callback invoked while the pairwise similarity
// is computed. It is called once with done == 0 before any comparison and
// once with done == total when finished.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// Engine computes variability metrics. It holds only immutable options and
// is safe for concurrent use.
type Engine struct {
	progress ProgressFunc
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Variant is a class of traces sharing one activity sequence.
type Variant struct {
	Sequence model.Sequence
	Count    int
}

// Variants partitions sequences into variants, ordered by first appearance.
func Variants(seqs []model.Sequence) []Variant {
	index := make(map[string]int, len(seqs))
	var variants []Variant
	for _, seq := range seqs {
		key := variantKey(seq)
		if i, ok := index[key]; ok {
			variants[i].Count++
			continue
		}
		index[key] = len(variants)
		variants = append(variants, Variant{Sequence: seq, Count: 1})
	}
	return variants
}

// variantKey encodes a sequence unambiguously: every label is length-prefixed
// so labels containing separators cannot collide.
func variantKey(seq model.Sequence) string {
	var sb strings.Builder
	for _, label := range seq {
		sb.WriteString(strconv.Itoa(len(label)))
		sb.WriteByte(':')
		sb.WriteString(label)
	}
	return sb.String()
}

// VariantCount returns the number of distinct activity sequences in the log.
func (e *Engine) VariantCount(log *model.EventLog) (int, error) {
	seqs, err := Extract(log)
	if err != nil {
		return 0, err
	}
	return len(Variants(seqs)), nil
}

// MeanPairwiseSimilarity returns the mean Similarity over all unordered pairs
// of distinct traces. Logs with fewer than two traces score 0.0.
func (e *Engine) MeanPairwiseSimilarity(log *model.EventLog) (float64, error) {
	seqs, err := Extract(log)
	if err != nil {
		return 0, err
	}
	return e.meanSimilarity(seqs), nil
}

// LengthDispersion returns the population standard deviation of trace
// lengths. An empty log scores 0.0.
func (e *Engine) LengthDispersion(log *model.EventLog) float64 {
	return populationStdDev(Lengths(log))
}

// Compute runs all three metrics over the log.
func (e *Engine) Compute(log *model.EventLog) (*Result, error) {
	seqs, err := Extract(log)
	if err != nil {
		return nil, err
	}
	return &Result{
		Traces:           len(seqs),
		VariantCount:     len(Variants(seqs)),
		MeanSimilarity:   e.meanSimilarity(seqs),
		LengthDispersion: populationStdDev(Lengths(log)),
	}, nil
}

// ComputeWithProgress is Compute reporting to fn instead of the engine's
// own callback. The engine itself is not modified.
func (e *Engine) ComputeWithProgress(log *model.EventLog, fn ProgressFunc) (*Result, error) {
	c := *e
	c.progress = fn
	return c.Compute(log)
}

type encodedVariant struct {
	codes []int32
	count int
}

// meanSimilarity averages over variant pairs weighted by class sizes instead
// of over all trace pairs. Identical traces always score 1.0, so each class
// contributes C(count, 2) directly.
func (e *Engine) meanSimilarity(seqs []model.Sequence) float64 {
	n := len(seqs)
	if n < 2 {
		return 0.0
	}

	abc := newAlphabet(seqs)
	variants := Variants(seqs)
	encoded := make([]encodedVariant, len(variants))
	for i, v := range variants {
		encoded[i] = encodedVariant{codes: abc.encode(v.Sequence), count: v.Count}
	}
	sort.Slice(encoded, func(i, j int) bool {
		return compareCodes(encoded[i].codes, encoded[j].codes) < 0
	})

	var sum float64
	for _, v := range encoded {
		c := float64(v.count)
		sum += c * (c - 1) / 2
	}

	k := int64(len(encoded))
	total := k * (k - 1) / 2
	var done int64
	e.report(done, total)

	m := newMatcher(abc.size())
	for j := 1; j < len(encoded); j++ {
		m.setB(encoded[j].codes)
		cj := float64(encoded[j].count)
		for i := 0; i < j; i++ {
			sum += m.ratio(encoded[i].codes) * float64(encoded[i].count) * cj
		}
		done += int64(j)
		e.report(done, total)
	}

	pairs := float64(n) * float64(n-1) / 2
	return sum / pairs
}

func (e *Engine) report(done, total int64) {
	if e.progress != nil {
		e.progress(done, total)
	}
}

func populationStdDev(values []int) float64 {
	if len(values) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

var defaultEngine = NewEngine()

// VariantCount counts distinct variants using a default Engine.
func VariantCount(log *model.EventLog) (int, error) {
	return defaultEngine.VariantCount(log)
}

// MeanPairwiseSimilarity computes the mean pairwise similarity using a
// default Engine.
func MeanPairwiseSimilarity(log *model.EventLog) (float64, error) {
	return defaultEngine.MeanPairwiseSimilarity(log)
}

// LengthDispersion computes the trace length dispersion.
func LengthDispersion(log *model.EventLog) float64 {
	return defaultEngine.LengthDispersion(log)
}

// Compute runs all metrics using a default Engine.
func Compute(log *model.EventLog) (*Result, error) {
	return defaultEngine.Compute(log)
}
