package variability

// Metric names, in computation order.
const (
	MetricVariantVariability      = "Variant Variability"
	MetricEditDistanceVariability = "Edit Distance Variability"
	MetricCustomVariability       = "Custom Variability"
)

// Metric is one named scalar result.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Result holds the metrics of one event log.
type Result struct {
	Traces int `json:"traces"`

	// VariantCount is the number of distinct activity sequences.
	VariantCount int `json:"variant_variability"`

	// MeanSimilarity is the mean longest-matching-block ratio over all
	// trace pairs. It is reported as "Edit Distance Variability" although
	// it is a similarity ratio, not an edit distance.
	MeanSimilarity float64 `json:"edit_distance_variability"`

	// LengthDispersion is the population standard deviation of trace lengths.
	LengthDispersion float64 `json:"custom_variability"`
}

// Metrics returns the named metrics in computation order.
func (r *Result) Metrics() []Metric {
	return []Metric{
		{Name: MetricVariantVariability, Value: float64(r.VariantCount)},
		{Name: MetricEditDistanceVariability, Value: r.MeanSimilarity},
		{Name: MetricCustomVariability, Value: r.LengthDispersion},
	}
}

// Map returns the metrics keyed by name.
func (r *Result) Map() map[string]float64 {
	m := make(map[string]float64, 3)
	for _, metric := range r.Metrics() {
		m[metric.Name] = metric.Value
	}
	return m
}
