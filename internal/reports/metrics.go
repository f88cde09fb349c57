package reports

// AccuracyMetrics compares model verdicts against human ground-truth labels.
type AccuracyMetrics struct {
	Labeled   int     `json:"labeled"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// truthCounts tallies the confusion matrix for posts carrying a human label.
type truthCounts struct {
	tp int
	fp int
	tn int
	fn int
}

// observe records one post. Posts without a ground-truth label are ignored.
func (t *truthCounts) observe(verified *bool, predictedFake bool) {
	if verified == nil {
		return
	}
	switch {
	case *verified && predictedFake:
		t.tp++
	case *verified && !predictedFake:
		t.fn++
	case !*verified && predictedFake:
		t.fp++
	default:
		t.tn++
	}
}

// metrics converts the tallies into accuracy metrics, or nil when no posts
// carried a label. Every ratio guards its denominator so a degenerate
// campaign (all positive, all negative) reports 0 rather than NaN.
func (t *truthCounts) metrics() *AccuracyMetrics {
	labeled := t.tp + t.fp + t.tn + t.fn
	if labeled == 0 {
		return nil
	}

	m := &AccuracyMetrics{Labeled: labeled}
	m.Accuracy = float64(t.tp+t.tn) / float64(labeled)
	if t.tp+t.fp > 0 {
		m.Precision = float64(t.tp) / float64(t.tp+t.fp)
	}
	if t.tp+t.fn > 0 {
		m.Recall = float64(t.tp) / float64(t.tp+t.fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
