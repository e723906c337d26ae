package ml

// Metrics summarizes binary-classification quality on a holdout set at the
// 0.5 probability threshold.
type Metrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
}

// Evaluate computes holdout metrics from predicted probabilities and 0/1
// labels.
func Evaluate(probs, labels []float64) Metrics {
	if len(probs) == 0 || len(probs) != len(labels) {
		return Metrics{}
	}

	var tp, tn, fp, fn float64
	for i, p := range probs {
		predicted := p >= 0.5
		actual := labels[i] >= 0.5
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		default:
			tn++
		}
	}

	m := Metrics{Accuracy: (tp + tn) / float64(len(probs))}
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
