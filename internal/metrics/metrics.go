// Package metrics computes the classification metrics reported during
// training and evaluation.
package metrics

// Accuracy is the fraction of predictions matching the targets. Empty
// input yields 0.
func Accuracy(targets, preds []int) float64 {
	if len(targets) == 0 {
		return 0
	}
	correct := 0
	for i := range targets {
		if i < len(preds) && preds[i] == targets[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(targets))
}

// MacroF1 averages per-class F1 uniformly over all numClasses declared
// classes. Classes with zero support still count in the denominator.
func MacroF1(targets, preds []int, numClasses int) float64 {
	if numClasses <= 0 {
		return 0
	}
	tp := make([]int, numClasses)
	fp := make([]int, numClasses)
	fn := make([]int, numClasses)
	for i := range targets {
		t := targets[i]
		p := -1
		if i < len(preds) {
			p = preds[i]
		}
		switch {
		case p == t:
			if t >= 0 && t < numClasses {
				tp[t]++
			}
		default:
			if p >= 0 && p < numClasses {
				fp[p]++
			}
			if t >= 0 && t < numClasses {
				fn[t]++
			}
		}
	}

	var sum float64
	for c := 0; c < numClasses; c++ {
		var precision, recall float64
		if tp[c]+fp[c] > 0 {
			precision = float64(tp[c]) / float64(tp[c]+fp[c])
		}
		if tp[c]+fn[c] > 0 {
			recall = float64(tp[c]) / float64(tp[c]+fn[c])
		}
		if precision+recall > 0 {
			sum += 2 * precision * recall / (precision + recall)
		}
	}
	return sum / float64(numClasses)
}

// Confusion builds a numClasses x numClasses matrix indexed
// [true][predicted]. Out-of-range labels are dropped.
func Confusion(targets, preds []int, numClasses int) [][]int {
	m := make([][]int, numClasses)
	for i := range m {
		m[i] = make([]int, numClasses)
	}
	for i := range targets {
		t := targets[i]
		if t < 0 || t >= numClasses || i >= len(preds) {
			continue
		}
		p := preds[i]
		if p < 0 || p >= numClasses {
			continue
		}
		m[t][p]++
	}
	return m
}
