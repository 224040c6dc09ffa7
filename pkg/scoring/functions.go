package scoring

// Indices of the built-in functions.
const (
	FuncAccuracy = iota
	FuncJindex
	FuncPrecision
	FuncRecall
	FuncSensitivity
	FuncSpecificity
)

var builtinNames = []string{
	"Accuracy",
	"Jindex",
	"Precision",
	"Recall",
	"Sensitivity",
	"Specificity",
}

// Accuracy is trace/sum.
func Accuracy(m [][]int) (float64, error) {
	trace, sum := 0, 0
	for i, row := range m {
		for j, v := range row {
			sum += v
			if i == j {
				trace += v
			}
		}
	}
	return ratio("Accuracy", trace, sum)
}

// Jindex is the mean over classes of the per-class hit rate m[i][i]/rowSum.
// Classes without records contribute 0.
func Jindex(m [][]int) (float64, error) {
	k := len(m)
	if k == 0 {
		return -1, &MetricError{Metric: "Jindex", Err: ErrDivideByZero}
	}

	sum := 0.0
	for i, row := range m {
		rowSum := 0
		for _, v := range row {
			rowSum += v
		}
		if rowSum == 0 || m[i][i] == 0 {
			continue
		}
		sum += float64(m[i][i]) / float64(rowSum)
	}
	if sum == 0 {
		return 0, nil
	}
	return sum / float64(k), nil
}

// Precision is m00/(m00+m01).
func Precision(m [][]int) (float64, error) {
	if !isBinary(m) {
		return -1, &MetricError{Metric: "Precision", Err: ErrNotBinary}
	}
	return ratio("Precision", m[0][0], m[0][0]+m[0][1])
}

// Recall is m00/(m00+m10).
func Recall(m [][]int) (float64, error) {
	if !isBinary(m) {
		return -1, &MetricError{Metric: "Recall", Err: ErrNotBinary}
	}
	return ratio("Recall", m[0][0], m[0][0]+m[1][0])
}

// Sensitivity equals Recall.
func Sensitivity(m [][]int) (float64, error) {
	v, err := Recall(m)
	if me, ok := err.(*MetricError); ok {
		me.Metric = "Sensitivity"
	}
	return v, err
}

// Specificity is m11/(m01+m11).
func Specificity(m [][]int) (float64, error) {
	if !isBinary(m) {
		return -1, &MetricError{Metric: "Specificity", Err: ErrNotBinary}
	}
	return ratio("Specificity", m[1][1], m[0][1]+m[1][1])
}

// ratio applies the division policy: 0 when num is 0, -1 when den is 0.
func ratio(metric string, num, den int) (float64, error) {
	if num == 0 {
		return 0, nil
	}
	if den == 0 {
		return -1, &MetricError{Metric: metric, Err: ErrDivideByZero}
	}
	return float64(num) / float64(den), nil
}

func isBinary(m [][]int) bool {
	return len(m) == 2 && len(m[0]) == 2 && len(m[1]) == 2
}

// RuleAccuracy is correct/matched, with matched treated as 1 when zero.
func RuleAccuracy(correct, matched int) float64 {
	if matched == 0 {
		matched = 1
	}
	return float64(correct) / float64(matched)
}

// Coverage is (correct+wrong)/(correct+wrong+failed), 0 for no records.
func Coverage(correct, wrong, failed int) float64 {
	classified := correct + wrong
	total := classified + failed
	if total == 0 {
		return 0
	}
	return float64(classified) / float64(total)
}
