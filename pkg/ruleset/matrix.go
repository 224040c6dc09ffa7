package ruleset

// Matrix is a square confusion matrix indexed [actual][predicted] in
// classification vocabulary order.
type Matrix [][]int

// NewMatrix allocates an n x n matrix.
func NewMatrix(n int) Matrix {
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]int, n)
	}
	return m
}

// Size returns the number of classes.
func (m Matrix) Size() int { return len(m) }

// Add counts one prediction.
func (m Matrix) Add(actual, predicted int) {
	m[actual][predicted]++
}

// Sum returns the number of recorded predictions.
func (m Matrix) Sum() int {
	total := 0
	for _, row := range m {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// Trace returns the number of correct predictions.
func (m Matrix) Trace() int {
	total := 0
	for i := range m {
		total += m[i][i]
	}
	return total
}

// Reset zeroes every cell.
func (m Matrix) Reset() {
	for _, row := range m {
		clear(row)
	}
}

// IsZero reports whether no prediction has been recorded.
func (m Matrix) IsZero() bool {
	return m.Sum() == 0
}

// Snapshot returns a deep copy.
func (m Matrix) Snapshot() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// TP, TN, FN and FP read a two-class matrix with class 0 as positive. They
// return 0 for smaller matrices.
func (m Matrix) TP() int { return m.cell(0, 0) }
func (m Matrix) TN() int { return m.cell(1, 1) }
func (m Matrix) FN() int { return m.cell(0, 1) }
func (m Matrix) FP() int { return m.cell(1, 0) }

func (m Matrix) cell(i, j int) int {
	if i >= len(m) || j >= len(m[i]) {
		return 0
	}
	return m[i][j]
}
