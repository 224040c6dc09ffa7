package scoring

import (
	"fmt"
	"strings"
)

// Formula is a pluggable metric registered after the built-ins.
type Formula interface {
	Name() string

	// RequiresMatrix selects between CalculateMatrix and Calculate.
	RequiresMatrix() bool

	Calculate() (float64, error)
	CalculateMatrix(m [][]int) (float64, error)
}

// Cell addresses one matrix cell as {actual, predicted}.
type Cell [2]int

// CellFormula divides the sum of the Numerator cells by the sum of the
// Denominator cells, under the same division policy as the built-ins.
type CellFormula struct {
	FormulaName string
	Numerator   []Cell
	Denominator []Cell
}

func (f CellFormula) Name() string         { return f.FormulaName }
func (f CellFormula) RequiresMatrix() bool { return true }

// Calculate has no matrix to read and reports ErrDivideByZero.
func (f CellFormula) Calculate() (float64, error) {
	return -1, &MetricError{Metric: f.FormulaName, Err: ErrDivideByZero}
}

// CalculateMatrix evaluates the formula on m.
func (f CellFormula) CalculateMatrix(m [][]int) (float64, error) {
	num, err := f.sum(m, f.Numerator)
	if err != nil {
		return -1, err
	}
	den, err := f.sum(m, f.Denominator)
	if err != nil {
		return -1, err
	}
	return ratio(f.FormulaName, num, den)
}

// Validate checks the name and that every cell is non-negative.
func (f CellFormula) Validate() error {
	if strings.TrimSpace(f.FormulaName) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidFormula)
	}
	if len(f.Numerator) == 0 || len(f.Denominator) == 0 {
		return fmt.Errorf("%w: %s needs numerator and denominator cells", ErrInvalidFormula, f.FormulaName)
	}
	for _, c := range append(append([]Cell(nil), f.Numerator...), f.Denominator...) {
		if c[0] < 0 || c[1] < 0 {
			return fmt.Errorf("%w: %s has negative cell %v", ErrInvalidFormula, f.FormulaName, c)
		}
	}
	return nil
}

func (f CellFormula) sum(m [][]int, cells []Cell) (int, error) {
	total := 0
	for _, c := range cells {
		if c[0] >= len(m) || c[1] >= len(m[c[0]]) {
			return 0, &MetricError{
				Metric: f.FormulaName,
				Err:    fmt.Errorf("%w: cell %v outside %dx%d matrix", ErrInvalidFormula, c, len(m), len(m)),
			}
		}
		total += m[c[0]][c[1]]
	}
	return total, nil
}
