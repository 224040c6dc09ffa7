// Package scoring computes metrics over confusion matrices.
//
// The built-in functions, in registry order, are Accuracy, Jindex, Precision,
// Recall, Sensitivity and Specificity. Matrices are [actual][predicted] with
// class 0 as the positive class for the two-class metrics.
//
// All functions follow one division policy: a zero numerator scores 0, a zero
// denominator scores -1 and reports ErrDivideByZero, and a two-class metric on
// a matrix of another size scores -1 and reports ErrNotBinary. The Registry
// logs those errors as warnings and keeps the -1 score, so one undefined metric
// never fails a run.
//
// Additional formulas are registered after the built-ins:
//
//	reg := scoring.NewRegistry(logger)
//	reg.Register(scoring.CellFormula{
//	    FormulaName: "NPV",
//	    Numerator:   []scoring.Cell{{1, 1}},
//	    Denominator: []scoring.Cell{{1, 1}, {0, 1}},
//	})
//	scores := reg.Scores(matrix)
package scoring
