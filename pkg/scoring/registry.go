package scoring

import (
	"fmt"
	"log/slog"
	"sync"
)

// UnknownFunction is the name reported for an index outside the registry.
const UnknownFunction = "Unknown function index"

// Score is one named metric value.
type Score struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Registry holds the built-in functions followed by registered formulas.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	formulas []Formula
	logger   *slog.Logger
}

// NewRegistry creates a registry with only the built-in functions.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default().With("component", "scoring")
	}
	return &Registry{logger: logger}
}

// Register appends a formula. Names must be unique across built-ins and
// registered formulas.
func (r *Registry) Register(f Formula) error {
	if f == nil || f.Name() == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidFormula)
	}
	if v, ok := f.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range builtinNames {
		if name == f.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateFormula, f.Name())
		}
	}
	for _, existing := range r.formulas {
		if existing.Name() == f.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateFormula, f.Name())
		}
	}

	r.formulas = append(r.formulas, f)
	r.logger.Info("registered formula", "name", f.Name())
	return nil
}

// Unregister removes the formula called name. Built-ins cannot be removed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, f := range r.formulas {
		if f.Name() == name {
			r.formulas = append(r.formulas[:i], r.formulas[i+1:]...)
			return true
		}
	}
	return false
}

// Size returns the number of functions, built-in and registered.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(builtinNames) + len(r.formulas)
}

// Name returns the name of function i.
func (r *Registry) Name(i int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch {
	case i < 0:
		return UnknownFunction
	case i < len(builtinNames):
		return builtinNames[i]
	case i-len(builtinNames) < len(r.formulas):
		return r.formulas[i-len(builtinNames)].Name()
	default:
		return UnknownFunction
	}
}

// Names returns every function name in index order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := append([]string(nil), builtinNames...)
	for _, f := range r.formulas {
		names = append(names, f.Name())
	}
	return names
}

// Compute evaluates function i on m. An index outside the registry scores -1.
// Metric errors are logged and the function's fallback score is returned.
func (r *Registry) Compute(i int, m [][]int) float64 {
	v, err := r.compute(i, m)
	if err != nil {
		r.logger.Warn("metric undefined", "function", r.Name(i), "error", err)
	}
	return v
}

func (r *Registry) compute(i int, m [][]int) (float64, error) {
	switch i {
	case FuncAccuracy:
		return Accuracy(m)
	case FuncJindex:
		return Jindex(m)
	case FuncPrecision:
		return Precision(m)
	case FuncRecall:
		return Recall(m)
	case FuncSensitivity:
		return Sensitivity(m)
	case FuncSpecificity:
		return Specificity(m)
	}

	r.mu.RLock()
	idx := i - len(builtinNames)
	if i < 0 || idx >= len(r.formulas) {
		r.mu.RUnlock()
		return -1, nil
	}
	f := r.formulas[idx]
	r.mu.RUnlock()

	if f.RequiresMatrix() {
		return f.CalculateMatrix(m)
	}
	return f.Calculate()
}

// Scores evaluates every function on m.
func (r *Registry) Scores(m [][]int) []Score {
	n := r.Size()
	scores := make([]Score, 0, n)
	for i := 0; i < n; i++ {
		scores = append(scores, Score{Name: r.Name(i), Value: r.Compute(i, m)})
	}
	return scores
}
