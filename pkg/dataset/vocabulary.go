package dataset

import (
	"bufio"
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary is an ordered list of distinct labels. The position of a label is
// its ordinal in confusion matrices (classifications) or its column in records
// (metrics).
type Vocabulary struct {
	labels []string
	index  map[string]int
}

// NewVocabulary builds a vocabulary. Duplicate labels keep their first position.
func NewVocabulary(labels ...string) *Vocabulary {
	v := &Vocabulary{
		labels: make([]string, 0, len(labels)),
		index:  make(map[string]int, len(labels)),
	}
	for _, label := range labels {
		if _, ok := v.index[label]; ok {
			continue
		}
		v.index[label] = len(v.labels)
		v.labels = append(v.labels, label)
	}
	return v
}

// Len returns the number of labels.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.labels)
}

// IndexOf returns the ordinal of label, or -1 when it is unknown.
func (v *Vocabulary) IndexOf(label string) int {
	if v == nil {
		return -1
	}
	if i, ok := v.index[label]; ok {
		return i
	}
	return -1
}

// Contains reports whether label is part of the vocabulary.
func (v *Vocabulary) Contains(label string) bool {
	return v.IndexOf(label) >= 0
}

// At returns the label at ordinal i. It panics when i is out of range.
func (v *Vocabulary) At(i int) string {
	return v.labels[i]
}

// Labels returns a copy of the labels in order.
func (v *Vocabulary) Labels() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.labels))
	copy(out, v.labels)
	return out
}

// Random returns a uniformly chosen label.
func (v *Vocabulary) Random(rng *rand.Rand) string {
	return v.labels[rng.IntN(len(v.labels))]
}

// LoadVocabulary reads a vocabulary file. Files ending in .yaml or .yml hold a
// YAML list of strings; anything else holds one label per line, with blank
// lines and '#' comments ignored.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary %q: %w", path, err)
	}

	var labels []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &labels); err != nil {
			return nil, fmt.Errorf("failed to parse vocabulary %q: %w", path, err)
		}
	default:
		labels = parseLines(data)
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyVocabulary, path)
	}
	return NewVocabulary(labels...), nil
}

func parseLines(data []byte) []string {
	var labels []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	return labels
}
