package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/rulebench/pkg/ruleset"
)

// ruleSetDoc is the YAML form of a rule set.
type ruleSetDoc struct {
	Name    string    `yaml:"name,omitempty"`
	Default string    `yaml:"default"`
	Rules   []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	When []conditionDoc `yaml:"when"`
	Then scalar         `yaml:"then"`
}

type conditionDoc struct {
	Metric string `yaml:"metric"`
	Op     string `yaml:"op"`
	Value  scalar `yaml:"value"`
}

// scalar accepts any YAML scalar as its literal text, so 2.45 and "2.45"
// both decode to the same condition value.
type scalar string

func (s *scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", node.Line)
	}
	*s = scalar(node.Value)
	return nil
}

func (s scalar) MarshalYAML() (interface{}, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: string(s)}, nil
}

// Decode reads every rule set from r. name is used for rule sets that do not
// carry their own name.
func Decode(r io.Reader, name string) ([]*ruleset.RuleSet, error) {
	var docs []ruleSetDoc

	dec := yaml.NewDecoder(r)
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		root := &node
		if root.Kind == yaml.DocumentNode {
			if len(root.Content) == 0 {
				continue
			}
			root = root.Content[0]
		}

		switch root.Kind {
		case yaml.SequenceNode:
			var list []ruleSetDoc
			if err := root.Decode(&list); err != nil {
				return nil, err
			}
			docs = append(docs, list...)
		case yaml.MappingNode:
			var doc ruleSetDoc
			if err := root.Decode(&doc); err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		default:
			return nil, fmt.Errorf("%w: line %d: expected a mapping or a list", ErrInvalidDocument, root.Line)
		}
	}

	sets := make([]*ruleset.RuleSet, 0, len(docs))
	for i, doc := range docs {
		rs, err := doc.build(name)
		if err != nil {
			return nil, fmt.Errorf("rule set %d: %w", i, err)
		}
		if len(docs) > 1 {
			rs.SubID = i
		}
		sets = append(sets, rs)
	}
	return sets, nil
}

// ParseFile reads the rule sets of one file.
func ParseFile(path string) ([]*ruleset.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	sets, err := Decode(bytes.NewReader(data), baseName(path))
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	for _, rs := range sets {
		rs.Source = path
	}
	return sets, nil
}

// Encode writes sets to w as a single YAML list.
func Encode(w io.Writer, sets []*ruleset.RuleSet) error {
	docs := make([]ruleSetDoc, len(sets))
	for i, rs := range sets {
		docs[i] = newRuleSetDoc(rs)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(docs); err != nil {
		return err
	}
	return enc.Close()
}

// WriteFile encodes sets into path, replacing its contents.
func WriteFile(path string, sets []*ruleset.RuleSet) error {
	var buf bytes.Buffer
	if err := Encode(&buf, sets); err != nil {
		return fmt.Errorf("failed to encode rule sets: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write file %q: %w", path, err)
	}
	return nil
}

func (d ruleSetDoc) build(name string) (*ruleset.RuleSet, error) {
	if d.Name != "" {
		name = d.Name
	}
	if strings.TrimSpace(d.Default) == "" {
		return nil, fmt.Errorf("%w: %q has no default class", ErrInvalidDocument, name)
	}

	rs := ruleset.New(name, d.Default, nil, nil)
	for i, rd := range d.Rules {
		if len(rd.When) == 0 {
			return nil, fmt.Errorf("%w: rule %d has no conditions", ErrInvalidDocument, i)
		}

		conds := make([]*ruleset.Condition, 0, len(rd.When))
		for j, cd := range rd.When {
			op, err := ruleset.ParseOperator(cd.Op)
			if err != nil {
				return nil, fmt.Errorf("rule %d condition %d: %w", i, j, err)
			}
			c, err := ruleset.NewEquation(cd.Metric, op, string(cd.Value))
			if err != nil {
				return nil, fmt.Errorf("rule %d condition %d: %w", i, j, err)
			}
			conds = append(conds, c)
		}

		r, err := ruleset.NewRule(string(rd.Then), conds...)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rs.AddRule(r)
	}
	return rs, nil
}

func newRuleSetDoc(rs *ruleset.RuleSet) ruleSetDoc {
	doc := ruleSetDoc{
		Name:    rs.Name,
		Default: rs.DefaultClass(),
		Rules:   make([]ruleDoc, 0, rs.Len()),
	}
	for _, r := range rs.Rules() {
		rd := ruleDoc{Then: scalar(r.Class())}
		for _, c := range r.Conditions() {
			rd.When = append(rd.When, conditionDoc{
				Metric: c.Metric(),
				Op:     string(c.Operator()),
				Value:  scalar(c.Value()),
			})
		}
		doc.Rules = append(doc.Rules, rd)
	}
	return doc
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
