package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/psl/pkg/psl"
	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/formula"
	"github.com/cognicore/psl/pkg/psl/model/predicate"
	"github.com/cognicore/psl/pkg/psl/model/rule/logical"
	"github.com/cognicore/psl/pkg/psl/model/rule/predicateconstraint"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

// Model is a PSL model file: predicates, data and rules.
type Model struct {
	Predicates   []PredicateSpec  `yaml:"predicates"`
	Observations []AtomValue      `yaml:"observations"`
	Targets      []string         `yaml:"targets"`
	Fixed        []AtomValue      `yaml:"fixed"`
	Rules        []RuleSpec       `yaml:"rules"`
	Constraints  []ConstraintSpec `yaml:"constraints"`
}

// PredicateSpec declares a predicate. Closed predicates are fully observed.
type PredicateSpec struct {
	Name   string `yaml:"name"`
	Arity  int    `yaml:"arity"`
	Closed bool   `yaml:"closed"`
}

// AtomValue is a ground literal with a truth value.
type AtomValue struct {
	Atom  string  `yaml:"atom"`
	Value float64 `yaml:"value"`
}

// RuleSpec is "body >> head". A rule without a weight is hard.
type RuleSpec struct {
	Name    string   `yaml:"name"`
	Weight  *float64 `yaml:"weight"`
	Squared bool     `yaml:"squared"`
	Body    []string `yaml:"body"`
	Head    []string `yaml:"head"`
}

// ConstraintSpec applies a predicate constraint type such as "Functional".
type ConstraintSpec struct {
	Predicate string `yaml:"predicate"`
	Type      string `yaml:"type"`
}

// Sink receives the predicates and atoms of a model.
type Sink interface {
	RegisterPredicate(ctx context.Context, p predicate.Predicate, closed bool) error
	Observe(ctx context.Context, p predicate.Predicate, value float64, args ...term.Constant) error
	AddTarget(ctx context.Context, p predicate.Predicate, args ...term.Constant) error
}

// LoadModel reads a YAML model file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseModel(data)
}

// ParseModel decodes YAML model data and checks that every literal is well formed.
func ParseModel(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidInput, err)
	}
	if _, err := m.Program(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Model) predicates() (map[string]predicate.Predicate, error) {
	out := make(map[string]predicate.Predicate, len(m.Predicates))
	for _, spec := range m.Predicates {
		p, err := predicate.New(spec.Name, spec.Arity)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidInput, err)
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("%w: predicate %s declared twice", internalerr.ErrDuplicate, p.Name)
		}
		out[p.Name] = p
	}
	return out, nil
}

func resolve(preds map[string]predicate.Predicate, s string) (formula.Atom, formula.Literal, error) {
	lit, err := formula.ParseLiteral(s)
	if err != nil {
		return formula.Atom{}, lit, err
	}
	p, ok := preds[lit.Name]
	if !ok {
		return formula.Atom{}, lit, fmt.Errorf("%w: undeclared predicate in %q", internalerr.ErrNotFound, s)
	}
	a, err := formula.NewAtom(p, lit.Args...)
	return a, lit, err
}

func resolveGround(preds map[string]predicate.Predicate, s string) (predicate.Predicate, []term.Constant, error) {
	a, lit, err := resolve(preds, s)
	if err != nil {
		return predicate.Predicate{}, nil, err
	}
	if lit.Negated {
		return predicate.Predicate{}, nil, fmt.Errorf("%w: data atom %q must not be negated", internalerr.ErrInvalidInput, s)
	}
	args, err := lit.Ground()
	if err != nil {
		return predicate.Predicate{}, nil, err
	}
	return a.Predicate, args, nil
}

// Populate writes the predicates, observations and targets of m to sink.
func (m *Model) Populate(ctx context.Context, sink Sink) error {
	preds, err := m.predicates()
	if err != nil {
		return err
	}
	for _, spec := range m.Predicates {
		if err := sink.RegisterPredicate(ctx, preds[spec.Name], spec.Closed); err != nil {
			return err
		}
	}
	stored := make(map[string]bool)
	for _, obs := range m.Observations {
		p, args, err := resolveGround(preds, obs.Atom)
		if err != nil {
			return err
		}
		if err := sink.Observe(ctx, p, obs.Value, args...); err != nil {
			return err
		}
		stored[p.Name+"\x01"+term.Key(args)] = true
	}
	for _, target := range m.Targets {
		p, args, err := resolveGround(preds, target)
		if err != nil {
			return err
		}
		if err := sink.AddTarget(ctx, p, args...); err != nil {
			return err
		}
		stored[p.Name+"\x01"+term.Key(args)] = true
	}
	// Fixed atoms must be stored for grounding queries to see them.
	for _, fixed := range m.Fixed {
		p, args, err := resolveGround(preds, fixed.Atom)
		if err != nil {
			return err
		}
		k := p.Name + "\x01" + term.Key(args)
		if stored[k] {
			continue
		}
		if err := sink.AddTarget(ctx, p, args...); err != nil {
			return err
		}
		stored[k] = true
	}
	return nil
}

// Program compiles the rules, constraints and fixed atoms of m.
func (m *Model) Program() (psl.Program, error) {
	preds, err := m.predicates()
	if err != nil {
		return psl.Program{}, err
	}

	var prog psl.Program
	for i, spec := range m.Rules {
		r, err := buildRule(preds, spec)
		if err != nil {
			return psl.Program{}, fmt.Errorf("rule %d: %w", i, err)
		}
		prog.Rules = append(prog.Rules, r)
	}

	for _, spec := range m.Constraints {
		p, ok := preds[spec.Predicate]
		if !ok {
			return psl.Program{}, fmt.Errorf("%w: constraint on undeclared predicate %s", internalerr.ErrNotFound, spec.Predicate)
		}
		typ, err := predicateconstraint.ParseType(spec.Type)
		if err != nil {
			return psl.Program{}, err
		}
		c, err := predicateconstraint.New(p, typ)
		if err != nil {
			return psl.Program{}, err
		}
		prog.Rules = append(prog.Rules, c)
	}

	for _, fixed := range m.Fixed {
		if fixed.Value < 0 || fixed.Value > 1 {
			return psl.Program{}, fmt.Errorf("%w: fixed value %g of %s outside [0, 1]", internalerr.ErrInvalidInput, fixed.Value, fixed.Atom)
		}
		p, args, err := resolveGround(preds, fixed.Atom)
		if err != nil {
			return psl.Program{}, err
		}
		prog.Fixed = append(prog.Fixed, psl.FixedAtom{Predicate: p, Args: args, Value: fixed.Value})
	}
	return prog, nil
}

func buildRule(preds map[string]predicate.Predicate, spec RuleSpec) (logical.Rule, error) {
	if len(spec.Body) == 0 || len(spec.Head) == 0 {
		return nil, fmt.Errorf("%w: rules need a body and a head", internalerr.ErrInvalidInput)
	}
	body, err := literals(preds, spec.Body)
	if err != nil {
		return nil, err
	}
	head, err := literals(preds, spec.Head)
	if err != nil {
		return nil, err
	}

	var f formula.Formula = formula.Implication{
		Body: collapse(body, func(fs []formula.Formula) formula.Formula { return formula.Conjunction(fs) }),
		Head: collapse(head, func(fs []formula.Formula) formula.Formula { return formula.Disjunction(fs) }),
	}

	if spec.Weight == nil {
		if spec.Name == "" {
			return logical.NewUnweighted(f)
		}
		return logical.NewUnweightedNamed(f, spec.Name)
	}
	return logical.NewWeighted(f, spec.Name, *spec.Weight, spec.Squared)
}

func literals(preds map[string]predicate.Predicate, in []string) ([]formula.Formula, error) {
	out := make([]formula.Formula, len(in))
	for i, s := range in {
		a, lit, err := resolve(preds, s)
		if err != nil {
			return nil, err
		}
		if lit.Negated {
			out[i] = formula.Negation{Body: a}
		} else {
			out[i] = a
		}
	}
	return out, nil
}

func collapse(fs []formula.Formula, join func([]formula.Formula) formula.Formula) formula.Formula {
	if len(fs) == 1 {
		return fs[0]
	}
	return join(fs)
}
