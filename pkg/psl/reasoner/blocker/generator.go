// Package blocker compiles ground rules into constraint blocks for MPE inference.
//
// Every random variable is placed in exactly one block. A block is either the free
// members of one categorical constraint (1-of-k or at-most-1-of-k) or a single
// unconstrained atom. For every block the generator also records the weighted
// ground rules whose potential depends on one of its atoms.
//
// Only two kinds of hard constraints are supported: categorical arithmetic
// constraints whose coefficients all equal their threshold, and value constraints.
// Anything else fails the whole generation.
package blocker

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/psl/pkg/psl/groundrulestore"
	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/model/rule"
	"github.com/cognicore/psl/pkg/psl/numeric"
	"github.com/cognicore/psl/pkg/psl/reasoner"
	"github.com/cognicore/psl/pkg/psl/reasoner/function"
)

// Generator is the constraint-blocking reasoner.TermGenerator.
type Generator struct {
	logger  *zap.Logger
	workers int
}

var _ reasoner.TermGenerator = (*Generator)(nil)

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithWorkers bounds the goroutines used to build blocks. Values below 1 mean
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		logger:  zap.NewNop(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateTerms implements reasoner.TermGenerator. rs must be a
// groundrulestore.AtomRegisterStore and ts a *Store.
func (g *Generator) GenerateTerms(ctx context.Context, rs groundrulestore.Store, ts reasoner.TermStore) (err error) {
	start := time.Now()
	defer func() {
		generationsTotal.WithLabelValues(resultLabel(err)).Inc()
		generationDuration.Observe(time.Since(start).Seconds())
	}()

	ruleStore, ok := rs.(groundrulestore.AtomRegisterStore)
	if !ok {
		return fmt.Errorf("%w: AtomRegisterStore required, got %T", internalerr.ErrShape, rs)
	}
	dst, ok := ts.(*Store)
	if !ok || dst == nil {
		return fmt.Errorf("%w: *blocker.Store required, got %T", internalerr.ErrShape, ts)
	}
	if dst.arena == nil {
		return fmt.Errorf("%w: block store has no atom arena", internalerr.ErrShape)
	}

	return g.generate(ctx, ruleStore, dst, start)
}

// UpdateWeights implements reasoner.TermGenerator. Weight changes invalidate the
// block structure, so callers must regenerate instead.
func (g *Generator) UpdateWeights(ctx context.Context, rs groundrulestore.Store, ts reasoner.TermStore) error {
	return fmt.Errorf("%w: constraint blocker terms must be regenerated after weight changes", internalerr.ErrUnsupportedOperation)
}

// block is the outcome of building one block slot.
type block struct {
	atoms      []atom.Handle
	exactlyOne bool
	// forced lists free members of a degenerate block; they end up at 0.
	forced []atom.Handle
}

func (g *Generator) generate(ctx context.Context, rs groundrulestore.AtomRegisterStore, dst *Store, start time.Time) error {
	arena := dst.arena

	constraints, valueConstraints, err := buildConstraints(rs, arena)
	if err != nil {
		return err
	}
	g.logger.Debug("classified hard constraints",
		zap.Int("categorical", len(constraints)),
		zap.Int("value", len(valueConstraints.order)))

	free, err := buildFreeSet(rs, arena)
	if err != nil {
		return err
	}
	g.logger.Debug("collected free random variables", zap.Int("free", len(free)))

	blocks, err := g.buildBlocks(ctx, arena, constraints, valueConstraints, free)
	if err != nil {
		return err
	}

	incident, err := g.collectIncident(ctx, rs, blocks)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Every worker has finished; shared state is only written from here on.
	rvBlocks := make([][]atom.Handle, len(blocks))
	exactlyOne := make([]bool, len(blocks))
	blockIndex := make(map[atom.Handle]int)
	var forced []atom.Handle
	for i, b := range blocks {
		rvBlocks[i] = b.atoms
		exactlyOne[i] = b.exactlyOne
		for _, h := range b.atoms {
			blockIndex[h] = i
		}
		forced = append(forced, b.forced...)
	}

	for _, h := range valueConstraints.order {
		if err := arena.SetValue(h, valueConstraints.byAtom[h].Value); err != nil {
			return err
		}
	}
	for _, h := range forced {
		if err := arena.SetValue(h, 0); err != nil {
			return err
		}
	}

	dst.Init(rs, rvBlocks, incident, exactlyOne, blockIndex)
	blocksPerGeneration.Observe(float64(len(rvBlocks)))

	g.logger.Info("constraint blocks generated",
		zap.String("generation", dst.Generation().String()),
		zap.Int("blocks", len(rvBlocks)),
		zap.Int("categorical", len(constraints)),
		zap.Int("free", len(free)),
		zap.Int("fixed", len(valueConstraints.order)),
		zap.Int("forced", len(forced)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// valueConstraintSet keeps value constraints by target atom in first-seen order.
type valueConstraintSet struct {
	order  []atom.Handle
	byAtom map[atom.Handle]*rule.ValueConstraint
}

// buildConstraints classifies every hard constraint: value constraints are indexed by
// their atom, categorical arithmetic constraints are collected, anything else is fatal.
func buildConstraints(rs groundrulestore.Store, arena *atom.Arena) ([]*rule.ArithmeticConstraint, valueConstraintSet, error) {
	var constraints []*rule.ArithmeticConstraint
	values := valueConstraintSet{byAtom: make(map[atom.Handle]*rule.ValueConstraint)}

	for _, gr := range rs.ConstraintRules() {
		switch con := gr.(type) {
		case *rule.ValueConstraint:
			if !arena.IsRandomVariable(con.Atom) {
				return nil, values, fmt.Errorf("%w: [%s] fixes observed atom %s",
					internalerr.ErrUnsupportedConstraint, gr, arena.Name(con.Atom))
			}
			if _, ok := values.byAtom[con.Atom]; !ok {
				values.order = append(values.order, con.Atom)
			}
			values.byAtom[con.Atom] = con
		case *rule.ArithmeticConstraint:
			if !categorical(con.Definition) {
				return nil, values, fmt.Errorf("%w: [%s]; the only supported constraints are"+
					" 1-of-k constraints, at-most-1-of-k constraints and value constraints",
					internalerr.ErrUnsupportedConstraint, gr)
			}
			constraints = append(constraints, con)
		default:
			return nil, values, fmt.Errorf("%w: [%s]; only categorical (functional) arithmetic constraints are supported",
				internalerr.ErrUnsupportedConstraint, gr)
		}
	}
	return constraints, values, nil
}

// categorical reports whether def encodes a 1-of-k or at-most-1-of-k choice: a sum
// whose coefficients all equal the threshold, compared with Equality, or with
// SmallerThan/LargerThan and a threshold of the matching sign.
func categorical(def function.Constraint) bool {
	switch def.Comparator {
	case function.Equality:
	case function.SmallerThan:
		if def.Value <= 0 {
			return false
		}
	case function.LargerThan:
		if def.Value >= 0 {
			return false
		}
	default:
		return false
	}

	sum, ok := def.Function.(function.Sum)
	if !ok {
		return false
	}
	for _, t := range sum {
		if !numeric.Within(t.Coefficient, def.Value, numeric.Epsilon) {
			return false
		}
	}
	return true
}

// buildFreeSet returns the random variables with no incident hard constraint, in
// first-seen order, and fails on atoms with more than one constraint of a kind.
func buildFreeSet(rs groundrulestore.AtomRegisterStore, arena *atom.Arena) ([]atom.Handle, error) {
	var free []atom.Handle
	visited := make(map[atom.Handle]bool)

	for _, gr := range rs.GroundRules() {
		for _, h := range gr.Atoms() {
			if visited[h] || !arena.IsRandomVariable(h) {
				continue
			}
			visited[h] = true

			numCategorical, numValue := 0, 0
			for _, incident := range rs.RegisteredGroundRules(h) {
				switch incident.Kind() {
				case rule.KindArithmetic:
					numCategorical++
				case rule.KindValue:
					numValue++
				}
			}

			if numCategorical == 0 && numValue == 0 {
				free = append(free, h)
			} else if numCategorical >= 2 || numValue >= 2 {
				return nil, &OverConstrainedAtomError{
					Atom:        h,
					Name:        arena.Name(h),
					Categorical: numCategorical,
					Value:       numValue,
				}
			}
		}
	}
	return free, nil
}

// buildBlocks computes one block per categorical constraint followed by one singleton
// block per free atom. Slots are independent, so they are built concurrently.
func (g *Generator) buildBlocks(
	ctx context.Context,
	arena *atom.Arena,
	constraints []*rule.ArithmeticConstraint,
	values valueConstraintSet,
	free []atom.Handle,
) ([]block, error) {
	blocks := make([]block, len(constraints)+len(free))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.workers)
	for i, con := range constraints {
		i, con := i, con
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			blocks[i] = constraintBlock(arena, con, values)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	offset := len(constraints)
	for j, h := range free {
		blocks[offset+j] = block{atoms: []atom.Handle{h}, exactlyOne: false}
	}
	return blocks, nil
}

func constraintBlock(arena *atom.Arena, con *rule.ArithmeticConstraint, values valueConstraintSet) block {
	// False once an observed atom or a fixed random variable is non-zero,
	// which forces every other atom of the constraint to 0.
	varsAreFree := true
	var members []atom.Handle
	seen := make(map[atom.Handle]bool)

	for _, h := range con.Atoms() {
		if !arena.IsRandomVariable(h) {
			if arena.Value(h) != 0 {
				varsAreFree = false
			}
			continue
		}
		if vc, ok := values.byAtom[h]; ok {
			if vc.Value != 0 {
				varsAreFree = false
			}
			continue
		}
		if !seen[h] {
			seen[h] = true
			members = append(members, h)
		}
	}

	if !varsAreFree {
		// Degenerate blocks are exactly-one whatever the comparator.
		return block{atoms: []atom.Handle{}, exactlyOne: true, forced: members}
	}
	return block{
		atoms:      members,
		exactlyOne: con.Definition.Comparator == function.Equality || len(members) == 0,
	}
}

// collectIncident gathers, per block, the distinct weighted rules registered on any
// of its atoms.
func (g *Generator) collectIncident(ctx context.Context, rs groundrulestore.AtomRegisterStore, blocks []block) ([][]rule.WeightedGroundRule, error) {
	incident := make([][]rule.WeightedGroundRule, len(blocks))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.workers)
	for i := range blocks {
		i := i
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seen := make(map[rule.WeightedGroundRule]bool)
			rules := []rule.WeightedGroundRule{}
			for _, h := range blocks[i].atoms {
				for _, gr := range rs.RegisteredGroundRules(h) {
					if gr.Kind() != rule.KindWeighted {
						continue
					}
					w, ok := gr.(rule.WeightedGroundRule)
					if !ok || seen[w] {
						continue
					}
					seen[w] = true
					rules = append(rules, w)
				}
			}
			incident[i] = rules
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return incident, nil
}
