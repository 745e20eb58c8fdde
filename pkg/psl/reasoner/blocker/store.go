package blocker

import (
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/psl/pkg/psl/groundrulestore"
	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/model/rule"
	"github.com/cognicore/psl/pkg/psl/numeric"
	"github.com/cognicore/psl/pkg/psl/reasoner"
)

// Store holds the block partition produced by a Generator. Its contents are replaced
// wholesale by every Init; consumers must treat the returned slices as read-only.
type Store struct {
	arena *atom.Arena

	mu         sync.RWMutex
	ruleStore  groundrulestore.AtomRegisterStore
	blocks     [][]atom.Handle
	incident   [][]rule.WeightedGroundRule
	exactlyOne []bool
	blockIndex map[atom.Handle]int
	generation ulid.ULID
}

var _ reasoner.TermStore = (*Store)(nil)

// NewStore creates an empty store over the atoms of arena.
func NewStore(arena *atom.Arena) *Store {
	return &Store{arena: arena}
}

// Init replaces the partition. blockIndex maps every placed atom to its block.
func (s *Store) Init(
	rs groundrulestore.AtomRegisterStore,
	blocks [][]atom.Handle,
	incident [][]rule.WeightedGroundRule,
	exactlyOne []bool,
	blockIndex map[atom.Handle]int,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ruleStore = rs
	s.blocks = blocks
	s.incident = incident
	s.exactlyOne = exactlyOne
	s.blockIndex = blockIndex
	s.generation = ulid.Make()
}

// Atoms returns the arena the blocks refer to.
func (s *Store) Atoms() *atom.Arena { return s.arena }

// Size implements reasoner.TermStore: the number of blocks.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}

// Clear implements reasoner.TermStore.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ruleStore = nil
	s.blocks = nil
	s.incident = nil
	s.exactlyOne = nil
	s.blockIndex = nil
	s.generation = ulid.ULID{}
}

// Generation identifies the last Init; zero before the first one.
func (s *Store) Generation() ulid.ULID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Block returns the atoms of block i.
func (s *Store) Block(i int) []atom.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocks[i]
}

// Blocks returns every block.
func (s *Store) Blocks() [][]atom.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocks
}

// ExactlyOne reports whether exactly one atom of block i must be 1. When false,
// at most one may be.
func (s *Store) ExactlyOne(i int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exactlyOne[i]
}

// IncidentRules returns the weighted rules depending on an atom of block i.
func (s *Store) IncidentRules(i int) []rule.WeightedGroundRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.incident[i]
}

// BlockOf returns the block containing h.
func (s *Store) BlockOf(h atom.Handle) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.blockIndex[h]
	return i, ok
}

// Assign writes a one-hot assignment: block i gets its choices[i]-th atom set to 1
// and the rest to 0. A choice of -1 sets the whole block to 0, which is only valid
// for blocks that are not exactly-one or are empty.
func (s *Store) Assign(choices []int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(choices) != len(s.blocks) {
		return fmt.Errorf("%w: %d choices for %d blocks", internalerr.ErrInvalidInput, len(choices), len(s.blocks))
	}
	for i, c := range choices {
		block := s.blocks[i]
		if c < -1 || c >= len(block) {
			return fmt.Errorf("%w: choice %d out of range for block %d of size %d", internalerr.ErrInvalidInput, c, i, len(block))
		}
		if c == -1 && s.exactlyOne[i] && len(block) > 0 {
			return fmt.Errorf("%w: block %d needs exactly one true atom", internalerr.ErrInvalidInput, i)
		}
	}

	for i, c := range choices {
		for j, h := range s.blocks[i] {
			v := 0.0
			if j == c {
				v = 1
			}
			if err := s.arena.SetValue(h, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckFeasible verifies every hard constraint of the ground-rule store against
// the current atom values.
func (s *Store) CheckFeasible() error {
	s.mu.RLock()
	rs := s.ruleStore
	s.mu.RUnlock()
	if rs == nil {
		return nil
	}

	for _, gr := range rs.ConstraintRules() {
		con, ok := gr.(rule.UnweightedGroundRule)
		if !ok {
			continue
		}
		if v := con.Infeasibility(s.arena); v > numeric.RelaxedEpsilon {
			return fmt.Errorf("%w: constraint %s violated by %g", internalerr.ErrInvalidInput, gr, v)
		}
	}
	return nil
}

// Objective sums weight times incompatibility over every distinct incident rule.
func (s *Store) Objective() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[rule.WeightedGroundRule]bool)
	total := 0.0
	for _, rules := range s.incident {
		for _, gr := range rules {
			if seen[gr] {
				continue
			}
			seen[gr] = true
			total += gr.Weight() * gr.Incompatibility(s.arena)
		}
	}
	return total
}
