// Package groundrulestore holds the ground rules produced by one grounding round.
package groundrulestore

import (
	"sync"

	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/model/rule"
)

// Store collects ground rules.
type Store interface {
	// Add stores a ground rule. Adding the same rule twice is a no-op.
	Add(gr rule.GroundRule)

	// GroundRules returns every rule in insertion order.
	GroundRules() []rule.GroundRule

	// ConstraintRules returns the unweighted rules in insertion order.
	ConstraintRules() []rule.GroundRule

	// Size returns the number of stored rules.
	Size() int
}

// AtomRegisterStore additionally indexes rules by the atoms they mention.
type AtomRegisterStore interface {
	Store

	// RegisteredGroundRules returns every rule incident on h in insertion order.
	RegisteredGroundRules(h atom.Handle) []rule.GroundRule
}

// Memory is a Store without an atom index.
type Memory struct {
	mu    sync.RWMutex
	rules []rule.GroundRule
	seen  map[rule.GroundRule]struct{}
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{seen: make(map[rule.GroundRule]struct{})}
}

// Add implements Store.
func (s *Memory) Add(gr rule.GroundRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(gr)
}

func (s *Memory) add(gr rule.GroundRule) bool {
	if _, ok := s.seen[gr]; ok {
		return false
	}
	s.seen[gr] = struct{}{}
	s.rules = append(s.rules, gr)
	return true
}

// GroundRules implements Store.
func (s *Memory) GroundRules() []rule.GroundRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]rule.GroundRule(nil), s.rules...)
}

// ConstraintRules implements Store.
func (s *Memory) ConstraintRules() []rule.GroundRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []rule.GroundRule
	for _, gr := range s.rules {
		if gr.Kind().Constraint() {
			out = append(out, gr)
		}
	}
	return out
}

// Size implements Store.
func (s *Memory) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// AtomRegister is a Store that keeps a reverse index from atoms to rules.
type AtomRegister struct {
	Memory
	byAtom map[atom.Handle][]rule.GroundRule
}

var _ AtomRegisterStore = (*AtomRegister)(nil)

// NewAtomRegister creates an empty AtomRegister store.
func NewAtomRegister() *AtomRegister {
	return &AtomRegister{
		Memory: Memory{seen: make(map[rule.GroundRule]struct{})},
		byAtom: make(map[atom.Handle][]rule.GroundRule),
	}
}

// Add implements Store and registers gr with each distinct atom it mentions.
func (s *AtomRegister) Add(gr rule.GroundRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.add(gr) {
		return
	}
	registered := make(map[atom.Handle]bool)
	for _, h := range gr.Atoms() {
		if registered[h] {
			continue
		}
		registered[h] = true
		s.byAtom[h] = append(s.byAtom[h], gr)
	}
}

// RegisteredGroundRules implements AtomRegisterStore.
func (s *AtomRegister) RegisteredGroundRules(h atom.Handle) []rule.GroundRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]rule.GroundRule(nil), s.byAtom[h]...)
}
