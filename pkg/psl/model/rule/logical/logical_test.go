package logical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/psl/pkg/psl/atommanager"
	"github.com/cognicore/psl/pkg/psl/database/memdb"
	"github.com/cognicore/psl/pkg/psl/groundrulestore"
	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/model/formula"
	"github.com/cognicore/psl/pkg/psl/model/predicate"
	"github.com/cognicore/psl/pkg/psl/model/rule"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

type world struct {
	db      *memdb.DB
	friends predicate.Predicate
	votes   predicate.Predicate
	knows   predicate.Predicate
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{db: memdb.New()}
	var err error
	w.friends, err = predicate.New("Friends", 2)
	require.NoError(t, err)
	w.votes, err = predicate.New("Votes", 2)
	require.NoError(t, err)
	w.knows, err = predicate.New("Knows", 2)
	require.NoError(t, err)

	require.NoError(t, w.db.RegisterPredicate(w.friends, true))
	require.NoError(t, w.db.RegisterPredicate(w.votes, false))
	require.NoError(t, w.db.RegisterPredicate(w.knows, true))

	_, err = w.db.Observe(w.friends, 1, "alice", "bob")
	require.NoError(t, err)
	_, err = w.db.Observe(w.friends, 0, "bob", "carol")
	require.NoError(t, err)
	_, err = w.db.Observe(w.knows, 1, "alice", "bob")
	require.NoError(t, err)
	_, err = w.db.AddTarget(w.votes, "alice", "dem")
	require.NoError(t, err)
	_, err = w.db.AddTarget(w.votes, "bob", "dem")
	require.NoError(t, err)
	return w
}

func (w *world) atom(p predicate.Predicate, args ...string) formula.Atom {
	terms := make([]term.Term, len(args))
	for i, a := range args {
		terms[i] = term.Parse(a)
	}
	return formula.Atom{Predicate: p, Args: terms}
}

// friendsVoteAlike is Friends(A, B) & Votes(A, P) >> Votes(B, P).
func (w *world) friendsVoteAlike() formula.Formula {
	return formula.Implication{
		Body: formula.Conjunction{w.atom(w.friends, "A", "B"), w.atom(w.votes, "A", "P")},
		Head: w.atom(w.votes, "B", "P"),
	}
}

func (w *world) handle(t *testing.T, p predicate.Predicate, args ...term.Constant) atom.Handle {
	t.Helper()
	h, ok := w.db.Atoms().Lookup(p, args)
	require.True(t, ok)
	return h
}

func TestNewUnweighted(t *testing.T) {
	w := newWorld(t)
	f := w.friendsVoteAlike()

	r, err := NewUnweighted(f)
	require.NoError(t, err)
	assert.False(t, r.IsWeighted())
	assert.Equal(t, "(Friends(A, B) & Votes(A, P)) >> Votes(B, P) .", r.Name())
	assert.Equal(t, r.Name(), r.String())
	assert.True(t, formula.Equal(f, r.Formula()))

	named, err := NewUnweightedNamed(f, "alike")
	require.NoError(t, err)
	assert.Equal(t, "alike", named.Name())
}

func TestNewRule_Rejects(t *testing.T) {
	w := newWorld(t)
	tests := map[string]formula.Formula{
		"nil formula":     nil,
		"not a clause":    formula.Conjunction{w.atom(w.votes, "A", "P"), w.atom(w.votes, "B", "P")},
		"no body literal": w.atom(w.votes, "alice", "dem"),
		"head-only variable": formula.Implication{
			Body: w.atom(w.votes, "A", "P"),
			Head: w.atom(w.votes, "B", "P"),
		},
	}
	for name, f := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewUnweighted(f)
			assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
			_, err = NewWeighted(f, "", 1, false)
			assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
		})
	}

	_, err := NewWeighted(w.friendsVoteAlike(), "", -0.5, false)
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestEqual(t *testing.T) {
	w := newWorld(t)
	a, err := NewUnweighted(w.friendsVoteAlike())
	require.NoError(t, err)
	b, err := NewUnweightedNamed(w.friendsVoteAlike(), "other name")
	require.NoError(t, err)
	soft, err := NewWeighted(w.friendsVoteAlike(), "", 1, false)
	require.NoError(t, err)
	different, err := NewUnweighted(formula.Implication{
		Body: w.atom(w.friends, "A", "B"),
		Head: w.atom(w.knows, "A", "B"),
	})
	require.NoError(t, err)

	assert.True(t, a.Equal(a))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(soft))
	assert.False(t, soft.Equal(a))
	assert.False(t, a.Equal(different))
	assert.False(t, a.Equal(nil))
	assert.True(t, soft.Equal(soft))
}

func TestGroundFormulaInstance(t *testing.T) {
	w := newWorld(t)
	r, err := NewUnweighted(w.friendsVoteAlike())
	require.NoError(t, err)

	gr := r.GroundFormulaInstance([]atom.Handle{3}, []atom.Handle{0, 1}, 2)
	ground, ok := gr.(*UnweightedGround)
	require.True(t, ok)
	assert.Same(t, r, ground.Rule())
	assert.Equal(t, rule.KindLogical, ground.Kind())
	assert.Equal(t, []atom.Handle{3, 0, 1}, ground.Atoms())
	assert.Equal(t, 2, ground.RandomVariableCount())
}

func TestWeighted_GroundAll(t *testing.T) {
	w := newWorld(t)
	r, err := NewWeighted(w.friendsVoteAlike(), "alike", 2, true)
	require.NoError(t, err)
	assert.Equal(t, "2: (Friends(A, B) & Votes(A, P)) >> Votes(B, P) ^2", r.String())

	store := groundrulestore.NewAtomRegister()
	n, err := r.GroundAll(context.Background(), atommanager.NewSimple(w.db), store)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	gr, ok := store.GroundRules()[0].(*WeightedGround)
	require.True(t, ok)
	assert.Equal(t, rule.KindWeighted, gr.Kind())
	assert.Equal(t, 2.0, gr.Weight())
	assert.Equal(t, 2, gr.RandomVariableCount())

	aliceDem := w.handle(t, w.votes, "alice", "dem")
	bobDem := w.handle(t, w.votes, "bob", "dem")
	friends := w.handle(t, w.friends, "alice", "bob")
	assert.Equal(t, []atom.Handle{bobDem, friends, aliceDem}, gr.Atoms())

	arena := w.db.Atoms()
	assert.Equal(t, 0.0, gr.Incompatibility(arena))
	require.NoError(t, arena.SetValue(aliceDem, 1))
	assert.Equal(t, 1.0, gr.Incompatibility(arena))
	require.NoError(t, arena.SetValue(bobDem, 0.5))
	assert.Equal(t, 0.25, gr.Incompatibility(arena))
}

func TestUnweighted_GroundAll(t *testing.T) {
	w := newWorld(t)
	r, err := NewUnweighted(w.friendsVoteAlike())
	require.NoError(t, err)

	store := groundrulestore.NewAtomRegister()
	n, err := r.GroundAll(context.Background(), atommanager.NewSimple(w.db), store)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	gr, ok := store.ConstraintRules()[0].(*UnweightedGround)
	require.True(t, ok)
	arena := w.db.Atoms()
	require.NoError(t, arena.SetValue(w.handle(t, w.votes, "alice", "dem"), 1))
	assert.Equal(t, 1.0, gr.Infeasibility(arena))
}

func TestGroundAll_SkipsTriviallySatisfied(t *testing.T) {
	w := newWorld(t)
	// Knows(alice, bob) is observed true, so the only grounding is already satisfied.
	r, err := NewUnweighted(formula.Implication{
		Body: w.atom(w.friends, "A", "B"),
		Head: w.atom(w.knows, "A", "B"),
	})
	require.NoError(t, err)

	store := groundrulestore.NewMemory()
	n, err := r.GroundAll(context.Background(), atommanager.NewSimple(w.db), store)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, store.Size())
}

func TestGroundAll_Canceled(t *testing.T) {
	w := newWorld(t)
	r, err := NewUnweighted(w.friendsVoteAlike())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.GroundAll(ctx, atommanager.NewSimple(w.db), groundrulestore.NewMemory())
	assert.ErrorIs(t, err, context.Canceled)
}
