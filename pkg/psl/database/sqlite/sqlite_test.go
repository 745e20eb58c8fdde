package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/model/formula"
	"github.com/cognicore/psl/pkg/psl/model/predicate"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

var (
	friends = predicate.Predicate{Name: "Friends", Arity: 2}
	votes   = predicate.Predicate{Name: "Votes", Arity: 2}
)

func openTestDB(t *testing.T, path string) *DB {
	t.Helper()
	db, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return db
}

// TestSchemaCreationIdempotent tests that running initSchema multiple times is safe
func TestSchemaCreationIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open database: %v", err)
	}
	defer db.Close()

	for i := 0; i < 3; i++ {
		if err := initSchema(ctx, db); err != nil {
			t.Fatalf("initSchema iteration %d: %v", i, err)
		}
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&count)
	if err != nil {
		t.Fatalf("Count tables: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 tables (predicates, atoms), got %d", count)
	}
}

func TestPredicatesPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "psl.db")

	db := openTestDB(t, path)
	if err := db.RegisterPredicate(ctx, friends, true); err != nil {
		t.Fatalf("RegisterPredicate: %v", err)
	}
	if err := db.RegisterPredicate(ctx, friends, true); err != nil {
		t.Fatalf("re-registering the same predicate should succeed: %v", err)
	}
	if err := db.RegisterPredicate(ctx, friends, false); !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("conflicting registration: err = %v, want ErrDuplicate", err)
	}
	db.Close()

	db = openTestDB(t, path)
	defer db.Close()
	if !db.IsClosed(friends) {
		t.Error("Friends should still be closed after reopening")
	}
	if _, err := db.GetAtom(ctx, predicate.Predicate{Name: "Friends", Arity: 3}, "a", "b", "c"); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("arity mismatch: err = %v, want ErrInvalidInput", err)
	}
}

func TestAtomsAndTuples(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "psl.db"))
	defer db.Close()

	if err := db.RegisterPredicate(ctx, friends, true); err != nil {
		t.Fatal(err)
	}
	if err := db.RegisterPredicate(ctx, votes, false); err != nil {
		t.Fatal(err)
	}

	if err := db.Observe(ctx, friends, 1, "alice", "bob"); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if err := db.Observe(ctx, friends, 0, "bob", "carol"); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if err := db.Observe(ctx, friends, 2, "x", "y"); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("out of range observation: err = %v", err)
	}
	if err := db.AddTarget(ctx, friends, "a", "b"); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("target of closed predicate: err = %v", err)
	}
	if err := db.AddTarget(ctx, votes, "alice", "dem"); err != nil {
		t.Fatalf("AddTarget: %v", err)
	}
	if err := db.AddTarget(ctx, votes, "alice"); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("short target: err = %v", err)
	}

	tuples, err := db.Tuples(ctx, friends)
	if err != nil {
		t.Fatalf("Tuples: %v", err)
	}
	if len(tuples) != 1 || tuples[0][0] != "alice" || tuples[0][1] != "bob" {
		t.Errorf("Friends tuples = %v, want only (alice, bob)", tuples)
	}

	h, err := db.GetAtom(ctx, friends, "alice", "bob")
	if err != nil {
		t.Fatalf("GetAtom: %v", err)
	}
	if db.Atoms().Kind(h) != atom.Observed || db.Atoms().Value(h) != 1 {
		t.Errorf("Friends(alice, bob) = %+v", db.Atoms().Get(h))
	}
	again, err := db.GetAtom(ctx, friends, "alice", "bob")
	if err != nil || again != h {
		t.Errorf("GetAtom should return the cached handle, got %d, %v", again, err)
	}

	missing, err := db.GetAtom(ctx, votes, "zed", "rep")
	if err != nil {
		t.Fatalf("GetAtom missing: %v", err)
	}
	if !db.Atoms().IsRandomVariable(missing) || db.Atoms().Value(missing) != 0 {
		t.Errorf("missing open atom = %+v", db.Atoms().Get(missing))
	}
}

func TestGroundingQuery(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "psl.db"))
	defer db.Close()

	if err := db.RegisterPredicate(ctx, friends, true); err != nil {
		t.Fatal(err)
	}
	if err := db.RegisterPredicate(ctx, votes, false); err != nil {
		t.Fatal(err)
	}
	if err := db.Observe(ctx, friends, 1, "alice", "bob"); err != nil {
		t.Fatal(err)
	}
	for _, party := range []term.Constant{"dem", "rep"} {
		if err := db.AddTarget(ctx, votes, "alice", party); err != nil {
			t.Fatal(err)
		}
	}

	q := formula.Conjunction{
		formula.Atom{Predicate: friends, Args: []term.Term{term.Variable("A"), term.Variable("B")}},
		formula.Atom{Predicate: votes, Args: []term.Term{term.Variable("A"), term.Variable("P")}},
	}
	res, err := db.ExecuteGroundingQuery(ctx, q)
	if err != nil {
		t.Fatalf("ExecuteGroundingQuery: %v", err)
	}
	if res.Len() != 2 {
		t.Fatalf("rows = %v, want 2", res.Rows)
	}
	if b := res.Binding(1); b["A"] != "alice" || b["B"] != "bob" || b["P"] != "rep" {
		t.Errorf("second binding = %v", b)
	}
}

func TestCommitPersistsValues(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "psl.db")

	db := openTestDB(t, path)
	if err := db.RegisterPredicate(ctx, votes, false); err != nil {
		t.Fatal(err)
	}
	if err := db.AddTarget(ctx, votes, "alice", "dem"); err != nil {
		t.Fatal(err)
	}
	h, err := db.GetAtom(ctx, votes, "alice", "dem")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Atoms().SetValue(h, 0.6); err != nil {
		t.Fatal(err)
	}
	// Materialized atoms are not stored, so committing them is a no-op.
	unstored, err := db.GetAtom(ctx, votes, "bob", "dem")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Atoms().SetValue(unstored, 1); err != nil {
		t.Fatal(err)
	}
	if err := db.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	db.Close()

	db = openTestDB(t, path)
	defer db.Close()
	h, err = db.GetAtom(ctx, votes, "alice", "dem")
	if err != nil {
		t.Fatal(err)
	}
	if got := db.Atoms().Value(h); got != 0.6 {
		t.Errorf("value after reopen = %g, want 0.6", got)
	}
	tuples, err := db.Tuples(ctx, votes)
	if err != nil {
		t.Fatal(err)
	}
	if len(tuples) != 1 {
		t.Errorf("tuples = %v, want only the stored target", tuples)
	}
}

func TestObserveReplacesRow(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, filepath.Join(t.TempDir(), "psl.db"))
	defer db.Close()

	if err := db.RegisterPredicate(ctx, friends, true); err != nil {
		t.Fatal(err)
	}
	if err := db.Observe(ctx, friends, 0.2, "alice", "bob"); err != nil {
		t.Fatal(err)
	}
	if err := db.Observe(ctx, friends, 0.9, "alice", "bob"); err != nil {
		t.Fatalf("second Observe should replace the row: %v", err)
	}
	h, err := db.GetAtom(ctx, friends, "alice", "bob")
	if err != nil {
		t.Fatal(err)
	}
	if got := db.Atoms().Value(h); got != 0.9 {
		t.Errorf("value = %g, want 0.9", got)
	}
}
