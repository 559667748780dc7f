package records

import (
	"context"
	"testing"

	"github.com/latticeworks/substrate/internal/apperr"
	"github.com/latticeworks/substrate/internal/identity"
	"github.com/latticeworks/substrate/internal/layer"
	"github.com/latticeworks/substrate/internal/logging"
	"github.com/latticeworks/substrate/internal/outcome"
)

// okOp returns a bound operation that always succeeds with v.
func okOp[A, R any](v R) layer.Op[A, R] {
	return func(context.Context, A) outcome.Outcome[R] { return outcome.OK(v) }
}

// failOp returns a bound operation that always fails with err.
func failOp[A, R any](err *apperr.Error) layer.Op[A, R] {
	return func(context.Context, A) outcome.Outcome[R] { return outcome.Fail[R](err) }
}

func testCommands(deps Deps) Commands {
	return NewCommands(deps, identity.Identity{UserID: "u1", Role: "admin"}, logging.NewNop())
}

func TestCreate_ValidationFailure(t *testing.T) {
	cmds := testCommands(Deps{})

	in := CreateInput{Name: ""}
	oc := cmds.Create(context.Background(), in)

	if oc.IsOK() {
		t.Fatal("expected failure for empty name")
	}
	if oc.Err().Kind != apperr.KindValidation {
		t.Errorf("kind = %s, want validation", oc.Err().Kind)
	}
	if got, ok := oc.Err().Data.(CreateInput); !ok || got.Name != in.Name {
		t.Errorf("Data = %#v, want the failed input", oc.Err().Data)
	}
}

func TestCreate_NameConflict(t *testing.T) {
	insertCalled := false
	deps := Deps{
		Repos: Repos{
			FindByName: okOp[string]([]Record{{ID: "existing"}}),
			Insert: func(context.Context, Record) outcome.Outcome[*Record] {
				insertCalled = true
				return outcome.OK(&Record{})
			},
		},
	}

	oc := testCommands(deps).Create(context.Background(), CreateInput{Name: "dup"})

	if oc.IsOK() || oc.Err().Kind != apperr.KindConflict {
		t.Fatalf("outcome = %+v, want conflict failure", oc)
	}
	if insertCalled {
		t.Error("Insert ran after the uniqueness check failed")
	}
}

func TestCreate_FirstFailureShortCircuits(t *testing.T) {
	insertCalled := false
	deps := Deps{
		Repos: Repos{
			FindByName: failOp[string, []Record](apperr.Unavailable("store unreachable", nil)),
			Insert: func(context.Context, Record) outcome.Outcome[*Record] {
				insertCalled = true
				return outcome.OK(&Record{})
			},
		},
	}

	oc := testCommands(deps).Create(context.Background(), CreateInput{Name: "fresh"})

	if oc.IsOK() || oc.Err().Kind != apperr.KindUnavailable {
		t.Fatalf("outcome = %+v, want the lookup failure", oc)
	}
	if insertCalled {
		t.Error("Insert ran after the lookup failed")
	}
}

func TestCreate_SuccessNotifies(t *testing.T) {
	var notified Notification
	stored := &Record{ID: "r1", Name: "fresh", Owner: "u1"}
	deps := Deps{
		Repos: Repos{
			FindByName: okOp[string]([]Record{}),
			Insert:     okOp[Record](stored),
		},
		Services: Services{
			NotifyCreated: func(_ context.Context, n Notification) outcome.Outcome[struct{}] {
				notified = n
				return outcome.OK(struct{}{})
			},
		},
	}

	oc := testCommands(deps).Create(context.Background(), CreateInput{Name: "  fresh  "})

	if !oc.IsOK() {
		t.Fatalf("Create failed: %v", oc.Err())
	}
	if oc.Value() != stored {
		t.Errorf("value = %+v, want the stored record", oc.Value())
	}
	if notified.Event != "record.created" || notified.RecordID != "r1" || notified.Owner != "u1" {
		t.Errorf("notification = %+v", notified)
	}
}

func TestCreate_NotifyFailurePropagates(t *testing.T) {
	deps := Deps{
		Repos: Repos{
			FindByName: okOp[string]([]Record{}),
			Insert:     okOp[Record](&Record{ID: "r1"}),
		},
		Services: Services{
			NotifyCreated: failOp[Notification, struct{}](apperr.Unavailable("notifier down", nil)),
		},
	}

	oc := testCommands(deps).Create(context.Background(), CreateInput{Name: "fresh"})

	if oc.IsOK() || oc.Err().Kind != apperr.KindUnavailable {
		t.Fatalf("outcome = %+v, want the notify failure", oc)
	}
}

func TestGet_AbsentIsNotFound(t *testing.T) {
	deps := Deps{Repos: Repos{Get: okOp[string]((*Record)(nil))}}

	oc := testCommands(deps).Get(context.Background(), "missing")

	if oc.IsOK() || oc.Err().Kind != apperr.KindNotFound {
		t.Fatalf("outcome = %+v, want not-found failure", oc)
	}
}

func TestGet_Present(t *testing.T) {
	rec := &Record{ID: "r1"}
	deps := Deps{Repos: Repos{Get: okOp[string](rec)}}

	oc := testCommands(deps).Get(context.Background(), "r1")

	if !oc.IsOK() || oc.Value() != rec {
		t.Fatalf("outcome = %+v, want the record", oc)
	}
}

func TestGet_LookupFailurePropagatesUnchanged(t *testing.T) {
	deps := Deps{Repos: Repos{
		Get: failOp[string, *Record](apperr.Unavailable("store unreachable", nil)),
	}}

	oc := testCommands(deps).Get(context.Background(), "r1")

	if oc.IsOK() || oc.Err().Kind != apperr.KindUnavailable {
		t.Fatalf("outcome = %+v, want the infrastructure failure, not not-found", oc)
	}
}

func TestGet_EmptyIDIsValidation(t *testing.T) {
	oc := testCommands(Deps{}).Get(context.Background(), "  ")

	if oc.IsOK() || oc.Err().Kind != apperr.KindValidation {
		t.Fatalf("outcome = %+v, want validation failure", oc)
	}
}

func TestUpdate_RenameConflict(t *testing.T) {
	updateCalled := false
	deps := Deps{
		Repos: Repos{
			Get:        okOp[string](&Record{ID: "r1", Name: "alpha"}),
			FindByName: okOp[string]([]Record{{ID: "r2", Name: "beta"}}),
			Update: func(context.Context, Record) outcome.Outcome[*Record] {
				updateCalled = true
				return outcome.OK(&Record{})
			},
		},
	}

	oc := testCommands(deps).Update(context.Background(), UpdateArgs{
		ID:    "r1",
		Input: CreateInput{Name: "beta"},
	})

	if oc.IsOK() || oc.Err().Kind != apperr.KindConflict {
		t.Fatalf("outcome = %+v, want conflict failure", oc)
	}
	if updateCalled {
		t.Error("Update ran after the uniqueness check failed")
	}
}

func TestUpdate_SameNameSkipsUniquenessCheck(t *testing.T) {
	findCalled := false
	deps := Deps{
		Repos: Repos{
			Get: okOp[string](&Record{ID: "r1", Name: "alpha"}),
			FindByName: func(context.Context, string) outcome.Outcome[[]Record] {
				findCalled = true
				return outcome.OK([]Record{})
			},
			Update: okOp[Record](&Record{ID: "r1", Name: "alpha", Tags: []string{"t"}}),
		},
	}

	oc := testCommands(deps).Update(context.Background(), UpdateArgs{
		ID:    "r1",
		Input: CreateInput{Name: "alpha", Tags: []string{"t"}},
	})

	if !oc.IsOK() {
		t.Fatalf("Update failed: %v", oc.Err())
	}
	if findCalled {
		t.Error("uniqueness probe ran for an unchanged name")
	}
}

func TestUpdate_AbsentIsNotFound(t *testing.T) {
	deps := Deps{Repos: Repos{Get: okOp[string]((*Record)(nil))}}

	oc := testCommands(deps).Update(context.Background(), UpdateArgs{
		ID:    "missing",
		Input: CreateInput{Name: "beta"},
	})

	if oc.IsOK() || oc.Err().Kind != apperr.KindNotFound {
		t.Fatalf("outcome = %+v, want not-found failure", oc)
	}
}

func TestUpdate_LookupFailurePropagatesUnchanged(t *testing.T) {
	deps := Deps{Repos: Repos{
		Get: failOp[string, *Record](apperr.Unavailable("store unreachable", nil)),
	}}

	oc := testCommands(deps).Update(context.Background(), UpdateArgs{
		ID:    "r1",
		Input: CreateInput{Name: "beta"},
	})

	if oc.IsOK() || oc.Err().Kind != apperr.KindUnavailable {
		t.Fatalf("outcome = %+v, want the infrastructure failure, not not-found", oc)
	}
}

func TestDelete_LookupFailurePropagatesUnchanged(t *testing.T) {
	deleteCalled := false
	deps := Deps{Repos: Repos{
		Get: failOp[string, *Record](apperr.Unavailable("store unreachable", nil)),
		Delete: func(context.Context, string) outcome.Outcome[struct{}] {
			deleteCalled = true
			return outcome.OK(struct{}{})
		},
	}}

	oc := testCommands(deps).Delete(context.Background(), "r1")

	if oc.IsOK() || oc.Err().Kind != apperr.KindUnavailable {
		t.Fatalf("outcome = %+v, want the infrastructure failure, not not-found", oc)
	}
	if deleteCalled {
		t.Error("Delete ran after the lookup failed")
	}
}

func TestDelete_LookupFailureShortCircuits(t *testing.T) {
	deleteCalled := false
	deps := Deps{
		Repos: Repos{
			Get: okOp[string]((*Record)(nil)),
			Delete: func(context.Context, string) outcome.Outcome[struct{}] {
				deleteCalled = true
				return outcome.OK(struct{}{})
			},
		},
	}

	oc := testCommands(deps).Delete(context.Background(), "missing")

	if oc.IsOK() || oc.Err().Kind != apperr.KindNotFound {
		t.Fatalf("outcome = %+v, want not-found failure", oc)
	}
	if deleteCalled {
		t.Error("Delete ran after the existence check failed")
	}
}

func TestDelete_Existing(t *testing.T) {
	deps := Deps{
		Repos: Repos{
			Get:    okOp[string](&Record{ID: "r1"}),
			Delete: okOp[string](struct{}{}),
		},
	}

	oc := testCommands(deps).Delete(context.Background(), "r1")

	if !oc.IsOK() {
		t.Fatalf("Delete failed: %v", oc.Err())
	}
}
