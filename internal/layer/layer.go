// Package layer binds dependency-injected repository, service, and
// command functions into outcome-returning operations. Repository and
// service bindings run their raw call through the retry adapter; command
// bindings are pure dependency injection and never re-run retry logic.
package layer

import (
	"context"

	"github.com/latticeworks/substrate/internal/identity"
	"github.com/latticeworks/substrate/internal/logging"
	"github.com/latticeworks/substrate/internal/outcome"
	"github.com/latticeworks/substrate/internal/retry"
	"github.com/latticeworks/substrate/internal/store"
)

// Op is a bound, outcome-returning operation.
type Op[A, R any] func(ctx context.Context, args A) outcome.Outcome[R]

// RepoFunc is the raw shape of a repository function: given the store
// handle, caller identity, and request logger, it yields the raw
// operation. The raw operation may fail with the store transport's raw
// failure shape.
type RepoFunc[A, R any] func(s *store.Client, id identity.Identity, log *logging.Logger) func(ctx context.Context, args A) (R, error)

// ServiceFunc is the raw shape of an outside-service function. Identical
// to RepoFunc but without a store dependency.
type ServiceFunc[A, R any] func(id identity.Identity, log *logging.Logger) func(ctx context.Context, args A) (R, error)

// CommandFunc is the raw shape of a command: its inner operation already
// returns an outcome because it composes repository and service outcomes.
// D is the typed dependency bundle the command orchestrates.
type CommandFunc[D, A, R any] func(deps D, id identity.Identity, log *logging.Logger) Op[A, R]

// Repository binds a repository function to this request's store handle,
// identity, and logger, and runs it under the store retry adapter.
func Repository[A, R any](pol retry.Policy, s *store.Client, id identity.Identity, log *logging.Logger, opName string, fn RepoFunc[A, R]) Op[A, R] {
	raw := fn(s, id, log)
	return func(ctx context.Context, args A) outcome.Outcome[R] {
		return retry.DoStore(ctx, pol, log, opName, args, func(ctx context.Context) (R, error) {
			return raw(ctx, args)
		})
	}
}

// Service binds an outside-service function under the service retry
// adapter.
func Service[A, R any](pol retry.Policy, id identity.Identity, log *logging.Logger, opName string, fn ServiceFunc[A, R]) Op[A, R] {
	raw := fn(id, log)
	return func(ctx context.Context, args A) outcome.Outcome[R] {
		return retry.DoService(ctx, pol, log, opName, args, func(ctx context.Context) (R, error) {
			return raw(ctx, args)
		})
	}
}

// Command binds a command to its dependency bundle. The inner operation
// runs under outcome.Catch so a command body may use Unwrap/UnwrapOr for
// early exit; the first failure short-circuits the remaining steps.
func Command[D, A, R any](deps D, id identity.Identity, log *logging.Logger, fn CommandFunc[D, A, R]) Op[A, R] {
	bound := fn(deps, id, log)
	return func(ctx context.Context, args A) outcome.Outcome[R] {
		return outcome.Catch(func() outcome.Outcome[R] {
			return bound(ctx, args)
		})
	}
}
