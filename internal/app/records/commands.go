package records

import (
	"context"
	"strings"

	"github.com/latticeworks/substrate/internal/apperr"
	"github.com/latticeworks/substrate/internal/identity"
	"github.com/latticeworks/substrate/internal/layer"
	"github.com/latticeworks/substrate/internal/logging"
	"github.com/latticeworks/substrate/internal/outcome"
)

// Deps bundles everything a command may orchestrate.
type Deps struct {
	Repos    Repos
	Services Services
}

// Commands is the typed bundle of business operations for one request.
type Commands struct {
	Create layer.Op[CreateInput, *Record]
	Get    layer.Op[string, *Record]
	Update layer.Op[UpdateArgs, *Record]
	List   layer.Op[ListQuery, []Record]
	Delete layer.Op[string, struct{}]
}

// NewCommands binds every command to the request's dependency bundle.
func NewCommands(deps Deps, id identity.Identity, log *logging.Logger) Commands {
	return Commands{
		Create: layer.Command(deps, id, log, createRecord),
		Get:    layer.Command(deps, id, log, getRecordCmd),
		Update: layer.Command(deps, id, log, updateRecordCmd),
		List:   layer.Command(deps, id, log, listRecordsCmd),
		Delete: layer.Command(deps, id, log, deleteRecordCmd),
	}
}

// createRecord enforces name uniqueness, stores the record, and notifies
// the outside service. The first failure short-circuits the rest.
func createRecord(deps Deps, id identity.Identity, log *logging.Logger) layer.Op[CreateInput, *Record] {
	return func(ctx context.Context, in CreateInput) outcome.Outcome[*Record] {
		if issues := in.validate(); len(issues) > 0 {
			return outcome.Fail[*Record](
				apperr.Validation(strings.Join(issues, "; "), nil).WithData(in))
		}

		existing := deps.Repos.FindByName(ctx, in.Name)
		if !existing.IsOK() {
			return outcome.Fail[*Record](existing.Err())
		}
		if len(existing.Value()) > 0 {
			return outcome.Fail[*Record](apperr.Conflict("record name already in use"))
		}

		created := deps.Repos.Insert(ctx, Record{Name: strings.TrimSpace(in.Name), Tags: in.Tags})
		return outcome.Then(created, func(rec *Record) outcome.Outcome[*Record] {
			notified := deps.Services.NotifyCreated(ctx, Notification{
				Event:    "record.created",
				RecordID: rec.ID,
				Owner:    rec.Owner,
			})
			return outcome.MapValue(notified, func(struct{}) *Record { return rec })
		})
	}
}

// getRecordCmd resolves a record, treating absence as NotFound.
func getRecordCmd(deps Deps, id identity.Identity, log *logging.Logger) layer.Op[string, *Record] {
	return func(ctx context.Context, recordID string) outcome.Outcome[*Record] {
		if strings.TrimSpace(recordID) == "" {
			return outcome.Fail[*Record](apperr.Validation("record id is required", nil).WithData(recordID))
		}
		rec := outcome.UnwrapOr(deps.Repos.Get(ctx, recordID),
			apperr.NotFound("record "+recordID+" not found"))
		return outcome.OK(rec)
	}
}

// updateRecordCmd replaces the mutable fields of an existing record. The
// existence check short-circuits the write, and a rename back into a name
// another record holds is a conflict.
func updateRecordCmd(deps Deps, id identity.Identity, log *logging.Logger) layer.Op[UpdateArgs, *Record] {
	return func(ctx context.Context, args UpdateArgs) outcome.Outcome[*Record] {
		if strings.TrimSpace(args.ID) == "" {
			return outcome.Fail[*Record](apperr.Validation("record id is required", nil).WithData(args))
		}
		if issues := args.Input.validate(); len(issues) > 0 {
			return outcome.Fail[*Record](
				apperr.Validation(strings.Join(issues, "; "), nil).WithData(args))
		}

		existing := outcome.UnwrapOr(deps.Repos.Get(ctx, args.ID),
			apperr.NotFound("record "+args.ID+" not found"))

		name := strings.TrimSpace(args.Input.Name)
		if name != existing.Name {
			matches := deps.Repos.FindByName(ctx, name).Unwrap()
			if len(matches) > 0 {
				return outcome.Fail[*Record](apperr.Conflict("record name already in use"))
			}
		}

		existing.Name = name
		existing.Tags = args.Input.Tags
		return deps.Repos.Update(ctx, *existing)
	}
}

func listRecordsCmd(deps Deps, id identity.Identity, log *logging.Logger) layer.Op[ListQuery, []Record] {
	return func(ctx context.Context, q ListQuery) outcome.Outcome[[]Record] {
		return deps.Repos.List(ctx, q)
	}
}

// deleteRecordCmd verifies existence before deleting; a failed lookup
// short-circuits the delete.
func deleteRecordCmd(deps Deps, id identity.Identity, log *logging.Logger) layer.Op[string, struct{}] {
	return func(ctx context.Context, recordID string) outcome.Outcome[struct{}] {
		if strings.TrimSpace(recordID) == "" {
			return outcome.Fail[struct{}](apperr.Validation("record id is required", nil).WithData(recordID))
		}
		outcome.UnwrapOr(deps.Repos.Get(ctx, recordID),
			apperr.NotFound("record "+recordID+" not found"))
		return deps.Repos.Delete(ctx, recordID)
	}
}
