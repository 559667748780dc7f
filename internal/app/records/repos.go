package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/google/uuid"

	"github.com/latticeworks/substrate/internal/identity"
	"github.com/latticeworks/substrate/internal/layer"
	"github.com/latticeworks/substrate/internal/logging"
	"github.com/latticeworks/substrate/internal/retry"
	"github.com/latticeworks/substrate/internal/store"
)

const collection = "records"

// Repos is the typed bundle of repository operations, bound to one
// request's store handle, identity, and logger.
type Repos struct {
	Get        layer.Op[string, *Record]
	Insert     layer.Op[Record, *Record]
	Update     layer.Op[Record, *Record]
	Delete     layer.Op[string, struct{}]
	List       layer.Op[ListQuery, []Record]
	FindByName layer.Op[string, []Record]
}

// NewRepos binds every repository function for one request.
func NewRepos(pol retry.Policy, s *store.Client, id identity.Identity, log *logging.Logger) Repos {
	return Repos{
		Get:        layer.Repository(pol, s, id, log, "records.get", getRecord),
		Insert:     layer.Repository(pol, s, id, log, "records.insert", insertRecord),
		Update:     layer.Repository(pol, s, id, log, "records.update", updateRecord),
		Delete:     layer.Repository(pol, s, id, log, "records.delete", deleteRecord),
		List:       layer.Repository(pol, s, id, log, "records.list", listRecords),
		FindByName: layer.Repository(pol, s, id, log, "records.find_by_name", findByName),
	}
}

// getRecord fetches a record by id. An absent record is a successful nil
// result; commands decide whether absence is an error.
func getRecord(s *store.Client, id identity.Identity, log *logging.Logger) func(context.Context, string) (*Record, error) {
	return func(ctx context.Context, recordID string) (*Record, error) {
		body, err := s.Get(ctx, collection, recordID)
		if err != nil {
			var reqErr *store.RequestError
			if errors.As(err, &reqErr) && reqErr.Status == http.StatusNotFound {
				return nil, nil
			}
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		return &rec, nil
	}
}

// insertRecord stores a new record, stamping id, owner, and creation time.
func insertRecord(s *store.Client, id identity.Identity, log *logging.Logger) func(context.Context, Record) (*Record, error) {
	return func(ctx context.Context, rec Record) (*Record, error) {
		rec.ID = uuid.NewString()
		rec.Owner = id.UserID
		rec.CreatedAt = time.Now().UTC()

		body, err := s.Insert(ctx, collection, rec)
		if err != nil {
			return nil, err
		}
		var stored Record
		if err := json.Unmarshal(body, &stored); err != nil {
			return nil, fmt.Errorf("decode stored record: %w", err)
		}
		return &stored, nil
	}
}

// updateRecord replaces a stored record wholesale; the command layer owns
// the merge of caller-supplied fields into the existing document.
func updateRecord(s *store.Client, id identity.Identity, log *logging.Logger) func(context.Context, Record) (*Record, error) {
	return func(ctx context.Context, rec Record) (*Record, error) {
		body, err := s.Update(ctx, collection, rec.ID, rec)
		if err != nil {
			return nil, err
		}
		var stored Record
		if err := json.Unmarshal(body, &stored); err != nil {
			return nil, fmt.Errorf("decode stored record: %w", err)
		}
		return &stored, nil
	}
}

func deleteRecord(s *store.Client, id identity.Identity, log *logging.Logger) func(context.Context, string) (struct{}, error) {
	return func(ctx context.Context, recordID string) (struct{}, error) {
		return struct{}{}, s.Delete(ctx, collection, recordID)
	}
}

func listRecords(s *store.Client, id identity.Identity, log *logging.Logger) func(context.Context, ListQuery) ([]Record, error) {
	return func(ctx context.Context, q ListQuery) ([]Record, error) {
		query := neturl.Values{}
		if q.Owner != "" {
			query.Set("owner", q.Owner)
		}
		body, err := s.List(ctx, collection, query)
		if err != nil {
			return nil, err
		}
		var recs []Record
		if err := json.Unmarshal(body, &recs); err != nil {
			return nil, fmt.Errorf("decode record list: %w", err)
		}
		return recs, nil
	}
}

func findByName(s *store.Client, id identity.Identity, log *logging.Logger) func(context.Context, string) ([]Record, error) {
	return func(ctx context.Context, name string) ([]Record, error) {
		query := neturl.Values{}
		query.Set("name", name)
		body, err := s.List(ctx, collection, query)
		if err != nil {
			return nil, err
		}
		var recs []Record
		if err := json.Unmarshal(body, &recs); err != nil {
			return nil, fmt.Errorf("decode record list: %w", err)
		}
		return recs, nil
	}
}
