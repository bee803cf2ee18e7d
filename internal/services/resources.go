package services

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/idempotency"
	"github.com/tbourn/agritrade-gateway/internal/querycache"
	"github.com/tbourn/agritrade-gateway/internal/validate"
)

// Upstream is the slice of the upstream client ResourceService needs.
type Upstream interface {
	List(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Create(ctx context.Context, collection string, rec validate.Record, key string) (json.RawMessage, error)
	Update(ctx context.Context, collection, id string, rec validate.Record, key string) (json.RawMessage, error)
	Delete(ctx context.Context, collection, id, key string) error
}

// ResourceService serves cached reads and guarded writes for the resources
// in the domain table.
type ResourceService struct {
	Upstream  Upstream
	Cache     *querycache.Cache
	Submitter *Submitter
}

// NewResourceService wires a ResourceService.
func NewResourceService(up Upstream, cache *querycache.Cache, sub *Submitter) *ResourceService {
	return &ResourceService{Upstream: up, Cache: cache, Submitter: sub}
}

func resolve(name string) (domain.Resource, error) {
	r, ok := domain.LookupResource(name)
	if !ok {
		return domain.Resource{}, ErrUnknownResource
	}
	return r, nil
}

// ParseID validates a path id as a positive integer.
func ParseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidID
	}
	return n, nil
}

// List returns the resource collection, read through the cache. Filters are
// forwarded as query parameters and are part of the cache key.
func (s *ResourceService) List(ctx context.Context, name string, filters map[string]string) (json.RawMessage, error) {
	ctx, span := otel.Tracer("services/ResourceService").Start(ctx, "List",
		trace.WithAttributes(attribute.String("resource", name)),
	)
	defer span.End()

	r, err := resolve(name)
	if err != nil {
		return nil, err
	}
	key := querycache.FilteredListKey(r.Name, filters)
	q := url.Values{}
	for k, v := range filters {
		q.Set(k, v)
	}
	v, err := s.Cache.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return s.Upstream.List(ctx, r.Path, q)
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// Get returns one record, read through the cache.
func (s *ResourceService) Get(ctx context.Context, name, id string) (json.RawMessage, error) {
	ctx, span := otel.Tracer("services/ResourceService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("resource", name), attribute.String("id", id)),
	)
	defer span.End()

	r, err := resolve(name)
	if err != nil {
		return nil, err
	}
	if r.Singleton {
		return nil, ErrNoDetail
	}
	if _, err := ParseID(id); err != nil {
		return nil, err
	}
	v, err := s.Cache.Fetch(ctx, querycache.DetailKey(r.Name, id), func(ctx context.Context) (any, error) {
		return s.Upstream.Get(ctx, r.Path, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// Create submits raw as a new record through the orchestrator.
func (s *ResourceService) Create(ctx context.Context, form, name string, raw any, tok idempotency.Token) (*Outcome, error) {
	r, err := resolve(name)
	if err != nil {
		return nil, err
	}
	return s.Submitter.Submit(ctx, Submission{
		FormID:    form,
		Resource:  r,
		Operation: domain.OpCreate,
		Raw:       raw,
		Token:     tok,
		Send: func(ctx context.Context, rec validate.Record, tok idempotency.Token) (json.RawMessage, error) {
			return s.Upstream.Create(ctx, r.Path, rec, tok.String())
		},
	})
}

// Update submits raw as a replacement for record id. The cached detail view
// shows the speculative record while the call runs and is restored if it
// fails.
func (s *ResourceService) Update(ctx context.Context, form, name, id string, raw any, tok idempotency.Token) (*Outcome, error) {
	r, err := resolve(name)
	if err != nil {
		return nil, err
	}
	n, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.Submitter.Submit(ctx, Submission{
		FormID:    form,
		Resource:  r,
		Operation: domain.OpUpdate,
		Raw:       raw,
		Token:     tok,
		Send: func(ctx context.Context, rec validate.Record, tok idempotency.Token) (json.RawMessage, error) {
			v, err := s.Cache.Optimistic(ctx, querycache.Mutation{
				Keys: []querycache.Key{querycache.DetailKey(r.Name, id)},
				Update: func(querycache.Key, any, bool) (any, bool) {
					b, err := speculative(rec, n)
					return b, err == nil
				},
				Run: func(ctx context.Context) (any, error) {
					return s.Upstream.Update(ctx, r.Path, id, rec, tok.String())
				},
				Settle: rootKeys(r),
			})
			body, _ := v.(json.RawMessage)
			return body, err
		},
	})
}

// Delete removes record id under the form's guard. The record disappears
// from the cached list and detail views immediately and reappears if the
// call fails.
func (s *ResourceService) Delete(ctx context.Context, form, name, id string, tok idempotency.Token) (*Outcome, error) {
	r, err := resolve(name)
	if err != nil {
		return nil, err
	}
	n, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	listKey := querycache.ListKey(r.Name)
	return s.Submitter.Guarded(ctx, Submission{
		FormID:    form,
		Resource:  r,
		Operation: domain.OpDelete,
		Token:     tok,
		Send: func(ctx context.Context, _ validate.Record, tok idempotency.Token) (json.RawMessage, error) {
			_, err := s.Cache.Optimistic(ctx, querycache.Mutation{
				Keys: []querycache.Key{listKey, querycache.DetailKey(r.Name, id)},
				Update: func(k querycache.Key, cur any, ok bool) (any, bool) {
					if !ok || k.String() != listKey.String() {
						return nil, false
					}
					list, _ := cur.(json.RawMessage)
					next, err := withoutItem(list, n)
					return next, err == nil
				},
				Run: func(ctx context.Context) (any, error) {
					return nil, s.Upstream.Delete(ctx, r.Path, id, tok.String())
				},
				Settle: rootKeys(r),
			})
			return nil, err
		},
	})
}

func rootKeys(r domain.Resource) []querycache.Key {
	roots := r.InvalidationRoots()
	keys := make([]querycache.Key, 0, len(roots))
	for _, root := range roots {
		keys = append(keys, querycache.RootKey(root))
	}
	return keys
}

// speculative renders rec as the cached detail body for id.
func speculative(rec validate.Record, id int64) (json.RawMessage, error) {
	view := rec.Clone()
	view["id"] = id
	return json.Marshal(view)
}

// withoutItem drops the element whose "id" equals id from a JSON array.
func withoutItem(list json.RawMessage, id int64) (json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, err
	}
	kept := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		var head struct {
			ID json.Number `json:"id"`
		}
		if json.Unmarshal(it, &head) == nil {
			if n, err := head.ID.Int64(); err == nil && n == id {
				continue
			}
		}
		kept = append(kept, it)
	}
	return json.Marshal(kept)
}
