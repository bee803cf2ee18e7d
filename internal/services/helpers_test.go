package services

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/idempotency"
	"github.com/tbourn/agritrade-gateway/internal/querycache"
	"github.com/tbourn/agritrade-gateway/internal/repo"
	"github.com/tbourn/agritrade-gateway/internal/validate"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:services_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// ----- Fake upstream -----

type call struct {
	Method string
	Path   string
	ID     string
	Key    string
	Rec    validate.Record
}

type fakeUpstream struct {
	mu    sync.Mutex
	calls []call

	listBody   json.RawMessage
	getBody    json.RawMessage
	createBody json.RawMessage
	updateBody json.RawMessage

	listErr   error
	createErr error
	updateErr error
	deleteErr error

	// When set, mutations signal started and wait for release.
	started chan struct{}
	release chan struct{}
}

func (f *fakeUpstream) record(c call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeUpstream) wait() {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
}

func (f *fakeUpstream) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeUpstream) List(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	f.record(call{Method: "GET", Path: path + "?" + q.Encode()})
	return f.listBody, f.listErr
}

func (f *fakeUpstream) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	f.record(call{Method: "GET", Path: collection, ID: id})
	return f.getBody, nil
}

func (f *fakeUpstream) Create(ctx context.Context, collection string, rec validate.Record, key string) (json.RawMessage, error) {
	f.record(call{Method: "POST", Path: collection, Key: key, Rec: rec})
	f.wait()
	return f.createBody, f.createErr
}

func (f *fakeUpstream) Update(ctx context.Context, collection, id string, rec validate.Record, key string) (json.RawMessage, error) {
	f.record(call{Method: "PUT", Path: collection, ID: id, Key: key, Rec: rec})
	f.wait()
	return f.updateBody, f.updateErr
}

func (f *fakeUpstream) Delete(ctx context.Context, collection, id, key string) error {
	f.record(call{Method: "DELETE", Path: collection, ID: id, Key: key})
	f.wait()
	return f.deleteErr
}

type fixture struct {
	db    *gorm.DB
	up    *fakeUpstream
	cache *querycache.Cache
	sub   *Submitter
	res   *ResourceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	up := &fakeUpstream{createBody: json.RawMessage(`{"id": 17}`)}
	cache := querycache.New(0)
	sub := NewSubmitter(db, idempotency.NewRegistry(idempotency.NewMemoryStore(0), 0), cache)
	return &fixture{db: db, up: up, cache: cache, sub: sub, res: NewResourceService(up, cache, sub)}
}

func validPurchase() map[string]any {
	return map[string]any{
		"crop_id":       1,
		"supplier_id":   "1",
		"quantity_kg":   500,
		"unit_price":    10,
		"purchase_date": "2024-01-01",
		"amount_paid":   0,
	}
}

func purchases(t *testing.T) domain.Resource {
	t.Helper()
	r, ok := domain.LookupResource(domain.Purchases)
	if !ok {
		t.Fatalf("purchases resource missing")
	}
	return r
}
