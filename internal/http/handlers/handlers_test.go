package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/agritrade-gateway/internal/apperr"
	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/http/middleware"
	"github.com/tbourn/agritrade-gateway/internal/idempotency"
	"github.com/tbourn/agritrade-gateway/internal/querycache"
	"github.com/tbourn/agritrade-gateway/internal/repo"
	"github.com/tbourn/agritrade-gateway/internal/services"
	"github.com/tbourn/agritrade-gateway/internal/validate"
)

// ----- Fakes -----

type fakeUpstream struct {
	mu      sync.Mutex
	creates int
	lastQ   url.Values

	listBody   json.RawMessage
	getBody    json.RawMessage
	createBody json.RawMessage
	createErr  error
	pingErr    error
}

func (f *fakeUpstream) List(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	f.mu.Lock()
	f.lastQ = q
	f.mu.Unlock()
	return f.listBody, nil
}

func (f *fakeUpstream) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	return f.getBody, nil
}

func (f *fakeUpstream) Create(ctx context.Context, collection string, rec validate.Record, key string) (json.RawMessage, error) {
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	return f.createBody, f.createErr
}

func (f *fakeUpstream) Update(ctx context.Context, collection, id string, rec validate.Record, key string) (json.RawMessage, error) {
	return json.RawMessage(`{"id": ` + id + `}`), nil
}

func (f *fakeUpstream) Delete(ctx context.Context, collection, id, key string) error { return nil }

func (f *fakeUpstream) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeUpstream) Creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

type fakeReference struct {
	ref       services.Reference
	err       error
	refreshes int
}

func (f *fakeReference) Get(ctx context.Context) (services.Reference, error) { return f.ref, f.err }

func (f *fakeReference) Refresh(ctx context.Context) (services.Reference, error) {
	f.refreshes++
	return f.ref, f.err
}

type fakeLookups struct {
	price   domain.LastPrice
	weather *domain.Weather
	gotCrop *int64
}

func (f *fakeLookups) LastPurchasePrice(ctx context.Context, cropID, supplierID *int64) domain.LastPrice {
	f.gotCrop = cropID
	return f.price
}

func (f *fakeLookups) Weather(ctx context.Context, lat, lon float64) *domain.Weather {
	return f.weather
}

// ----- Fixture -----

type server struct {
	r   *gin.Engine
	up  *fakeUpstream
	sub *services.Submitter
	ref *fakeReference
	lk  *fakeLookups
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:handlers_" + uuid.NewString() + "?mode=memory&cache=shared"
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

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	up := &fakeUpstream{createBody: json.RawMessage(`{"id": 17}`)}
	cache := querycache.New(0)
	sub := services.NewSubmitter(newTestDB(t), idempotency.NewRegistry(idempotency.NewMemoryStore(0), 0), cache)
	ref := &fakeReference{ref: services.Reference{Crops: []domain.Crop{{ID: 1, Name: "Wheat"}}}}
	lk := &fakeLookups{}

	h := New(Deps{
		Resources: services.NewResourceService(up, cache, sub),
		Forms:     sub,
		Reference: ref,
		Lookups:   &services.LookupService{Src: lk},
		Upstream:  up,
	})

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.IdempotencyValidator(nil))
	r.POST("/forms/:form/:resource", h.CreateRecord)
	r.PUT("/forms/:form/:resource/:id", h.UpdateRecord)
	r.GET("/forms/:form", h.FormState)
	r.DELETE("/forms/:form/token", h.CancelToken)
	r.GET("/forms/:form/submissions", h.ListSubmissions)
	r.POST("/validate/:resource", h.ValidateRecord)
	r.GET("/schemas", h.ListSchemas)
	r.GET("/schemas/:resource", h.GetSchema)
	r.GET("/resources", h.DescribeResources)
	r.GET("/resources/:resource", h.ListResource)
	r.GET("/resources/:resource/:id", h.GetResource)
	r.GET("/reference", h.GetReference)
	r.POST("/reference/refresh", h.RefreshReference)
	r.GET("/lookups/last-price", h.LastPrice)
	r.GET("/lookups/weather", h.Weather)
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)

	return &server{r: r, up: up, sub: sub, ref: ref, lk: lk}
}

func (s *server) do(method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

const purchaseBody = `{"crop_id":1,"supplier_id":"1","quantity_kg":500,"unit_price":10,"purchase_date":"2024-01-01","amount_paid":0}`

func decodeOutcome(t *testing.T, w *httptest.ResponseRecorder) services.Outcome {
	t.Helper()
	var out services.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v (%s)", err, w.Body.String())
	}
	return out
}

// ----- Submissions -----

func TestCreateRecord_SuccessThenConsumedToken(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/forms/purchase-new/purchases", purchaseBody, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	out := decodeOutcome(t, w)
	if out.Status != domain.StatusSucceeded || out.Token == "" || out.UpstreamID == nil || *out.UpstreamID != 17 {
		t.Fatalf("unexpected outcome %+v", out)
	}

	w = s.do(http.MethodPost, "/forms/purchase-new/purchases", purchaseBody,
		map[string]string{middleware.HeaderIdempotencyKey: out.Token})
	if w.Code != http.StatusConflict {
		t.Fatalf("re-presented token: status=%d body=%s", w.Code, w.Body.String())
	}
	if got := decodeOutcome(t, w); got.Status != domain.StatusTokenConsumed {
		t.Fatalf("status field = %q", got.Status)
	}
	if s.up.Creates() != 1 {
		t.Fatalf("consumed token reached upstream: %d creates", s.up.Creates())
	}
}

func TestCreateRecord_InvalidRecordCarriesFields(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/forms/f1/purchases", `{"crop_id":1}`, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	out := decodeOutcome(t, w)
	if out.Status != domain.StatusInvalid || len(out.Fields) == 0 || out.Token != "" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if s.up.Creates() != 0 {
		t.Fatalf("invalid record reached upstream")
	}
}

func TestCreateRecord_DuplicateIsSuccess(t *testing.T) {
	s := newServer(t)
	s.up.createErr = apperr.New(apperr.KindDuplicateRequest, "conflict")

	w := s.do(http.MethodPost, "/forms/f1/purchases", purchaseBody, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if out := decodeOutcome(t, w); out.Status != domain.StatusDuplicateRequest || out.Retained {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestCreateRecord_TransientRetainsTokenAndCancel(t *testing.T) {
	s := newServer(t)
	s.up.createErr = apperr.New(apperr.KindTransient, "timeout")

	w := s.do(http.MethodPost, "/forms/f1/purchases", purchaseBody, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	out := decodeOutcome(t, w)
	if out.Status != domain.StatusFailed || !out.Retained || out.Token == "" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	w = s.do(http.MethodGet, "/forms/f1", "", nil)
	var st services.FormState
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("json: %v", err)
	}
	if st.Phase != "failed" || st.Token != out.Token || st.ErrorKind != string(apperr.KindTransient) {
		t.Fatalf("unexpected state %+v", st)
	}

	w = s.do(http.MethodDelete, "/forms/f1/token", "", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("cancel status=%d", w.Code)
	}
	w = s.do(http.MethodGet, "/forms/f1", "", nil)
	var after services.FormState
	if err := json.Unmarshal(w.Body.Bytes(), &after); err != nil {
		t.Fatalf("json: %v", err)
	}
	if after.Phase != "idle" || after.Token != "" || after.ErrorKind != "" {
		t.Fatalf("state after cancel %+v", after)
	}
}

func TestCreateRecord_UnknownResourceAndBadToken(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/forms/f1/widgets", purchaseBody, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown resource status=%d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Code != ErrCodeNotFound || resp.RequestID == "" {
		t.Fatalf("unexpected body %+v", resp)
	}

	w = s.do(http.MethodPost, "/forms/f1/inventory", purchaseBody, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("read-only resource status=%d", w.Code)
	}

	w = s.do(http.MethodPost, "/forms/f1/purchases", purchaseBody,
		map[string]string{middleware.HeaderIdempotencyKey: "not a token!"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad key status=%d", w.Code)
	}
}

func TestUpdateRecord_OK(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPut, "/forms/f1/purchases/5", purchaseBody, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if out := decodeOutcome(t, w); out.Operation != domain.OpUpdate || out.Status != domain.StatusSucceeded {
		t.Fatalf("unexpected outcome %+v", out)
	}

	w = s.do(http.MethodPut, "/forms/f1/purchases/abc", purchaseBody, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad id status=%d", w.Code)
	}
}

func TestCreateRecord_BodyTooLarge(t *testing.T) {
	s := newServer(t)
	limited := gin.New()
	limited.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 8)
		c.Next()
	})
	limited.POST("/forms/:form/:resource", New(Deps{Resources: services.NewResourceService(s.up, querycache.New(0), s.sub)}).CreateRecord)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/forms/f1/purchases", strings.NewReader(purchaseBody))
	limited.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestListSubmissions_PaginationAndETag(t *testing.T) {
	s := newServer(t)
	if w := s.do(http.MethodPost, "/forms/f1/purchases", purchaseBody, nil); w.Code != http.StatusCreated {
		t.Fatalf("seed status=%d", w.Code)
	}

	w := s.do(http.MethodGet, "/forms/f1/submissions?page=1&page_size=10", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"submissions:f1:`) {
		t.Fatalf("etag = %q", etag)
	}
	var resp SubmissionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Pagination.Total < 1 || len(resp.Submissions) < 1 || resp.Submissions[0].FormID != "f1" {
		t.Fatalf("unexpected page %+v", resp)
	}

	w = s.do(http.MethodGet, "/forms/f1/submissions?page=1&page_size=10", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}

	if w := s.do(http.MethodPost, "/forms/f1/purchases", purchaseBody, nil); w.Code != http.StatusCreated {
		t.Fatalf("second submission status=%d", w.Code)
	}
	w = s.do(http.MethodGet, "/forms/f1/submissions?page=1&page_size=10", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusOK {
		t.Fatalf("a new audit row must invalidate the etag, got %d", w.Code)
	}
	if next := w.Header().Get("ETag"); next == etag || !strings.HasPrefix(next, `W/"submissions:f1:2:`) {
		t.Fatalf("etag after second submission = %q (was %q)", next, etag)
	}
}

// ----- Schemas -----

func TestValidateRecord(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/validate/purchases", purchaseBody, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp ValidationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !resp.Valid || len(resp.Record) == 0 || len(resp.Fields) != 0 {
		t.Fatalf("unexpected result %+v", resp)
	}

	w = s.do(http.MethodPost, "/validate/purchases", `{"crop_id":-1}`, nil)
	resp = ValidationResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusOK || resp.Valid || len(resp.Fields) == 0 {
		t.Fatalf("expected invalid dry-run, got %d %+v", w.Code, resp)
	}
	if s.up.Creates() != 0 {
		t.Fatalf("dry-run reached upstream")
	}

	if w := s.do(http.MethodPost, "/validate/widgets", purchaseBody, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown status=%d", w.Code)
	}
}

func TestSchemas(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/schemas", "", nil)
	var cat CatalogResponse
	if err := json.Unmarshal(w.Body.Bytes(), &cat); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusOK || len(cat.Schemas) != 6 {
		t.Fatalf("catalog: %d, %d schemas", w.Code, len(cat.Schemas))
	}

	if w := s.do(http.MethodGet, "/schemas/sales", "", nil); w.Code != http.StatusOK {
		t.Fatalf("by resource status=%d", w.Code)
	}
	if w := s.do(http.MethodGet, "/schemas/cash_receipt", "", nil); w.Code != http.StatusOK {
		t.Fatalf("by schema name status=%d", w.Code)
	}
	if w := s.do(http.MethodGet, "/schemas/dashboard", "", nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("read-only status=%d", w.Code)
	}
}

// ----- Resources -----

func TestResources(t *testing.T) {
	s := newServer(t)
	s.up.listBody = json.RawMessage(`[{"id":1}]`)
	s.up.getBody = json.RawMessage(`{"id":1}`)

	w := s.do(http.MethodGet, "/resources", "", nil)
	var desc ResourcesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &desc); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(desc.Resources) != len(domain.Resources()) {
		t.Fatalf("got %d resources", len(desc.Resources))
	}

	w = s.do(http.MethodGet, "/resources/sales?season_id=3&empty=", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != `[{"id":1}]` {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	if s.up.lastQ.Get("season_id") != "3" || s.up.lastQ.Has("empty") {
		t.Fatalf("filters = %v", s.up.lastQ)
	}

	w = s.do(http.MethodGet, "/resources/sales/1", "", nil)
	if w.Code != http.StatusOK || w.Body.String() != `{"id":1}` {
		t.Fatalf("get: %d %s", w.Code, w.Body.String())
	}

	if w := s.do(http.MethodGet, "/resources/widgets", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown status=%d", w.Code)
	}
	if w := s.do(http.MethodGet, "/resources/dashboard/1", "", nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("singleton detail status=%d", w.Code)
	}

	var q strings.Builder
	for i := 0; i <= maxFilters; i++ {
		if i > 0 {
			q.WriteByte('&')
		}
		q.WriteString("f")
		q.WriteString(strings.Repeat("x", i+1))
		q.WriteString("=1")
	}
	if w := s.do(http.MethodGet, "/resources/sales?"+q.String(), "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("too many filters status=%d", w.Code)
	}
}

// ----- Reference and lookups -----

func TestReference(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/reference", "", nil)
	var ref services.Reference
	if err := json.Unmarshal(w.Body.Bytes(), &ref); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusOK || len(ref.Crops) != 1 || ref.Crops[0].Name != "Wheat" {
		t.Fatalf("unexpected reference %d %+v", w.Code, ref)
	}

	s.ref.err = apperr.New(apperr.KindTransient, "upstream down")
	w = s.do(http.MethodPost, "/reference/refresh", "", nil)
	if w.Code != http.StatusServiceUnavailable || s.ref.refreshes != 1 {
		t.Fatalf("refresh failure: %d (%d refreshes)", w.Code, s.ref.refreshes)
	}
}

func TestLookups(t *testing.T) {
	s := newServer(t)
	price := decimal.RequireFromString("12.5")
	temp := 21.0
	s.lk.price = domain.LastPrice{UnitPrice: &price}
	s.lk.weather = &domain.Weather{Latitude: 38.2, Longitude: 21.7, TemperatureC: &temp}

	w := s.do(http.MethodGet, "/lookups/last-price?crop_id=4&supplier_id=x", "", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("12.5")) {
		t.Fatalf("last price: %d %s", w.Code, w.Body.String())
	}
	if s.lk.gotCrop == nil || *s.lk.gotCrop != 4 {
		t.Fatalf("crop id not forwarded")
	}

	w = s.do(http.MethodGet, "/lookups/weather?lat=38.2&lon=21.7", "", nil)
	var wr WeatherResponse
	if err := json.Unmarshal(w.Body.Bytes(), &wr); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusOK || wr.Weather == nil || wr.Weather.TemperatureC == nil || *wr.Weather.TemperatureC != 21 {
		t.Fatalf("weather: %d %s", w.Code, w.Body.String())
	}

	if w := s.do(http.MethodGet, "/lookups/weather?lat=91&lon=0", "", nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("out of range status=%d", w.Code)
	}
	if w := s.do(http.MethodGet, "/lookups/weather?lat=abc", "", nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unparsable status=%d", w.Code)
	}
}

// ----- Health -----

func TestHealthAndReady(t *testing.T) {
	s := newServer(t)

	if w := s.do(http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
	if w := s.do(http.MethodGet, "/ready", "", nil); w.Code != http.StatusOK {
		t.Fatalf("ready status=%d", w.Code)
	}

	s.up.pingErr = errors.New("dial tcp: connection refused")
	w := s.do(http.MethodGet, "/ready", "", nil)
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), ErrCodeUnavailable) {
		t.Fatalf("ready (down): %d %s", w.Code, w.Body.String())
	}
}
