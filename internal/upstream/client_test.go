package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/agritrade-gateway/internal/apperr"
	"github.com/tbourn/agritrade-gateway/internal/validate"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/api", Timeout: time.Second})
	require.NoError(t, err)
	return c, srv
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, u := range []string{"", "backend:8000", "ftp://x", "http://"} {
		_, err := New(Options{BaseURL: u})
		assert.Error(t, err, u)
	}
}

func TestCreate_SendsKeyHeaderAndNormalizedBody(t *testing.T) {
	var gotKey, gotPath, gotMethod string
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(HeaderIdempotencyKey)
		gotPath, gotMethod = r.URL.Path, r.Method
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 41, "crop_id": 1}`))
	})

	rec := validate.Record{"crop_id": int64(1), "unit_price": decimal.RequireFromString("10.5")}
	raw, err := c.Create(context.Background(), "/purchases/", rec, "tok-1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/purchases/", gotPath)
	assert.Equal(t, "tok-1", gotKey)
	assert.Equal(t, map[string]any{"crop_id": float64(1), "unit_price": 10.5}, gotBody)
	_, hasKey := gotBody["idempotency_key"]
	assert.False(t, hasKey)

	id := RecordID(raw)
	require.NotNil(t, id)
	assert.Equal(t, int64(41), *id)
}

func TestUpdateAndDelete_UseItemPath(t *testing.T) {
	var paths []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path+" "+r.Header.Get(HeaderIdempotencyKey))
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"id": 7}`))
	})
	_, err := c.Update(context.Background(), "/sales/", "7", validate.Record{"crop_id": int64(2)}, "k1")
	require.NoError(t, err)
	require.NoError(t, c.Delete(context.Background(), "/sales/", "7", "k2"))
	assert.Equal(t, []string{"PUT /api/sales/7 k1", "DELETE /api/sales/7 k2"}, paths)
}

func TestListAndGet(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/purchases/":
			assert.Equal(t, "2", r.URL.Query().Get("season_id"))
			_, _ = w.Write([]byte(`[{"id":1}]`))
		case "/api/purchases/1":
			_, _ = w.Write([]byte(`{"id":1}`))
		default:
			http.NotFound(w, r)
		}
	})
	raw, err := c.List(context.Background(), "/purchases/", map[string][]string{"season_id": {"2"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(raw))

	raw, err = c.Get(context.Background(), "/purchases/", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(raw))

	_, err = c.Get(context.Background(), "/purchases/", "2")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestNormalizeResponse_Kinds(t *testing.T) {
	cases := map[int]apperr.Kind{
		400: apperr.KindValidation,
		422: apperr.KindValidation,
		404: apperr.KindNotFound,
		408: apperr.KindTransient,
		409: apperr.KindDuplicateRequest,
		425: apperr.KindTransient,
		429: apperr.KindTransient,
		500: apperr.KindUnexpected,
		502: apperr.KindTransient,
		503: apperr.KindTransient,
		504: apperr.KindTransient,
		401: apperr.KindUnexpected,
	}
	for status, want := range cases {
		e := NormalizeResponse(status, nil)
		assert.Equal(t, want, e.Kind, "status %d", status)
		assert.Equal(t, status, e.Status)
	}
}

func TestNormalizeResponse_BannerWithoutDetail(t *testing.T) {
	cases := map[int]string{
		503: "The server could not be reached. Please try again.",
		404: "The requested record was not found.",
		422: "Please correct the highlighted fields.",
		500: "Something went wrong. Please try again.",
	}
	for status, want := range cases {
		e := NormalizeResponse(status, []byte(`{}`))
		assert.Equal(t, want, apperr.UserMessage(e), "status %d", status)
		assert.NotContains(t, apperr.UserMessage(e), "upstream")
		assert.Contains(t, e.Error(), fmt.Sprintf("status=%d", status))
	}

	e := NormalizeTransport(context.DeadlineExceeded)
	assert.Equal(t, "The server could not be reached. Please try again.", apperr.UserMessage(e))
}

func TestNormalizeResponse_DetailShapes(t *testing.T) {
	e := NormalizeResponse(400, []byte(`{"detail": "Insufficient stock for crop 3"}`))
	assert.Equal(t, "Insufficient stock for crop 3", e.Detail)
	assert.Equal(t, "Insufficient stock for crop 3", apperr.UserMessage(e))

	e = NormalizeResponse(422, []byte(`{"detail": [
		{"loc": ["body", "amount"], "msg": "ensure this value is greater than 0", "type": "value_error"},
		{"loc": ["body", "amount"], "msg": "second", "type": "x"},
		{"loc": ["body"], "msg": "bad body"},
		{"loc": ["body", "items", 0, "qty"], "msg": "nested"}
	]}`))
	assert.Empty(t, e.Detail)
	assert.Equal(t, map[string][]string{
		"amount":      {"ensure this value is greater than 0", "second"},
		"body":        {"bad body"},
		"items.0.qty": {"nested"},
	}, e.Fields)

	e = NormalizeResponse(500, []byte(`<html>oops</html>`))
	assert.Empty(t, e.Detail)
	assert.Nil(t, e.Fields)

	e = NormalizeResponse(400, []byte(`{"detail": {"code": 1}}`))
	assert.Empty(t, e.Detail)
	assert.Nil(t, e.Fields)
}

func TestTransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)
	_, err = c.List(context.Background(), "/crops/", nil)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestTimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c.timeout = 50 * time.Millisecond

	_, err := c.List(context.Background(), "/crops/", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestPing(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	assert.NoError(t, c.Ping(context.Background()))
	healthy.Store(false)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(c.Ping(context.Background())))
}

func TestRecordID(t *testing.T) {
	assert.Nil(t, RecordID(nil))
	assert.Nil(t, RecordID(json.RawMessage(`[1]`)))
	assert.Nil(t, RecordID(json.RawMessage(`{"id": "abc"}`)))
	assert.Nil(t, RecordID(json.RawMessage(`{"id": 0}`)))
	id := RecordID(json.RawMessage(`{"id": 12}`))
	require.NotNil(t, id)
	assert.Equal(t, int64(12), *id)
}
