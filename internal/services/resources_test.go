package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/tbourn/agritrade-gateway/internal/apperr"
	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/querycache"
)

func TestList_ReadThroughCache(t *testing.T) {
	f := newFixture(t)
	f.up.listBody = json.RawMessage(`[{"id":1},{"id":2}]`)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := f.res.List(ctx, domain.Purchases, nil)
		if err != nil || string(got) != `[{"id":1},{"id":2}]` {
			t.Fatalf("List = (%s, %v)", got, err)
		}
	}
	if n := len(f.up.Calls()); n != 1 {
		t.Fatalf("expected 1 upstream call, got %d", n)
	}

	// Filters are a distinct key and are forwarded.
	if _, err := f.res.List(ctx, domain.Purchases, map[string]string{"season_id": "4"}); err != nil {
		t.Fatalf("filtered List: %v", err)
	}
	calls := f.up.Calls()
	if len(calls) != 2 || calls[1].Path != "/purchases/?season_id=4" {
		t.Fatalf("unexpected calls %+v", calls)
	}

	// A successful create invalidates the list.
	if _, err := f.res.Create(ctx, "form-1", domain.Purchases, validPurchase(), ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := f.cache.Get(querycache.ListKey(domain.Purchases)); ok {
		t.Fatalf("list should be invalidated after create")
	}
}

func TestList_ErrorsAndSingleton(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.res.List(ctx, "widgets", nil); err != ErrUnknownResource {
		t.Fatalf("expected ErrUnknownResource, got %v", err)
	}

	f.up.listErr = apperr.New(apperr.KindTransient, "down")
	if _, err := f.res.List(ctx, domain.Dashboard, nil); !apperr.IsKind(err, apperr.KindTransient) {
		t.Fatalf("expected transient, got %v", err)
	}
	f.up.listErr = nil
	f.up.listBody = json.RawMessage(`{"total_purchases": 3}`)
	got, err := f.res.List(ctx, domain.Dashboard, nil)
	if err != nil || string(got) != `{"total_purchases": 3}` {
		t.Fatalf("dashboard = (%s, %v)", got, err)
	}
	if _, err := f.res.Get(ctx, domain.Dashboard, "1"); err != ErrNoDetail {
		t.Fatalf("expected ErrNoDetail, got %v", err)
	}
}

func TestGet_ValidatesID(t *testing.T) {
	f := newFixture(t)
	f.up.getBody = json.RawMessage(`{"id":5}`)
	ctx := context.Background()

	for _, id := range []string{"", "0", "-1", "abc", "1.5"} {
		if _, err := f.res.Get(ctx, domain.Sales, id); err != ErrInvalidID {
			t.Fatalf("id %q: expected ErrInvalidID, got %v", id, err)
		}
	}
	got, err := f.res.Get(ctx, domain.Sales, "5")
	if err != nil || string(got) != `{"id":5}` {
		t.Fatalf("Get = (%s, %v)", got, err)
	}
	if c := f.up.Calls(); len(c) != 1 || c[0].Path != "/sales/" || c[0].ID != "5" {
		t.Fatalf("unexpected calls %+v", c)
	}
}

func TestUpdate_OptimisticRollback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	detail := querycache.DetailKey(domain.Purchases, "9")
	f.cache.Set(detail, json.RawMessage(`{"id":9,"unit_price":10}`))

	f.up.started = make(chan struct{})
	f.up.release = make(chan struct{})
	f.up.updateErr = apperr.New(apperr.KindTransient, "timeout")

	done := make(chan error, 1)
	go func() {
		_, err := f.res.Update(ctx, "edit-9", domain.Purchases, "9", validPurchase(), "")
		done <- err
	}()
	<-f.up.started

	v, ok := f.cache.Get(detail)
	if !ok {
		t.Fatalf("speculative detail missing")
	}
	var specView map[string]any
	if err := json.Unmarshal(v.(json.RawMessage), &specView); err != nil {
		t.Fatalf("speculative body: %v", err)
	}
	if specView["id"] != float64(9) || specView["purchase_date"] != "2024-01-01" {
		t.Fatalf("unexpected speculative body %v", specView)
	}

	close(f.up.release)
	if err := <-done; !apperr.IsKind(err, apperr.KindTransient) {
		t.Fatalf("expected transient, got %v", err)
	}
	// Rolled back, then the settle invalidation dropped it.
	if _, ok := f.cache.Get(detail); ok {
		t.Fatalf("detail should be invalidated after settle")
	}
}

func TestUpdate_InvalidIDNeverSends(t *testing.T) {
	f := newFixture(t)
	if _, err := f.res.Update(context.Background(), "edit", domain.Purchases, "x", validPurchase(), ""); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if len(f.up.Calls()) != 0 {
		t.Fatalf("expected no calls")
	}
}

func TestDelete_OptimisticRemovalAndRollback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := querycache.ListKey(domain.Expenses)
	f.cache.Set(list, json.RawMessage(`[{"id":1},{"id":2}]`))
	f.cache.Set(querycache.DetailKey(domain.Expenses, "2"), json.RawMessage(`{"id":2}`))

	f.up.started = make(chan struct{})
	f.up.release = make(chan struct{})
	done := make(chan *Outcome, 1)
	go func() {
		out, _ := f.res.Delete(ctx, "expense-2", domain.Expenses, "2", "")
		done <- out
	}()
	<-f.up.started

	v, ok := f.cache.Get(list)
	if !ok || string(v.(json.RawMessage)) != `[{"id":1}]` {
		t.Fatalf("speculative list = %v (present %v)", v, ok)
	}
	if _, ok := f.cache.Get(querycache.DetailKey(domain.Expenses, "2")); ok {
		t.Fatalf("detail should be removed while the delete runs")
	}

	close(f.up.release)
	out := <-done
	if out.Status != domain.StatusSucceeded || out.Operation != domain.OpDelete {
		t.Fatalf("unexpected outcome %+v", out)
	}
	calls := f.up.Calls()
	if len(calls) != 1 || calls[0].Method != "DELETE" || calls[0].Key != out.Token {
		t.Fatalf("unexpected calls %+v", calls)
	}
}

func TestDelete_FailureRestoresSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.up.deleteErr = apperr.New(apperr.KindNotFound, "gone")

	// No cached views: nothing to restore, error surfaces.
	out, err := f.res.Delete(ctx, "expense-2", domain.Expenses, "2", "")
	if !apperr.IsKind(err, apperr.KindNotFound) || out.Status != domain.StatusFailed {
		t.Fatalf("unexpected %+v / %v", out, err)
	}
	if _, err := f.res.Delete(ctx, "x", domain.Crops, "2", ""); err != ErrReadOnlyResource {
		t.Fatalf("expected ErrReadOnlyResource, got %v", err)
	}
}

func TestWithoutItem(t *testing.T) {
	got, err := withoutItem(json.RawMessage(`[{"id":1,"a":"x"},{"id":2},"junk",{"id":"2"}]`), 2)
	if err != nil {
		t.Fatalf("withoutItem: %v", err)
	}
	if string(got) != `[{"id":1,"a":"x"},"junk"]` {
		t.Fatalf("got %s", got)
	}
	if _, err := withoutItem(json.RawMessage(`{}`), 1); err == nil {
		t.Fatalf("expected error for non-array")
	}
}
