package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"packbot/internal/rag"
	"packbot/internal/repo"
)

type fakeManual struct {
	phone  string
	manual bool
}

func (f *fakeManual) SetManual(_ context.Context, phone string, manual bool) error {
	f.phone = phone
	f.manual = manual
	return nil
}

func (f *fakeManual) IsManual(_ context.Context, phone string) (bool, error) {
	return f.phone == phone && f.manual, nil
}

type fakeQuerier struct {
	lastReq rag.Request
}

func (f *fakeQuerier) Query(_ context.Context, req rag.Request) (*rag.Result, error) {
	f.lastReq = req
	return &rag.Result{Answer: "kraft and white"}, nil
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestAdmin(key string) (*AdminAPI, *fakeManual, *fakeQuerier, *http.ServeMux) {
	manual := &fakeManual{}
	querier := &fakeQuerier{}
	api := NewAdminAPI(nopLogger(), key, nil, querier, nil, manual, nil, nil, nil, "knowledge")
	mux := http.NewServeMux()
	api.Mount(mux)
	return api, manual, querier, mux
}

// fakeOrderStore stubs only order lookup; everything else panics via the
// embedded nil interface.
type fakeOrderStore struct {
	repo.Store
	orders map[string]*repo.Order
}

func (f *fakeOrderStore) GetOrderByRef(_ context.Context, ref string) (*repo.Order, error) {
	return f.orders[ref], nil
}

func TestAdminCancelUnknownOrderReturns404(t *testing.T) {
	manual := &fakeManual{}
	api := NewAdminAPI(nopLogger(), "secret", nil, &fakeQuerier{}, &fakeOrderStore{}, manual, nil, nil, nil, "knowledge")
	mux := http.NewServeMux()
	api.Mount(mux)

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/ORD-NOPE/cancel", strings.NewReader(`{"reason":"fat finger"}`))
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestAdminRejectsMissingKey(t *testing.T) {
	_, _, _, mux := newTestAdmin("secret")

	req := httptest.NewRequest(http.MethodPost, "/admin/sessions/+911234/manual", strings.NewReader(`{"manual":true}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	_, _, _, mux := newTestAdmin("")

	req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
	req.Header.Set("X-API-Key", "anything")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", rec.Code)
	}
}

func TestAdminSetManualTogglesSession(t *testing.T) {
	_, manual, _, mux := newTestAdmin("secret")

	req := httptest.NewRequest(http.MethodPost, "/admin/sessions/+911234567890/manual", strings.NewReader(`{"manual":true}`))
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}
	if manual.phone != "+911234567890" || !manual.manual {
		t.Fatalf("manual toggle = %+v", manual)
	}
}

func TestAdminGetManualReflectsToggle(t *testing.T) {
	_, _, _, mux := newTestAdmin("secret")

	post := httptest.NewRequest(http.MethodPost, "/admin/sessions/+911234567890/manual", strings.NewReader(`{"manual":true}`))
	post.Header.Set("X-API-Key", "secret")
	mux.ServeHTTP(httptest.NewRecorder(), post)

	get := httptest.NewRequest(http.MethodGet, "/admin/sessions/+911234567890/manual", nil)
	get.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, get)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"manual":true`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestAdminQueryDefaultsStrictWithFilter(t *testing.T) {
	_, _, querier, mux := newTestAdmin("secret")

	body := `{"query":"box sizes","filter":{"userType":"Homebakers"}}`
	req := httptest.NewRequest(http.MethodPost, "/admin/rag/query", strings.NewReader(body))
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !querier.lastReq.Strict {
		t.Fatal("filtered query should default to strict")
	}
	if querier.lastReq.Namespace != "knowledge" {
		t.Fatalf("namespace = %q", querier.lastReq.Namespace)
	}
	if !strings.Contains(rec.Body.String(), "kraft and white") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestAdminQueryStrictOverride(t *testing.T) {
	_, _, querier, mux := newTestAdmin("secret")

	body := `{"query":"box sizes","filter":{"userType":"Homebakers"},"strict":false}`
	req := httptest.NewRequest(http.MethodPost, "/admin/rag/query", strings.NewReader(body))
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if querier.lastReq.Strict {
		t.Fatal("explicit strict=false should win over the filter default")
	}
}
