package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/metrics"
	"expenses/internal/services"
	"expenses/internal/storage/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: &bytes.Buffer{}})
}

func newTestServer(t *testing.T, rateLimit int) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	m := metrics.New(prometheus.NewRegistry())
	srv := NewServer(":0", Deps{
		Service:            services.NewExpenseService(store, nil, m),
		Logger:             quietLogger(),
		Metrics:            m,
		RateLimitPerMinute: rateLimit,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreateAndListExpenses(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	rec := do(t, srv, http.MethodGet, "/expenses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/expenses", `{"name":"coffee","amount":3.5,"category":"food","extra":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[core.Expense](t, rec)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "coffee", created.Name)
	assert.Equal(t, 3.5, created.Amount)
	assert.Equal(t, "food", created.Category)
	assert.False(t, created.CreatedAt.IsZero())

	raw := decode[map[string]any](t, rec)
	for _, key := range []string{"id", "name", "amount", "category", "created_at"} {
		assert.Contains(t, raw, key)
	}

	rec = do(t, srv, http.MethodGet, "/expenses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]core.Expense](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestCreateExpense_AcceptsEmptyStringsAndNegativeAmounts(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	rec := do(t, srv, http.MethodPost, "/expenses", `{"name":"","amount":-5,"category":""}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, -5.0, decode[core.Expense](t, rec).Amount)
}

func TestCreateExpense_Validation(t *testing.T) {
	srv, store := newTestServer(t, 0)

	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{"missing everything", `{}`, []string{"name", "amount", "category"}},
		{"amount as string", `{"name":"a","amount":"3.5","category":"c"}`, []string{"amount"}},
		{"name as number", `{"name":1,"amount":3.5,"category":"c"}`, []string{"name"}},
		{"null category", `{"name":"a","amount":1,"category":null}`, []string{"category"}},
		{"not json", `not json`, []string{"body"}},
		{"json array", `[1,2]`, []string{"body"}},
		{"json null", `null`, []string{"body"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/expenses", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

			var body struct {
				Code    string `json:"code"`
				Details []struct {
					Field string `json:"field"`
					Msg   string `json:"msg"`
				} `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, CodeValidation, body.Code)
			var fields []string
			for _, d := range body.Details {
				fields = append(fields, d.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "invalid input must never reach the store")
}

func TestListExpensesByMonth(t *testing.T) {
	srv, store := newTestServer(t, 0)
	ctx := context.Background()
	for _, in := range []core.NewExpense{
		{Name: "jan", CreatedAt: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)},
		{Name: "feb", CreatedAt: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)},
	} {
		_, err := store.Create(ctx, in)
		require.NoError(t, err)
	}

	rec := do(t, srv, http.MethodGet, "/expenses/month/2025/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]core.Expense](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "jan", got[0].Name)

	rec = do(t, srv, http.MethodGet, "/expenses/month/2025/13", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/expenses/month/abc/xyz", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[APIError](t, rec)
	assert.Equal(t, CodeValidation, body.Code)
	assert.Len(t, body.Details, 2)
}

func TestTotals(t *testing.T) {
	srv, store := newTestServer(t, 0)

	rec := do(t, srv, http.MethodGet, "/totals?salary=1200", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_expense":0,"salary":1200,"remaining_amount":1200}`, rec.Body.String())

	for _, amount := range []float64{10.0, 20.5, -5.0} {
		_, err := store.Create(context.Background(), core.NewExpense{Name: "x", Amount: amount})
		require.NoError(t, err)
	}
	rec = do(t, srv, http.MethodGet, "/totals?salary=100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_expense":25.5,"salary":100,"remaining_amount":74.5}`, rec.Body.String())

	for _, path := range []string{"/totals", "/totals?salary=", "/totals?salary=lots", "/totals?salary=NaN"} {
		rec = do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, path)
	}
}

func TestPersistenceFailure(t *testing.T) {
	srv, store := newTestServer(t, 0)
	store.Fail(errors.New("disk I/O error"))

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/expenses", `{"name":"a","amount":1,"category":"c"}`},
		{http.MethodGet, "/expenses", ""},
		{http.MethodGet, "/expenses/month/2025/1", ""},
		{http.MethodGet, "/totals?salary=10", ""},
	} {
		rec := do(t, srv, tc.method, tc.path, tc.body)
		require.Equal(t, http.StatusInternalServerError, rec.Code, tc.path)
		body := decode[APIError](t, rec)
		assert.Equal(t, CodePersistence, body.Code)
		assert.True(t, strings.HasPrefix(body.Error, "An error occurred: "), body.Error)
		assert.Contains(t, body.Error, "disk I/O error")
	}

	rec := do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	store.Fail(nil)
	rec = do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthMetricsAndHeaders(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	do(t, srv, http.MethodPost, "/expenses", `{"name":"a","amount":1,"category":"c"}`)
	rec = do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "expenses_created_total 1")
	assert.Contains(t, rec.Body.String(), `route="/expenses`)

	rec = do(t, srv, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decode[APIError](t, rec).Code)

	rec = do(t, srv, http.MethodDelete, "/expenses", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimitOnCreate(t *testing.T) {
	srv, _ := newTestServer(t, 2)
	body := `{"name":"a","amount":1,"category":"c"}`

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/expenses", body).Code)
	}
	rec := do(t, srv, http.MethodPost, "/expenses", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, CodeRateLimited, decode[APIError](t, rec).Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/expenses", "").Code, "reads are not limited")
}

type panickingService struct{ ExpenseService }

func (panickingService) ListExpenses(context.Context) ([]core.Expense, error) {
	panic("boom")
}

func TestRecoverer(t *testing.T) {
	srv := NewServer(":0", Deps{Service: panickingService{}, Logger: quietLogger()})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rec := do(t, srv, http.MethodGet, "/expenses", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeInternal, decode[APIError](t, rec).Code)
}

func TestServerDefaultsAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t, 5)
	assert.Equal(t, 10*time.Second, srv.ReadTimeout)
	assert.Equal(t, 10*time.Second, srv.WriteTimeout)
	assert.Equal(t, 60*time.Second, srv.IdleTimeout)
	assert.Equal(t, 1<<16, srv.MaxHeaderBytes)

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))
}
