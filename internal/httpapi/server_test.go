package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"dbcheck/internal/check"
	"dbcheck/internal/config"
	"dbcheck/internal/db"
	"dbcheck/internal/probe"
	"dbcheck/internal/profile"
)

type stubAdapter struct {
	name  string
	out   probe.Outcome
	mu    sync.Mutex
	calls int
	seen  profile.Profile
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Probe(_ context.Context, p profile.Profile, _ string) probe.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.seen = p
	return a.out
}

func ok(name, detail string) *stubAdapter {
	return &stubAdapter{name: name, out: probe.Outcome{Succeeded: true, Detail: detail}}
}

func failing(name string, c probe.Category, msg string) *stubAdapter {
	return &stubAdapter{name: name, out: probe.Outcome{Failure: &probe.Error{Category: c, Adapter: name, Message: msg}}}
}

type fakeStore struct {
	latest    db.ConnectionTest
	latestErr error
	records   []db.TestRecord
	createErr error
}

func (f *fakeStore) LatestConnectionTest(context.Context) (db.ConnectionTest, error) {
	return f.latest, f.latestErr
}

func (f *fakeStore) CreateNamedTestRecord(context.Context) (db.TestRecord, []db.TestRecord, error) {
	if f.createErr != nil {
		return db.TestRecord{}, nil, f.createErr
	}
	id := int64(len(f.records) + 1)
	rec := db.TestRecord{ID: id, Name: "name" + strconv.FormatInt(id, 10)}
	f.records = append(f.records, rec)
	return rec, f.records, nil
}

type fakeAvailability map[string]float64

func (f fakeAvailability) Availability(_ context.Context, target string, _ time.Duration) (float64, error) {
	return f[target], nil
}

func (f fakeAvailability) Targets() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	return out
}

func enabledMSSQL() config.MSSQLConfig {
	return config.MSSQLConfig{Enabled: true, Host: "db.test", Port: 1433, Database: "master", User: "u", Password: "s3cret-pass", Timeout: 5}
}

func newTestServer(mssql config.MSSQLConfig, adapters []probe.Adapter, primary probe.Adapter, d Deps) *Server {
	d.Checker = check.New(nil)
	d.Policies = check.StandardPolicies(mssql.Enabled, adapters, primary)
	d.MSSQL = mssql
	return NewServer(d)
}

func do(t *testing.T, s *Server, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	var out map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode body %q: %v", rr.Body.String(), err)
		}
	}
	return rr, out
}

func TestMSSQLCheckMockModeWhenDisabled(t *testing.T) {
	spy := ok("tds", "")
	s := newTestServer(config.MSSQLConfig{Enabled: false}, []probe.Adapter{spy}, nil, Deps{})

	rr, body := do(t, s, http.MethodGet, "/v1/system/mssql-check", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if body["success"] != true || body["message"] != check.MockMessage {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["timestamp"]; !ok {
		t.Fatalf("missing timestamp")
	}
	if spy.calls != 0 {
		t.Fatalf("adapter called in mock mode")
	}
}

func TestMSSQLCheckMissingConfiguration(t *testing.T) {
	s := newTestServer(config.MSSQLConfig{Enabled: true}, []probe.Adapter{ok("tds", "")}, nil, Deps{})

	rr, body := do(t, s, http.MethodGet, "/v1/system/mssql-check", "", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "MSSQL_HOST") || !strings.Contains(msg, "MSSQL_USER") {
		t.Fatalf("message should name missing keys: %q", msg)
	}
}

func TestMSSQLCheckStatusByCategory(t *testing.T) {
	cases := []struct {
		category probe.Category
		want     int
	}{
		{probe.Operational, http.StatusServiceUnavailable},
		{probe.ImportMissing, http.StatusInternalServerError},
		{probe.Database, http.StatusInternalServerError},
		{probe.Interface, http.StatusInternalServerError},
		{probe.Unknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		s := newTestServer(enabledMSSQL(), []probe.Adapter{failing("tds", tc.category, "boom")}, nil, Deps{})
		rr, body := do(t, s, http.MethodGet, "/v1/system/mssql-check", "", nil)
		if rr.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.category, tc.want, rr.Code)
		}
		if body["success"] != false {
			t.Fatalf("%s: expected success=false", tc.category)
		}
		if msg, _ := body["message"].(string); !strings.HasPrefix(msg, string(tc.category)+": ") {
			t.Fatalf("%s: unexpected message %q", tc.category, msg)
		}
	}
}

func TestVersionCheckShowsDetail(t *testing.T) {
	adapter := ok("tds", "Microsoft SQL Server 2019 (RTM)")
	s := newTestServer(enabledMSSQL(), []probe.Adapter{adapter}, nil, Deps{})

	rr, body := do(t, s, http.MethodGet, "/v1/system/mssql-mcp-check", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "Microsoft SQL Server 2019") {
		t.Fatalf("expected version in message, got %q", msg)
	}
	if adapter.seen.Host != "db.test" || adapter.seen.Timeout != 5*time.Second {
		t.Fatalf("unexpected profile passed to adapter: %v", adapter.seen)
	}
}

func TestCustomCheckValidation(t *testing.T) {
	spy := ok("tds", "")
	s := newTestServer(enabledMSSQL(), []probe.Adapter{spy}, nil, Deps{})

	rr, body := do(t, s, http.MethodPost, "/v1/system/mssql-check", `{"server":"db.test","port":70000,"username":"u","password":"p"}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	details, _ := body["details"].(map[string]any)
	if _, ok := details["port"]; !ok || len(details) != 1 {
		t.Fatalf("expected only port in details, got %v", details)
	}
	if spy.calls != 0 {
		t.Fatalf("adapter called for invalid request")
	}
}

func TestCustomCheckNeverMocks(t *testing.T) {
	spy := ok("tds", "")
	s := newTestServer(config.MSSQLConfig{Enabled: false}, []probe.Adapter{spy}, nil, Deps{})

	rr, body := do(t, s, http.MethodPost, "/v1/system/mssql-check", `{"server":"db.test","username":"u","password":"hunter22","driver":"FreeTDS"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if body["message"] == check.MockMessage || spy.calls != 1 {
		t.Fatalf("caller supplied check must probe; body=%v calls=%d", body, spy.calls)
	}
	if spy.seen.Port != 1433 || spy.seen.Database != "master" || spy.seen.DriverHint != "FreeTDS" {
		t.Fatalf("defaults not applied: %v", spy.seen)
	}
	if strings.Contains(rr.Body.String(), "hunter22") {
		t.Fatalf("password echoed in response")
	}
}

func TestCustomCheckRejectsUnknownFields(t *testing.T) {
	spy := ok("tds", "")
	s := newTestServer(enabledMSSQL(), []probe.Adapter{spy}, nil, Deps{})
	cases := []struct {
		name, body, field, reason string
	}{
		{name: "unknown field", body: `{"server":"db","username":"u","password":"p","extra":1}`, field: "extra", reason: "unknown field"},
		{name: "wrong type", body: `{"server":"db","port":"1433","username":"u","password":"p"}`, field: "port", reason: "must be of type int"},
		{name: "truncated", body: `{`, field: "body", reason: "malformed JSON"},
		{name: "empty", body: ``, field: "body", reason: "required"},
	}
	for _, tc := range cases {
		rr, body := do(t, s, http.MethodPost, "/v1/system/mssql-check", tc.body, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rr.Code)
		}
		if body["success"] != false {
			t.Fatalf("%s: expected success=false, got %v", tc.name, body)
		}
		msg, _ := body["message"].(string)
		if !strings.HasPrefix(msg, "invalid payload") || strings.Contains(msg, "Go struct") {
			t.Fatalf("%s: unexpected message %q", tc.name, msg)
		}
		if ts, _ := body["timestamp"].(string); ts == "" {
			t.Fatalf("%s: expected timestamp, got %v", tc.name, body)
		}
		details, _ := body["details"].(map[string]any)
		if details[tc.field] != tc.reason {
			t.Fatalf("%s: expected details[%s]=%q, got %v", tc.name, tc.field, tc.reason, body["details"])
		}
	}
	if spy.calls != 0 {
		t.Fatalf("adapter must not run for a rejected body")
	}
}

func TestAdminTokenGuardsPost(t *testing.T) {
	s := newTestServer(enabledMSSQL(), []probe.Adapter{ok("tds", "")}, nil, Deps{AdminToken: "tok"})
	payload := `{"server":"db.test","username":"u","password":"pass"}`

	if rr, _ := do(t, s, http.MethodPost, "/v1/system/mssql-check", payload, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	if rr, _ := do(t, s, http.MethodPost, "/v1/system/mssql-check", payload, map[string]string{"Authorization": "Bearer nope"}); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rr.Code)
	}
	if rr, _ := do(t, s, http.MethodPost, "/v1/system/mssql-check", payload, map[string]string{"Authorization": "Bearer tok"}); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rr.Code)
	}
	if rr, _ := do(t, s, http.MethodGet, "/v1/system/mssql-check", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("GET checks should not need a token, got %d", rr.Code)
	}
}

func TestPrimaryCheck(t *testing.T) {
	primary := ok("pool", "1")
	s := newTestServer(enabledMSSQL(), nil, primary, Deps{Primary: profile.Profile{Host: "pg", Port: 5432, Timeout: time.Second}})
	rr, body := do(t, s, http.MethodGet, "/v1/system/db-check", "", nil)
	if rr.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("unexpected response %d %v", rr.Code, body)
	}

	s = newTestServer(enabledMSSQL(), nil, nil, Deps{})
	rr, _ = do(t, s, http.MethodGet, "/v1/system/db-check", "", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without primary adapter, got %d", rr.Code)
	}
}

func TestLatestConnectionTest(t *testing.T) {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{latest: db.ConnectionTest{ID: 7, Message: "hello", CreatedAt: created}}
	s := newTestServer(enabledMSSQL(), nil, nil, Deps{Store: store})

	rr, body := do(t, s, http.MethodGet, "/v1/system/connection-tests/latest", "", nil)
	if rr.Code != http.StatusOK || body["message"] != "hello" || body["id"] != float64(7) {
		t.Fatalf("unexpected response %d %v", rr.Code, body)
	}

	store.latestErr = sql.ErrNoRows
	if rr, _ := do(t, s, http.MethodGet, "/v1/system/connection-tests/latest", "", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	store.latestErr = errors.New("connection reset")
	if rr, _ := do(t, s, http.MethodGet, "/v1/system/connection-tests/latest", "", nil); rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}

	s = newTestServer(enabledMSSQL(), nil, nil, Deps{})
	if rr, _ := do(t, s, http.MethodGet, "/v1/system/connection-tests/latest", "", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without store, got %d", rr.Code)
	}
}

func TestORMTest(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(enabledMSSQL(), nil, nil, Deps{Store: store})

	do(t, s, http.MethodPost, "/v1/system/orm-test", "", nil)
	rr, body := do(t, s, http.MethodPost, "/v1/system/orm-test", "", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	inserted, _ := body["inserted"].(map[string]any)
	if inserted["name"] != "name2" {
		t.Fatalf("unexpected inserted record %v", inserted)
	}
	all, _ := body["all_records"].([]any)
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %v", all)
	}
}

func TestAvailability(t *testing.T) {
	s := newTestServer(enabledMSSQL(), nil, nil, Deps{Availability: fakeAvailability{"mssql-check@u@db.test:1433/master": 0.5}})

	rr, body := do(t, s, http.MethodGet, "/v1/system/availability?window=10m", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body["window"] != "10m0s" {
		t.Fatalf("unexpected window %v", body["window"])
	}
	targets, _ := body["targets"].([]any)
	if len(targets) != 1 {
		t.Fatalf("unexpected targets %v", targets)
	}
	if rr, _ := do(t, s, http.MethodGet, "/v1/system/availability?window=forever", "", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad window, got %d", rr.Code)
	}
}

func TestReadyz(t *testing.T) {
	s := newTestServer(enabledMSSQL(), nil, nil, Deps{Ready: func(context.Context) error { return errors.New("ping database: refused") }})
	rr, _ := do(t, s, http.MethodGet, "/readyz", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestAvailabilityWithoutMonitor(t *testing.T) {
	s := newTestServer(enabledMSSQL(), nil, nil, Deps{})
	rr, body := do(t, s, http.MethodGet, "/v1/system/availability", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the monitor is off, got %d: %v", rr.Code, body)
	}
}
