package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/chain"
	"github.com/osse101/cosmos-agent/internal/crafting"
	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/handler"
	"github.com/osse101/cosmos-agent/internal/land"
	"github.com/osse101/cosmos-agent/internal/unlock"
)

const testAPIKey = "secret-key"

type stubAgent struct {
	resolved  int
	refreshed int
}

func (a *stubAgent) LandID() domain.LandID { return 7 }

func (a *stubAgent) Names() catalog.ItemNames {
	return catalog.NewItemNames(map[domain.ItemID]string{3: "plank"})
}

func (a *stubAgent) Preview(_ context.Context, target domain.ItemID, quantity int) (crafting.Preview, error) {
	a.resolved++
	return crafting.Preview{
		Plan:     domain.Plan{Target: target, Quantity: quantity, Operations: []domain.CraftOperation{{ItemID: target}}},
		Before:   domain.Inventory{},
		Expected: domain.Inventory{target: quantity},
	}, nil
}

func (a *stubAgent) Craftable(context.Context) ([]crafting.CraftableEntry, error) {
	return []crafting.CraftableEntry{}, nil
}

func (a *stubAgent) CraftableNow(context.Context) ([]crafting.CraftableEntry, error) {
	return []crafting.CraftableEntry{}, nil
}

func (a *stubAgent) Recipe(_ context.Context, item domain.ItemID) (crafting.RecipeInfo, error) {
	return crafting.RecipeInfo{ItemID: item, UsedIn: []crafting.RecipeUse{}}, nil
}

func (a *stubAgent) Inventory(context.Context) (domain.Inventory, error) {
	return domain.Inventory{3: 2}, nil
}

func (a *stubAgent) Place(context.Context, domain.Coord, domain.ItemID) (*chain.Receipt, error) {
	return nil, nil
}

func (a *stubAgent) RefreshDefinitions(context.Context) {
	a.refreshed++
}

func (a *stubAgent) Land(context.Context) (*land.Grid, error) {
	return land.NewGrid(7, nil), nil
}

func (a *stubAgent) Craft(_ context.Context, target domain.ItemID, quantity int) (domain.Plan, *chain.Receipt, error) {
	return domain.Plan{Target: target, Quantity: quantity}, nil, nil
}

func (a *stubAgent) UnlockOnce(context.Context) (unlock.CycleReport, error) {
	return unlock.CycleReport{LandID: 7}, nil
}

func newTestServer(t *testing.T, opts Options) (*Server, *stubAgent) {
	t.Helper()
	agent := &stubAgent{}
	return NewServer(opts, agent, nil, map[string]handler.HealthChecker{}), agent
}

func serve(s *Server, method, path, key string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:5555"
	if key != "" {
		req.Header.Set(HeaderAPIKey, key)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Routes(t *testing.T) {
	s, agent := newTestServer(t, Options{Port: 8080, APIKey: testAPIKey})

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/version", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/v1/plan?item=plank", "", http.StatusOK},
		{http.MethodGet, "/api/v1/craftable", "", http.StatusOK},
		{http.MethodGet, "/api/v1/craftable?ready=true", "", http.StatusOK},
		{http.MethodGet, "/api/v1/recipe?item=plank", "", http.StatusOK},
		{http.MethodGet, "/api/v1/inventory", "", http.StatusOK},
		{http.MethodGet, "/api/v1/land", "", http.StatusOK},
		{http.MethodPost, "/api/v1/craft", `{"item":"plank"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/place", `{"item":"plank","x":1,"y":1}`, http.StatusOK},
		{http.MethodPost, "/api/v1/unlock", "", http.StatusOK},
		{http.MethodPost, "/api/v1/refresh", "", http.StatusOK},
		{http.MethodGet, "/api/v1/refresh", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/journal", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/plan?item=plank", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := serve(s, tt.method, tt.path, testAPIKey, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, 1, agent.resolved)
	assert.Equal(t, 1, agent.refreshed)
	assert.Equal(t, ":8080", s.Addr())
}

func TestAuthMiddleware(t *testing.T) {
	s, _ := newTestServer(t, Options{APIKey: testAPIKey})

	tests := []struct {
		name   string
		key    string
		path   string
		status int
	}{
		{"valid key", testAPIKey, "/api/v1/craftable", http.StatusOK},
		{"wrong key", "wrong-key", "/api/v1/craftable", http.StatusUnauthorized},
		{"missing key", "", "/api/v1/craftable", http.StatusUnauthorized},
		{"public healthz", "", "/healthz", http.StatusOK},
		{"public metrics", "", "/metrics", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, http.MethodGet, tt.path, tt.key, "")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAuthMiddleware_RecordsFailures(t *testing.T) {
	detector := NewSuspiciousActivityDetector(DetectorConfig{})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := AuthMiddleware(testAPIKey, nil, detector)(next)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/land", nil)
		req.RemoteAddr = "192.168.1.9:1000"
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 3, detector.FailedAuthCount("192.168.1.9"))
}

func TestServer_NoAPIKeyBindsLoopback(t *testing.T) {
	s, _ := newTestServer(t, Options{Port: 9090})
	assert.Equal(t, "127.0.0.1:9090", s.Addr())

	rec := serve(s, http.MethodGet, "/api/v1/land", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestSizeLimit(t *testing.T) {
	s, _ := newTestServer(t, Options{APIKey: testAPIKey, MaxBodyBytes: 16})

	rec := serve(s, http.MethodPost, "/api/v1/craft", testAPIKey, `{"item":"plank","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	s, _ := newTestServer(t, Options{APIKey: testAPIKey})
	rec := serve(s, http.MethodGet, "/healthz", "", "")

	expected := map[string]string{
		HeaderContentType:    HeaderValueNoSniff,
		HeaderFrameOptions:   HeaderValueDeny,
		HeaderReferrerPolicy: HeaderValueReferrerNoReferrer,
		HeaderCacheControl:   HeaderValueCacheControlNoStore,
	}
	for header, want := range expected {
		assert.Equal(t, want, rec.Header().Get(header), header)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	detector := NewSuspiciousActivityDetector(DetectorConfig{
		Window:    time.Minute,
		RateLimit: 3,
		Now:       func() time.Time { return now },
	})
	h := RateLimitMiddleware(nil, detector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/land", nil)
		req.RemoteAddr = "192.168.1.100:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, do(), "request %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, do())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusOK, do(), "window reset")
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		forwarded string
		trusted   []string
		want      string
	}{
		{"direct", "1.2.3.4:80", "", nil, "1.2.3.4"},
		{"untrusted forwarded ignored", "1.2.3.4:80", "9.9.9.9", nil, "1.2.3.4"},
		{"trusted proxy uses rightmost hop", "10.0.0.1:80", "9.9.9.9, 8.8.8.8", []string{"10.0.0.1"}, "8.8.8.8"},
		{"trusted proxy without header", "10.0.0.1:80", "", []string{"10.0.0.1"}, "10.0.0.1"},
		{"unparseable remote", "weird", "", nil, "weird"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set(HeaderForwardedFor, tt.forwarded)
			}
			assert.Equal(t, tt.want, extractIP(req, tt.trusted))
		})
	}
}

func TestLoggingMiddleware_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/land", nil)
	req.Header.Set(HeaderAPIKey, "secret-key-123")
	req.Header.Set(HeaderAuthorization, "Bearer mytoken")
	req.Header.Set("User-Agent", "TestAgent")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, LogMsgRequestHeaders)
	assert.Contains(t, out, "TestAgent")
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "request_id=")
	assert.NotContains(t, out, "secret-key-123")
	assert.NotContains(t, out, "Bearer mytoken")
}

func TestLoggingMiddleware_SkipsProbes(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	s, _ := newTestServer(t, Options{APIKey: testAPIKey})
	rec := serve(s, http.MethodGet, "/healthz", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handler.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotContains(t, buf.String(), LogMsgRequestStarted)
}

func TestServer_StartStop(t *testing.T) {
	s, _ := newTestServer(t, Options{Port: 0, APIKey: testAPIKey})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	// Stop before or after the listener is up must not surface ErrServerClosed
	time.Sleep(20 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
