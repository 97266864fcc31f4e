package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlnlink/internal/driver"
	"mlnlink/internal/logging"
	"mlnlink/internal/model"
	"mlnlink/internal/resolve"
	"mlnlink/internal/tileserver"
)

func resolveContext(base string, passThrough bool) resolve.Context {
	return resolve.Context{BaseDir: base, PassThrough: passThrough}
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	s, err := NewServer(opts)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestResolve(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := do(t, s, http.MethodPost, "/api/resolve?base=/out&pass_through=true",
		"-lz  -framework Metal\nvendor/libicu.a -Wl,-dead_strip")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))

	var res model.Resolution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []string{
		"link-dynamic(z)",
		"link-framework(Metal)",
		"add-search-path(/out/vendor)",
		"link-static(icu)",
		"pass-through(-Wl,-dead_strip)",
	}, res.Strings())
	assert.True(t, res.PassThrough)
}

func TestResolve_Cache(t *testing.T) {
	s := newTestServer(t, Options{CacheSize: 2})
	report := "-lz libfoo.a"

	first := do(t, s, http.MethodPost, "/api/resolve?base=/a", report)
	second := do(t, s, http.MethodPost, "/api/resolve?base=/a", report)
	other := do(t, s, http.MethodPost, "/api/resolve?base=/b", report)

	assert.Equal(t, "miss", first.Header().Get("X-Cache"))
	assert.Equal(t, "hit", second.Header().Get("X-Cache"))
	assert.Equal(t, "miss", other.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.NotEqual(t, first.Body.String(), other.Body.String())
}

func TestResolve_CacheKeysDoNotCollide(t *testing.T) {
	s := newTestServer(t, Options{})

	first := do(t, s, http.MethodPost, "/api/resolve?base=a%7Ctrue&pass_through=false", "x")
	second := do(t, s, http.MethodPost, "/api/resolve?base=a&pass_through=true", "false|x")

	assert.Equal(t, "miss", first.Header().Get("X-Cache"))
	assert.Equal(t, "miss", second.Header().Get("X-Cache"))

	var res model.Resolution
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &res))
	assert.Equal(t, "a", res.BaseDir)
	assert.True(t, res.PassThrough)
	assert.Equal(t, []string{"pass-through(false|x)"}, res.Strings())
}

func TestResolve_CacheDropsReport(t *testing.T) {
	s := newTestServer(t, Options{})
	report := "-lz libfoo.a"
	do(t, s, http.MethodPost, "/api/resolve?base=/a", report)

	cached, ok := s.cache.Get(cacheKey(resolveContext("/a", false), report))
	require.True(t, ok)
	assert.Empty(t, cached.Report)
	assert.Len(t, cacheKey(resolveContext("", false), report), 64)
}

func TestResolve_Errors(t *testing.T) {
	s := newTestServer(t, Options{})

	testCases := []struct {
		name   string
		method string
		target string
		body   string
		status int
		kind   string
	}{
		{"wrong method", http.MethodGet, "/api/resolve", "", http.StatusMethodNotAllowed, ""},
		{"bad policy", http.MethodPost, "/api/resolve?pass_through=maybe", "-lz", http.StatusBadRequest, ""},
		{"dangling framework", http.MethodPost, "/api/resolve", "-lz -framework", http.StatusUnprocessableEntity, "malformed_input"},
		{"invalid utf-8 archive", http.MethodPost, "/api/resolve", "lib\xff.a", http.StatusUnprocessableEntity, "encoding"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, tc.method, tc.target, tc.body)
			require.Equal(t, tc.status, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tc.kind, resp.Kind)
		})
	}
}

func TestResolve_ErrorNamesToken(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := do(t, s, http.MethodPost, "/api/resolve", "-lz -framework")

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "-framework", resp.Token)
	require.NotNil(t, resp.Pos)
	assert.Equal(t, 1, *resp.Pos)
}

func TestTargets(t *testing.T) {
	s := newTestServer(t, Options{Targets: []driver.Target{
		{Name: "mbgl-core", PassThrough: true},
		{Name: "mbgl-vendor", Report: "vendor.txt", SkipBuild: true},
	}})

	rec := do(t, s, http.MethodGet, "/api/targets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var targets []targetInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &targets))
	require.Len(t, targets, 2)
	assert.Equal(t, "mbgl-core", targets[0].Name)
	assert.True(t, targets[0].PassThrough)
	assert.Equal(t, "vendor.txt", targets[1].Report)
}

func TestTile(t *testing.T) {
	s := newTestServer(t, Options{})

	for _, target := range []string{"/api/tile?z=1&x=1&y=0", "/api/tile?id=1/1/0", "/api/tile?lng=90&lat=45&z=1"} {
		t.Run(target, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, target, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var resp tileResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "1/1/0", resp.Tile)
			assert.Equal(t, "https://demotiles.maplibre.org/1/1/0.pbf", resp.URL)
			assert.InDelta(t, 0, resp.Bounds[0], 1e-9)
			assert.InDelta(t, 180, resp.Bounds[2], 1e-9)
		})
	}
}

func TestTile_Errors(t *testing.T) {
	s := newTestServer(t, Options{Tiles: tileserver.MapTiler()})

	rec := do(t, s, http.MethodGet, "/api/tile?id=1/2/0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/tile?id=1/1/0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "requires an API key")
}

func TestVersion(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := do(t, s, http.MethodGet, "/api/version", "")
	assert.JSONEq(t, `{"version":"`+model.Version+`"}`, rec.Body.String())
}

func TestStartServer_StopsWithContext(t *testing.T) {
	s := newTestServer(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, StartServer(ctx, "127.0.0.1:0", s, logging.Discard()))
}

func TestStartServer_ListenError(t *testing.T) {
	s := newTestServer(t, Options{})
	err := StartServer(context.Background(), "127.0.0.1:-1", s, logging.Discard())
	assert.ErrorContains(t, err, "web server on 127.0.0.1:-1")
}
