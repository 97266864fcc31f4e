// Package web serves the resolver over HTTP for editor and CI integrations.
package web

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"mlnlink/internal/driver"
	"mlnlink/internal/model"
	"mlnlink/internal/resolve"
	"mlnlink/internal/tileserver"
)

// DefaultCacheSize bounds the number of cached resolve responses.
const DefaultCacheSize = 128

// maxReportBytes caps the request body of /api/resolve.
const maxReportBytes = 4 << 20

// Options configures the handler. Every field is optional.
type Options struct {
	Targets   []driver.Target
	Tiles     *tileserver.Options // Defaults to the MapLibre preset
	APIKey    string
	CacheSize int
	Logger    *slog.Logger
}

// Server answers the /api endpoints.
type Server struct {
	opts  Options
	cache *lru.Cache[string, model.Resolution]
	mux   *http.ServeMux
}

// NewServer creates a Server.
func NewServer(opts Options) (*Server, error) {
	if opts.Tiles == nil {
		opts.Tiles = tileserver.MapLibre()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cache, err := lru.New[string, model.Resolution](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolve cache: %w", err)
	}

	s := &Server{opts: opts, cache: cache, mux: http.NewServeMux()}
	s.mux.HandleFunc("/api/resolve", s.handleResolve)
	s.mux.HandleFunc("/api/targets", s.handleTargets)
	s.mux.HandleFunc("/api/tile", s.handleTile)
	s.mux.HandleFunc("/api/version", s.handleVersion)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// shutdownTimeout bounds how long in-flight requests may finish.
const shutdownTimeout = 5 * time.Second

// StartServer listens on addr until the listener fails or ctx is done, in
// which case the server is shut down gracefully.
func StartServer(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting mlnlink web server.", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server on %s: %w", addr, err)
	case <-ctx.Done():
		logger.Info("Shutting down mlnlink web server.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web server shutdown: %w", err)
		}
		return nil
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Token string `json:"token,omitempty"`
	Pos   *int   `json:"pos,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var tokErr *resolve.TokenError
	if errors.As(err, &tokErr) {
		resp.Kind = errorKind(tokErr)
		resp.Token = tokErr.Token
		pos := tokErr.Pos
		resp.Pos = &pos
	}
	writeJSON(w, status, resp)
}

func errorKind(err *resolve.TokenError) string {
	switch {
	case errors.Is(err, resolve.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, resolve.ErrEncoding):
		return "encoding"
	default:
		return "unknown"
	}
}

// handleResolve resolves the report in the request body. The base directory
// and policy come from the base and pass_through query parameters.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, errors.New("use POST with the report as the body"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxReportBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(body) > maxReportBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("report exceeds %d bytes", maxReportBytes))
		return
	}

	q := r.URL.Query()
	ctx := resolve.Context{BaseDir: q.Get("base")}
	if v := q.Get("pass_through"); v != "" {
		ctx.PassThrough, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid pass_through %q", v))
			return
		}
	}

	report := string(body)
	key := cacheKey(ctx, report)
	if res, ok := s.cache.Get(key); ok {
		w.Header().Set("X-Cache", "hit")
		writeJSON(w, http.StatusOK, res)
		return
	}

	res, err := resolve.Resolve(report, ctx)
	if err != nil {
		s.opts.Logger.Warn("Rejected dependency report.", "error", err)
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	// The report is never encoded, so the cache does not keep it alive.
	res.Report = ""
	s.cache.Add(key, res)

	w.Header().Set("X-Cache", "miss")
	writeJSON(w, http.StatusOK, res)
}

// cacheKey hashes the length-prefixed inputs of a pass, so neither field
// can bleed into the other and the key stays small.
func cacheKey(ctx resolve.Context, report string) string {
	h := sha256.New()
	var n [8]byte
	for _, field := range []string{ctx.BaseDir, strconv.FormatBool(ctx.PassThrough), report} {
		binary.BigEndian.PutUint64(n[:], uint64(len(field)))
		h.Write(n[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

type targetInfo struct {
	Name        string `json:"name"`
	Report      string `json:"report,omitempty"`
	BaseDir     string `json:"base_dir,omitempty"`
	PassThrough bool   `json:"pass_through"`
	SkipBuild   bool   `json:"skip_build"`
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	targets := make([]targetInfo, 0, len(s.opts.Targets))
	for _, t := range s.opts.Targets {
		targets = append(targets, targetInfo{
			Name:        t.Name,
			Report:      t.Report,
			BaseDir:     t.BaseDir,
			PassThrough: t.PassThrough,
			SkipBuild:   t.SkipBuild,
		})
	}
	writeJSON(w, http.StatusOK, targets)
}

type tileResponse struct {
	Tile   string     `json:"tile"`
	URL    string     `json:"url"`
	Bounds [4]float64 `json:"bounds"` // west, south, east, north
}

// handleTile answers ?z=&x=&y= or ?id=z/x/y, or ?lng=&lat=&z= for the tile
// containing a point.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	tile, err := tileFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, err := s.opts.Tiles.TileURL(tile.String()+".pbf", s.opts.APIKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	west, south, east, north := tile.Bounds()
	writeJSON(w, http.StatusOK, tileResponse{
		Tile:   tile.String(),
		URL:    u,
		Bounds: [4]float64{west, south, east, north},
	})
}

func tileFromQuery(r *http.Request) (tileserver.TileID, error) {
	q := r.URL.Query()
	if id := q.Get("id"); id != "" {
		return tileserver.ParseTileID(id)
	}

	if q.Has("lng") || q.Has("lat") {
		lng, err := strconv.ParseFloat(q.Get("lng"), 64)
		if err != nil {
			return tileserver.TileID{}, fmt.Errorf("invalid lng %q", q.Get("lng"))
		}
		lat, err := strconv.ParseFloat(q.Get("lat"), 64)
		if err != nil {
			return tileserver.TileID{}, fmt.Errorf("invalid lat %q", q.Get("lat"))
		}
		z, err := strconv.Atoi(q.Get("z"))
		if err != nil || z < 0 || z > tileserver.MaxZoom {
			return tileserver.TileID{}, fmt.Errorf("invalid zoom %q", q.Get("z"))
		}
		return tileserver.TileAt(lng, lat, z), nil
	}

	return tileserver.ParseTileID(strings.Join([]string{q.Get("z"), q.Get("x"), q.Get("y")}, "/"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": model.Version})
}
