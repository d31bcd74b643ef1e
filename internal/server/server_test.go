// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/hlsvault/internal/control/middleware"
	"github.com/ManuGH/hlsvault/internal/gateway"
	"github.com/ManuGH/hlsvault/internal/health"
	"github.com/ManuGH/hlsvault/internal/platform/httpx"
)

const playlist = "#EXTM3U\n#EXT-X-TARGETDURATION:6\n#EXTINF:6.0,\nsegments/segment_000.ts\n#EXTINF:6.0,\nsegment_001.ts\n#EXT-X-ENDLIST\n"

func newServer(t *testing.T, upstream http.Handler) (*Server, *http.Client) {
	t.Helper()
	cdn := httptest.NewServer(upstream)
	t.Cleanup(cdn.Close)

	client := httpx.NewClient(2 * time.Second)
	t.Cleanup(client.CloseIdleConnections)

	gw, err := gateway.New(gateway.Config{CDNBaseURL: cdn.URL}, client, gateway.Options{})
	require.NoError(t, err)

	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewConfigChecker("cdn_base_url", cdn.URL))

	cfg := DefaultConfig("127.0.0.1:0", time.Second)
	cfg.Stack = middleware.StackConfig{}
	srv, err := New(cfg, gw, hm)
	require.NoError(t, err)
	return srv, client
}

func serve(srv *Server, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestServer_RoutesThroughStack(t *testing.T) {
	srv, _ := newServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, playlist)
	}))

	rr := serve(srv, http.MethodGet, "/proxy/videos/demo/stream.m3u8")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/vnd.apple.mpegurl", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "\n/proxy/videos/demo/segments/segment_000.ts\n")
	assert.Contains(t, rr.Body.String(), "\n/proxy/videos/demo/segment_001.ts\n")
	assert.NotEmpty(t, rr.Header().Get(middleware.HeaderRequestID))

	rr = serve(srv, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rr.Body.String())

	rr = serve(srv, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(srv, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "hlsvault_upstream_requests_total")

	rr = serve(srv, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Not Found","message":"No route matches the request"}`, rr.Body.String())
}

func TestServer_ErrorCarriesRequestID(t *testing.T) {
	srv, _ := newServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/proxy/videos/demo/stream.m3u8", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-77")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), `"requestId":"req-77"`)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{}, nil, health.NewManager(""))
	assert.Error(t, err)
}

func TestServer_RunShutdown_NoGoroutineLeak(t *testing.T) {
	srv, client := newServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, playlist)
	}))
	// The fake CDN outlives this check and is closed by t.Cleanup.
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var hookRan bool
	srv.RegisterShutdownHook("flag", func(context.Context) error {
		hookRan = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, 2*time.Second, 10*time.Millisecond)

	resp, err := client.Get(fmt.Sprintf("http://%s/health", srv.Addr()))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "healthy"))

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run() didn't return after cancellation")
	}
	assert.True(t, hookRan)
	client.CloseIdleConnections()

	assert.ErrorIs(t, srv.Run(context.Background()), ErrAlreadyStarted)
}

func TestServer_RunReportsListenError(t *testing.T) {
	srv, _ := newServer(t, http.NotFoundHandler())
	srv.cfg.ListenAddr = "256.0.0.1:bad"

	err := srv.Run(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAlreadyStarted))
}

func TestServer_ShutdownHookErrorsJoined(t *testing.T) {
	srv, _ := newServer(t, http.NotFoundHandler())
	srv.RegisterShutdownHook("broken", func(context.Context) error { return errors.New("flush failed") })

	err := srv.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook broken: flush failed")
	assert.NoError(t, srv.Shutdown(context.Background()))
}
