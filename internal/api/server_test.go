package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/pool"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/service/explorer"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/session"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/logger"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/testhelpers"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	p := pool.New(pool.Config{}, log)
	store := session.NewManager(context.Background(), nil, session.Config{}, log)

	s, err := NewServer(&ServerOptions{
		Pool:            p,
		SessionStore:    store,
		ExplorerService: explorer.NewService(p, store, log),
		Logger:          log,
	})
	testhelpers.AssertNoError(t, err)
	return s
}

func TestNewServer(t *testing.T) {
	tests := []struct {
		name    string
		opts    *ServerOptions
		wantErr bool
	}{
		{
			name:    "nil options",
			opts:    nil,
			wantErr: true,
		},
		{
			name:    "empty options",
			opts:    &ServerOptions{},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			server, err := NewServer(tt.opts)
			if tt.wantErr {
				testhelpers.AssertError(t, err)
				if server != nil {
					t.Error("Expected server to be nil when error occurs")
				}
			} else {
				testhelpers.AssertNoError(t, err)
				testhelpers.AssertNotNil(t, server)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	s.Router().ServeHTTP(w, req)

	testhelpers.AssertEqual(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	s.Router().ServeHTTP(w, req)

	testhelpers.AssertEqual(t, http.StatusOK, w.Code)
}

func TestConnectRequiresBody(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, V0PathPrefix+"/connect", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)

	testhelpers.AssertEqual(t, http.StatusBadRequest, w.Code)
}

func TestSessionHeaderRequired(t *testing.T) {
	s := newTestServer(t)

	paths := []string{
		V0PathPrefix + "/databases",
		V0PathPrefix + "/databases/app/collections",
		V0PathPrefix + "/databases/app/collections/users/stats",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, path, nil)
			s.Router().ServeHTTP(w, req)

			testhelpers.AssertEqual(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestUnknownSessionRejected(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, V0PathPrefix+"/databases", nil)
	req.Header.Set(SessionIDHeader, "not-a-real-token")
	s.Router().ServeHTTP(w, req)

	testhelpers.AssertEqual(t, http.StatusUnauthorized, w.Code)
}

func TestDisconnectUnknownSession(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, V0PathPrefix+"/disconnect", nil)
	req.Header.Set(SessionIDHeader, "not-a-real-token")
	s.Router().ServeHTTP(w, req)

	testhelpers.AssertEqual(t, http.StatusNotFound, w.Code)
}

func TestExportErrorsKeepJSONHeaders(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, V0PathPrefix+"/databases/app/collections/users/export", strings.NewReader(`{"format":"csv"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SessionIDHeader, "not-a-real-token")
	s.Router().ServeHTTP(w, req)

	testhelpers.AssertEqual(t, http.StatusUnauthorized, w.Code)
	testhelpers.AssertEqual(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	testhelpers.AssertEqual(t, "", w.Header().Get("Content-Disposition"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, V0PathPrefix+"/databases/app/collections/users/export", strings.NewReader(`{"format":"xml"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SessionIDHeader, "not-a-real-token")
	s.Router().ServeHTTP(w, req)

	testhelpers.AssertEqual(t, http.StatusBadRequest, w.Code)
}

func TestAdminEndpointsEmpty(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{V0PathPrefix + "/admin/sessions", V0PathPrefix + "/admin/pool"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, path, nil)
			s.Router().ServeHTTP(w, req)

			testhelpers.AssertEqual(t, http.StatusOK, w.Code)
		})
	}
}
