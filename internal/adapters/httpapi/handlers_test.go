package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bnema/hrepl/internal/application"
	"github.com/bnema/hrepl/internal/domain"
	"github.com/bnema/hrepl/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	mu       sync.Mutex
	commands []string
	loadOut  *domain.ReplOutput
	dead     bool
}

func (t *stubTransport) Execute(_ context.Context, command string) (*domain.ReplOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dead {
		return nil, domain.ErrReplUnavailable
	}
	t.commands = append(t.commands, command)

	if strings.HasPrefix(command, ":load") || command == domain.CommandReload {
		out := *t.loadOut
		return &out, nil
	}
	if command == domain.CommandShowModules {
		return &domain.ReplOutput{Stdout: []string{"Main ( src/Main.hs, interpreted )"}}, nil
	}

	return &domain.ReplOutput{Stdout: []string{"answer"}}, nil
}

func (t *stubTransport) Available() bool { return !t.dead }

func (t *stubTransport) Starting() bool { return false }

func (t *stubTransport) Start(context.Context) error { return nil }

func (t *stubTransport) Exit(bool) error { return nil }

type stubLocator struct{}

func (stubLocator) AbsolutePath(unit domain.Unit) (string, error) {
	if unit == "missing.hs" {
		return "", domain.ErrUnitPathUnavailable
	}
	return "/project/" + string(unit), nil
}

type stubResolver struct{ target domain.Target }

func (r stubResolver) TargetFor(unit domain.Unit) (domain.Target, error) {
	if unit == "orphan.hs" {
		return domain.Target{}, domain.ErrTargetNotFound
	}
	return r.target, nil
}

func newTestServer(t *testing.T) (http.Handler, *stubTransport) {
	t.Helper()

	transport := &stubTransport{loadOut: &domain.ReplOutput{Stdout: []string{"Ok, 1 module loaded."}}}
	target := domain.Target{ID: "app:lib", PackageName: "app", Stanza: domain.StanzaLibrary}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	manager := application.NewSessionManager(
		func(domain.Target) (ports.ReplTransport, error) { return transport, nil },
		stubLocator{},
		nil,
		logger,
	)
	queries := application.NewQueryService(manager, stubResolver{target: target}, stubLocator{}, nil, nil, 0, logger)

	return NewRouter(queries, manager, stubResolver{target: target}, logger), transport
}

func doJSON(t *testing.T, server http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestLoadEndpoint(t *testing.T) {
	server, transport := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/load", map[string]any{"file": "src/Main.hs"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Failed bool     `json:"failed"`
		Stdout []string `json:"stdout"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Failed)
	assert.Equal(t, []string{"Ok, 1 module loaded."}, resp.Stdout)
	assert.Contains(t, transport.commands, ":load /project/src/Main.hs")
}

func TestLoadRequiresFile(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/load", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoadUnknownTargetIs404(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/load", map[string]any{"file": "orphan.hs"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoadUnresolvableUnitIs400(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/load", map[string]any{"file": "missing.hs"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoadDeadTransportIs204(t *testing.T) {
	server, transport := newTestServer(t)

	// Prime the session first, then kill the transport.
	rec := doJSON(t, server, http.MethodPost, "/v1/load", map[string]any{"file": "src/Main.hs"})
	require.Equal(t, http.StatusOK, rec.Code)
	transport.dead = true

	rec = doJSON(t, server, http.MethodPost, "/v1/load", map[string]any{"file": "src/Main.hs"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTypeAtEndpoint(t *testing.T) {
	server, transport := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/type-at", map[string]any{
		"file":         "src/Main.hs",
		"start_line":   3,
		"start_column": 1,
		"end_line":     3,
		"end_column":   5,
		"expression":   "main",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, transport.commands, ":type-at /project/src/Main.hs 3 1 3 5 main")
}

func TestLocAtRequiresName(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/loc-at", map[string]any{"file": "src/Main.hs"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInfoEndpoint(t *testing.T) {
	server, transport := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/info", map[string]any{
		"file":   "src/Main.hs",
		"module": "Main",
		"name":   "main",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, transport.commands, ":info main")
}

func TestBrowseEndpoint(t *testing.T) {
	server, transport := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/browse", map[string]any{
		"module": "Main",
		"file":   "src/Main.hs",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, transport.commands, ":browse! Main")
}

func TestSessionsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/load", map[string]any{"file": "src/Main.hs"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/v1/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sessions []sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "app:lib", sessions[0].Target)
	assert.Equal(t, "src/Main.hs", sessions[0].LoadedUnit)
	assert.True(t, sessions[0].ObjectCodeEnabled)
	assert.Equal(t, []string{"Main"}, sessions[0].LoadedModules)
}

func TestClearEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/load", map[string]any{"file": "src/Main.hs"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/v1/clear", map[string]any{"target": "app:lib"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/v1/sessions", nil)
	var sessions []sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Empty(t, sessions[0].LoadedUnit)
	assert.Empty(t, sessions[0].EverLoadedModules)
}

func TestClearUnknownTargetIs404(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/clear", map[string]any{"target": "ghost:lib"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRestartEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/v1/load", map[string]any{"file": "src/Main.hs"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/v1/restart", map[string]any{"target": "app:lib"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
