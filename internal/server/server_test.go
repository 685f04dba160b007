package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/marketplace-api/internal/config"
)

type testServer struct {
	srv *Server
	ts  *httptest.Server
}

func newTestServer(t *testing.T, enforceOwnership bool) *testServer {
	t.Helper()
	cfg := &config.Config{
		Port:             3000,
		DatabaseURL:      filepath.Join(t.TempDir(), "nested", "api.db"),
		JWTSecret:        "server-test-secret-0123456789",
		CORSOrigins:      []string{"https://shop.example"},
		EnforceOwnership: enforceOwnership,
	}
	require.NoError(t, cfg.Validate())

	srv, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return &testServer{srv: srv, ts: ts}
}

// do sends a JSON request and decodes the JSON response.
func (s *testServer) do(t *testing.T, method, path, authorization string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, s.ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := s.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp.StatusCode, out
}

func (s *testServer) register(t *testing.T, name, email string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/usuarios", "", map[string]string{
		"nombre": name, "correo": email, "contraseña": "pw123", "telefono": "555",
	})
	require.Equal(t, http.StatusCreated, status, body)
	return body["data"].(map[string]any)["_id"].(string)
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"correo": email, "contraseña": "pw123",
	})
	require.Equal(t, http.StatusOK, status, body)
	return body["token"].(string)
}

func TestMarketplaceFlow(t *testing.T) {
	s := newTestServer(t, false)

	anaID := s.register(t, "Ana", "ana@x.com")

	stored, err := s.srv.store.Accounts().GetByEmail(context.Background(), "ana@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123", stored.PasswordHash)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, 10, cost)

	status, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"correo": "ana@x.com", "contraseña": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["state"])
	assert.Nil(t, body["token"])

	token := s.login(t, "ana@x.com")
	bearer := "Bearer " + token

	status, body = s.do(t, http.MethodGet, "/api/usuarios/me", bearer, nil)
	require.Equal(t, http.StatusOK, status, body)
	me := body["usuario"].(map[string]any)
	assert.Equal(t, anaID, me["_id"])
	assert.Empty(t, body["productos"])

	status, _ = s.do(t, http.MethodGet, "/api/usuarios/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = s.do(t, http.MethodPost, "/api/productos", bearer, map[string]any{
		"titulo": "  Bike  ", "descripcion": "red", "categoria": "sport", "precio": 120.5,
		"usuarioId": "someone-else",
	})
	require.Equal(t, http.StatusCreated, status, body)
	product := body["producto"].(map[string]any)
	assert.Equal(t, anaID, product["usuarioId"])
	assert.Equal(t, "Bike", product["titulo"])
	assert.Equal(t, true, product["activo"])
	productID := product["_id"].(string)

	status, body = s.do(t, http.MethodGet, "/api/productos", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, body = s.do(t, http.MethodGet, "/api/productos/"+productID, "", nil)
	require.Equal(t, http.StatusOK, status)
	owner := body["producto"].(map[string]any)["usuario"].(map[string]any)
	assert.Equal(t, "Ana", owner["nombre"])

	status, body = s.do(t, http.MethodGet, "/api/usuarios/me", bearer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["productos"], 1)

	status, body = s.do(t, http.MethodDelete, "/api/usuarios/"+anaID, bearer, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, anaID, body["data"].(map[string]any)["_id"])

	// the token is still signed and unexpired, but its account is gone
	status, body = s.do(t, http.MethodGet, "/api/usuarios/me", bearer, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["state"])

	status, _ = s.do(t, http.MethodGet, "/api/productos/"+productID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGuardedRoutes(t *testing.T) {
	s := newTestServer(t, false)
	s.register(t, "Ana", "ana@x.com")

	guarded := []struct{ method, path string }{
		{http.MethodGet, "/api/usuarios"},
		{http.MethodGet, "/api/usuarios/me"},
		{http.MethodPut, "/api/usuarios/me"},
		{http.MethodGet, "/api/usuarios/abc"},
		{http.MethodPut, "/api/usuarios/abc"},
		{http.MethodDelete, "/api/usuarios/abc"},
		{http.MethodPost, "/api/productos"},
		{http.MethodPut, "/api/productos/abc"},
		{http.MethodDelete, "/api/productos/abc"},
	}
	headers := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"no token":     "Bearer ",
		"garbage":      "Bearer not.a.jwt",
	}

	for _, route := range guarded {
		for name, header := range headers {
			t.Run(route.method+" "+route.path+" "+name, func(t *testing.T) {
				status, body := s.do(t, route.method, route.path, header, map[string]string{})
				assert.Equal(t, http.StatusUnauthorized, status)
				assert.Equal(t, false, body["state"])
				assert.NotEmpty(t, body["error"])
			})
		}
	}
}

func TestRewrittenTokenPayloadIsRejected(t *testing.T) {
	s := newTestServer(t, false)
	s.register(t, "Ana", "ana@x.com")
	s.register(t, "Bob", "bob@x.com")
	anaToken := s.login(t, "ana@x.com")

	// Ana's signature over a payload that now names Bob
	parts := strings.Split(anaToken, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	require.Contains(t, string(payload), "ana@x.com")
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.ReplaceAll(string(payload), "ana@x.com", "bob@x.com")))
	forged := strings.Join(parts, ".")

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/usuarios/me"},
		{http.MethodPost, "/api/productos"},
	} {
		status, body := s.do(t, route.method, route.path, "Bearer "+forged, map[string]any{
			"titulo": "x", "descripcion": "x", "categoria": "x", "precio": 1,
		})
		assert.Equal(t, http.StatusUnauthorized, status, route.path)
		assert.Equal(t, false, body["state"])
		assert.Equal(t, "invalid or expired token", body["error"])
	}

	status, body := s.do(t, http.MethodGet, "/api/productos", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["total"])

	status, body = s.do(t, http.MethodGet, "/api/usuarios/me", "Bearer "+anaToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ana@x.com", body["usuario"].(map[string]any)["correo"])
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t, false)

	status, body := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "connected", body["database"])

	status, body = s.do(t, http.MethodGet, "/api/productos", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["total"])

	status, _ = s.do(t, http.MethodGet, "/api/productos/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	s := newTestServer(t, false)

	status, body := s.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["state"])

	status, body = s.do(t, http.MethodPatch, "/api/auth/login", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, false, body["state"])
}

func TestOwnershipEnforcement(t *testing.T) {
	s := newTestServer(t, true)
	anaID := s.register(t, "Ana", "ana@x.com")
	s.register(t, "Bob", "bob@x.com")
	bob := "Bearer " + s.login(t, "bob@x.com")

	status, _ := s.do(t, http.MethodDelete, "/api/usuarios/"+anaID, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPut, "/api/usuarios/"+anaID, bob, map[string]string{"nombre": "Hacked"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, false)

	req, err := http.NewRequest(http.MethodOptions, s.ts.URL+"/api/productos", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	resp, err := s.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "https://shop.example", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestPanicKeepsEnvelope(t *testing.T) {
	s := newTestServer(t, false)
	s.srv.router.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("unexpected nil")
	})

	status, body := s.do(t, http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, body["state"])
	assert.Equal(t, "an internal error occurred", body["error"])

	status, _ = s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
}
