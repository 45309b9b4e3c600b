package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicrego/vicrego/internal/auth"
	"github.com/vicrego/vicrego/internal/protocol"
	"github.com/vicrego/vicrego/internal/ratelimit"
	"github.com/vicrego/vicrego/internal/snapshot"
	"github.com/vicrego/vicrego/internal/tools/rego_tools"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestContext(t *testing.T, mutate func(*ServerContextConfig)) *ServerContext {
	t.Helper()

	snapshots := snapshot.NewService(snapshot.NopStore{}, nil, testLogger())
	registry := protocol.NewRegistry()
	rego_tools.RegisterRegoTools(registry, snapshots)

	config := ServerContextConfig{
		Limiter:   ratelimit.New(100, time.Minute),
		Snapshots: snapshots,
		Registry:  registry,
		Logger:    testLogger(),
		Version:   "test",
	}
	if mutate != nil {
		mutate(&config)
	}

	sc, err := NewServerContext(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func postMCP(handler http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.RemoteAddr = "192.0.2.10:54321"
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRootEndpoint(t *testing.T) {
	handler := New(newTestContext(t, nil)).Handler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "vic-rego-estimator", body["service"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDReused(t *testing.T) {
	handler := New(newTestContext(t, nil)).Handler()

	rec := postMCP(handler, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, map[string]string{
		"X-Request-ID": "req-abc-123",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	handler := New(newTestContext(t, nil)).Handler()

	rec := postMCP(handler, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestInitialize(t *testing.T) {
	handler := New(newTestContext(t, nil)).Handler()

	rec := postMCP(handler, `{"jsonrpc":"2.0","id":3,"method":"initialize"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "2.0", body["jsonrpc"])
	assert.Equal(t, float64(3), body["id"])

	result := body["result"].(map[string]any)
	assert.Equal(t, protocol.ProtocolVersion, result["protocolVersion"])

	serverInfo := result["serverInfo"].(map[string]any)
	assert.Equal(t, "vic-rego-estimator", serverInfo["name"])

	schemes := result["securitySchemes"].([]any)
	require.Len(t, schemes, 1)
	assert.Equal(t, "noauth", schemes[0].(map[string]any)["type"])
}

func TestToolsList(t *testing.T) {
	handler := New(newTestContext(t, nil)).Handler()

	rec := postMCP(handler, `{"jsonrpc":"2.0","id":4,"method":"tools/list"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	tools := body["result"].(map[string]any)["tools"].([]any)
	require.Len(t, tools, 4)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.Equal(t, []string{
		"normalize_vehicle_request",
		"get_fee_snapshot",
		"estimate_registration_cost",
		"explain_assumptions",
	}, names)
}

func TestToolsCallEstimate(t *testing.T) {
	handler := New(newTestContext(t, nil)).Handler()

	rec := postMCP(handler, `{
		"jsonrpc": "2.0",
		"id": 5,
		"method": "tools/call",
		"params": {
			"name": "estimate_registration_cost",
			"arguments": {
				"transaction_type": "renewal",
				"vehicle_category": "passenger_car",
				"term_months": 12,
				"make": "Toyota",
				"model": "Corolla",
				"year": 2020,
				"fuel_type": "petrol",
				"postcode": "3000"
			}
		}
	}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	result := body["result"].(map[string]any)
	content := result["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "Estimated VIC cost 1460.00-1460.00 AUD (high confidence).", content["text"])

	meta := result["meta"].(map[string]any)
	assert.Equal(t, "ui://widget/index.html", meta["openai_output_template"])
}

func TestUnsupportedMethod(t *testing.T) {
	handler := New(newTestContext(t, nil)).Handler()

	rec := postMCP(handler, `{"jsonrpc":"2.0","id":11,"method":"bad/method"}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Unsupported MCP method: bad/method", body["detail"])
	assert.Equal(t, []any{"Retry with a supported MCP method: initialize, tools/list, or tools/call."}, body["recovery_steps"])
	assert.NotEmpty(t, body["request_id"])
}

func TestUnknownTool(t *testing.T) {
	handler := New(newTestContext(t, nil)).Handler()

	rec := postMCP(handler, `{
		"jsonrpc": "2.0",
		"id": 12,
		"method": "tools/call",
		"params": {"name": "not_a_real_tool", "arguments": {}}
	}`, nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Unknown tool not_a_real_tool", body["detail"])
	assert.Equal(t, []any{"Retry using a tool name returned by tools/list."}, body["recovery_steps"])
}

func TestMalformedBody(t *testing.T) {
	handler := New(newTestContext(t, nil)).Handler()

	rec := postMCP(handler, `{not json`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Request body must be a JSON object.", body["detail"])
}

func TestInternalErrorHidesDetail(t *testing.T) {
	sc := newTestContext(t, nil)
	sc.Registry().Register(&protocol.ToolDef{
		Name:        "always_fails",
		Description: "test tool",
		InputSchema: map[string]any{"type": "object"},
		Handler: func(context.Context, map[string]any) (*protocol.Envelope, error) {
			panic("secret internal detail")
		},
	})
	handler := New(sc).Handler()

	rec := postMCP(handler, `{
		"jsonrpc": "2.0",
		"id": 15,
		"method": "tools/call",
		"params": {"name": "always_fails", "arguments": {}}
	}`, nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Internal error while handling MCP request", body["detail"])
	assert.Equal(t, []any{"Retry the request. If the issue persists, contact support with X-Request-ID."}, body["recovery_steps"])
	assert.NotContains(t, rec.Body.String(), "secret internal detail")
}

func TestRateLimitDenied(t *testing.T) {
	handler := New(newTestContext(t, func(config *ServerContextConfig) {
		config.Limiter = ratelimit.New(1, time.Minute)
	})).Handler()

	first := postMCP(handler, `{"jsonrpc":"2.0","id":13,"method":"tools/list"}`, nil)
	second := postMCP(handler, `{"jsonrpc":"2.0","id":14,"method":"tools/list"}`, nil)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	retryAfter, err := strconv.Atoi(second.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)

	body := decodeBody(t, second)
	assert.Equal(t, []any{"Wait for Retry-After seconds, then retry the request."}, body["recovery_steps"])
}

func TestRateLimitSpareRoutes(t *testing.T) {
	handler := New(newTestContext(t, func(config *ServerContextConfig) {
		config.Limiter = ratelimit.New(1, time.Minute)
	})).Handler()

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := New(newTestContext(t, nil))
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	srv.HealthChecker().SetReady(false)
	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// Auth pipeline tests against a local JWKS server with a generated key.

const testKid = "pipeline-key-1"

func newAuthContext(t *testing.T) (*ServerContext, *rsa.PrivateKey, auth.Config) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		payload := map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": testKid,
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(jwks.Close)

	authConfig := auth.Config{
		Issuer:     "https://example.auth0.com/",
		Audience:   "api://vic-rego",
		ClientID:   "chatgpt-connector",
		JWKSURL:    jwks.URL,
		Algorithms: []string{auth.AlgorithmRS256},
	}
	authenticator, err := auth.New(authConfig, nil)
	require.NoError(t, err)

	sc := newTestContext(t, func(config *ServerContextConfig) {
		config.Authenticator = authenticator
	})
	return sc, key, authConfig
}

func signTestToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestAuthMissingToken(t *testing.T) {
	sc, _, _ := newAuthContext(t)
	handler := New(sc).Handler()

	rec := postMCP(handler, `{"jsonrpc":"2.0","id":17,"method":"tools/list"}`, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Missing bearer token", body["detail"])

	challenge := rec.Header().Get("WWW-Authenticate")
	assert.Contains(t, challenge, `Bearer realm="vic-rego-estimator"`)
	assert.Contains(t, challenge, `authorization_uri="https://example.auth0.com/authorize"`)
	assert.Contains(t, challenge, `resource="api://vic-rego"`)
	assert.Contains(t, challenge, `client_id="chatgpt-connector"`)
	assert.Contains(t, challenge, `error="invalid_request"`)
	assert.Contains(t, challenge, `error_description="Missing bearer token"`)
}

func TestAuthValidToken(t *testing.T) {
	sc, key, config := newAuthContext(t)
	handler := New(sc).Handler()

	now := time.Now()
	token := signTestToken(t, key, jwt.MapClaims{
		"sub": "user-42",
		"iss": config.Issuer,
		"aud": config.Audience,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})

	rec := postMCP(handler, `{"jsonrpc":"2.0","id":18,"method":"tools/list"}`, map[string]string{
		"Authorization": "Bearer " + token,
	})

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthExpiredToken(t *testing.T) {
	sc, key, config := newAuthContext(t)
	handler := New(sc).Handler()

	now := time.Now()
	token := signTestToken(t, key, jwt.MapClaims{
		"sub": "user-42",
		"iss": config.Issuer,
		"aud": config.Audience,
		"iat": now.Add(-2 * time.Hour).Unix(),
		"exp": now.Add(-time.Hour).Unix(),
	})

	rec := postMCP(handler, `{"jsonrpc":"2.0","id":19,"method":"tools/list"}`, map[string]string{
		"Authorization": "Bearer " + token,
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Token is invalid or expired", body["detail"])
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
}

func TestAuthInitializeStillProtected(t *testing.T) {
	sc, _, _ := newAuthContext(t)
	handler := New(sc).Handler()

	rec := postMCP(handler, `{"jsonrpc":"2.0","id":20,"method":"initialize"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRootUnprotected(t *testing.T) {
	sc, _, _ := newAuthContext(t)
	handler := New(sc).Handler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestInitializeAdvertisesOAuthWhenConfigured(t *testing.T) {
	sc, key, config := newAuthContext(t)
	handler := New(sc).Handler()

	now := time.Now()
	token := signTestToken(t, key, jwt.MapClaims{
		"sub": "user-42",
		"iss": config.Issuer,
		"aud": config.Audience,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})

	rec := postMCP(handler, `{"jsonrpc":"2.0","id":21,"method":"initialize"}`, map[string]string{
		"Authorization": "Bearer " + token,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	schemes := body["result"].(map[string]any)["securitySchemes"].([]any)
	require.Len(t, schemes, 1)
	assert.Equal(t, "oauth2", schemes[0].(map[string]any)["type"])
}

func TestServerContextValidation(t *testing.T) {
	_, err := NewServerContext(context.Background(), ServerContextConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter is required")
}
