package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotm/accessguard/internal/alert"
	"github.com/agrotm/accessguard/internal/honeypot"
	authctrl "github.com/agrotm/accessguard/internal/http/controllers/auth"
	secctrl "github.com/agrotm/accessguard/internal/http/controllers/security"
	authsvc "github.com/agrotm/accessguard/internal/http/services/auth"
	"github.com/agrotm/accessguard/internal/kv"
	"github.com/agrotm/accessguard/internal/security/attempt"
	"github.com/agrotm/accessguard/internal/security/lockout"
	"github.com/agrotm/accessguard/internal/security/nonce"
	"github.com/agrotm/accessguard/internal/security/wallet"
	"github.com/agrotm/accessguard/internal/session"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	sessions := session.NewStore(5, 30*time.Minute)
	tracker := honeypot.NewTracker(kv.NewMemory(""), alert.NoopNotifier{}, 5)
	svc := authsvc.NewService(authsvc.Deps{
		Nonces:   nonce.NewService(5 * time.Minute),
		Attempts: attempt.NewTracker(nil),
		Locks:    lockout.NewManager(15 * time.Minute),
		Sessions: sessions,
		Verifier: wallet.NewVerifier(),
	})

	return New(Deps{
		Auth:            authctrl.NewController(svc),
		Security:        secctrl.NewController(tracker),
		Tracker:         tracker,
		SessionValidate: sessions.Validate,
		CookieName:      "sid",
		KVPing:          func(context.Context) error { return nil },
	})
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestChallengeEndpoint(t *testing.T) {
	h := newTestHandler(t)

	body := bytes.NewBufferString(`{"address":"0x00000000000000000000000000000000000000aa","network":"ethereum"}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/challenge", body))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Message   string `json:"message"`
		ExpiresIn int64  `json:"expiresIn"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "AGROTM DeFi Platform")
	assert.EqualValues(t, 300, resp.ExpiresIn)
}

func TestSessionEndpoint_RequiresToken(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/session", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_MISSING")
}

func TestDecoyRouteServesFakeContent(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-login.php", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Admin Login")

	// El cookie de rastreo viaja en la respuesta
	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "visitor_id" && c.Value != "" {
			found = true
		}
	}
	assert.True(t, found, "decoy responses must set visitor_id")
}

func TestRepeatedDecoyHitsBlockTheIP(t *testing.T) {
	h := newTestHandler(t)

	// Seis visitas del mismo bot cruzan el umbral
	var visitor string
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		if visitor != "" {
			req.AddCookie(&http.Cookie{Name: "visitor_id", Value: visitor})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "decoys always answer")
		for _, c := range rec.Result().Cookies() {
			if c.Name == "visitor_id" {
				visitor = c.Value
			}
		}
	}

	// Una ruta normal desde esa IP recibe 403
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "IP_BLOCKED")

	// Pero los señuelos se siguen sirviendo: no confirmamos la detección
	req = httptest.NewRequest(http.MethodGet, "/phpmyadmin", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Y la blocklist la expone el endpoint de seguridad
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/security/blocklist", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "203.0.113.9")
}

func TestUnknownRouteGetsDecoy404(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no-such-page", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "404 Not Found")
}

func TestLoginEndpoint_BadSignature(t *testing.T) {
	h := newTestHandler(t)
	address := "0x00000000000000000000000000000000000000bb"

	// Primero el desafío, para que el nonce exista
	body := bytes.NewBufferString(fmt.Sprintf(`{"address":%q,"network":"ethereum"}`, address))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/challenge", body))
	require.Equal(t, http.StatusOK, rec.Code)

	body = bytes.NewBufferString(fmt.Sprintf(`{"address":%q,"network":"ethereum","signature":"0xdeadbeef"}`, address))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login", body))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_SIGNATURE")
}
