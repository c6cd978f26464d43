package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cwrk-planet/presence-relay/internal/eventlog"
	"github.com/cwrk-planet/presence-relay/internal/security"
	httpmw "github.com/cwrk-planet/presence-relay/internal/transport/http/middleware"
)

type stubStats struct{ conns, rooms int }

func (s stubStats) Stats() (int, int) { return s.conns, s.rooms }

func newTestRouter(t *testing.T, password string) http.Handler {
	t.Helper()

	var hash string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(h)
	}
	passwords, err := security.NewPasswordChecker("", hash)
	require.NoError(t, err)
	signer, err := security.NewAccessSigner([]byte("secret"), "presence-relay", 10*time.Minute, 0)
	require.NoError(t, err)

	events := eventlog.New(eventlog.DefaultCapacity)
	events.Append("Server initialized")
	events.Append("New room created: ABC123")

	dist := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>spa</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	h := NewHandler(stubStats{conns: 3, rooms: 1}, events, passwords, signer, HealthConfig{})
	ws := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("metrics")) })

	return NewRouter(h, signer, ws, metrics, RouterConfig{StaticDir: dist})
}

func login(t *testing.T, router http.Handler, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/health/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func accessCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpmw.HealthCookie {
			return c
		}
	}
	return nil
}

func get(router http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth_GatedWithoutCookie(t *testing.T) {
	router := newTestRouter(t, "pw")

	for _, path := range []string{"/health", "/health/api"} {
		rec := get(router, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Health Access Restricted", path)
	}
}

func TestHealth_ForgedCookieRejected(t *testing.T) {
	router := newTestRouter(t, "pw")

	rec := get(router, "/health/api", &http.Cookie{Name: httpmw.HealthCookie, Value: "pw"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth_LoginFlow(t *testing.T) {
	router := newTestRouter(t, "pw")

	rec := login(t, router, "wrong")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Nil(t, accessCookie(rec))

	rec = login(t, router, "pw")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/health", rec.Header().Get("Location"))
	cookie := accessCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 600, cookie.MaxAge)

	rec = get(router, "/health", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "New room created: ABC123")

	rec = get(router, "/health/api", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var report HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "healthy", report.Status)
	assert.Equal(t, 3, report.Sockets.ActiveConnections)
	assert.Equal(t, 1, report.Sockets.ActiveSessions)
	assert.Positive(t, report.Server.PID)
	require.Len(t, report.Events, 2)
	assert.Equal(t, "New room created: ABC123", report.Events[0].Message)
}

func TestHealth_Logout(t *testing.T) {
	router := newTestRouter(t, "pw")

	req := httptest.NewRequest(http.MethodPost, "/health/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookie := accessCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestHealth_UnsetPasswordStaysLocked(t *testing.T) {
	router := newTestRouter(t, "")

	rec := login(t, router, "")
	assert.Nil(t, accessCookie(rec))
	rec = login(t, router, "anything")
	assert.Nil(t, accessCookie(rec))

	rec = get(router, "/health", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")
}

func TestRouter_PublicRoutes(t *testing.T) {
	router := newTestRouter(t, "pw")

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/metrics", http.StatusOK, "metrics"},
		{"/ws", http.StatusTeapot, ""},
		{"/assets/app.js", http.StatusOK, "console.log(1)"},
		{"/", http.StatusOK, "spa"},
		{"/some/client/route", http.StatusOK, "spa"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(router, tt.path, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "1h 1m 5s", formatUptime(3665.7))
	assert.Equal(t, "0h 0m 0s", formatUptime(0))
}
