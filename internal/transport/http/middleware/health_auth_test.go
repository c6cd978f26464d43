package httpmw

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubVerifier struct {
	err   error
	calls int
	got   string
}

func (v *stubVerifier) Verify(token string, _ time.Time) error {
	v.calls++
	v.got = token
	return v.err
}

func TestHealthAuth(t *testing.T) {
	denied := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name      string
		cookie    *http.Cookie
		verifyErr error
		want      int
		wantCalls int
	}{
		{name: "no cookie", want: http.StatusUnauthorized},
		{name: "empty cookie", cookie: &http.Cookie{Name: HealthCookie, Value: ""}, want: http.StatusUnauthorized},
		{name: "other cookie only", cookie: &http.Cookie{Name: "session", Value: "tok"}, want: http.StatusUnauthorized},
		{name: "rejected token", cookie: &http.Cookie{Name: HealthCookie, Value: "tok"}, verifyErr: errors.New("expired"), want: http.StatusUnauthorized, wantCalls: 1},
		{name: "valid token", cookie: &http.Cookie{Name: HealthCookie, Value: "tok"}, want: http.StatusOK, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &stubVerifier{err: tt.verifyErr}
			h := HealthAuth(v, denied)(next)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.wantCalls, v.calls)
			if tt.wantCalls > 0 {
				assert.Equal(t, "tok", v.got)
			}
		})
	}
}
