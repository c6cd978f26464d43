package httpmw

import (
	"net/http"
	"time"
)

// HealthCookie - cookie с токеном доступа к диагностике.
const HealthCookie = "health_access"

type TokenVerifier interface {
	Verify(token string, now time.Time) error
}

// HealthAuth пропускает запрос только с валидной cookie, иначе отдаёт denied
// (страницу входа со статусом 401).
func HealthAuth(verifier TokenVerifier, denied http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(HealthCookie)
			if err != nil || c.Value == "" {
				denied.ServeHTTP(w, r)
				return
			}
			if err := verifier.Verify(c.Value, time.Now()); err != nil {
				L(r.Context()).Debug("health access denied", "err", err)
				denied.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
