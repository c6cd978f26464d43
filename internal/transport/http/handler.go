package http

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/cwrk-planet/presence-relay/internal/domain"
	"github.com/cwrk-planet/presence-relay/internal/security"
	httpmw "github.com/cwrk-planet/presence-relay/internal/transport/http/middleware"
	"github.com/cwrk-planet/presence-relay/pkg/httputil"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"uptime":     formatUptime,
	"eventClass": eventClass,
}).ParseFS(templatesFS, "templates/*.html"))

type StatsSource interface {
	Stats() (connections, rooms int)
}

type EventSource interface {
	Recent() []domain.Event
}

type HealthConfig struct {
	CookieSecure bool
	RefreshEvery time.Duration
}

type Handler struct {
	stats     StatsSource
	events    EventSource
	passwords *security.PasswordChecker
	signer    *security.AccessSigner
	cfg       HealthConfig

	startedAt time.Time
	now       func() time.Time
}

func NewHandler(stats StatsSource, events EventSource, passwords *security.PasswordChecker, signer *security.AccessSigner, cfg HealthConfig) *Handler {
	if cfg.RefreshEvery <= 0 {
		cfg.RefreshEvery = 2 * time.Second
	}
	return &Handler{
		stats:     stats,
		events:    events,
		passwords: passwords,
		signer:    signer,
		cfg:       cfg,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// GET /health (за HealthAuth)
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := struct {
		HealthReport
		RefreshMillis int64
	}{
		HealthReport:  h.report(),
		RefreshMillis: h.cfg.RefreshEvery.Milliseconds(),
	}
	h.render(w, r, http.StatusOK, "dashboard.html", data)
}

// GET /health/api (за HealthAuth)
func (h *Handler) HealthAPI(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, h.report())
}

// Login - страница входа с 401, её же отдаёт HealthAuth при отказе.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusUnauthorized, "login.html", struct{ Configured bool }{h.passwords.Configured()})
}

// POST /health/login
func (h *Handler) DoLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid form")
		return
	}

	if !h.passwords.Check(r.PostFormValue("password")) {
		httpmw.L(r.Context()).Warn("health login rejected", "remote_ip", r.RemoteAddr)
		http.Redirect(w, r, "/health", http.StatusSeeOther)
		return
	}

	now := h.now()
	token, err := h.signer.Sign(now)
	if err != nil {
		slog.Error("handler.DoLogin.Sign:", slog.Any("err", err))
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     httpmw.HealthCookie,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(h.signer.TTL()),
		MaxAge:   int(h.signer.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	http.Redirect(w, r, "/health", http.StatusSeeOther)
}

// POST /health/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpmw.HealthCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	http.Redirect(w, r, "/health", http.StatusSeeOther)
}

// GET /healthz
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) report() HealthReport {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	conns, rooms := h.stats.Stats()
	events := h.events.Recent()
	if events == nil {
		events = []domain.Event{}
	}

	now := h.now()
	return HealthReport{
		Status:    "healthy",
		Timestamp: now.UTC(),
		Server: ServerReport{
			UptimeSeconds: now.Sub(h.startedAt).Seconds(),
			PID:           os.Getpid(),
			Goroutines:    runtime.NumGoroutine(),
			Memory: MemoryReport{
				HeapAllocBytes: mem.HeapAlloc,
				HeapInuseBytes: mem.HeapInuse,
				SysBytes:       mem.Sys,
				NumGC:          mem.NumGC,
			},
		},
		Sockets: SocketReport{
			ActiveConnections: conns,
			ActiveSessions:    rooms,
		},
		Events: events,
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		httpmw.L(r.Context()).Error("render page failed", "page", name, "err", err)
	}
}

func formatUptime(seconds float64) string {
	s := int64(seconds)
	return fmt.Sprintf("%dh %dm %ds", s/3600, (s%3600)/60, s%60)
}

func eventClass(msg string) string {
	switch {
	case strings.Contains(msg, "joined"):
		return "joined"
	case strings.Contains(msg, "created"):
		return "created"
	case strings.Contains(msg, "closed"):
		return "closed"
	default:
		return ""
	}
}
