// Package router arma el árbol de rutas del servicio.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agrotm/accessguard/internal/honeypot"
	authctrl "github.com/agrotm/accessguard/internal/http/controllers/auth"
	secctrl "github.com/agrotm/accessguard/internal/http/controllers/security"
	mw "github.com/agrotm/accessguard/internal/http/middlewares"
	"github.com/agrotm/accessguard/internal/metrics"
)

// Deps contiene todo lo necesario para armar el router.
type Deps struct {
	Auth     *authctrl.Controller
	Security *secctrl.Controller
	Tracker  *honeypot.Tracker

	SessionValidate mw.SessionValidator
	CookieName      string
	SecureCookies   bool

	MetricsHandler http.Handler
	KVPing         func(ctx context.Context) error
}

// New construye el handler raíz con la cadena completa de middlewares.
//
// El orden importa: el honeypot intercepta ANTES de la blocklist, para que
// los bots ya bloqueados sigan recibiendo señuelos en vez de un 403 que
// les confirme la detección.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRecover())
	r.Use(mw.WithRequestID())
	r.Use(mw.WithClientIP())
	r.Use(mw.WithLogging())
	r.Use(metrics.WithHTTP)
	r.Use(mw.WithHoneypot(deps.Tracker, deps.SecureCookies))
	r.Use(mw.WithBlocklist(deps.Tracker))

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/challenge", deps.Auth.Challenge)
		r.Post("/login", deps.Auth.Login)
		r.Post("/register", deps.Auth.Register)

		r.Group(func(r chi.Router) {
			r.Use(mw.WithSession(deps.SessionValidate, deps.CookieName))
			r.Get("/session", deps.Auth.Session)
			r.Post("/logout", deps.Auth.Logout)
			r.Post("/logout-all", deps.Auth.LogoutAll)
		})
	})

	r.Route("/v1/security", func(r chi.Router) {
		r.Get("/honeypot/stats", deps.Security.HoneypotStats)
		r.Get("/blocklist", deps.Security.Blocklist)
	})

	r.Get("/healthz", healthHandler(deps.KVPing))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// Las rutas desconocidas sirven el 404 señuelo: mismo contenido que ve
	// un bot, sin registro de visita.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		resp := honeypot.DecoyResponse(r.URL.Path, time.Now())
		w.Header().Set("Content-Type", resp.ContentType)
		w.WriteHeader(resp.Status)
		_, _ = w.Write([]byte(resp.Body))
	})

	return r
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
