package middlewares

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/agrotm/accessguard/internal/honeypot"
	"github.com/agrotm/accessguard/internal/http/errors"
	"github.com/agrotm/accessguard/internal/observability/logger"
)

const (
	visitorCookieName   = "visitor_id"
	visitorCookieMaxAge = 60 * 60 * 24 * 30 // 30 días
)

// WithHoneypot intercepta accesos a rutas señuelo. Registra la visita y
// responde con contenido falso plausible para mantener al bot ocupado.
// El cookie visitor_id permite correlacionar visitas del mismo bot.
func WithHoneypot(tracker *honeypot.Tracker, secureCookies bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !honeypot.IsDecoyPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			botID := ""
			if c, err := r.Cookie(visitorCookieName); err == nil && c.Value != "" {
				botID = c.Value
			}
			if botID == "" {
				botID = uuid.NewString()
			}

			query := map[string]string{}
			for k, vs := range r.URL.Query() {
				if len(vs) > 0 {
					query[k] = vs[0]
				}
			}

			visit := honeypot.Visit{
				BotID:     botID,
				Path:      r.URL.Path,
				IP:        clientIPOrResolve(r),
				UserAgent: headerOr(r, "User-Agent", "unknown"),
				Referer:   headerOr(r, "Referer", "direct"),
				Query:     query,
				Method:    r.Method,
			}

			// El registro es best-effort: el señuelo se sirve aunque el
			// store esté caído.
			if err := tracker.TrackAccess(r.Context(), visit); err != nil {
				logger.From(r.Context()).Error("fallo registrando acceso a honeypot",
					logger.Err(err))
			}

			http.SetCookie(w, &http.Cookie{
				Name:     visitorCookieName,
				Value:    botID,
				Path:     "/",
				MaxAge:   visitorCookieMaxAge,
				HttpOnly: true,
				Secure:   secureCookies,
			})

			resp := honeypot.DecoyResponse(r.URL.Path, time.Now())
			w.Header().Set("Content-Type", resp.ContentType)
			w.WriteHeader(resp.Status)
			_, _ = w.Write([]byte(resp.Body))
		})
	}
}

// WithBlocklist rechaza requests desde IPs de la blocklist.
// Ante un error del store deja pasar: nunca degradamos disponibilidad
// del servicio por una falla del KV.
func WithBlocklist(tracker *honeypot.Tracker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIPOrResolve(r)
			blocked, err := tracker.IsBlocked(r.Context(), ip)
			if err != nil {
				logger.From(r.Context()).Error("fallo consultando blocklist",
					logger.IP(ip), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if blocked {
				errors.WriteError(w, errors.ErrIPBlocked)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIPOrResolve(r *http.Request) string {
	if ip := GetClientIP(r.Context()); ip != "" {
		return ip
	}
	return resolveClientIP(r)
}

func headerOr(r *http.Request, name, fallback string) string {
	if v := r.Header.Get(name); v != "" {
		return v
	}
	return fallback
}
