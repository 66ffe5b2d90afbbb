// Package security contiene los controllers de observación de seguridad
// (estadísticas del honeypot y blocklist de IPs).
package security

import (
	"encoding/json"
	"net/http"

	"github.com/agrotm/accessguard/internal/honeypot"
	httperrors "github.com/agrotm/accessguard/internal/http/errors"
	"github.com/agrotm/accessguard/internal/observability/logger"
)

// Controller maneja los endpoints /v1/security/*.
type Controller struct {
	tracker *honeypot.Tracker
}

// NewController crea el controller de seguridad.
func NewController(tracker *honeypot.Tracker) *Controller {
	return &Controller{tracker: tracker}
}

// HoneypotStats maneja GET /v1/security/honeypot/stats.
func (c *Controller) HoneypotStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Security.HoneypotStats"))

	stats, err := c.tracker.Stats(ctx)
	if err != nil {
		log.Error("no se pudieron obtener las estadísticas", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type blocklistResponse struct {
	IPs   []string `json:"ips"`
	Count int      `json:"count"`
}

// Blocklist maneja GET /v1/security/blocklist.
func (c *Controller) Blocklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Security.Blocklist"))

	ips, err := c.tracker.Blocklist(ctx)
	if err != nil {
		log.Error("no se pudo leer la blocklist", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable)
		return
	}
	if ips == nil {
		ips = []string{}
	}
	writeJSON(w, http.StatusOK, blocklistResponse{IPs: ips, Count: len(ips)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
