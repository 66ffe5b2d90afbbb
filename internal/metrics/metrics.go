// Package metrics define las métricas Prometheus del servicio.
// Están en un package propio para evitar ciclos de import entre
// services, middlewares y el router HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	// Auth / security metrics
	authAttemptsTotal  *prometheus.CounterVec
	lockoutsTotal      prometheus.Counter
	honeypotHitsTotal  *prometheus.CounterVec
	blocklistAddsTotal prometheus.Counter
	trapFieldHitsTotal *prometheus.CounterVec
	sessionsActive     prometheus.GaugeFunc
)

// Config agrupa dependencias para exponer /metrics.
type Config struct {
	Registry prometheus.Registerer
	// ActiveSessions alimenta el gauge de sesiones vivas.
	ActiveSessions func() int
}

// Register inicializa las métricas y devuelve el handler para /metrics.
func Register(cfg Config) (http.Handler, error) {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método y ruta",
		}, []string{"method", "path"})

		authAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Intentos de autenticación por propósito y resultado",
		}, []string{"purpose", "result"}) // result: success|invalid_signature|rate_limited|locked|invalid_request

		lockoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_lockouts_total",
			Help: "Identificadores bloqueados por exceso de intentos fallidos",
		})

		honeypotHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honeypot_hits_total",
			Help: "Accesos a rutas señuelo por path",
		}, []string{"path"})

		blocklistAddsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "honeypot_blocklist_adds_total",
			Help: "IPs agregadas a la blocklist",
		})

		trapFieldHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "honeypot_trap_field_hits_total",
			Help: "Campos trampa completados en formularios",
		}, []string{"field"})

		active := cfg.ActiveSessions
		if active == nil {
			active = func() int { return 0 }
		}
		sessionsActive = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Sesiones autenticadas vivas",
		}, func() float64 { return float64(active()) })

		for _, c := range []prometheus.Collector{
			httpRequestsTotal,
			httpRequestDuration,
			httpInflight,
			authAttemptsTotal,
			lockoutsTotal,
			honeypotHitsTotal,
			blocklistAddsTotal,
			trapFieldHitsTotal,
			sessionsActive,
		} {
			if err := registerCollector(registry, c); err != nil {
				metricsErr = err
				return
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}

	// Usamos el gatherer global por compatibilidad, ya que las métricas se registran allí.
	return promhttp.Handler(), nil
}

// registerCollector registra el collector en el registry indicado, ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// WithHTTP instrumenta requests HTTP (contadores, latencia, inflight).
func WithHTTP(next http.Handler) http.Handler {
	if next == nil {
		return nil
	}
	if httpRequestsTotal == nil || httpRequestDuration == nil || httpInflight == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		pathLabel := normalizePath(r.URL.Path)

		httpInflight.WithLabelValues(method, pathLabel).Inc()
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			httpInflight.WithLabelValues(method, pathLabel).Dec()
			httpRequestDuration.WithLabelValues(method, pathLabel).Observe(time.Since(start).Seconds())

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(method, pathLabel, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// normalizePath colapsa segmentos dinámicos para acotar la cardinalidad.
// Las rutas de este servicio son fijas, así que solo se recorta lo largo.
func normalizePath(p string) string {
	clean := strings.SplitN(p, "?", 2)[0]
	if clean == "" || clean == "/" {
		return "/"
	}
	segments := strings.Split(strings.Trim(clean, "/"), "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if len(seg) > 48 {
			seg = ":param"
		}
		out = append(out, seg)
	}
	return "/" + strings.Join(out, "/")
}

// RecordAuthAttempt registra el resultado de un intento de autenticación.
func RecordAuthAttempt(purpose, result string) {
	if authAttemptsTotal != nil {
		authAttemptsTotal.WithLabelValues(purpose, result).Inc()
	}
}

// RecordLockout registra un bloqueo de identificador.
func RecordLockout() {
	if lockoutsTotal != nil {
		lockoutsTotal.Inc()
	}
}

// RecordHoneypotHit registra un acceso a una ruta señuelo.
func RecordHoneypotHit(path string) {
	if honeypotHitsTotal != nil {
		honeypotHitsTotal.WithLabelValues(path).Inc()
	}
}

// RecordBlocklistAdd registra una IP nueva en la blocklist.
func RecordBlocklistAdd() {
	if blocklistAddsTotal != nil {
		blocklistAddsTotal.Inc()
	}
}

// RecordTrapField registra un campo trampa completado.
func RecordTrapField(field string) {
	if trapFieldHitsTotal != nil {
		trapFieldHitsTotal.WithLabelValues(field).Inc()
	}
}
