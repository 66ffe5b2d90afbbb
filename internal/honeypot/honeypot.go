// Package honeypot detects and tracks bots through decoy routes and trap
// form fields. Decoy routes answer with plausible fake content so the bot
// keeps crawling while every hit is recorded; visitors that keep coming
// back get their IP blocklisted.
package honeypot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/agrotm/accessguard/internal/alert"
	"github.com/agrotm/accessguard/internal/kv"
	"github.com/agrotm/accessguard/internal/metrics"
	"github.com/agrotm/accessguard/internal/observability/logger"
)

const (
	keyPrefix    = "agrotm:honeypot:"
	blocklistSet = "agrotm:security:ip-blocklist"

	// DefaultBlockThreshold: a visitor is blocklisted once its hit count
	// exceeds this many decoy accesses.
	DefaultBlockThreshold = 5

	// VisitRetention bounds how long individual visit records are kept.
	VisitRetention = 30 * 24 * time.Hour
)

// decoyPaths are URLs that no legitimate client of this platform requests.
var decoyPaths = map[string]struct{}{
	"/admin":         {},
	"/login":         {},
	"/wp-login.php":  {},
	"/wp-admin":      {},
	"/administrator": {},
	"/phpmyadmin":    {},
	"/config":        {},
	"/backup":        {},
	"/private":       {},
	"/.env":          {},
	"/api/debug":     {},
	"/api/test":      {},
	"/api/keys":      {},
}

// trapFieldNames are form fields hidden from humans via CSS. Any non-empty
// value in one of them marks the submitter as a bot.
var trapFieldNames = []string{
	"email_confirm",
	"website",
	"phone_home",
	"agreement",
}

// IsDecoyPath reports whether path is one of the decoy routes.
func IsDecoyPath(path string) bool {
	_, ok := decoyPaths[path]
	return ok
}

// DecoyPaths returns the decoy route list for router registration.
func DecoyPaths() []string {
	out := make([]string, 0, len(decoyPaths))
	for p := range decoyPaths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// DetectTrapFields returns the trap fields that carry a value in form.
// A non-empty result means the submission came from a bot.
func DetectTrapFields(form url.Values) []string {
	var hit []string
	for _, name := range trapFieldNames {
		if form.Get(name) != "" {
			hit = append(hit, name)
		}
	}
	return hit
}

// Visit is one recorded decoy access.
type Visit struct {
	BotID     string            `json:"botId"`
	Path      string            `json:"path"`
	Timestamp string            `json:"timestamp"`
	IP        string            `json:"ip"`
	UserAgent string            `json:"userAgent"`
	Referer   string            `json:"referer"`
	Query     map[string]string `json:"query,omitempty"`
	Method    string            `json:"method"`
}

// Stats is the aggregate view served to operators.
type Stats struct {
	TotalBots   int64       `json:"totalBots"`
	UniqueIPs   int64       `json:"uniqueIPs"`
	TopPaths    []PathCount `json:"topPaths"`
	LastUpdated string      `json:"lastUpdated"`
}

// PathCount pairs a decoy path with its accumulated hit count.
type PathCount struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

// Tracker records decoy accesses and manages the IP blocklist.
type Tracker struct {
	store     kv.Client
	notifier  alert.Notifier
	threshold int64

	now func() time.Time
}

// NewTracker creates a Tracker. threshold <= 0 falls back to
// DefaultBlockThreshold.
func NewTracker(store kv.Client, notifier alert.Notifier, threshold int64) *Tracker {
	if notifier == nil {
		notifier = alert.NoopNotifier{}
	}
	if threshold <= 0 {
		threshold = DefaultBlockThreshold
	}
	return &Tracker{
		store:     store,
		notifier:  notifier,
		threshold: threshold,
		now:       time.Now,
	}
}

// TrackAccess records one decoy hit: the visit itself (with bounded
// retention), the per-visitor and per-path counters, and the bot/IP sets.
// When the visitor's count crosses the threshold its IP is blocklisted.
//
// Storage failures are returned so the caller can log them, but the decoy
// response must be served regardless.
func (t *Tracker) TrackAccess(ctx context.Context, visit Visit) error {
	now := t.now()
	visit.Timestamp = now.UTC().Format(time.RFC3339)

	data, err := json.Marshal(visit)
	if err != nil {
		return fmt.Errorf("honeypot: marshal visit: %w", err)
	}

	accessKey := fmt.Sprintf("%saccess:%s:%d", keyPrefix, visit.BotID, now.UnixMilli())
	if err := t.store.Set(ctx, accessKey, string(data), VisitRetention); err != nil {
		return fmt.Errorf("honeypot: record visit: %w", err)
	}

	count, err := t.store.Incr(ctx, keyPrefix+"count:"+visit.BotID)
	if err != nil {
		return fmt.Errorf("honeypot: bump visitor counter: %w", err)
	}

	if _, err := t.store.Incr(ctx, keyPrefix+"path:"+visit.Path); err != nil {
		return fmt.Errorf("honeypot: bump path counter: %w", err)
	}
	if _, err := t.store.SAdd(ctx, keyPrefix+"bots", visit.BotID); err != nil {
		return fmt.Errorf("honeypot: register bot: %w", err)
	}
	if _, err := t.store.SAdd(ctx, keyPrefix+"ips", visit.IP); err != nil {
		return fmt.Errorf("honeypot: register ip: %w", err)
	}

	metrics.RecordHoneypotHit(visit.Path)
	logger.L().Warn("acceso a honeypot",
		logger.VisitorID(visit.BotID),
		logger.IP(visit.IP),
		logger.Path(visit.Path),
	)

	if count > t.threshold {
		t.blockVisitor(ctx, visit.BotID, visit.IP)
	}
	return nil
}

// blockVisitor adds ip to the blocklist. The set add is idempotent and its
// return value decides notification, so the alert fires exactly once per IP
// even under concurrent threshold crossings.
func (t *Tracker) blockVisitor(ctx context.Context, botID, ip string) {
	added, err := t.store.SAdd(ctx, blocklistSet, ip)
	if err != nil {
		logger.L().Error("no se pudo agregar IP a la blocklist",
			logger.IP(ip), logger.Err(err))
		return
	}
	if added == 0 {
		return
	}

	metrics.RecordBlocklistAdd()
	logger.L().Warn("bot bloqueado por accesos repetidos a honeypots",
		logger.VisitorID(botID),
		logger.IP(ip),
	)

	msg := fmt.Sprintf("IP: %s\nBot ID: %s\nHorário: %s\nMotivo: Múltiplos acessos a honeypots",
		ip, botID, t.now().UTC().Format(time.RFC3339))
	if err := t.notifier.Notify(ctx, "Bot Detectado e Bloqueado", msg); err != nil {
		logger.L().Error("fallo al notificar al equipo de seguridad", logger.Err(err))
	}
}

// IsBlocked reports whether ip is on the blocklist.
func (t *Tracker) IsBlocked(ctx context.Context, ip string) (bool, error) {
	return t.store.SIsMember(ctx, blocklistSet, ip)
}

// Blocklist returns every blocklisted IP.
func (t *Tracker) Blocklist(ctx context.Context) ([]string, error) {
	ips, err := t.store.SMembers(ctx, blocklistSet)
	if err != nil {
		return nil, err
	}
	sort.Strings(ips)
	return ips, nil
}

// Stats aggregates the tracking data. Path counts come from dedicated
// counters, so this stays cheap no matter how many visits are stored.
func (t *Tracker) Stats(ctx context.Context) (Stats, error) {
	bots, err := t.store.SCard(ctx, keyPrefix+"bots")
	if err != nil {
		return Stats{}, err
	}
	ips, err := t.store.SCard(ctx, keyPrefix+"ips")
	if err != nil {
		return Stats{}, err
	}

	counts := make([]PathCount, 0, len(decoyPaths))
	for _, path := range DecoyPaths() {
		raw, err := t.store.Get(ctx, keyPrefix+"path:"+path)
		if err != nil {
			if kv.IsNotFound(err) {
				continue
			}
			return Stats{}, err
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		counts = append(counts, PathCount{Path: path, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Path < counts[j].Path
	})
	if len(counts) > 10 {
		counts = counts[:10]
	}

	return Stats{
		TotalBots:   bots,
		UniqueIPs:   ips,
		TopPaths:    counts,
		LastUpdated: t.now().UTC().Format(time.RFC3339),
	}, nil
}
