// Package alert envía notificaciones de seguridad (lockouts, IPs bloqueadas)
// por canales salientes best-effort: un fallo de notificación jamás debe
// bloquear ni fallar la decisión de autenticación.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	mail "github.com/go-mail/mail"
)

// Notifier es el canal de alerta saliente.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// =================================================================================
// WEBHOOK
// =================================================================================

// WebhookNotifier postea alertas como JSON a un webhook (formato Discord-style).
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhook crea un notifier de webhook con timeout acotado.
func NewWebhook(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, subject, message string) error {
	payload, err := json.Marshal(map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", subject, message),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert: webhook respondió %d", resp.StatusCode)
	}
	return nil
}

// =================================================================================
// EMAIL (SMTP)
// =================================================================================

// EmailNotifier envía alertas por SMTP al equipo de seguridad.
type EmailNotifier struct {
	dialer *mail.Dialer
	from   string
	to     string
}

// NewEmail crea un notifier SMTP. El dial lleva timeout propio.
func NewEmail(host string, port int, username, password, from, to string) *EmailNotifier {
	d := mail.NewDialer(host, port, username, password)
	d.Timeout = 5 * time.Second
	return &EmailNotifier{dialer: d, from: from, to: to}
}

func (n *EmailNotifier) Notify(ctx context.Context, subject, message string) error {
	m := mail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", message)

	// DialAndSend no acepta contexto; el timeout del dialer acota el envío
	done := make(chan error, 1)
	go func() { done <- n.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =================================================================================
// COMPOSICIÓN
// =================================================================================

// MultiNotifier notifica por todos los canales configurados.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, subject, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, subject, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NoopNotifier descarta todas las alertas (sin canales configurados).
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, subject, message string) error { return nil }
