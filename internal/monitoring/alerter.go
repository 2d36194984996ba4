// Package monitoring turns run reports into webhook alerts.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/internal/tracker"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunFailed           AlertType = "run_failed"
	AlertPersistenceFailures AlertType = "persistence_failures"
	AlertProviderUnavailable AlertType = "provider_unavailable"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	RunID     string         `json:"run_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates run reports against configured thresholds and sends
// alerts via webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks a finished run and the provider breaker states and
// returns any alerts. breakers may be nil.
func (a *Alerter) Evaluate(report *tracker.RunReport, breakers map[string]resilience.CircuitState) []Alert {
	if report == nil {
		return nil
	}
	var alerts []Alert
	now := time.Now().UTC()

	if report.Error != "" {
		alerts = append(alerts, Alert{
			Type:      AlertRunFailed,
			Severity:  "high",
			Message:   "Disclosure run failed: " + report.Error,
			RunID:     report.RunID,
			Details:   map[string]any{"listed": report.Listed, "new": report.Ingest.New},
			Timestamp: now,
		})
	}

	if failed := report.Ingest.Failed; a.cfg.PersistenceFailureThreshold > 0 && failed >= a.cfg.PersistenceFailureThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertPersistenceFailures,
			Severity: "medium",
			Message: fmt.Sprintf("%d record(s) could not be written to the store (threshold %d)",
				failed, a.cfg.PersistenceFailureThreshold),
			RunID:     report.RunID,
			Details:   map[string]any{"failed": failed, "new": report.Ingest.New},
			Timestamp: now,
		})
	}

	var open []string
	for name, state := range breakers {
		if state == resilience.CircuitOpen {
			open = append(open, name)
		}
	}
	if len(open) > 0 {
		sort.Strings(open)
		alerts = append(alerts, Alert{
			Type:      AlertProviderUnavailable,
			Severity:  "medium",
			Message:   fmt.Sprintf("Circuit open for %v; summaries are falling back", open),
			RunID:     report.RunID,
			Details:   map[string]any{"providers": open},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// Notify evaluates a report and sends the resulting alerts.
func (a *Alerter) Notify(ctx context.Context, report *tracker.RunReport, breakers map[string]resilience.CircuitState) int {
	return a.SendAlerts(ctx, a.Evaluate(report, breakers))
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
