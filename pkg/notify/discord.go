package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Ruscigno/ADRPulse/model"
)

// DiscordNotifier posts the latest merged row to a Discord webhook.
// Delivery is fire-and-forget: the pipeline never fails because of it.
type DiscordNotifier struct {
	webhookURL string
	chartURL   string
	client     *http.Client
	logger     *zap.Logger
}

// NewDiscordNotifier creates a notifier for the given webhook. chartURL is
// appended to the message as a link to the rendered chart site; it may be
// empty.
func NewDiscordNotifier(webhookURL, chartURL string, logger *zap.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		chartURL:   chartURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// NotifyLatest formats rec and posts it to the webhook.
func (n *DiscordNotifier) NotifyLatest(ctx context.Context, rec model.AlignedRecord) error {
	payload, err := json.Marshal(map[string]string{"content": n.formatMessage(rec)})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	n.logger.Info("Posted premium update",
		zap.String("date", rec.Date.Format(model.DateFormat)))
	return nil
}

func (n *DiscordNotifier) formatMessage(rec model.AlignedRecord) string {
	msg := fmt.Sprintf(
		"📢 TSMC ADR premium update\nDate: %s\nADR: %s TWD\nTSE: %s TWD\nPremium: %s%%",
		rec.Date.Format(model.DateFormat),
		rec.ADRInTWD.StringFixed(2),
		rec.HomeClose.StringFixed(2),
		rec.Premium.StringFixed(2),
	)
	if n.chartURL != "" {
		msg += fmt.Sprintf("\n[🔗 Chart](%s)", n.chartURL)
	}
	return msg
}
