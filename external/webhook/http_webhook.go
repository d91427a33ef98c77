package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/foxseedlab/auditbot/internal/webhook"
)

const (
	userAgent          = "auditbot-export-webhook"
	schemaHeader       = "X-Audit-Schema-Version"
	deliveryHeader     = "X-Audit-Delivery"
	maxErrorBodyLength = 512
)

// HTTPSender posts closed-audit exports as JSON to EXPORT_WEBHOOK_URL.
type HTTPSender struct {
	url    string
	client *http.Client
}

// NewHTTPSender returns a sender that does nothing when url is empty.
func NewHTTPSender(url string) webhook.Sender {
	return &HTTPSender{url: url, client: &http.Client{}}
}

func (s *HTTPSender) SendExport(ctx context.Context, payload webhook.ExportWebhookPayload) error {
	if s.url == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode export payload for %s: %w", payload.TableName, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build export webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(schemaHeader, payload.SchemaVersion)
	// receivers dedupe retries on the audit id
	req.Header.Set(deliveryHeader, payload.AuditID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post export webhook for %s: %w", payload.TableName, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("export webhook for %s returned status %d: %s", payload.TableName, resp.StatusCode, readErrorBody(resp.Body))
	}
	return nil
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBodyLength))
	if err != nil {
		return "<unreadable body>"
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return "<empty body>"
	}
	return text
}
