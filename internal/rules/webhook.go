package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ioprotolab/simhub/internal/payload"
)

// HTTPWebhook is the default Webhook implementation: a POST of the data
// object's JSON encoding to url using a plain net/http.Client.
type HTTPWebhook struct {
	Client  *http.Client
	Timeout time.Duration
}

func NewHTTPWebhook() *HTTPWebhook {
	return &HTTPWebhook{Client: &http.Client{}, Timeout: 5 * time.Second}
}

func (w *HTTPWebhook) Post(ctx context.Context, url string, body payload.Value) error {
	data, err := json.Marshal(payload.ToAny(body))
	if err != nil {
		return fmt.Errorf("rules: marshal webhook body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("rules: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client().Do(req)
	if err != nil {
		return fmt.Errorf("rules: webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("rules: webhook %s returned status %d", url, resp.StatusCode)
	}
	return nil
}

func (w *HTTPWebhook) client() *http.Client {
	if w.Client != nil {
		return w.Client
	}
	return http.DefaultClient
}

func (w *HTTPWebhook) timeout() time.Duration {
	if w.Timeout > 0 {
		return w.Timeout
	}
	return 5 * time.Second
}
