package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/karnataka-health/anemia-platform/internal/record"
	"github.com/karnataka-health/anemia-platform/internal/shared/metrics"
)

// Pusher posts changed subjects to the downstream sheet endpoint as one
// JSON array per batch. Pushes are rate-limited so a burst of refresh
// cycles cannot hammer the endpoint.
type Pusher struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewPusher builds a pusher with the given batch timeout and a sustained
// rate of perMinute pushes (burst of one).
func NewPusher(url string, timeout time.Duration, perMinute int) *Pusher {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Pusher{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1),
	}
}

// Enabled reports whether a push endpoint is configured.
func (p *Pusher) Enabled() bool {
	return p.url != ""
}

// Push delivers one batch. Any non-2xx response or transport failure is an
// error; the caller must not commit its signature cache in that case.
func (p *Pusher) Push(ctx context.Context, batch []record.Subject) error {
	if !p.Enabled() {
		return fmt.Errorf("no push endpoint configured")
	}
	if len(batch) == 0 {
		return nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	rows := make([]map[string]string, 0, len(batch))
	for _, s := range batch {
		rows = append(rows, Row(s))
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode sync batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		metrics.RecordSyncPush("error", 0)
		return fmt.Errorf("sync push failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordSyncPush("rejected", 0)
		return fmt.Errorf("sync endpoint returned status %d", resp.StatusCode)
	}

	metrics.RecordSyncPush("success", len(batch))
	return nil
}
