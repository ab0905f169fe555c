package health

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// Probes implements Checker against the service's real dependencies.
type Probes struct {
	Redis            *redis.Client
	IntentBackendURL string
	HTTP             *http.Client
}

func (p Probes) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return errors.New("redis client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(ctx).Err()
}

// PingIntentBackend probes the intent backend's origin with a lightweight
// request. Any HTTP response counts as reachable; only transport failures are
// reported.
func (p Probes) PingIntentBackend(ctx context.Context, timeout time.Duration) error {
	if p.IntentBackendURL == "" {
		return errors.New("intent backend not configured")
	}
	target, err := url.Parse(p.IntentBackendURL)
	if err != nil {
		return err
	}
	target.Path = ""
	target.RawQuery = ""

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target.String(), nil)
	if err != nil {
		return err
	}
	client := p.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}
