package order

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ErrNoPayload is returned when a source has no order payload to offer.
var ErrNoPayload = errors.New("order: no payload available")

// Source yields the raw encoded order payload for a checkout attempt. The
// decoding contract is identical regardless of which source produced the raw
// string.
type Source interface {
	Name() string
	Raw(ctx context.Context) (string, error)
}

// ParamSource reads the payload from the page's query parameters. This is the
// primary path: storefront links carry the order in the "order" parameter.
type ParamSource struct {
	Values url.Values
	Param  string
}

// Name implements Source.
func (ParamSource) Name() string { return "query" }

// Raw implements Source.
func (s ParamSource) Raw(_ context.Context) (string, error) {
	param := s.Param
	if param == "" {
		param = "order"
	}
	raw := strings.TrimSpace(s.Values.Get(param))
	if raw == "" {
		return "", ErrNoPayload
	}
	return raw, nil
}

// StoredSource reads a previously stashed payload from Redis. Older storefront
// revisions stashed the order in browser storage; clients that lose the query
// parameter mid-flow can recover it here.
type StoredSource struct {
	Client *redis.Client
	Prefix string
	Key    string
}

// Name implements Source.
func (StoredSource) Name() string { return "stored" }

// Raw implements Source.
func (s StoredSource) Raw(ctx context.Context) (string, error) {
	if s.Client == nil || strings.TrimSpace(s.Key) == "" {
		return "", ErrNoPayload
	}
	raw, err := s.Client.Get(ctx, s.Prefix+s.Key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoPayload
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return "", ErrNoPayload
	}
	return raw, nil
}

// Stash records the raw payload so StoredSource can recover it later.
func (s StoredSource) Stash(ctx context.Context, raw string, ttl time.Duration) error {
	if s.Client == nil || strings.TrimSpace(s.Key) == "" {
		return errors.New("order: stored source not configured")
	}
	return s.Client.Set(ctx, s.Prefix+s.Key, raw, ttl).Err()
}

// FromSources returns the first payload any source offers, together with the
// name of the source that produced it.
func FromSources(ctx context.Context, sources ...Source) (string, string, error) {
	for _, src := range sources {
		raw, err := src.Raw(ctx)
		if errors.Is(err, ErrNoPayload) {
			continue
		}
		if err != nil {
			return "", src.Name(), err
		}
		return raw, src.Name(), nil
	}
	return "", "", ErrNoPayload
}
