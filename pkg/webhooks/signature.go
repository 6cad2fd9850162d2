package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	headerID        = "svix-id"
	headerTimestamp = "svix-timestamp"
	headerSignature = "svix-signature"

	defaultTolerance = 5 * time.Minute
)

// HMACVerifier validates svix-style webhook signatures (the scheme Resend
// uses): HMAC-SHA256 over "{id}.{timestamp}.{body}" with a base64 secret,
// optionally prefixed "whsec_". The signature header may carry several
// space-separated "v1,<base64>" candidates after key rotation.
type HMACVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewHMACVerifier(secret string) (*HMACVerifier, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(secret), "whsec_")
	if trimmed == "" {
		return nil, errors.New("webhook secret is required")
	}
	key, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("webhook secret is not valid base64: %w", err)
	}
	return &HMACVerifier{secret: key, tolerance: defaultTolerance, now: time.Now}, nil
}

func (v *HMACVerifier) Verify(_ context.Context, r *http.Request, body []byte) error {
	id := r.Header.Get(headerID)
	ts := r.Header.Get(headerTimestamp)
	sigHeader := r.Header.Get(headerSignature)
	if id == "" || ts == "" || sigHeader == "" {
		return errors.New("missing signature headers")
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp header: %w", err)
	}
	if delta := v.now().Sub(time.Unix(unix, 0)); delta > v.tolerance || delta < -v.tolerance {
		return errors.New("timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%s.%s.", id, ts)
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, candidate := range strings.Fields(sigHeader) {
		parts := strings.SplitN(candidate, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		sig, err := base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			continue
		}
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return errors.New("no matching signature")
}

// TTLReplayProtector rejects webhook ids it has seen within the TTL window.
// In-memory only: a restart forgets history, which is acceptable because the
// downstream status application is idempotent anyway.
type TTLReplayProtector struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewTTLReplayProtector(ttl time.Duration) *TTLReplayProtector {
	if ttl <= 0 {
		ttl = defaultTolerance
	}
	return &TTLReplayProtector{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

func (p *TTLReplayProtector) Check(_ context.Context, r *http.Request, _ []byte) error {
	id := r.Header.Get(headerID)
	if id == "" {
		return errors.New("missing webhook id header")
	}

	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	for k, exp := range p.seen {
		if !now.Before(exp) {
			delete(p.seen, k)
		}
	}
	if _, ok := p.seen[id]; ok {
		return ErrReplayDetected
	}
	p.seen[id] = now.Add(p.ttl)
	return nil
}
