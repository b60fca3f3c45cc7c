// Package fetcher performs rate-limited, optionally cached HTTP GETs.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"reflect"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotJSON is returned by GetJSON when the body cannot be decoded.
var ErrNotJSON = errors.New("response is not valid JSON")

// HTTPError is a non-200 response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("failed to fetch %s, status code: %d", e.URL, e.StatusCode)
}

// Transient reports whether retrying the request may succeed.
func (e *HTTPError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Cache stores response bodies by URL.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, body []byte) error
}

// Options configures a Fetcher. Zero values select defaults.
type Options struct {
	UserAgent string
	Timeout   time.Duration

	// RequestsPerSecond limits requests across all callers. <=0 disables.
	RequestsPerSecond float64

	// MaxRetries is the number of extra attempts on transient failures.
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	Cache Cache
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 250 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 4 * time.Second
	}
	return o
}

type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	opts    Options
}

func NewFetcher(opts Options) *Fetcher {
	opts = opts.withDefaults()
	f := &Fetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
	if opts.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return f
}

// GetBytes returns the body of a successful GET, retrying transient
// failures. It never consults the cache; GetJSON does.
func (f *Fetcher) GetBytes(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	var err error
	for attempt := 0; ; attempt++ {
		body, err = f.get(ctx, url)
		if err == nil || attempt >= f.opts.MaxRetries || !isTransient(err) {
			break
		}
		t := time.NewTimer(backoffSleep(f.opts.BackoffInitial, f.opts.BackoffMax, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Validator is implemented by documents that can report an in-band error,
// such as an API error envelope served with HTTP 200.
type Validator interface {
	Validate() error
}

// GetJSON fetches url and decodes its body into v. When a cache is
// configured, only bodies that decode and pass v's Validate are stored, and
// a cached body that no longer decodes is fetched again.
func (f *Fetcher) GetJSON(ctx context.Context, url string, v any) error {
	if f.opts.Cache != nil {
		if body, ok := f.opts.Cache.Get(url); ok {
			if decodeJSON(body, v) == nil {
				return nil
			}
			reset(v)
		}
	}

	body, err := f.GetBytes(ctx, url)
	if err != nil {
		return err
	}
	if err := decodeJSON(body, v); err != nil {
		return err
	}

	if f.opts.Cache != nil {
		// A failed cache write only costs a refetch later.
		_ = f.opts.Cache.Set(url, body)
	}
	return nil
}

// reset zeroes the value v points to so a fresh decode does not inherit
// fields from a rejected one.
func reset(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv.Elem().SetZero()
	}
}

func decodeJSON(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	if val, ok := v.(Validator); ok {
		return val.Validate()
	}
	return nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func isTransient(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Transient()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func backoffSleep(initial, max time.Duration, attempt int) time.Duration {
	d := initial << attempt
	if d <= 0 || d > max {
		d = max
	}
	// +/-20% jitter
	jitter := time.Duration((rand.Float64()*0.4 - 0.2) * float64(d))
	return d + jitter
}
