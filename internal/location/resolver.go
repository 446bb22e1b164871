package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Fix is a resolved coordinate with its accuracy and acquisition time.
type Fix struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	AccuracyM float64   `json:"accuracyM,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Code classifies resolution failures.
type Code string

const (
	CodePermissionDenied Code = "permission_denied"
	CodeTimeout          Code = "timeout"
	CodeUnavailable      Code = "unavailable"
	CodeUnknown          Code = "unknown"
)

// Error is a classified location failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("location %s: %s", e.Code, e.Message)
}

// Provider supplies raw position fixes (a GPS bridge, an IP lookup, or a
// client-reported position).
type Provider interface {
	CheckPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context, highAccuracy bool) (Fix, error)
}

// Cache stores the last known fix. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context) (*Fix, error)
	Set(ctx context.Context, fix Fix) error
}

// Options controls one resolution attempt.
type Options struct {
	Timeout      time.Duration
	UseCache     bool
	HighAccuracy bool
}

const (
	defaultTimeout = 10 * time.Second
	maxCacheAge    = 5 * time.Minute
	inFlightWait   = 5 * time.Second
)

// Resolver obtains the current coordinate with caching, single-flight
// deduplication, timeout racing, and a degraded-accuracy retry.
type Resolver struct {
	provider Provider
	cache    Cache
	log      *slog.Logger

	mu       sync.Mutex
	inFlight chan struct{}
}

// NewResolver constructs a Resolver.
func NewResolver(provider Provider, cache Cache, log *slog.Logger) *Resolver {
	return &Resolver{provider: provider, cache: cache, log: log}
}

// Resolve returns the current coordinate. A cached fix younger than 5 minutes
// satisfies the call immediately when caching is allowed. If another
// resolution is already running it waits up to 5 seconds for that one instead
// of starting a duplicate. On failure it falls back to the last cached fix of
// any age, then to a reduced-accuracy attempt at half the timeout, and
// finally propagates a classified Error.
func (r *Resolver) Resolve(ctx context.Context, opts Options) (Fix, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	if opts.UseCache {
		if fix := r.cachedFix(ctx); fix != nil && time.Since(fix.Timestamp) < maxCacheAge {
			return *fix, nil
		}
	}

	if done := r.begin(); done != nil {
		// Another resolution is in progress; piggyback on its result.
		select {
		case <-done:
		case <-time.After(inFlightWait):
		case <-ctx.Done():
			return Fix{}, classify(ctx.Err())
		}
		if fix := r.cachedFix(ctx); fix != nil {
			return *fix, nil
		}
		// The other attempt produced nothing; run our own.
		if done := r.begin(); done != nil {
			return Fix{}, &Error{Code: CodeUnavailable, Message: "resolution already in progress"}
		}
	}
	defer r.end()

	fix, err := r.resolveOnce(ctx, opts.Timeout, opts.HighAccuracy)
	if err == nil {
		r.store(ctx, fix)
		return fix, nil
	}
	r.log.Warn("location resolution failed", "err", err)

	if fix := r.cachedFix(ctx); fix != nil {
		r.log.Warn("using stale cached location", "age", time.Since(fix.Timestamp))
		return *fix, nil
	}

	if opts.HighAccuracy {
		retry, retryErr := r.resolveOnce(ctx, opts.Timeout/2, false)
		if retryErr == nil {
			r.store(ctx, retry)
			return retry, nil
		}
		r.log.Warn("reduced-accuracy retry failed", "err", retryErr)
	}

	return Fix{}, classify(err)
}

// resolveOnce races a single position fix against the timeout.
func (r *Resolver) resolveOnce(ctx context.Context, timeout time.Duration, highAccuracy bool) (Fix, error) {
	granted, err := r.provider.CheckPermission(ctx)
	if err != nil {
		return Fix{}, fmt.Errorf("checking location permission: %w", err)
	}
	if !granted {
		return Fix{}, &Error{Code: CodePermissionDenied, Message: "location permission was denied"}
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		fix Fix
		err error
	}
	ch := make(chan result, 1)
	go func() {
		fix, err := r.provider.CurrentPosition(rctx, highAccuracy)
		ch <- result{fix: fix, err: err}
	}()

	select {
	case <-rctx.Done():
		if ctx.Err() != nil {
			return Fix{}, classify(ctx.Err())
		}
		return Fix{}, &Error{Code: CodeTimeout, Message: "location request timed out"}
	case res := <-ch:
		if res.err != nil {
			return Fix{}, res.err
		}
		fix := res.fix
		if fix.Timestamp.IsZero() {
			fix.Timestamp = time.Now()
		}
		return fix, nil
	}
}

// begin marks a resolution as in flight. It returns nil when this caller owns
// the flight, or the current flight's done channel otherwise.
func (r *Resolver) begin() chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight != nil {
		return r.inFlight
	}
	r.inFlight = make(chan struct{})
	return nil
}

func (r *Resolver) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight != nil {
		close(r.inFlight)
		r.inFlight = nil
	}
}

func (r *Resolver) cachedFix(ctx context.Context) *Fix {
	fix, err := r.cache.Get(ctx)
	if err != nil {
		r.log.Warn("location cache read failed", "err", err)
		return nil
	}
	return fix
}

func (r *Resolver) store(ctx context.Context, fix Fix) {
	if err := r.cache.Set(ctx, fix); err != nil {
		r.log.Warn("location cache write failed", "err", err)
	}
}

func classify(err error) *Error {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeTimeout, Message: "location request timed out"}
	}

	msg := ""
	if err != nil {
		msg = err.Error()
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "denied"):
		return &Error{Code: CodePermissionDenied, Message: msg}
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "canceled"):
		return &Error{Code: CodeTimeout, Message: msg}
	case strings.Contains(lower, "unavailable") || strings.Contains(lower, "disabled"):
		return &Error{Code: CodeUnavailable, Message: msg}
	default:
		return &Error{Code: CodeUnknown, Message: "location error: " + msg}
	}
}

// FixedProvider always reports the same coordinate with permission granted.
// It backs server deployments where requests normally carry an explicit
// center and the resolver only supplies a default.
type FixedProvider struct {
	Lat float64
	Lon float64
}

func (p FixedProvider) CheckPermission(context.Context) (bool, error) {
	return true, nil
}

func (p FixedProvider) CurrentPosition(context.Context, bool) (Fix, error) {
	return Fix{Lat: p.Lat, Lon: p.Lon, Timestamp: time.Now()}, nil
}
