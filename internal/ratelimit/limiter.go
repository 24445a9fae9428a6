package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Bucket defines rate limit parameters.
type Bucket struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultBuckets are the per-IP limits for each public endpoint group.
var DefaultBuckets = map[string]Bucket{
	"classify": {MaxRequests: 60, Window: time.Minute},
	"malware":  {MaxRequests: 20, Window: time.Minute},
	"stream":   {MaxRequests: 10, Window: time.Minute},
}

// Limiter is an in-memory sliding-window rate limiter per key.
type Limiter struct {
	mu      sync.Mutex
	hits    map[string][]time.Time
	buckets map[string]Bucket
	now     func() time.Time
}

// New creates a new rate limiter. Buckets override DefaultBuckets by name.
func New(buckets map[string]Bucket) *Limiter {
	merged := make(map[string]Bucket, len(DefaultBuckets)+len(buckets))
	for name, b := range DefaultBuckets {
		merged[name] = b
	}
	for name, b := range buckets {
		merged[name] = b
	}
	return &Limiter{hits: make(map[string][]time.Time), buckets: merged, now: time.Now}
}

// Allow checks if a request identified by key is within the rate limit for the
// given bucket. Returns true if allowed.
func (l *Limiter) Allow(key string, bucket Bucket) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-bucket.Window)

	// Prune old entries
	times := l.hits[key]
	pruned := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}

	if len(pruned) >= bucket.MaxRequests {
		l.hits[key] = pruned
		return false
	}

	l.hits[key] = append(pruned, now)
	return true
}

// Check writes an http.StatusTooManyRequests error response if the client is
// rate limited for the given bucket name. Returns true if the request was rejected.
func (l *Limiter) Check(w http.ResponseWriter, r *http.Request, bucketName string) bool {
	bucket, ok := l.AllowClient(r, bucketName)
	if ok {
		return false
	}

	retry := strconv.Itoa(int(bucket.Window.Seconds()))
	w.Header().Set("Retry-After", retry)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"Rate limited","retry_after_seconds":` + retry + `}`))
	return true
}

// AllowClient records a hit for the client behind r in the named bucket and
// reports whether it is within the limit.
func (l *Limiter) AllowClient(r *http.Request, bucketName string) (Bucket, bool) {
	bucket, ok := l.buckets[bucketName]
	if !ok {
		bucket = Bucket{MaxRequests: 60, Window: time.Minute}
	}
	return bucket, l.Allow(bucketName+":"+ClientIP(r), bucket)
}

// ClientIP returns the caller's address without its port, preferring
// X-Real-IP when a proxy has set it.
func ClientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if fwd := r.Header.Get("X-Real-IP"); fwd != "" {
		ip = fwd
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return ip
}

// Prune drops keys whose hits are all older than the longest bucket window.
func (l *Limiter) Prune() int {
	var longest time.Duration
	for _, b := range l.buckets {
		if b.Window > longest {
			longest = b.Window
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-longest)
	removed := 0
	for key, times := range l.hits {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(l.hits, key)
			removed++
		}
	}
	return removed
}

// CleanupLoop prunes idle keys every interval until ctx is cancelled.
func (l *Limiter) CleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}

// Keys returns the number of tracked keys.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}
