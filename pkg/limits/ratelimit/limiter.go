package ratelimit

import (
	"sync"
	"time"
)

// Config contains the per-provider rate limits.
// Zero values mean the dimension is not enforced.
type Config struct {
	// RequestsPerMinute limits requests over the trailing minute.
	RequestsPerMinute int

	// TokensPerMinute limits tokens (prompt+completion) over the trailing
	// minute.
	TokensPerMinute int
}

// Decision is the outcome of an admission check.
type Decision struct {
	// Allowed indicates the request may proceed now.
	Allowed bool

	// Wait is how long until the saturated dimension frees a slot.
	// Only meaningful when Allowed is false.
	Wait time.Duration

	// Reason explains which limit was hit (if Allowed=false).
	Reason string

	// Limit is the configured limit of the dimension that rejected.
	Limit int64

	// Remaining is how many requests/tokens remain in that dimension's
	// window.
	Remaining int64
}

// Limiter enforces sliding-window request and token limits for a single
// provider.
//
// Both dimensions are checked independently: a request must clear the RPM
// window and the TPM window. Either rejection carries the wait until the
// oldest entry of the saturated window expires, so the caller can sleep
// exactly as long as needed.
type Limiter struct {
	mu       sync.Mutex
	config   Config
	requests slidingWindow
	tokens   slidingWindow

	// now is a test seam, defaults to time.Now.
	now func() time.Time
}

// NewLimiter creates a limiter for the given limits.
// Only non-zero limits in the config are enforced.
func NewLimiter(config Config) *Limiter {
	return &Limiter{
		config: config,
		now:    time.Now,
	}
}

// Admit checks whether one more request carrying estimatedTokens would
// exceed either limit. It does not consume capacity; call Record once the
// request is actually sent.
//
// The check is advisory: a rejection tells the caller how long to wait,
// but waiting, skipping the provider, or failing fast is the caller's
// policy decision.
func (l *Limiter) Admit(estimatedTokens int) *Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.requests.prune(now)
	l.tokens.prune(now)

	if l.config.RequestsPerMinute > 0 {
		limit := int64(l.config.RequestsPerMinute)
		if inWindow := l.requests.count(); inWindow+1 > limit {
			return &Decision{
				Allowed:   false,
				Wait:      l.requests.oldestWait(now),
				Reason:    "requests per minute limit exceeded",
				Limit:     limit,
				Remaining: limit - inWindow,
			}
		}
	}

	if l.config.TokensPerMinute > 0 {
		limit := int64(l.config.TokensPerMinute)
		if used := l.tokens.sum(); used+int64(estimatedTokens) > limit {
			return &Decision{
				Allowed:   false,
				Wait:      l.tokens.oldestWait(now),
				Reason:    "tokens per minute limit exceeded",
				Limit:     limit,
				Remaining: limit - used,
			}
		}
	}

	return &Decision{Allowed: true}
}

// Record registers a sent request and its token count in both windows.
func (l *Limiter) Record(tokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.requests.add(now, 0)
	l.tokens.add(now, int64(tokens))
}

// Reset clears both windows. This is primarily for testing.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.requests.reset()
	l.tokens.reset()
}

// Registry holds one limiter per provider name.
// Lookups for unknown providers return a permissive no-limit limiter.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
}

// NewRegistry creates an empty limiter registry.
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*Limiter)}
}

// Register installs a limiter for the named provider, replacing any
// existing one.
func (r *Registry) Register(name string, config Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.limiters[name] = NewLimiter(config)
}

// For returns the limiter registered for the named provider, creating an
// unlimited one on first use if none was registered.
func (r *Registry) For(name string) *Limiter {
	r.mu.RLock()
	l, ok := r.limiters[name]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[name]; ok {
		return l
	}
	l = NewLimiter(Config{})
	r.limiters[name] = l
	return l
}

// ResetAll clears every registered limiter's windows.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.limiters {
		l.Reset()
	}
}
