package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	apperrors "coachbook/pkg/errors"
	httputil "coachbook/pkg/http"
	"coachbook/pkg/logger"
	"coachbook/pkg/sanitizer"

	"golang.org/x/time/rate"
)

type PhoneExtractor func(r *http.Request) string

type phoneLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PhoneRateLimiter keeps one token bucket per normalised phone number: limit
// requests per window, all of which may arrive as a burst.
type PhoneRateLimiter struct {
	mu             sync.Mutex
	limiters       map[string]*phoneLimiter
	limit          int
	window         time.Duration
	phoneExtractor PhoneExtractor
	log            *logger.Logger
	stopCh         chan struct{}
	stopOnce       sync.Once
}

func NewPhoneRateLimiter(limit int, window time.Duration, extractor PhoneExtractor, log *logger.Logger) *PhoneRateLimiter {
	limiter := &PhoneRateLimiter{
		limiters:       make(map[string]*phoneLimiter),
		limit:          limit,
		window:         window,
		phoneExtractor: extractor,
		log:            log,
		stopCh:         make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

// cleanup drops buckets idle for a full window; those have refilled anyway.
func (rl *PhoneRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for phone, pl := range rl.limiters {
				if time.Since(pl.lastSeen) > rl.window {
					delete(rl.limiters, phone)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *PhoneRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *PhoneRateLimiter) Allow(phone string) bool {
	if phone == "" {
		return true
	}

	rl.mu.Lock()
	pl, ok := rl.limiters[phone]
	if !ok {
		pl = &phoneLimiter{
			limiter: rate.NewLimiter(rate.Every(rl.window/time.Duration(rl.limit)), rl.limit),
		}
		rl.limiters[phone] = pl
	}
	pl.lastSeen = time.Now()
	rl.mu.Unlock()

	return pl.limiter.Allow()
}

func PhoneRateLimit(limiter *PhoneRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			phone := extractPhoneNumber(r, limiter.phoneExtractor)

			if phone == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(phone) {
				rejectRateLimited(w, limiter.log, r, phone)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractPhoneNumber(r *http.Request, extractor PhoneExtractor) string {
	if extractor == nil {
		return r.Header.Get("X-Phone-Number")
	}
	return extractor(r)
}

func rejectRateLimited(w http.ResponseWriter, log *logger.Logger, r *http.Request, phone string) {
	log.Warn("Rate limit exceeded",
		"request_id", RequestID(r),
		"phone", phone,
		"path", r.URL.Path,
	)

	_ = httputil.WriteError(w, apperrors.RateLimited("Rate limit exceeded"))
}

func DefaultPhoneExtractor(r *http.Request) string {
	return sanitizer.NormalizePhone(r.Header.Get("X-Phone-Number"))
}

// JSONBodyPhoneExtractor reads a phone number from a top-level field of a JSON
// POST body and restores the body for the next handler. Requests without the
// field are not rate limited.
func JSONBodyPhoneExtractor(field string) PhoneExtractor {
	return func(r *http.Request) string {
		if r.Method != http.MethodPost || r.Body == nil {
			return DefaultPhoneExtractor(r)
		}

		body, err := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err != nil || len(body) == 0 {
			return ""
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return ""
		}
		raw, ok := fields[field]
		if !ok {
			return ""
		}
		var phone string
		if err := json.Unmarshal(raw, &phone); err != nil {
			return ""
		}
		return sanitizer.NormalizePhone(phone)
	}
}
