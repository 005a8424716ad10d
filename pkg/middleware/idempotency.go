package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "coachbook/pkg/errors"
	httputil "coachbook/pkg/http"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotentReplayHeader  = "Idempotent-Replayed"
	idempotencyCleanupEvery = 10 * time.Minute
)

type IdempotencyStore interface {
	// Reserve claims key for an in-flight request. It returns the cached
	// response when one exists, and reserved=false when another request holds key.
	Reserve(key string) (cached *CachedResponse, reserved bool)
	Complete(key string, response *CachedResponse)
	Release(key string)
	Stop()
}

type CachedResponse struct {
	// RequestHash fingerprints the body of the request that produced the
	// response. A replay is only served to an identical body.
	RequestHash string
	StatusCode  int
	Headers     http.Header
	Body        []byte
	CreatedAt   time.Time
}

type idempotencyEntry struct {
	response *CachedResponse
	pending  bool
}

type InMemoryIdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		entries: make(map[string]*idempotencyEntry),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

func (s *InMemoryIdempotencyStore) Reserve(key string) (*CachedResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	switch {
	case !ok || s.expired(entry):
		s.entries[key] = &idempotencyEntry{pending: true}
		return nil, true
	case entry.pending:
		return nil, false
	default:
		return entry.response, true
	}
}

func (s *InMemoryIdempotencyStore) Complete(key string, response *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	response.CreatedAt = s.now()
	s.entries[key] = &idempotencyEntry{response: response}
}

func (s *InMemoryIdempotencyStore) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok && entry.pending {
		delete(s.entries, key)
	}
}

func (s *InMemoryIdempotencyStore) expired(entry *idempotencyEntry) bool {
	return !entry.pending && s.now().Sub(entry.response.CreatedAt) > s.ttl
}

func (s *InMemoryIdempotencyStore) evictLoop() {
	ticker := time.NewTicker(idempotencyCleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, entry := range s.entries {
				if s.expired(entry) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rr *responseRecorder) WriteHeader(status int) {
	if rr.status == 0 {
		rr.status = status
	}
	rr.ResponseWriter.WriteHeader(status)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	rr.body.Write(b)
	return rr.ResponseWriter.Write(b)
}

// Idempotency replays the first successful response for a repeated key on
// mutating requests. Keys are scoped by method and path, so one key reused
// across endpoints does not collide. A repeat that arrives while the first
// request is still running gets 409, and a repeat with a different body gets
// 422. Responses marked Cache-Control: no-store are never kept, so the next
// request with the key runs the handler again.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = IdempotencyKeyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(headerName)
			if key == "" || !isMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			key = r.Method + " " + r.URL.Path + " " + key

			requestHash, err := fingerprintBody(r)
			if err != nil {
				_ = httputil.WriteError(w, err)
				return
			}

			cached, reserved := store.Reserve(key)
			if !reserved {
				_ = httputil.WriteError(w, apperrors.Conflict("A request with this idempotency key is already in progress"))
				return
			}
			if cached != nil {
				if cached.RequestHash != requestHash {
					_ = httputil.WriteError(w, apperrors.Validation("Idempotency key was already used with a different request body", nil))
					return
				}
				replay(w, cached)
				return
			}

			rec := &responseRecorder{ResponseWriter: w}
			completed := false
			defer func() {
				if !completed {
					store.Release(key)
				}
			}()

			next.ServeHTTP(rec, r)

			if rec.status >= 200 && rec.status < 300 && !noStore(w.Header()) {
				store.Complete(key, &CachedResponse{
					RequestHash: requestHash,
					StatusCode:  rec.status,
					Headers:     w.Header().Clone(),
					Body:        bytes.Clone(rec.body.Bytes()),
				})
				completed = true
			}
		})
	}
}

// fingerprintBody hashes the request body and puts it back for the handler.
func fingerprintBody(r *http.Request) (string, error) {
	if r.Body == nil {
		return hashOf(nil), nil
	}
	body, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", apperrors.New(apperrors.CodeInvalidInput, "Request body too large", http.StatusRequestEntityTooLarge)
		}
		return "", apperrors.Wrap(err, apperrors.CodeInvalidInput, "Failed to read request body", http.StatusBadRequest)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return hashOf(body), nil
}

func hashOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func noStore(h http.Header) bool {
	for _, directive := range strings.Split(h.Get("Cache-Control"), ",") {
		if strings.EqualFold(strings.TrimSpace(directive), "no-store") {
			return true
		}
	}
	return false
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func replay(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set(IdempotentReplayHeader, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
