package middleware

import (
	"chalet/config"
	"chalet/shared"
	"chalet/transport/http/response"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const throttleIdleTTL = 10 * time.Minute

// Throttle bounds how fast one caller may hit an endpoint, e.g. guessing guest codes.
type Throttle interface {
	PerActor(next http.Handler) http.Handler
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type throttleImpl struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewThrottle(cfg *config.Config) Throttle {
	perMinute := max(cfg.Booking.Scan.RatePerMinute, 1)

	return newThrottle(rate.Limit(float64(perMinute)/time.Minute.Seconds()), max(cfg.Booking.Scan.Burst, 1), time.Now)
}

func newThrottle(limit rate.Limit, burst int, now func() time.Time) *throttleImpl {
	return &throttleImpl{
		limit:    limit,
		burst:    burst,
		now:      now,
		visitors: make(map[string]*visitor),
	}
}

// allow keys on the authenticated user and falls back to the client address.
func (t *throttleImpl) allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()

	for k, v := range t.visitors {
		if now.Sub(v.lastSeen) > throttleIdleTTL {
			delete(t.visitors, k)
		}
	}

	v, ok := t.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[key] = v
	}

	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

func (t *throttleImpl) PerActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, _ := shared.Actor(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}

		if !t.allow(key) {
			log.Warn().Str("actor", key).Str("path", r.URL.Path).Msg("request throttled")
			response.WithRequestLimitExceeded(w)

			return
		}

		next.ServeHTTP(w, r)
	})
}
