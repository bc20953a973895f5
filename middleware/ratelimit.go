package middleware

import (
	"net/http"

	"transcriptionapi/pkg/apperror"
	"transcriptionapi/pkg/response"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const rateLimitPrefix = "transcription_api"

// NewRateLimiter builds a limiter for a formatted rate such as "100-M". With a
// nil client counters are kept in process memory.
func NewRateLimiter(rate string, client *redis.Client) (*limiter.Limiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}

	var st limiter.Store
	if client != nil {
		st, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
		if err != nil {
			return nil, err
		}
	} else {
		st = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          rateLimitPrefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}
	return limiter.New(st, r), nil
}

// RateLimit rejects callers over the limit with 429, keyed by client IP.
func RateLimit(l *limiter.Limiter) func(http.Handler) http.Handler {
	m := mstdlib.NewMiddleware(l,
		mstdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			response.Detail(w, http.StatusTooManyRequests, "Rate limit exceeded")
		}),
		mstdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			response.Error(w, apperror.Internal("Rate limiter failed", err))
		}),
	)
	return m.Handler
}
