package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/pkg"

	"github.com/go-redis/redis_rate/v9"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=rate_limiting_mocks_test.go -package=middleware_test

type RequestRateLimiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

func RateLimit(
	rateLimiter RequestRateLimiter,
	routerName string,
	allowedPerMin int,
	metricsManager *metrics.Manager,
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// limited per client address, all clients share one bucket when it is unreadable
			key := routerName
			if ip, err := pkg.ReadUserIP(r); err == nil {
				key = routerName + ":" + ip
			} else {
				log.Debugf("rate limiter [%s]: %s", routerName, err)
			}

			res, err := rateLimiter.Allow(
				r.Context(),
				key,
				redis_rate.PerMinute(allowedPerMin),
			)
			if err != nil {
				log.Errorf("rate limiter [%s]: %s", routerName, err)
				pkg.WriteJSONError(w, http.StatusInternalServerError, "rate limit internal error")
				return
			}

			if res.Allowed > 0 {
				next.ServeHTTP(w, r)
				return
			}

			if metricsManager != nil {
				metricsManager.CounterRateLimitedRequests.Inc()
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds()+1)))
			pkg.WriteJSONError(
				w,
				http.StatusTooManyRequests,
				fmt.Sprintf("retry after %.0f seconds", res.RetryAfter.Seconds()),
			)
		})
	}
}
