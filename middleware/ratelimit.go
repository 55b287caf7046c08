package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit limits requests per client IP. rate uses the limiter format,
// e.g. "30-M" for thirty requests a minute.
func RateLimit(rate string) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}

	l := limiter.New(memory.NewStore(), r)
	return mgin.NewMiddleware(l,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests", "code": "RATE_LIMITED"})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "rate limiter unavailable"})
		}),
	), nil
}
