package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter token bucket на каждый IP клиента
type RateLimiter struct {
	bucket    map[string]*rate.Limiter
	rate      rate.Limit
	burstSize int
	mutex     sync.Mutex
	logger    *logrus.Logger
}

// NewRateLimiter разрешает perSecond запросов в секунду на IP с заданным burst.
func NewRateLimiter(perSecond float64, burst int, logger *logrus.Logger) *RateLimiter {
	return &RateLimiter{
		bucket:    make(map[string]*rate.Limiter),
		rate:      rate.Limit(perSecond),
		burstSize: burst,
		logger:    logger,
	}
}

// LimiterFor возвращает bucket одного IP, создавая его при первом обращении.
func (r *RateLimiter) LimiterFor(ip string) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exist := r.bucket[ip]; !exist {
		r.bucket[ip] = rate.NewLimiter(r.rate, r.burstSize)
	}

	return r.bucket[ip]
}

// Middleware отклоняет запросы сверх лимита с кодом 429.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !r.LimiterFor(clientIP).Allow() {
			r.logger.Warnf("Слишком много запросов с IP %s", clientIP)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Слишком много запросов",
			})
			return
		}

		c.Next()
	}
}
