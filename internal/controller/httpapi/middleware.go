package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/model"
	"github.com/Freeeeeet/mentorbook/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const actorKey = "actor"

// identity загружает пользователя из заголовка и кладёт актора в контекст запроса
func (h *Handler) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		userID, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || userID <= 0 {
			abortWithError(c, http.StatusUnauthorized, "unauthenticated", "missing or malformed "+UserIDHeader+" header")
			return
		}

		actor, err := h.users.ResolveActor(c.Request.Context(), userID)
		if errors.Is(err, service.ErrUserNotFound) {
			abortWithError(c, http.StatusUnauthorized, "unauthenticated", "unknown user")
			return
		}
		if err != nil {
			h.respondError(c, err)
			c.Abort()
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) model.Actor {
	actor, _ := c.MustGet(actorKey).(model.Actor)
	return actor
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// rateLimiter ограничивает запросы по IP клиента
type rateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	perMin    int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
	logger    *zap.Logger
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterIdleTTL через сколько простоя лимитер клиента удаляется.
// Корзина успевает наполниться за минуту, так что удаление ничего не меняет для клиента.
const limiterIdleTTL = 10 * time.Minute

func newRateLimiter(perMin int, logger *zap.Logger) *rateLimiter {
	return &rateLimiter{
		limiters: make(map[string]*clientLimiter),
		perMin:   perMin,
		idleTTL:  limiterIdleTTL,
		now:      time.Now,
		logger:   logger,
	}
}

func (l *rateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	cl, ok := l.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)}
		l.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// sweep не чаще раза в idleTTL удаляет лимитеры простаивающих клиентов
func (l *rateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now

	for key, cl := range l.limiters {
		if now.Sub(cl.lastSeen) >= l.idleTTL {
			delete(l.limiters, key)
		}
	}
}

func (l *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.limiter(ip).Allow() {
			l.logger.Warn("Rate limit exceeded", zap.String("ip", ip))
			abortWithError(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later")
			return
		}
		c.Next()
	}
}
