package httpapi

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserIDHeader заголовок с ID пользователя, проставленный шлюзом аутентификации
const UserIDHeader = "X-User-ID"

type Options struct {
	CORSOrigins     []string
	RateLimitPerMin int
	Production      bool
}

type Handler struct {
	users        *service.UserService
	availability *service.AvailabilityService
	bookings     *service.BookingService
	logger       *zap.Logger
}

func NewHandler(
	users *service.UserService,
	availability *service.AvailabilityService,
	bookings *service.BookingService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		users:        users,
		availability: availability,
		bookings:     bookings,
		logger:       logger,
	}
}

// NewRouter собирает gin.Engine со всеми маршрутами API
func NewRouter(h *Handler, opts Options) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(h.logger))

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsConfig := cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", UserIDHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	if opts.RateLimitPerMin > 0 {
		r.Use(newRateLimiter(opts.RateLimitPerMin, h.logger).middleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/mentors/:mentorID/windows", h.findOpenWindows)

		authed := api.Group("")
		authed.Use(h.identity())
		authed.POST("/windows", h.publishWindow)

		authed.POST("/bookings", h.createBooking)
		authed.GET("/bookings", h.listBookings)
		authed.GET("/bookings/:id/history", h.bookingHistory)
		authed.POST("/bookings/:id/approve", h.approveBooking)
		authed.POST("/bookings/:id/reject", h.rejectReschedule)
		authed.POST("/bookings/:id/reschedule", h.proposeReschedule)
		authed.POST("/bookings/:id/complete", h.completeBooking)
	}

	return r
}
