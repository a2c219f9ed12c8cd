package controller

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/auditorium_booking/internal/controller/handlers"
	"github.com/Freeeeeet/auditorium_booking/internal/controller/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig настройки HTTP-слоя
type RouterConfig struct {
	JWTSecret   string
	CORSOrigins []string
	RateLimit   int // запросов в минуту с одного IP, 0 отключает лимит
}

// NewRouter собирает gin.Engine со всеми маршрутами бронирования
func NewRouter(h *handlers.Handlers, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if cfg.RateLimit > 0 {
		r.Use(middleware.NewRateLimiter(cfg.RateLimit, logger).Middleware())
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/booking")
	api.Use(middleware.Authenticate(cfg.JWTSecret, logger))
	{
		// Доступно любому автору
		api.POST("", h.SubmitBooking)
		api.GET("/approved", h.ApprovedForDate)
		api.GET("/approved-dates", h.ApprovedDates)
		api.GET("/free", h.FreeWindows)

		hod := api.Group("")
		hod.Use(middleware.RequireHOD())
		hod.GET("/my-requests", h.MyRequests)

		admin := api.Group("")
		admin.Use(middleware.RequireAdmin())
		admin.POST("/admin-book", h.SubmitBooking)
		admin.PUT("/:id/status", h.UpdateStatus)
		admin.DELETE("/admin-cancel/:id", h.CancelAdminBooking)
		admin.GET("/id/:id", h.GetBooking)
		admin.GET("/pending", h.PendingBookings)
		admin.GET("/pending-count", h.PendingCount)
		admin.GET("", h.History)
		admin.GET("/recent-bookings", h.RecentBookings)
		admin.GET("/metrics", h.Metrics)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}

	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
