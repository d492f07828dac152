package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"fixam/internal/booking"
	"fixam/internal/config"
	"fixam/internal/domain"
	"fixam/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Server wires the booking and notification surfaces onto gin.
type Server struct {
	cfg      config.ServerConfig
	engine   *booking.Engine
	notifier *notify.Service
	users    domain.UserStore
	bookings domain.BookingStore
	logger   *zerolog.Logger
	server   *http.Server
}

func NewServer(cfg config.ServerConfig, engine *booking.Engine, notifier *notify.Service, users domain.UserStore, bookings domain.BookingStore, logger *zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		engine:   engine,
		notifier: notifier,
		users:    users,
		bookings: bookings,
		logger:   logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))

	auth := router.Group("/api")
	auth.Use(BearerAuth(users))
	auth.Use(RateLimit(cfg.RateLimit))

	auth.POST("/bookings", s.handleCreateBooking)
	auth.GET("/bookings", s.handleListBookings)
	auth.GET("/bookings/export", s.handleExportBookings)
	auth.PUT("/bookings/:id/:action", s.handleBookingAction)

	auth.POST("/notifications", s.handleCreateNotification)
	auth.GET("/notifications", s.handleListNotifications)
	auth.PUT("/notifications/read", s.handleMarkAllRead)
	auth.PUT("/notifications/:id/read", s.handleMarkRead)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
