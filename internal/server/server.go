package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RomanNihal/HackTheAI-FInal/internal/config"
	"github.com/RomanNihal/HackTheAI-FInal/internal/handler"
	"github.com/RomanNihal/HackTheAI-FInal/internal/middleware"
)

// Dependencies are the services the HTTP surface is built on. Triage may be nil.
type Dependencies struct {
	DB      handler.Pinger
	Triage  handler.Pinger
	Users   handler.UserService
	Tickets handler.TicketService
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

func NewServer(cfg *config.Config, deps Dependencies, logger *zap.Logger) *Server {
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// Room for the image plus the text fields.
	router.MaxMultipartMemory = cfg.Server.MaxImageBytes + 1<<20
	router.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		gin.Recovery(),
		middleware.CORS(),
	)

	s := &Server{
		router: router,
		logger: logger,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.setupRoutes(cfg, deps)

	return s
}

func (s *Server) setupRoutes(cfg *config.Config, deps Dependencies) {
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Triage, s.logger)
	userHandler := handler.NewUserHandler(deps.Users, s.logger)
	ticketHandler := handler.NewTicketHandler(deps.Tickets, cfg.Server.MaxImageBytes, s.logger)

	s.router.GET("/", healthHandler.Root)
	s.router.GET("/health", healthHandler.Health)

	s.router.POST("/register", userHandler.Register)

	s.router.POST("/submit-ticket", ticketHandler.SubmitTicket)
	s.router.GET("/tickets", ticketHandler.ListTickets)
	s.router.GET("/tickets/:ticket_id", ticketHandler.GetTicket)
	s.router.PUT("/tickets/:ticket_id/status", ticketHandler.UpdateStatus)

	s.router.GET("/stats/last-hour", ticketHandler.LastHourStats)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("Server starting", zap.String("address", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.http.Shutdown(ctx)
}
