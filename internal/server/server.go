// Package server is the REST backend the http gateway talks to. Every
// route below /api/v1 is scoped to the user named by the bearer token.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nhle/carehub/internal/model"
	"github.com/nhle/carehub/internal/store"
)

// shutdownTimeout bounds how long Run waits for in-flight requests.
const shutdownTimeout = 5 * time.Second

// Server is the notification HTTP server.
type Server struct {
	router *gin.Engine
	store  store.Store
	log    zerolog.Logger
	cfg    model.ServerConfig
}

// New builds a Server over s. cfg.JWTSecret must be set.
func New(s store.Store, cfg model.ServerConfig, log zerolog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("server: jwt secret is required")
	}

	router := gin.New()
	router.Use(Recovery(log))
	router.Use(RequestLogger(log))

	srv := &Server{
		router: router,
		store:  s,
		log:    log,
		cfg:    cfg,
	}
	srv.setupRoutes()

	return srv, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	api.Use(JWTAuth(s.cfg.JWTSecret))
	api.Use(RateLimit(s.cfg.RatePerSec, s.cfg.Burst))
	{
		notifications := api.Group("/notifications")
		{
			notifications.GET("", s.handleList())
			notifications.GET("/unread-count", s.handleUnreadCount())
			notifications.PUT("/read-all", s.handleMarkAllAsRead())
			notifications.PUT("/:id/read", s.handleMarkAsRead())
		}
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "carehub"})
	})
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := store.NotificationFilter{RecipientID: GetUserID(c)}

		if unread := c.Query("unread"); unread != "" {
			v, err := strconv.ParseBool(unread)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unread must be a boolean"})
				return
			}
			filter.UnreadOnly = v
		}

		if k := c.Query("kind"); k != "" {
			kind, err := model.ParseKind(k)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			filter.Kind = &kind
		}

		if l := c.Query("limit"); l != "" {
			limit, err := strconv.Atoi(l)
			if err != nil || limit < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			filter.Limit = limit
		}

		items, err := s.store.GetNotifications(c.Request.Context(), filter)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", filter.RecipientID).Msg("listing notifications")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
			return
		}

		c.JSON(http.StatusOK, items)
	}
}

func (s *Server) handleUnreadCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)

		count, err := s.store.CountUnread(c.Request.Context(), userID)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Msg("counting unread notifications")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count notifications"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}

func (s *Server) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		id := c.Param("id")

		// A foreign id is reported as missing.
		err := s.store.MarkNotificationRead(c.Request.Context(), userID, id)
		if store.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		if err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Str("notification_id", id).Msg("marking notification read")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notification read"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)

		updated, err := s.store.MarkAllNotificationsRead(c.Request.Context(), userID)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Msg("marking all notifications read")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notifications read"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"updated": updated})
	}
}
