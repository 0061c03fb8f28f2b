// Package webhook exposes the event-push ingestion endpoint. Each
// message event becomes a single-message pipeline run through the same
// dedup and extraction path as batch syncs, so webhook retries and
// overlapping cron runs stay safe to interleave.
package webhook

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kettleworks/shiplog/internal/types"
)

// Runner executes a single-message pipeline run.
type Runner interface {
	RunMessage(ctx context.Context, messageID string) (*types.RunSummary, error)
}

// Event is the push payload: a message was posted or changed.
type Event struct {
	Type      string `json:"type" binding:"required"`
	ChannelID string `json:"channel_id" binding:"required"`
	MessageID string `json:"message_id" binding:"required"`
}

// Server handles webhook pushes.
type Server struct {
	runner    Runner
	channelID string
	token     string
}

// NewServer creates the webhook server for the given ingest channel.
// token, when non-empty, is required in the X-Shiplog-Token header.
func NewServer(runner Runner, channelID, token string) *Server {
	return &Server{runner: runner, channelID: channelID, token: token}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/webhook", s.handleEvent)
	return r
}

func (s *Server) handleEvent(c *gin.Context) {
	if s.token != "" {
		provided := c.GetHeader("X-Shiplog-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
	}

	var event Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	if event.ChannelID != s.channelID {
		// Events for other channels are acknowledged and ignored.
		c.JSON(http.StatusOK, gin.H{"ignored": true})
		return
	}

	summary, err := s.runner.RunMessage(c.Request.Context(), event.MessageID)
	if err != nil {
		slog.Error("webhook run failed", "message", event.MessageID, "error", err)
		// Retryable from the sender's perspective.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "run failed"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ListenAndServe runs the server until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
