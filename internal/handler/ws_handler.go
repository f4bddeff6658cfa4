package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ctroy978/edmpc/internal/config"
	"github.com/ctroy978/edmpc/internal/middleware"
	"github.com/ctroy978/edmpc/internal/repository"
	"github.com/ctroy978/edmpc/internal/service"
	ws "github.com/ctroy978/edmpc/internal/websocket"
	"github.com/ctroy978/edmpc/internal/worker"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams job status transitions to watchers.
type WSHandler struct {
	rdb        *redis.Client
	jobService *service.GradingJobService
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, jobService *service.GradingJobService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:        rdb,
		jobService: jobService,
		log:        log.With().Str("component", "ws_handler").Logger(),
		upgrader:   buildUpgrader(allowedOrigins),
	}
}

// WatchJob godoc
// GET /api/v1/jobs/:id/watch (WebSocket)
// Sends the job's current status on connect, then relays every status
// transition until the job reaches a terminal state or the client leaves.
func (h *WSHandler) WatchJob(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.jobService.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("job_id", jobID).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("job_id", jobID).Logger()
	if claims := middleware.GetClaims(c); claims != nil {
		wsLog = wsLog.With().Str("session_id", claims.SessionID).Logger()
	}

	sub := h.rdb.Subscribe(c.Request.Context(), config.CacheKey.JobEventsChannel(jobID))
	defer sub.Close()

	if err := ws.WriteTyped(conn, ws.JobStatusResponse{
		Event:  ws.EventJobStatus,
		JobID:  job.ID,
		Status: string(job.Status),
	}); err != nil {
		return
	}

	// Drain reads so close frames and pings are handled; the watcher
	// protocol is server-to-client only.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientGone:
			return

		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}

			var ev worker.JobEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				wsLog.Warn().Err(err).Msg("Malformed job event payload")
				if err := ws.WriteError(conn, "malformed status event"); err != nil {
					return
				}
				continue
			}

			if err := ws.WriteTyped(conn, ws.JobStatusResponse{
				Event:     ws.EventJobStatus,
				JobID:     ev.JobID,
				Status:    ev.Status,
				Timestamp: ev.Timestamp.Format(time.RFC3339),
			}); err != nil {
				return
			}

			if ev.Status == "COMPLETED" || ev.Status == "ERROR" {
				return
			}
		}
	}
}
