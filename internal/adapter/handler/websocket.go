package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	analysisUsecase "github.com/johnquangdev/persona-panel/internal/usecase/analysis"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Progress streams job progress over websockets
type Progress struct {
	service analysisUsecase.Service
	hub     *Hub
	logger  *zap.Logger
}

// NewProgressHandler creates a new progress stream handler
func NewProgressHandler(service analysisUsecase.Service, hub *Hub, logger *zap.Logger) *Progress {
	return &Progress{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

// Stream handles GET /v1/analyses/:id/ws
func (h *Progress) Stream(c echo.Context) error {
	id, err := parseJobID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	ctx := c.Request().Context()
	scope := scopeFrom(c)
	status, err := h.service.GetJob(ctx, scope, id)
	if err != nil {
		return HandleError(h.logger, c, toAppError(err, id.String()))
	}

	wsConn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("⚠️ WebSocket upgrade failed", zap.Error(err))
		}
		return nil
	}

	conn := newConnection(id)
	initial, err := encodeEvent(initialEvent(status))
	if err == nil {
		conn.Send <- initial
	}

	if status.Job.Status.Finished() {
		conn.close()
	} else {
		h.hub.Register(conn)
		// the final event may have been published before Register
		if latest, err := h.service.GetJob(ctx, scope, id); err == nil && latest.Job.Status.Finished() {
			h.hub.Settle(conn, initialEvent(latest))
		}
	}

	if h.logger != nil {
		h.logger.Debug("🔌 Progress subscriber connected", zap.String("job_id", id.String()))
	}

	go h.writePump(wsConn, conn)
	h.readPump(wsConn, conn)
	return nil
}

func initialEvent(status *analysisUsecase.JobStatus) analysisUsecase.ProgressEvent {
	job := status.Job
	return analysisUsecase.ProgressEvent{
		JobID:         job.ID,
		State:         job.Status,
		PersonasDone:  job.PersonasDone,
		PersonasTotal: job.PersonasTotal,
		Percent:       status.Percent,
		ErrorCount:    job.ErrorCount,
		DemoMode:      job.DemoMode,
	}
}

// readPump drains client frames so pong and close are processed
func (h *Progress) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := wsConn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && h.logger != nil {
				h.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Progress) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
