package handler

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	analysisUsecase "github.com/johnquangdev/persona-panel/internal/usecase/analysis"
)

// MessageType defines the type of websocket message
type MessageType string

const (
	MsgProgress MessageType = "progress"
	MsgFinished MessageType = "finished"
)

// Message is the websocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection is one websocket subscriber of a job
type Connection struct {
	JobID uuid.UUID
	Send  chan []byte

	closeOnce sync.Once
}

func newConnection(jobID uuid.UUID) *Connection {
	return &Connection{
		JobID: jobID,
		Send:  make(chan []byte, 64),
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// Hub fans job progress events out to websocket subscribers
type Hub struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]map[*Connection]struct{}
	logger *zap.Logger
}

// NewHub creates a new websocket hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[uuid.UUID]map[*Connection]struct{}),
		logger: logger,
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[conn.JobID] == nil {
		h.conns[conn.JobID] = make(map[*Connection]struct{})
	}
	h.conns[conn.JobID][conn] = struct{}{}
}

// Unregister removes a connection and closes its send channel
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.conns[conn.JobID]; ok {
		if _, ok := subs[conn]; ok {
			delete(subs, conn)
			conn.close()
		}
		if len(subs) == 0 {
			delete(h.conns, conn.JobID)
		}
	}
}

// Subscribers returns the number of connections watching a job
func (h *Hub) Subscribers(jobID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[jobID])
}

// Publish implements analysis.Broadcaster. Slow subscribers drop events;
// a finished event closes every subscriber of the job.
func (h *Hub) Publish(jobID uuid.UUID, event analysisUsecase.ProgressEvent) {
	data, err := encodeEvent(event)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("❌ Failed to encode progress event", zap.Error(err))
		}
		return
	}

	finished := event.State.Finished()
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns[jobID] {
		select {
		case conn.Send <- data:
		default:
		}
		if finished {
			conn.close()
		}
	}
	if finished {
		delete(h.conns, jobID)
	}
}

// Settle delivers a finished event to one subscriber and closes it. It is a
// no-op when Publish already closed the subscriber.
func (h *Hub) Settle(conn *Connection, event analysisUsecase.ProgressEvent) {
	data, err := encodeEvent(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.conns[conn.JobID]
	if !ok {
		return
	}
	if _, ok := subs[conn]; !ok {
		return
	}
	select {
	case conn.Send <- data:
	default:
	}
	delete(subs, conn)
	conn.close()
	if len(subs) == 0 {
		delete(h.conns, conn.JobID)
	}
}

func encodeEvent(event analysisUsecase.ProgressEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	msgType := MsgProgress
	if event.State.Finished() {
		msgType = MsgFinished
	}
	return json.Marshal(Message{Type: msgType, Payload: payload})
}
