package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	analysisUsecase "github.com/johnquangdev/persona-panel/internal/usecase/analysis"
)

// finishingService reports a running job on the first lookup and a completed
// one afterwards, as if the run ended while the socket was being set up.
type finishingService struct {
	analysisUsecase.Service
	calls atomic.Int32
}

func (s *finishingService) GetJob(_ context.Context, scope string, jobID uuid.UUID) (*analysisUsecase.JobStatus, error) {
	job := &entities.AnalysisJob{ID: jobID, Scope: scope, Status: entities.JobStateRunning, PersonasTotal: 2}
	percent := 0.0
	if s.calls.Add(1) > 1 {
		job.Status = entities.JobStateCompleted
		job.PersonasDone = 2
		percent = 100
	}
	return &analysisUsecase.JobStatus{Job: job, Percent: percent}, nil
}

func TestProgress_JobFinishingDuringSetupClosesStream(t *testing.T) {
	hub := NewHub(nil)
	progress := NewProgressHandler(&finishingService{}, hub, nil)
	e := echo.New()
	e.GET("/v1/analyses/:id/ws", progress.Stream)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	jobID := uuid.New()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/analyses/" + jobID.String() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var messages []Message
	for {
		var msg Message
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		if err := conn.ReadJSON(&msg); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "stream should close normally, got %v", err)
			break
		}
		messages = append(messages, msg)
	}

	require.Len(t, messages, 2)
	assert.Equal(t, MsgProgress, messages[0].Type)
	assert.Equal(t, MsgFinished, messages[1].Type)
	var event analysisUsecase.ProgressEvent
	require.NoError(t, json.Unmarshal(messages[1].Payload, &event))
	assert.Equal(t, entities.JobStateCompleted, event.State)
	assert.Equal(t, 0, hub.Subscribers(jobID))
}

func TestHub_SettleIgnoresClosedSubscriber(t *testing.T) {
	hub := NewHub(nil)
	jobID := uuid.New()
	conn := newConnection(jobID)
	hub.Register(conn)

	hub.Publish(jobID, analysisUsecase.ProgressEvent{JobID: jobID, State: entities.JobStateCancelled})
	assert.NotPanics(t, func() {
		hub.Settle(conn, analysisUsecase.ProgressEvent{JobID: jobID, State: entities.JobStateCancelled})
	})

	n := 0
	for range conn.Send {
		n++
	}
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, hub.Subscribers(jobID))
}
