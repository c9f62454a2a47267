package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnquangdev/persona-panel/internal/adapter/repository"
	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	"github.com/johnquangdev/persona-panel/internal/infrastructure/cache"
	"github.com/johnquangdev/persona-panel/internal/infrastructure/database"
	"github.com/johnquangdev/persona-panel/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/persona-panel/internal/infrastructure/metrics"
	"github.com/johnquangdev/persona-panel/internal/usecase/ai"
	analysisUsecase "github.com/johnquangdev/persona-panel/internal/usecase/analysis"
	"github.com/johnquangdev/persona-panel/pkg/config"
	"github.com/johnquangdev/persona-panel/pkg/jwt"
	pkgvalidator "github.com/johnquangdev/persona-panel/pkg/validator"
)

// gatedAnalyzer answers like the demo generator once the gate opens
type gatedAnalyzer struct {
	gate chan struct{}
	once sync.Once
	mock *ai.MockGenerator
}

func newGatedAnalyzer() *gatedAnalyzer {
	return &gatedAnalyzer{gate: make(chan struct{}), mock: ai.NewMockGenerator()}
}

func (g *gatedAnalyzer) open() { g.once.Do(func() { close(g.gate) }) }

func (g *gatedAnalyzer) AnalyzePersona(ctx context.Context, p entities.Persona, questions []entities.Question, target entities.AnalysisTarget) ([]entities.StructuredAnswer, error) {
	select {
	case <-g.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.mock.AnalyzePersona(ctx, p, questions, target)
}

type testServer struct {
	e   *echo.Echo
	hub *Hub
}

func newTestServer(t *testing.T, analyzer ai.PersonaAnalyzer, manager *jwt.Manager) *testServer {
	t.Helper()
	db, err := database.NewSQLiteDB("file::memory:", "test")
	require.NoError(t, err)
	_, err = database.AutoMigrate(db, database.DialectSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB(db) })

	mem := cache.NewMemoryStore()
	t.Cleanup(mem.Close)

	logger := zap.NewNop()
	m := metrics.New()
	hub := NewHub(logger)
	svc := analysisUsecase.NewService(
		analyzer,
		repository.NewAnalysisRepository(db),
		repository.NewMemoryProgressProvider(mem, time.Hour),
		config.AnalysisConfig{QuestionSet: "ad", BatchSize: 3},
		logger,
		analysisUsecase.WithRecorder(m),
		analysisUsecase.WithBroadcaster(hub),
	)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	e := echo.New()
	e.Validator = pkgvalidator.New()
	NewRouter(
		&config.Config{Server: config.ServerConfig{Environment: "test"}},
		NewAnalysisHandler(svc, logger),
		NewProgressHandler(svc, hub, logger),
		m.Handler(),
		middleware.EchoAuth(manager, logger),
	).Setup(e)

	return &testServer{e: e, hub: hub}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Code    interface{}       `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

const twoPersonas = `{"personas":[{"id":"p1","name":"Anna","age":"34"},{"id":2,"name":"Bram"}],"target":{"url":"https://example.com/landing"},"demo_mode":%s}`

func startBody(demo bool) string {
	return strings.Replace(twoPersonas, "%s", map[bool]string{true: "true", false: "false"}[demo], 1)
}

func startJob(t *testing.T, s *testServer, demo bool, headers ...string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/analyses", startBody(demo), headers...)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var job struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &job))
	require.NotEmpty(t, job.ID)
	return job.ID
}

func waitForStatus(t *testing.T, s *testServer, id, status string, headers ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec := s.do(t, http.MethodGet, "/v1/analyses/"+id, "", headers...)
		if rec.Code != http.StatusOK {
			return false
		}
		var job struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal(decode(t, rec).Data, &job)
		return job.Status == status
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAnalysis_DemoJobEndToEnd(t *testing.T) {
	s := newTestServer(t, newGatedAnalyzer(), nil)

	id := startJob(t, s, true)
	waitForStatus(t, s, id, "completed")

	rec := s.do(t, http.MethodGet, "/v1/analyses/"+id+"/answers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var answers []entities.StructuredAnswer
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &answers))
	assert.Len(t, answers, 14)
	for _, a := range answers {
		assert.True(t, a.IsMock)
	}

	rec = s.do(t, http.MethodGet, "/v1/analyses/"+id+"/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep entities.AggregatedReport
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &rep))
	assert.Equal(t, 14, rep.Summary.TotalAnswers)

	rec = s.do(t, http.MethodGet, "/v1/analyses/"+id+"/export?format=markdown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/markdown")
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), id+".md")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Persona Analysis Report"))

	rec = s.do(t, http.MethodGet, "/v1/analyses/"+id+"/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/analyses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &list))
	assert.Equal(t, 1, list.Total)
}

func TestAnalysis_Errors(t *testing.T) {
	analyzer := newGatedAnalyzer()
	t.Cleanup(analyzer.open)
	s := newTestServer(t, analyzer, nil)

	rec := s.do(t, http.MethodGet, "/v1/analyses/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ANALYSIS_JOB_NOT_FOUND", decode(t, rec).Code)

	rec = s.do(t, http.MethodGet, "/v1/analyses/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/analyses", `{"personas":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ANALYSIS_NO_PERSONAS", decode(t, rec).Code)

	rec = s.do(t, http.MethodPost, "/v1/analyses", `{"personas":[{"id":"p1"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required", decode(t, rec).Details["name"])

	rec = s.do(t, http.MethodPost, "/v1/analyses", `{"personas":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/analyses?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	id := startJob(t, s, false)

	rec = s.do(t, http.MethodPost, "/v1/analyses", startBody(false))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ANALYSIS_ALREADY_RUNNING", decode(t, rec).Code)

	rec = s.do(t, http.MethodGet, "/v1/analyses/"+id+"/report", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/analyses/"+id+"/stop", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	analyzer.open()
	waitForStatus(t, s, id, "cancelled")

	rec = s.do(t, http.MethodGet, "/v1/analyses/"+id+"/archive", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalysis_RequiresTokenWhenAuthEnabled(t *testing.T) {
	manager := jwt.NewManager("s3cret", "persona-panel")
	s := newTestServer(t, newGatedAnalyzer(), manager)

	rec := s.do(t, http.MethodGet, "/v1/analyses", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := manager.GenerateToken("team-a", "Team A", time.Hour)
	require.NoError(t, err)
	other, err := manager.GenerateToken("team-b", "Team B", time.Hour)
	require.NoError(t, err)

	id := startJob(t, s, true, "Authorization", "Bearer "+token)
	waitForStatus(t, s, id, "completed", "Authorization", "Bearer "+token)

	rec = s.do(t, http.MethodGet, "/v1/analyses/"+id, "", "Authorization", "Bearer "+other)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// public routes stay open
	rec = s.do(t, http.MethodGet, "/v1/questions?set=landingspagina", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var set struct {
		Set   string `json:"set"`
		Known bool   `json:"known"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &set))
	assert.Equal(t, "landing", set.Set)
	assert.True(t, set.Known)
}

func TestRouter_HealthSchemaAndMetrics(t *testing.T) {
	s := newTestServer(t, newGatedAnalyzer(), nil)

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"environment":"test"`)

	rec = s.do(t, http.MethodGet, "/v1/schema/report", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"properties"`)

	id := startJob(t, s, true)
	waitForStatus(t, s, id, "completed")

	rec = s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "persona_panel_jobs_finished_total")
}

func TestProgress_StreamsUntilFinished(t *testing.T) {
	analyzer := newGatedAnalyzer()
	t.Cleanup(analyzer.open)
	s := newTestServer(t, analyzer, nil)
	srv := httptest.NewServer(s.e)
	t.Cleanup(srv.Close)

	id := startJob(t, s, false)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/analyses/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first Message
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, MsgProgress, first.Type)

	jobID := uuid.MustParse(id)
	require.Eventually(t, func() bool { return s.hub.Subscribers(jobID) == 1 }, time.Second, 5*time.Millisecond)
	analyzer.open()

	var last Message
	for {
		var msg Message
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		last = msg
	}

	assert.Equal(t, MsgFinished, last.Type)
	var event analysisUsecase.ProgressEvent
	require.NoError(t, json.Unmarshal(last.Payload, &event))
	assert.Equal(t, entities.JobStateCompleted, event.State)
	assert.Equal(t, 2, event.PersonasDone)
	assert.Equal(t, 0, s.hub.Subscribers(jobID))
}

func TestHub_PublishDropsWhenFullAndClosesOnFinish(t *testing.T) {
	hub := NewHub(nil)
	jobID := uuid.New()
	conn := newConnection(jobID)
	hub.Register(conn)

	for i := 0; i < cap(conn.Send)+5; i++ {
		hub.Publish(jobID, analysisUsecase.ProgressEvent{JobID: jobID, State: entities.JobStateRunning, PersonasDone: i})
	}
	assert.Len(t, conn.Send, cap(conn.Send))

	hub.Publish(jobID, analysisUsecase.ProgressEvent{JobID: jobID, State: entities.JobStateCompleted})
	assert.Equal(t, 0, hub.Subscribers(jobID))

	n := 0
	for range conn.Send {
		n++
	}
	assert.Equal(t, cap(conn.Send), n)

	hub.Unregister(conn)
}
