package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"influx_events/internal/models"
	"influx_events/internal/service"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockEvents struct {
	mu sync.Mutex

	createErr  error
	batchErr   error
	queryResp  []models.StoredEvent
	queryErr   error
	clearErr   error
	updateErr  error
	pingErr    error
	clearReply service.TimeRange

	created    []models.Event
	batches    [][]models.Event
	lastStart  time.Time
	lastEnd    time.Time
	lastFilter models.EventFilter
	lastClear  service.TimeRange
	lastUpdate models.SeverityUpdate
	clearCalls int
	queryCalls int
}

func (m *mockEvents) Create(_ context.Context, e models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, e)
	return m.createErr
}

func (m *mockEvents) CreateBatch(_ context.Context, events []models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, events)
	return m.batchErr
}

func (m *mockEvents) Query(_ context.Context, start, end time.Time, f models.EventFilter) ([]models.StoredEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	m.lastStart, m.lastEnd, m.lastFilter = start, end, f
	return m.queryResp, m.queryErr
}

func (m *mockEvents) Clear(_ context.Context, r service.TimeRange) (service.TimeRange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
	m.lastClear = r
	if m.clearReply.Start.IsZero() {
		return r, m.clearErr
	}
	return m.clearReply, m.clearErr
}

func (m *mockEvents) UpdateSeverity(_ context.Context, u models.SeverityUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUpdate = u
	return m.updateErr
}

func (m *mockEvents) Ping(context.Context) error { return m.pingErr }

type mockGenerator struct {
	n        int
	err      error
	calls    int
	lastCall service.GenerateParams
}

func (m *mockGenerator) Generate(_ context.Context, p service.GenerateParams) (int, error) {
	m.calls++
	m.lastCall = p
	return m.n, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	return newTestRouterWith(s, DefaultOptions())
}

func newTestRouterWith(s *service.Service, opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, opts)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
