package handlers

import (
	"context"
	"net/http"
	"time"

	"rms_pipeline/internal/models"
	"rms_pipeline/internal/preprocess"
	"rms_pipeline/internal/repository"
	"rms_pipeline/internal/service"

	"github.com/gin-gonic/gin"
)

// stubs for the auth and ingest services

type mockAuth struct {
	enabled       bool
	genTokenToken string
	genTokenErr   error
	parseSubject  string
	parseErr      error

	lastGenKey     string
	lastParseToken string
}

func (m *mockAuth) Enabled() bool { return m.enabled }

func (m *mockAuth) GenerateToken(key string) (string, error) {
	m.lastGenKey = key
	return m.genTokenToken, m.genTokenErr
}

func (m *mockAuth) ParseToken(token string) (string, error) {
	m.lastParseToken = token
	return m.parseSubject, m.parseErr
}

type mockIngest struct {
	units map[string]models.UnitRecord
	err   error

	lastFilter service.UnitFilter
}

func (m *mockIngest) LoadUnits(ctx context.Context, f service.UnitFilter) (map[string]models.UnitRecord, error) {
	m.lastFilter = f
	return m.units, m.err
}

func (m *mockIngest) CopyTo(ctx context.Context, dst repository.Sink, f service.UnitFilter) (int, error) {
	return 0, nil
}

// fixtures

var t0 = time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)

func newTestService(auth *mockAuth, ingest *mockIngest) *service.Service {
	if auth == nil {
		auth = &mockAuth{}
	}
	if ingest == nil {
		ingest = &mockIngest{}
	}
	return &service.Service{
		Pipeline:      service.NewPipelineRunner(nil),
		Ingest:        ingest,
		Authorization: auth,
	}
}

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, service.DefaultParams(), nil)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func ptr(v float64) *float64 { return &v }

// unitPayload builds a 10-row, 10-minute unit with every feature input.
// When spike is true motor_current jumps at row 5.
func unitPayload(spike bool) UnitPayload {
	const n = 10
	p := UnitPayload{
		Timestamps: make([]string, n),
		Columns:    map[string][]*float64{},
	}
	base := map[string]float64{
		preprocess.ColumnMotorCurrent: 2,
		preprocess.ColumnMotorVoltage: 100,
		preprocess.ColumnRPM:          50,
		preprocess.ColumnMotorTemp:    80,
		preprocess.ColumnInletTemp:    20,
	}
	for i := 0; i < n; i++ {
		p.Timestamps[i] = t0.Add(time.Duration(i) * 10 * time.Minute).Format(time.RFC3339)
	}
	for name, b := range base {
		col := make([]*float64, n)
		for i := range col {
			col[i] = ptr(b + 0.01*float64(i))
		}
		p.Columns[name] = col
	}
	if spike {
		p.Columns[preprocess.ColumnMotorCurrent][5] = ptr(400)
	}
	p.Alarms = []AlarmPayload{{Timestamp: t0.Add(5 * time.Minute).Format(time.RFC3339), Message: "Warning: overheat"}}
	return p
}
