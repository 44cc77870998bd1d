package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spockenergy/sma2spock/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMaster struct {
	mu       sync.Mutex
	applied  []domain.OperationCommand
	applyErr error
	healthy  bool
}

func (a *stubMaster) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MASTER, Healthy: a.healthy})
	case domain.ApplyOperationRequest:
		a.mu.Lock()
		a.applied = append(a.applied, msg.Command)
		a.mu.Unlock()
		ctx.Respond(domain.ApplyOperationResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: a.applyErr},
		})
	}
}

func (a *stubMaster) appliedCommands() []domain.OperationCommand {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.OperationCommand, len(a.applied))
	copy(out, a.applied)
	return out
}

func newTestServer(t *testing.T, master *stubMaster) (*Server, func()) {
	t.Helper()

	as := actor.NewActorSystem()
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return master }))

	s := &Server{
		port:        8080,
		apiToken:    "test-token",
		plantID:     "plant-1",
		rootContext: as.Root,
		masterActor: pid,
	}
	return s, as.Shutdown
}

func doRequest(s *Server, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheckRoute(t *testing.T) {
	s, shutdown := newTestServer(t, &stubMaster{healthy: true})
	defer shutdown()

	rec := doRequest(s, http.MethodGet, "/healthcheck", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "OK")
}

func TestHealthCheckRouteUnhealthy(t *testing.T) {
	s, shutdown := newTestServer(t, &stubMaster{healthy: false})
	defer shutdown()

	rec := doRequest(s, http.MethodGet, "/healthcheck", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCommandRouteRejectsMissingToken(t *testing.T) {
	master := &stubMaster{healthy: true}
	s, shutdown := newTestServer(t, master)
	defer shutdown()

	rec := doRequest(s, http.MethodPost, "/api/spock/command", "",
		`{"plant_id":"plant-1","command":"charge","value":500}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, master.appliedCommands())
}

func TestCommandRouteRejectsBadToken(t *testing.T) {
	master := &stubMaster{healthy: true}
	s, shutdown := newTestServer(t, master)
	defer shutdown()

	rec := doRequest(s, http.MethodPost, "/api/spock/command", "Bearer wrong",
		`{"plant_id":"plant-1","command":"charge","value":500}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, master.appliedCommands())
}

func TestCommandRouteRejectsUnknownPlant(t *testing.T) {
	master := &stubMaster{healthy: true}
	s, shutdown := newTestServer(t, master)
	defer shutdown()

	rec := doRequest(s, http.MethodPost, "/api/spock/command", "Bearer test-token",
		`{"plant_id":"plant-9","command":"charge","value":500}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, master.appliedCommands())
}

func TestCommandRouteRejectsMalformedBody(t *testing.T) {
	master := &stubMaster{healthy: true}
	s, shutdown := newTestServer(t, master)
	defer shutdown()

	rec := doRequest(s, http.MethodPost, "/api/spock/command", "Bearer test-token", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/spock/command", "Bearer test-token",
		`{"plant_id":"plant-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, master.appliedCommands())
}

func TestCommandRouteAppliesCommand(t *testing.T) {
	master := &stubMaster{healthy: true}
	s, shutdown := newTestServer(t, master)
	defer shutdown()

	rec := doRequest(s, http.MethodPost, "/api/spock/command", "Bearer test-token",
		`{"plant_id":"plant-1","command":"discharge","value":"1200"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cmds := master.appliedCommands()
	require.Len(t, cmds, 1)
	assert.Equal(t, domain.OperationModeDischarge, cmds[0].Mode)
	assert.Equal(t, uint32(1200), cmds[0].MagnitudeW)
}

func TestCommandRouteReportsApplyFailure(t *testing.T) {
	master := &stubMaster{healthy: true, applyErr: assert.AnError}
	s, shutdown := newTestServer(t, master)
	defer shutdown()

	rec := doRequest(s, http.MethodPost, "/api/spock/command", "Bearer test-token",
		`{"plant_id":"plant-1","command":"auto"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
