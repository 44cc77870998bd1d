package spock

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spockenergy/sma2spock/internal/config"
	"github.com/spockenergy/sma2spock/internal/core/domain"
	"github.com/spockenergy/sma2spock/pkg/sma_modbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSnapshot() *domain.TelemetrySnapshot {
	return &domain.TelemetrySnapshot{
		PlantID:           "plant-1",
		BatterySoCPct:     sma_modbus.ReadingOf(55),
		BatteryPowerW:     sma_modbus.ReadingOf(-820),
		PVPowerW:          sma_modbus.ReadingOf(3120),
		GridPowerW:        sma_modbus.ReadingOf(150),
		BatteryCapacityWh: sma_modbus.ReadingOf(10240),
		GridExportWh:      sma_modbus.ReadingOf(4471020),
		ChargeAllowed:     true,
		DischargeAllowed:  true,
	}
}

func newTestClient(endpoint string) *Client {
	return NewClient(config.SpockConfig{
		Endpoint: endpoint,
		APIToken: "test-token",
		PlantID:  "plant-1",
	}, zap.NewNop())
}

func TestPushTelemetrySendsAuthAndFields(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	var gotToken string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Auth-Token")
		require.NoError(json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"status":"ok","action":"charge","amount":1500}`))
	}))
	defer srv.Close()

	cmd, err := newTestClient(srv.URL).PushTelemetry(context.Background(), testSnapshot())
	require.NoError(err)

	assert.Equal("test-token", gotToken)
	assert.Equal("plant-1", gotBody["plant_id"])
	assert.Equal("55", gotBody["bat_soc"])
	assert.Equal("-820", gotBody["bat_power"])
	assert.Equal("3120", gotBody["pv_power"])
	assert.Equal("150", gotBody["ongrid_power"])
	assert.Equal("10240", gotBody["bat_capacity"])
	assert.Equal("4471020", gotBody["total_grid_output_energy"])
	assert.Equal("true", gotBody["bat_charge_allowed"])
	assert.Equal("true", gotBody["bat_discharge_allowed"])

	assert.Equal(domain.OperationModeCharge, cmd.Mode)
	assert.Equal(uint32(1500), cmd.MagnitudeW)
}

func TestPushTelemetryStringAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"action":"discharge","amount":"2000"}`))
	}))
	defer srv.Close()

	cmd, err := newTestClient(srv.URL).PushTelemetry(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, domain.OperationModeDischarge, cmd.Mode)
	assert.Equal(t, uint32(2000), cmd.MagnitudeW)
}

func TestPushTelemetryOperationModeAuto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","operation_mode":"auto"}`))
	}))
	defer srv.Close()

	cmd, err := newTestClient(srv.URL).PushTelemetry(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, domain.OperationModeAuto, cmd.Mode)
}

func TestPushTelemetryEmptyResponseDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cmd, err := newTestClient(srv.URL).PushTelemetry(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, domain.OperationModeUnknown, cmd.Mode)
}

func TestPushTelemetryForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).PushTelemetry(context.Background(), testSnapshot())
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPushTelemetryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).PushTelemetry(context.Background(), testSnapshot())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestPushTelemetryMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).PushTelemetry(context.Background(), testSnapshot())
	assert.Error(t, err)
}
