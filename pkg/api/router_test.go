package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/beamline/pkg/api/schema"
	"github.com/urmzd/beamline/pkg/api/types"
	"github.com/urmzd/beamline/pkg/beamline"
	"github.com/urmzd/beamline/pkg/config"
	"github.com/urmzd/beamline/pkg/device"
)

const simDoc = `
beamline:
  name: bench
  sim:
    travel_ms: 10
    ramp_ms: 20
  devices:
    - id: fast1
      flavor: armable_valve
      status: {address: 10}
      control: {address: 11}
    - id: fast2
      flavor: armable_valve
      status: {address: 12}
      control: {address: 13}
    - id: gate1
      flavor: valve
      status: {address: 14}
      control: {address: 15}
    - id: cell1
      flavor: pressure_cell
      timeout_ms: 2000
      status: {address: 20}
      setpoint: {address: 21}
      go: {address: 22}
      pressure: {address: 23}
      valves: {a: fast1, b: fast2, c: gate1}
`

func newTestRouter(t *testing.T) (*Router, *beamline.Beamline) {
	t.Helper()
	cfg, err := config.Parse([]byte(simDoc))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))
	config.Normalize(cfg)

	b, err := beamline.New(context.Background(), cfg.Beamline, beamline.Options{Simulate: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	return NewRouter(b, b, schema.NewValidator()), b
}

func do(t *testing.T, r *Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		w := do(t, r, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, w.Code)
		h := decode[types.HealthResponse](t, w)
		assert.Equal(t, "healthy", h.Status)
		assert.Equal(t, "bench", h.Beamline)
		assert.Equal(t, 4, h.Devices)
		assert.True(t, h.Simulated)
	}
}

func TestRequestID(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/health", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))
}

func TestListAndGetDevices(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/devices", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[types.ListDevicesResponse](t, w)
	assert.Equal(t, 4, list.Count)

	w = do(t, r, http.MethodGet, "/api/v1/devices/cell1", "")
	require.Equal(t, http.StatusOK, w.Code)
	d := decode[types.DeviceResponse](t, w)
	assert.Equal(t, device.FlavorPressureCell, d.Device.Flavor)
	assert.Equal(t, device.Idle, d.Device.State)
	require.NotNil(t, d.Device.Pressure)
	assert.Equal(t, 0.0, *d.Device.Pressure)

	w = do(t, r, http.MethodGet, "/api/v1/devices/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[types.ErrorResponse](t, w).Error)
}

func TestAction(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/devices/gate1/actions", `{"action":"open"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[types.ActionResponse](t, w)
	assert.Equal(t, device.Open, resp.State)
	assert.Equal(t, "open", resp.Action)

	w = do(t, r, http.MethodPost, "/api/v1/devices/fast1/actions", `{"action":"arm"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, device.ClosedArmed, decode[types.ActionResponse](t, w).State)
}

func TestAction_Rejected(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad json", "/api/v1/devices/gate1/actions", `{`, http.StatusBadRequest, "invalid_request"},
		{"arm on simple valve", "/api/v1/devices/gate1/actions", `{"action":"arm"}`, http.StatusBadRequest, "validation_error"},
		{"extra field", "/api/v1/devices/gate1/actions", `{"action":"open","speed":2}`, http.StatusBadRequest, "validation_error"},
		{"missing action", "/api/v1/devices/gate1/actions", `{}`, http.StatusBadRequest, "validation_error"},
		{"unknown device", "/api/v1/devices/nope/actions", `{"action":"open"}`, http.StatusNotFound, "not_found"},
		{"go needs a target", "/api/v1/devices/cell1/actions", `{"action":"go"}`, http.StatusBadRequest, "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[types.ErrorResponse](t, w).Error)
		})
	}
}

func TestCellGo(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/cells/cell1/go", `{"target":1000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[types.GoResponse](t, w)
	assert.Equal(t, 1000.0, resp.Target)
	assert.InDelta(t, 1000.0, resp.Measured, 20)

	w = do(t, r, http.MethodPost, "/api/v1/cells/cell1/go", `{"target":-5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/cells/gate1/go", `{"target":10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unsupported", decode[types.ErrorResponse](t, w).Error)
}

func TestCellReset(t *testing.T) {
	r, b := newTestRouter(t)
	ctx := context.Background()

	_, err := b.Do(ctx, "fast1", beamline.ActionArm)
	require.NoError(t, err)
	_, err = b.Do(ctx, "gate1", beamline.ActionOpen)
	require.NoError(t, err)

	w := do(t, r, http.MethodPost, "/api/v1/cells/cell1/reset", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "reset", decode[types.ResetResponse](t, w).Status)

	for _, id := range []string{"fast1", "fast2", "gate1"} {
		d, err := b.Device(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, device.Closed, d.State, id)
	}
}

func TestEvents(t *testing.T) {
	r, b := newTestRouter(t)
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: connected", lines.Text())

	go func() { _, _ = b.Do(context.Background(), "gate1", beamline.ActionOpen) }()

	seen := map[string]bool{}
	for lines.Scan() {
		line := lines.Text()
		if strings.HasPrefix(line, "event: ") {
			seen[strings.TrimPrefix(line, "event: ")] = true
		}
		if seen[string(device.EventMoveFinished)] {
			break
		}
	}
	assert.True(t, seen[string(device.EventMoveStarted)])
	assert.True(t, seen[string(device.EventStateChanged)])
	assert.True(t, seen[string(device.EventMoveFinished)])
}

func TestEventsWebSocket(t *testing.T) {
	r, b := newTestRouter(t)
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription is registered after the upgrade returns, so keep the
	// valve moving until an event arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		actions := []string{beamline.ActionOpen, beamline.ActionClose}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_, _ = b.Do(context.Background(), "gate1", actions[i%2])
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var evt device.Event
		require.NoError(t, conn.ReadJSON(&evt))
		if evt.Type == device.EventMoveFinished {
			assert.Equal(t, "gate1", evt.Device)
			assert.Contains(t, []device.State{device.Open, device.Closed}, evt.State)
			return
		}
	}
}
