package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"theta_preview/native/internal/api"
	"theta_preview/native/internal/domain"
	"theta_preview/native/internal/options"
	"theta_preview/native/internal/viewer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSink struct{}

func (nopSink) Play(domain.RemoteStream, float64) {}
func (nopSink) Pause()                            {}

func noPeer() (domain.Peer, error) { return nil, fmt.Errorf("no peers in this test") }

func newLive(t *testing.T) (*httptest.Server, *api.MockServer, *viewer.Viewer) {
	t.Helper()
	camera := api.NewMockServer()
	t.Cleanup(camera.Close)

	v := viewer.New(api.NewClient(camera.CommandURL()), noPeer, nopSink{}, viewer.Options{
		SettleDelay:   time.Millisecond,
		PollInterval:  time.Millisecond,
		SettingsDelay: time.Millisecond,
	})
	ts := httptest.NewServer(NewRouter(v, DefaultConfig()))
	t.Cleanup(ts.Close)
	return ts, camera, v
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (int, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestHealthz(t *testing.T) {
	ts, _, _ := newLive(t)
	code, body := do(t, ts, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestPreviewAndShoot(t *testing.T) {
	ts, camera, v := newLive(t)

	code, body := do(t, ts, http.MethodPost, "/api/shoot", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, body, domain.ErrShootNotReady.Error())

	code, body = do(t, ts, http.MethodPost, "/api/preview/start", `{"size":"4K"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.JSONEq(t, `{"shoot":"preview-running","size":"4K","controlsEnabled":false}`, body)

	code, _ = do(t, ts, http.MethodPost, "/api/shoot", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, camera.Count(api.CmdTakePicture))
	assert.Equal(t, domain.ShootPreviewRunning, v.State())

	code, body = do(t, ts, http.MethodPost, "/api/preview/stop", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"shoot":"idle"`)
}

func TestPreviewStart_EmptyBodyKeepsSize(t *testing.T) {
	ts, _, v := newLive(t)
	code, _ := do(t, ts, http.MethodPost, "/api/preview/start", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.VideoSize2K, v.Size())
}

func TestCommandFailureIsBadGateway(t *testing.T) {
	ts, camera, _ := newLive(t)
	camera.FailCommand(api.CmdStopLivePreview, http.StatusInternalServerError)

	code, body := do(t, ts, http.MethodPost, "/api/preview/stop", "")
	assert.Equal(t, http.StatusBadGateway, code)

	var e errorBody
	require.NoError(t, json.Unmarshal([]byte(body), &e))
	assert.Contains(t, e.Error, api.CmdStopLivePreview)
}

func TestBadBody(t *testing.T) {
	ts, _, _ := newLive(t)
	code, _ := do(t, ts, http.MethodPost, "/api/preview/start", `{"size":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestConnectWithoutPeerFails(t *testing.T) {
	ts, _, _ := newLive(t)
	code, _ := do(t, ts, http.MethodPost, "/api/connect", "")
	assert.Equal(t, http.StatusInternalServerError, code)

	code, body := do(t, ts, http.MethodPost, "/api/hangup", "")
	assert.Equal(t, http.StatusOK, code)
	assert.NotContains(t, body, "session")
}

func TestGetOptions(t *testing.T) {
	ts, _, _ := newLive(t)
	code, body := do(t, ts, http.MethodGet, "/api/options", "")
	require.Equal(t, http.StatusOK, code)

	var resp OptionsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, options.NewControls(), resp.Controls)
	assert.Len(t, resp.Choices.PriorityShutterSpeeds, len(options.PriorityShutterSpeeds))
	assert.Equal(t, options.ShutterVolumes, resp.Choices.ShutterVolumes)
}

func TestPutOptions(t *testing.T) {
	ts, camera, _ := newLive(t)
	c := options.NewControls()
	c.Mode = options.ModeISO
	c.ISO = 6
	payload, err := json.Marshal(c)
	require.NoError(t, err)

	code, body := do(t, ts, http.MethodPut, "/api/options", string(payload))
	require.Equal(t, http.StatusOK, code, body)

	assert.EqualValues(t, 9, camera.Option("exposureProgram"))
	assert.EqualValues(t, 250, camera.Option("iso"))
}

func TestPutOptions_UnknownMode(t *testing.T) {
	ts, camera, _ := newLive(t)
	code, _ := do(t, ts, http.MethodPut, "/api/options", `{"mode":"program"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, camera.Commands())
}

func TestChangeMode(t *testing.T) {
	ts, camera, _ := newLive(t)

	code, body := do(t, ts, http.MethodPost, "/api/options/mode", `{"mode":"manual"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 1, camera.Option("exposureProgram"))

	var resp OptionsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, options.ModeManual, resp.Controls.Mode)

	code, _ = do(t, ts, http.MethodPost, "/api/options/mode", `{"mode":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestChangeMode_EmptyOptionsResponse(t *testing.T) {
	ts, camera, _ := newLive(t)
	camera.RespondWith(api.CmdGetOptions, `{}`)

	code, body := do(t, ts, http.MethodPost, "/api/options/mode", `{"mode":"iso"}`)
	assert.Equal(t, http.StatusBadGateway, code, body)
	assert.Contains(t, body, "results.options")
}

func TestSettingsRoundTrip(t *testing.T) {
	ts, camera, _ := newLive(t)

	code, body := do(t, ts, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, code, body)
	assert.JSONEq(t, `{
		"batteryLevel": 87,
		"imageSize": "5376x2688",
		"shutterVolume": 100,
		"remainingPictures": 1234,
		"specifyColorTemperature": false
	}`, body)

	code, _ = do(t, ts, http.MethodPost, "/api/settings", `{"specifyColorTemperature":false}`)
	assert.Equal(t, http.StatusBadRequest, code, "shutterVolume is required")

	code, _ = do(t, ts, http.MethodPost, "/api/settings", `{"shutterVolume":50}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, ts, http.MethodPost, "/api/settings", `{"shutterVolume":0}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 0, camera.Setting("_shutterVolume"))
	assert.Contains(t, body, `"shoot":"preview-running"`)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, _ := newLive(t)
	do(t, ts, http.MethodGet, "/api/state", "")

	code, body := do(t, ts, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "thetapreview_http_request_duration_seconds")
}

func TestRateLimit(t *testing.T) {
	camera := api.NewMockServer()
	defer camera.Close()
	v := viewer.New(api.NewClient(camera.CommandURL()), noPeer, nopSink{}, viewer.Options{})
	ts := httptest.NewServer(NewRouter(v, Config{RequestLimit: 2, Window: time.Minute}))
	defer ts.Close()

	for i := 0; i < 2; i++ {
		code, _ := do(t, ts, http.MethodGet, "/api/state", "")
		require.Equal(t, http.StatusOK, code)
	}
	code, body := do(t, ts, http.MethodGet, "/api/state", "")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, body)

	code, _ = do(t, ts, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code, "health is not rate limited")
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrInvalidArgument:                          http.StatusBadRequest,
		domain.ErrShootNotReady:                            http.StatusConflict,
		domain.ErrSessionConflict:                          http.StatusConflict,
		domain.ErrNoSession:                                http.StatusNotFound,
		domain.ErrCaptureTimeout:                           http.StatusGatewayTimeout,
		&domain.CommandError{Command: "x", Status: 500}:    http.StatusBadGateway,
		&domain.CommandError{Command: "x"}:                 http.StatusBadGateway,
		context.Canceled:                                   http.StatusServiceUnavailable,
		fmt.Errorf("wrapped: %w", domain.ErrShootNotReady): http.StatusConflict,
		io.ErrUnexpectedEOF:                                http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}

	canceled := &domain.CommandError{Command: api.CmdTakePicture, Err: context.Canceled}
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(canceled))
}
