package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"theta_preview/native/internal/domain"
	xlog "theta_preview/native/internal/log"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Command names understood by the camera's command endpoint.
const (
	CmdStartLivePreview  = "camera.startLivePreview"
	CmdStopLivePreview   = "camera.stopLivePreview"
	CmdTakePicture       = "camera.takePicture"
	CmdGetShootingStatus = "camera.getShootingStatus"
	CmdSetOptions        = "camera.setOptions"
	CmdGetOptions        = "camera.getOptions"
	CmdSetSettings       = "camera.setSettings"
	CmdGetSettings       = "camera.getSettings"
	CmdGetStatus         = "camera.getStatus"
)

// CommandPath is the fixed endpoint every command is POSTed to.
const CommandPath = "/webrtc/commands/execute"

// OptionNames is the option list queried by GetOptions.
var OptionNames = []string{
	"exposureProgram",
	"iso",
	"shutterSpeed",
	"whiteBalance",
	"_colorTemperature",
	"exposureCompensation",
	"_filter",
}

// SettingNames is the setting list queried by GetSettings.
var SettingNames = []string{
	"_shutterVolume",
	"fileFormat",
	"remainingPictures",
}

type commandRequest struct {
	Name       string `json:"name"`
	Parameters any    `json:"parameters,omitempty"`
}

type optionsParams struct {
	Options any `json:"options"`
}

type optionNamesParams struct {
	OptionNames []string `json:"optionNames"`
}

type resultsResponse struct {
	Results struct {
		Options map[string]any `json:"options"`
	} `json:"results"`
}

// Options configures the command client.
type Options struct {
	Timeout        time.Duration
	RateLimit      rate.Limit // zero means unlimited
	RateLimitBurst int
	HTTPClient     *http.Client
}

const defaultTimeout = 10 * time.Second

// Client sends commands to the camera. It holds no session state.
type Client struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewClient creates a command client for the given endpoint URL.
func NewClient(commandURL string) *Client {
	return NewClientWithOptions(commandURL, Options{})
}

// NewClientWithOptions creates a command client with explicit options.
func NewClientWithOptions(commandURL string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := opts.RateLimit
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := opts.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		url:     commandURL,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		logger:  xlog.WithComponent("api"),
	}
}

// Execute POSTs {name, parameters} to the command endpoint. A non-200 status
// yields a *domain.CommandError; there are no retries.
func (c *Client) Execute(ctx context.Context, name string, parameters any) (json.RawMessage, error) {
	tracer := otel.Tracer("theta_preview/api")
	ctx, span := tracer.Start(ctx, "camera.command",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("camera.command", name)),
	)
	defer span.End()

	start := time.Now()
	body, err := c.execute(ctx, name, parameters)
	observeCommand(name, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		lg := xlog.FromContext(ctx, c.logger)
		lg.Warn().Err(err).Str("command", name).Msg("command failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	lg := xlog.FromContext(ctx, c.logger)
	lg.Debug().Str("command", name).RawJSON("response", body).Msg("command done")
	return body, nil
}

func (c *Client) execute(ctx context.Context, name string, parameters any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.CommandError{Command: name, Err: err}
	}

	payload, err := json.Marshal(commandRequest{Name: name, Parameters: parameters})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.CommandError{Command: name, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.CommandError{Command: name, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.CommandError{
			Command:    name,
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}
	}

	return respBody, nil
}

// errNoResults reports a 200 answer that lacks the results.options object.
func errNoResults(name string) error {
	return fmt.Errorf("%s: %w: response has no results.options", name, domain.ErrCommandFailed)
}

func decode(name string, body json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", name, err)
	}
	return nil
}

// StartLivePreview asks the camera to start streaming at the given size.
func (c *Client) StartLivePreview(ctx context.Context, size domain.VideoSize) error {
	params := optionsParams{Options: map[string]string{"videoSize": string(size)}}
	_, err := c.Execute(ctx, CmdStartLivePreview, params)
	return err
}

// StopLivePreview stops the camera's live stream.
func (c *Client) StopLivePreview(ctx context.Context) error {
	_, err := c.Execute(ctx, CmdStopLivePreview, nil)
	return err
}

// TakePicture starts a still capture. Completion is observed through GetShootingStatus.
func (c *Client) TakePicture(ctx context.Context) error {
	_, err := c.Execute(ctx, CmdTakePicture, nil)
	return err
}

// GetShootingStatus returns "idle" or "shooting".
func (c *Client) GetShootingStatus(ctx context.Context) (string, error) {
	body, err := c.Execute(ctx, CmdGetShootingStatus, nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := decode(CmdGetShootingStatus, body, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// SetOptions sends options verbatim.
func (c *Client) SetOptions(ctx context.Context, opts domain.CameraOptions) error {
	_, err := c.Execute(ctx, CmdSetOptions, optionsParams{Options: opts})
	return err
}

// GetOptions queries the fixed option list. The returned map is never nil.
func (c *Client) GetOptions(ctx context.Context) (domain.CameraOptions, error) {
	body, err := c.Execute(ctx, CmdGetOptions, optionNamesParams{OptionNames: OptionNames})
	if err != nil {
		return nil, err
	}
	var resp resultsResponse
	if err := decode(CmdGetOptions, body, &resp); err != nil {
		return nil, err
	}
	if resp.Results.Options == nil {
		return nil, errNoResults(CmdGetOptions)
	}
	return domain.CameraOptions(resp.Results.Options), nil
}

// SetSettings sends settings verbatim.
func (c *Client) SetSettings(ctx context.Context, settings domain.CameraSettings) error {
	_, err := c.Execute(ctx, CmdSetSettings, optionsParams{Options: settings})
	return err
}

// GetSettings queries the fixed setting list.
func (c *Client) GetSettings(ctx context.Context) (domain.CameraSettings, error) {
	body, err := c.Execute(ctx, CmdGetSettings, optionNamesParams{OptionNames: SettingNames})
	if err != nil {
		return nil, err
	}
	var resp resultsResponse
	if err := decode(CmdGetSettings, body, &resp); err != nil {
		return nil, err
	}
	if resp.Results.Options == nil {
		return nil, errNoResults(CmdGetSettings)
	}
	return domain.CameraSettings(resp.Results.Options), nil
}

// GetStatus returns the camera's device state (battery level and so on).
func (c *Client) GetStatus(ctx context.Context) (domain.CameraState, error) {
	body, err := c.Execute(ctx, CmdGetStatus, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		State map[string]any `json:"state"`
	}
	if err := decode(CmdGetStatus, body, &resp); err != nil {
		return nil, err
	}
	return domain.CameraState(resp.State), nil
}

var _ domain.Commander = (*Client)(nil)
