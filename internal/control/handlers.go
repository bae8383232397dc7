package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"theta_preview/native/internal/domain"
	"theta_preview/native/internal/options"
)

// Choices lists every picker table the controls index into.
type Choices struct {
	Modes                 []options.Mode   `json:"modes"`
	EV                    []string         `json:"exposureCompensation"`
	ISO                   []string         `json:"iso"`
	PriorityShutterSpeeds []options.Choice `json:"shutterSpeed"`
	ManualShutterSpeeds   []options.Choice `json:"manualShutterSpeed"`
	WhiteBalance          []options.Choice `json:"whiteBalance"`
	ColorTemperatures     []string         `json:"colorTemperature"`
	Filters               []options.Choice `json:"filter"`
	ShutterVolumes        []int            `json:"shutterVolume"`
}

var choices = Choices{
	Modes:                 options.Modes,
	EV:                    options.EVSupport,
	ISO:                   options.ISOSupport,
	PriorityShutterSpeeds: options.PriorityShutterSpeeds,
	ManualShutterSpeeds:   options.ManualShutterSpeeds,
	WhiteBalance:          options.WhiteBalancePresets,
	ColorTemperatures:     options.ColorTemperatures,
	Filters:               options.Filters,
	ShutterVolumes:        options.ShutterVolumes,
}

// OptionsResponse is returned by GET /api/options.
type OptionsResponse struct {
	Controls options.Controls `json:"controls"`
	Choices  Choices          `json:"choices"`
}

type previewRequest struct {
	Size domain.VideoSize `json:"size"`
}

type modeRequest struct {
	Mode options.Mode `json:"mode"`
}

type settingsRequest struct {
	SpecifyColorTemperature bool `json:"specifyColorTemperature"`
	ShutterVolume           *int `json:"shutterVolume"`
}

// decode reads an optional JSON body into dst. An empty body leaves dst alone.
func decode(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: request body: %v", domain.ErrInvalidArgument, err)
}

func (s *server) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.v.Status())
}

// respond writes err, or the current state when the operation succeeded.
func (s *server) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("operation failed")
		writeError(w, err)
		return
	}
	s.state(w, r)
}

func (s *server) startPreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, r, s.v.StartPreview(r.Context(), req.Size))
}

func (s *server) stopPreview(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.v.StopPreview(r.Context()))
}

func (s *server) shoot(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.v.Shoot(r.Context()))
}

func (s *server) connect(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.v.Connect(r.Context()))
}

func (s *server) hangUp(w http.ResponseWriter, r *http.Request) {
	s.v.HangUp()
	s.state(w, r)
}

func (s *server) getOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, OptionsResponse{Controls: s.v.Controls(), Choices: choices})
}

func (s *server) putOptions(w http.ResponseWriter, r *http.Request) {
	c := s.v.Controls()
	if err := decode(r, &c); err != nil {
		writeError(w, err)
		return
	}
	if err := s.v.SetControls(c); err != nil {
		writeError(w, err)
		return
	}
	if err := s.v.ApplyOptions(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	s.getOptions(w, r)
}

func (s *server) changeMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.v.ChangeExposureMode(r.Context(), req.Mode); err != nil {
		writeError(w, err)
		return
	}
	s.getOptions(w, r)
}

func (s *server) openSettings(w http.ResponseWriter, r *http.Request) {
	sheet, err := s.v.OpenSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

func (s *server) closeSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ShutterVolume == nil {
		writeError(w, fmt.Errorf("%w: shutterVolume is required", domain.ErrInvalidArgument))
		return
	}
	s.respond(w, r, s.v.CloseSettings(r.Context(), req.SpecifyColorTemperature, *req.ShutterVolume))
}
