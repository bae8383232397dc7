package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"theta_preview/native/internal/domain"
	xlog "theta_preview/native/internal/log"
	"theta_preview/native/internal/options"
)

// SettingsSheet is what the settings sheet shows.
type SettingsSheet struct {
	BatteryLevel            int    `json:"batteryLevel"` // percent
	ImageSize               string `json:"imageSize"`    // "5376x2688"
	ShutterVolume           int    `json:"shutterVolume"`
	RemainingPictures       int    `json:"remainingPictures"`
	SpecifyColorTemperature bool   `json:"specifyColorTemperature"`
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// OpenSettings stops the preview and reads device status and settings for
// the settings sheet. Failed reads leave their fields at zero.
func (v *Viewer) OpenSettings(ctx context.Context) (SettingsSheet, error) {
	ctx = withSequence(ctx)
	logger := xlog.FromContext(ctx, v.logger)
	logger.Info().Msg("open settings")

	v.setControlsEnabled(false)
	v.sink.Pause()

	var e errs
	e.add(v.cmd.StopLivePreview(ctx))
	v.setShoot(domain.ShootIdle)

	if err := sleep(ctx, v.opts.SettingsDelay); err != nil {
		return SettingsSheet{}, err
	}

	var sheet SettingsSheet
	state, err := v.cmd.GetStatus(ctx)
	e.add(err)
	if err == nil {
		if level, ok := number(state["batteryLevel"]); ok {
			sheet.BatteryLevel = int(math.Floor(level * 100))
		}
	}

	settings, err := v.cmd.GetSettings(ctx)
	e.add(err)

	v.mu.Lock()
	if err == nil {
		if vol, ok := number(settings["_shutterVolume"]); ok {
			v.shutterVolume = int(vol)
		}
		if n, ok := number(settings["remainingPictures"]); ok {
			sheet.RemainingPictures = int(n)
		}
		if ff, ok := settings["fileFormat"].(map[string]any); ok {
			w, _ := number(ff["width"])
			h, _ := number(ff["height"])
			sheet.ImageSize = fmt.Sprintf("%dx%d", int(w), int(h))
		}
	}
	sheet.ShutterVolume = v.shutterVolume
	sheet.SpecifyColorTemperature = v.controls.SpecifyColorTemperature
	v.mu.Unlock()

	return sheet, e.first
}

// CloseSettings applies the sheet's choices and restarts the preview.
func (v *Viewer) CloseSettings(ctx context.Context, specifyColorTemperature bool, shutterVolume int) error {
	if !options.ValidShutterVolume(shutterVolume) {
		return invalidf("shutter volume %d not in %v", shutterVolume, options.ShutterVolumes)
	}

	ctx = withSequence(ctx)
	logger := xlog.FromContext(ctx, v.logger)
	logger.Info().Bool("specify_color_temperature", specifyColorTemperature).Int("volume", shutterVolume).Msg("close settings")

	v.mu.Lock()
	v.controls.SpecifyColorTemperature = specifyColorTemperature
	v.shutterVolume = shutterVolume
	size := v.size
	v.mu.Unlock()

	var e errs
	e.add(v.ApplyOptions(ctx))
	e.add(v.cmd.SetSettings(ctx, domain.CameraSettings{"_shutterVolume": shutterVolume}))

	if err := sleep(ctx, v.opts.SettingsDelay); err != nil {
		return err
	}
	e.add(v.cmd.StartLivePreview(ctx, size))
	v.resumePlayback()

	v.mu.Lock()
	v.shoot = domain.ShootPreviewRunning
	v.controlsEnabled = v.sessionReadyLocked()
	v.mu.Unlock()
	return e.first
}

// ApplyOptions sends the control selections to the camera, then reads the
// options back and projects them without switching mode.
func (v *Viewer) ApplyOptions(ctx context.Context) error {
	v.mu.Lock()
	opts := v.controls.Options()
	v.mu.Unlock()

	if err := v.cmd.SetOptions(ctx, opts); err != nil {
		return err
	}
	if err := sleep(ctx, v.opts.SettingsDelay); err != nil {
		return err
	}
	return v.refreshOptions(ctx, false)
}

// ChangeExposureMode switches the controls to mode, keeping the camera's
// other current values, and applies the result.
func (v *Viewer) ChangeExposureMode(ctx context.Context, mode options.Mode) error {
	program, ok := mode.ExposureProgram()
	if !ok {
		return invalidf("unknown exposure mode %q", mode)
	}

	ctx = withSequence(ctx)
	lg := xlog.FromContext(ctx, v.logger)
	lg.Info().Str("mode", string(mode)).Msg("change exposure mode")

	opts, err := v.cmd.GetOptions(ctx)
	if err != nil {
		return err
	}
	opts["exposureProgram"] = json.Number(strconv.Itoa(program))

	v.mu.Lock()
	v.controls.Apply(opts, true)
	v.mu.Unlock()

	return v.ApplyOptions(ctx)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
