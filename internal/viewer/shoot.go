package viewer

import (
	"context"
	"errors"
	"time"

	"theta_preview/native/internal/domain"
	xlog "theta_preview/native/internal/log"

	"github.com/google/uuid"
)

func withSequence(ctx context.Context) context.Context {
	if xlog.SequenceIDFromContext(ctx) != "" {
		return ctx
	}
	return xlog.ContextWithSequenceID(ctx, uuid.NewString())
}

// StartPreview starts the live preview at the selected size and projects the
// camera's options onto the controls once the preview has settled.
// Command failures are logged and the sequence carries on; the first one
// is returned.
func (v *Viewer) StartPreview(ctx context.Context, size domain.VideoSize) error {
	ctx = withSequence(ctx)
	logger := xlog.FromContext(ctx, v.logger)

	v.mu.Lock()
	v.size = selectSize(v.size, size)
	active := v.size
	v.mu.Unlock()
	logger.Info().Str("size", string(active)).Msg("start preview")

	v.resumePlayback()

	var e errs
	e.add(v.cmd.StartLivePreview(ctx, active))
	v.setShoot(domain.ShootPreviewRunning)

	if err := sleep(ctx, v.opts.SettleDelay); err != nil {
		return err
	}
	e.add(v.refreshOptions(ctx, true))
	return e.first
}

// StopPreview pauses playback and stops the live preview.
func (v *Viewer) StopPreview(ctx context.Context) error {
	ctx = withSequence(ctx)
	lg := xlog.FromContext(ctx, v.logger)
	lg.Info().Msg("stop preview")

	v.sink.Pause()
	err := v.cmd.StopLivePreview(ctx)
	v.setShoot(domain.ShootIdle)
	return err
}

// Shoot takes a still picture. The preview is stopped for the capture, the
// shooting status is polled until the camera is idle, then the preview is
// restarted at the same size.
func (v *Viewer) Shoot(ctx context.Context) error {
	v.mu.Lock()
	if v.shoot != domain.ShootPreviewRunning {
		state := v.shoot
		v.mu.Unlock()
		v.logger.Warn().Str("state", state.String()).Msg("shoot rejected")
		return domain.ErrShootNotReady
	}
	v.shoot = domain.ShootCaptureInProgress
	v.controlsEnabled = false
	size := v.size
	v.mu.Unlock()

	ctx = withSequence(ctx)
	logger := xlog.FromContext(ctx, v.logger)
	logger.Info().Msg("still image shooting")
	start := time.Now()

	v.sink.Pause()

	var e errs
	e.add(v.cmd.StopLivePreview(ctx))
	e.add(v.cmd.TakePicture(ctx))

	waitErr := v.waitForCapture(ctx)
	switch {
	case waitErr == nil:
	case errors.Is(waitErr, domain.ErrCaptureTimeout):
		logger.Error().Err(waitErr).Dur("timeout", v.opts.CaptureTimeout).Msg("restarting preview")
	default:
		// Canceled: the preview is stopped and nothing restarts it.
		v.setShoot(domain.ShootIdle)
		capturesTotal.WithLabelValues("canceled").Inc()
		return waitErr
	}

	v.setShoot(domain.ShootPreviewRestarting)
	e.add(v.cmd.StartLivePreview(ctx, size))
	if err := sleep(ctx, v.opts.SettleDelay); err != nil {
		v.setShoot(domain.ShootIdle)
		capturesTotal.WithLabelValues("canceled").Inc()
		return err
	}
	v.resumePlayback()

	v.mu.Lock()
	v.shoot = domain.ShootPreviewRunning
	v.controlsEnabled = v.sessionReadyLocked()
	v.mu.Unlock()

	captureDuration.Observe(time.Since(start).Seconds())
	switch {
	case waitErr != nil:
		capturesTotal.WithLabelValues("timeout").Inc()
		return waitErr
	case e.first != nil:
		capturesTotal.WithLabelValues("error").Inc()
	default:
		capturesTotal.WithLabelValues("ok").Inc()
	}
	logger.Info().Dur("elapsed", time.Since(start)).Msg("still image shooting complete")
	return e.first
}

// waitForCapture polls getShootingStatus until it reports idle. A failed
// poll counts as still shooting.
func (v *Viewer) waitForCapture(ctx context.Context) error {
	logger := xlog.FromContext(ctx, v.logger)

	var deadline <-chan time.Time
	if v.opts.CaptureTimeout > 0 {
		t := time.NewTimer(v.opts.CaptureTimeout)
		defer t.Stop()
		deadline = t.C
	}

	for {
		statusPolls.Inc()
		status, err := v.cmd.GetShootingStatus(ctx)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("shooting status poll failed")
		case status == domain.ShootingStatusIdle:
			return nil
		}

		poll := time.NewTimer(v.opts.PollInterval)
		select {
		case <-ctx.Done():
			poll.Stop()
			return ctx.Err()
		case <-deadline:
			poll.Stop()
			return domain.ErrCaptureTimeout
		case <-poll.C:
		}
	}
}

// refreshOptions reads the camera options and projects them onto the
// controls. A failed read leaves the controls untouched.
func (v *Viewer) refreshOptions(ctx context.Context, switchMode bool) error {
	opts, err := v.cmd.GetOptions(ctx)
	if err != nil {
		lg := xlog.FromContext(ctx, v.logger)
		lg.Warn().Err(err).Msg("options not projected")
		return err
	}
	v.mu.Lock()
	v.controls.Apply(opts, switchMode)
	v.mu.Unlock()
	return nil
}
