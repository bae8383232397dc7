package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks a signaling WebSocket failure. Signaling stays down
	// until the process restarts.
	ErrTransport = errors.New("signaling transport failure")
	// ErrSignalingProtocol marks a malformed or unexpected relay message.
	ErrSignalingProtocol = errors.New("signaling protocol error")
	// ErrSessionConflict is reported when a session is requested while one exists.
	ErrSessionConflict = errors.New("peer session already exists")
	// ErrNoSession is reported when an operation needs a peer session and none exists.
	ErrNoSession = errors.New("peer session does not exist")
	// ErrShootNotReady is returned by Shoot outside of PreviewRunning.
	ErrShootNotReady = errors.New("shoot requires a running preview")
	// ErrCaptureTimeout is returned when the capture status poll exceeds its bound.
	ErrCaptureTimeout = errors.New("capture did not complete in time")
	// ErrInvalidArgument marks a request value outside the supported set.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrCommandFailed     = errors.New("camera command failed")
	ErrCameraUnavailable = errors.New("camera unreachable")
)

// CommandError describes a camera command that did not return HTTP 200.
type CommandError struct {
	Command    string
	Status     int
	StatusText string
	Err        error // lower-level cause, e.g. a net.Error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Command, e.sentinel())
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d %s)", msg, e.Status, e.StatusText)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the lower-level cause, so a canceled
// command matches context.Canceled as well as ErrCameraUnavailable.
func (e *CommandError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.Err}
}

func (e *CommandError) sentinel() error {
	if e.Status == 0 {
		return ErrCameraUnavailable
	}
	return ErrCommandFailed
}
