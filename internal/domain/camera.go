package domain

// VideoSize is the live preview resolution requested from the camera.
type VideoSize string

const (
	VideoSize2K VideoSize = "2K"
	VideoSize4K VideoSize = "4K"
	// VideoSizeCurrent keeps whatever size is already active.
	VideoSizeCurrent VideoSize = ""
)

// Shooting status values reported by camera.getShootingStatus.
const (
	ShootingStatusIdle     = "idle"
	ShootingStatusShooting = "shooting"
)

// CameraOptions is an opaque option map round-tripped to and from
// camera.getOptions / camera.setOptions. Numbers decode as json.Number.
type CameraOptions map[string]any

// CameraSettings is the camera.getSettings / camera.setSettings counterpart.
type CameraSettings map[string]any

// CameraState is the "state" object returned by camera.getStatus.
type CameraState map[string]any

// ShootState is the coordinator's preview/capture state.
type ShootState int

const (
	ShootIdle ShootState = iota
	ShootPreviewRunning
	ShootCaptureInProgress
	ShootPreviewRestarting
)

func (s ShootState) String() string {
	switch s {
	case ShootIdle:
		return "idle"
	case ShootPreviewRunning:
		return "preview-running"
	case ShootCaptureInProgress:
		return "capture-in-progress"
	case ShootPreviewRestarting:
		return "preview-restarting"
	default:
		return "unknown"
	}
}

// SessionState is the lifecycle position of the peer session.
type SessionState string

const (
	SessionAnswering    SessionState = "answering"
	SessionOffering     SessionState = "offering"
	SessionICEGathering SessionState = "ice-gathering"
	SessionEstablished  SessionState = "established"
	SessionFailed       SessionState = "failed"
	SessionClosed       SessionState = "closed"
)

// ICEConnectionState mirrors the standard ICE connection states.
type ICEConnectionState string

const (
	ICENew          ICEConnectionState = "new"
	ICEChecking     ICEConnectionState = "checking"
	ICEConnected    ICEConnectionState = "connected"
	ICECompleted    ICEConnectionState = "completed"
	ICEDisconnected ICEConnectionState = "disconnected"
	ICEFailed       ICEConnectionState = "failed"
	ICEClosed       ICEConnectionState = "closed"
)
