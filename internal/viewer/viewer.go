package viewer

import (
	"context"
	"sync"
	"time"

	"theta_preview/native/internal/domain"
	xlog "theta_preview/native/internal/log"
	"theta_preview/native/internal/options"

	"github.com/rs/zerolog"
)

// OfferPolicy decides what happens to an offer arriving while a session exists.
type OfferPolicy string

const (
	// OfferReject keeps the existing session and drops the new offer.
	OfferReject OfferPolicy = "reject"
	// OfferReplace hangs up the existing session and answers the new offer.
	OfferReplace OfferPolicy = "replace"
)

// AudioVolume is the playback volume applied when a stream is attached.
const AudioVolume = 0.5

// Options tunes the coordinator. Zero values fall back to the defaults below.
type Options struct {
	SettleDelay   time.Duration // after startLivePreview, default 500ms
	PollInterval  time.Duration // between getShootingStatus polls, default 500ms
	SettingsDelay time.Duration // settings and options flows, default 200ms
	// CaptureTimeout bounds the shooting status poll. Zero polls forever.
	CaptureTimeout     time.Duration
	OfferPolicy        OfferPolicy
	HangUpOnICEFailure bool
	InitialSize        domain.VideoSize
}

func (o Options) withDefaults() Options {
	if o.SettleDelay <= 0 {
		o.SettleDelay = 500 * time.Millisecond
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.SettingsDelay <= 0 {
		o.SettingsDelay = 200 * time.Millisecond
	}
	if o.OfferPolicy == "" {
		o.OfferPolicy = OfferReject
	}
	if o.InitialSize != domain.VideoSize2K && o.InitialSize != domain.VideoSize4K {
		o.InitialSize = domain.VideoSize2K
	}
	return o
}

// Viewer coordinates the peer session, the preview/capture sequence and the
// shooting controls. It implements domain.Handler.
type Viewer struct {
	cmd     domain.Commander
	newPeer domain.PeerFactory
	sink    domain.VideoSink
	signal  domain.Signaler
	opts    Options
	logger  zerolog.Logger

	mu              sync.Mutex
	session         *session
	shoot           domain.ShootState
	size            domain.VideoSize
	controlsEnabled bool
	controls        options.Controls
	shutterVolume   int
}

// New creates a Viewer. Call SetSignaler before signaling starts.
func New(cmd domain.Commander, newPeer domain.PeerFactory, sink domain.VideoSink, opts Options) *Viewer {
	opts = opts.withDefaults()
	return &Viewer{
		cmd:           cmd,
		newPeer:       newPeer,
		sink:          sink,
		opts:          opts,
		logger:        xlog.WithComponent("viewer"),
		shoot:         domain.ShootIdle,
		size:          opts.InitialSize,
		controls:      options.NewControls(),
		shutterVolume: options.DefaultShutterVolume,
	}
}

// SetSignaler injects the signaler after construction to resolve the
// circular dependency (Viewer needs Signaler, Signal needs Handler).
func (v *Viewer) SetSignaler(s domain.Signaler) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.signal = s
}

// SessionStatus describes the current peer session.
type SessionStatus struct {
	State     domain.SessionState       `json:"state"`
	ICE       domain.ICEConnectionState `json:"ice"`
	Gathered  bool                      `json:"gathered"`
	HasStream bool                      `json:"hasStream"`
}

// Status is a point-in-time view of the coordinator.
type Status struct {
	Shoot           string           `json:"shoot"`
	Size            domain.VideoSize `json:"size"`
	ControlsEnabled bool             `json:"controlsEnabled"`
	Session         *SessionStatus   `json:"session,omitempty"`
}

// Status returns a snapshot of the coordinator state.
func (v *Viewer) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := Status{
		Shoot:           v.shoot.String(),
		Size:            v.size,
		ControlsEnabled: v.controlsEnabledLocked(),
	}
	if s := v.session; s != nil {
		st.Session = &SessionStatus{
			State:     s.state,
			ICE:       s.ice,
			Gathered:  s.gathered,
			HasStream: s.stream != nil,
		}
	}
	return st
}

// State returns the current shoot state.
func (v *Viewer) State() domain.ShootState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shoot
}

// Size returns the active preview size.
func (v *Viewer) Size() domain.VideoSize {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size
}

// ControlsEnabled reports whether the shoot and setting controls accept input.
// They only do while the preview is running.
func (v *Viewer) ControlsEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.controlsEnabledLocked()
}

func (v *Viewer) controlsEnabledLocked() bool {
	return v.controlsEnabled && v.shoot == domain.ShootPreviewRunning
}

// Controls returns the current control selections.
func (v *Viewer) Controls() options.Controls {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.controls
}

// SetControls replaces the control selections. Use ApplyOptions to send
// them to the camera.
func (v *Viewer) SetControls(c options.Controls) error {
	if _, ok := options.ParseMode(string(c.Mode)); !ok {
		return invalidf("unknown exposure mode %q", c.Mode)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.controls = c
	return nil
}

// sessionReadyLocked reports whether the current session, if any, has
// finished ICE gathering. Controls stay off while a session is gathering.
func (v *Viewer) sessionReadyLocked() bool {
	return v.session == nil || v.session.gathered
}

func (v *Viewer) setShoot(s domain.ShootState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shoot = s
}

func (v *Viewer) setControlsEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.controlsEnabled = enabled
}

// currentStream returns the remote stream of the current session, if any.
func (v *Viewer) currentStream() domain.RemoteStream {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return nil
	}
	return v.session.stream
}

func (v *Viewer) resumePlayback() {
	if stream := v.currentStream(); stream != nil {
		v.sink.Play(stream, AudioVolume)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// errs keeps the first error of a sequence that carries on after failures.
type errs struct{ first error }

func (e *errs) add(err error) {
	if e.first == nil {
		e.first = err
	}
}

var _ domain.Handler = (*Viewer)(nil)
