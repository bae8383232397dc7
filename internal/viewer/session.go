package viewer

import (
	"context"
	"fmt"

	"theta_preview/native/internal/domain"
)

// session is the single peer connection the viewer owns.
type session struct {
	peer     domain.Peer
	outbound bool // created by Connect rather than by a received offer
	state    domain.SessionState
	ice      domain.ICEConnectionState
	stream   domain.RemoteStream
	gathered bool
	answered bool
}

func (v *Viewer) hasSession() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session != nil
}

// OnOffer answers an offer from the camera.
func (v *Viewer) OnOffer(sdp domain.SDPPayload) {
	if v.hasSession() {
		if v.opts.OfferPolicy != OfferReplace {
			v.logger.Warn().Err(domain.ErrSessionConflict).Msg("offer ignored, peer already exists")
			return
		}
		v.logger.Info().Msg("replacing existing peer session")
		v.HangUp()
	}

	s, err := v.startSession(domain.SessionAnswering, false)
	if err != nil {
		v.logger.Error().Err(err).Msg("start session for offer")
		return
	}
	if err := s.peer.SetRemoteDescription(sdp); err != nil {
		v.logger.Error().Err(err).Msg("set remote offer")
		return
	}
	if err := s.peer.CreateAnswer(); err != nil {
		v.logger.Error().Err(err).Msg("create answer")
		return
	}
	v.advance(s, domain.SessionAnswering, domain.SessionICEGathering)
}

// OnAnswer completes a session started by Connect.
func (v *Viewer) OnAnswer(sdp domain.SDPPayload) {
	v.mu.Lock()
	s := v.session
	if s == nil || !s.outbound || s.answered {
		v.mu.Unlock()
		v.logger.Warn().Err(domain.ErrSignalingProtocol).Msg("unexpected answer")
		return
	}
	s.answered = true
	v.mu.Unlock()

	if err := s.peer.SetRemoteDescription(sdp); err != nil {
		v.logger.Error().Err(err).Msg("set remote answer")
	}
}

// OnDisconnect hangs up when the camera side goes away.
func (v *Viewer) OnDisconnect() {
	if !v.hasSession() {
		v.logger.Debug().Msg("disconnect without peer session")
		return
	}
	v.logger.Info().Msg("remote disconnected, hanging up")
	v.HangUp()
}

// Connect starts an outbound session by sending an offer to the camera.
func (v *Viewer) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.hasSession() {
		v.logger.Warn().Msg("peer already exists")
		return domain.ErrSessionConflict
	}

	s, err := v.startSession(domain.SessionOffering, true)
	if err != nil {
		return err
	}
	if err := s.peer.CreateOffer(); err != nil {
		v.hangUp(s)
		return fmt.Errorf("create offer: %w", err)
	}
	v.advance(s, domain.SessionOffering, domain.SessionICEGathering)
	return nil
}

// HangUp closes the current session. Without one it only logs.
func (v *Viewer) HangUp() {
	v.hangUp(nil)
}

// hangUp tears down the current session, or only s when s is non-nil.
func (v *Viewer) hangUp(s *session) bool {
	v.mu.Lock()
	cur := v.session
	if cur == nil || (s != nil && cur != s) {
		v.mu.Unlock()
		v.logger.Warn().Err(domain.ErrNoSession).Msg("hang up")
		return false
	}
	v.session = nil
	cur.state = domain.SessionClosed
	v.mu.Unlock()

	v.logger.Info().Msg("hang up")
	if err := cur.peer.Close(); err != nil {
		v.logger.Warn().Err(err).Msg("close peer")
	}
	v.sink.Pause()
	sessionsClosed.Inc()
	return true
}

func (v *Viewer) startSession(state domain.SessionState, outbound bool) (*session, error) {
	peer, err := v.newPeer()
	if err != nil {
		return nil, fmt.Errorf("create peer: %w", err)
	}
	s := &session{peer: peer, outbound: outbound, state: state, ice: domain.ICENew}

	v.mu.Lock()
	if v.session != nil {
		v.mu.Unlock()
		_ = peer.Close()
		return nil, domain.ErrSessionConflict
	}
	v.session = s
	v.controlsEnabled = false
	v.mu.Unlock()

	peer.SetOnLocalDescription(func(sdp domain.SDPPayload) { v.onLocalDescription(s, sdp) })
	peer.SetOnRemoteStream(func(stream domain.RemoteStream) { v.onRemoteStream(s, stream) })
	peer.SetOnICEConnectionStateChange(func(state domain.ICEConnectionState) { v.onICEState(s, state) })

	sessionsStarted.WithLabelValues(string(state)).Inc()
	return s, nil
}

// advance moves s from one state to the next if it is still current and in from.
func (v *Viewer) advance(s *session, from, to domain.SessionState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == s && s.state == from {
		s.state = to
	}
}

// onLocalDescription sends the gathered description once, with the bitrate
// hint for the active size. Gathering completion enables the controls even
// when the send fails.
func (v *Viewer) onLocalDescription(s *session, sdp domain.SDPPayload) {
	v.mu.Lock()
	if v.session != s || s.gathered {
		v.mu.Unlock()
		v.logger.Debug().Msg("ignoring local description of stale session")
		return
	}
	s.gathered = true
	size := v.size
	signaler := v.signal
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		if v.session == s {
			v.controlsEnabled = true
		}
		v.mu.Unlock()
	}()

	out := domain.SDPPayload{Type: sdp.Type, SDP: RewriteSDP(sdp.SDP, BitrateFor(size))}
	if signaler == nil {
		v.logger.Error().Err(domain.ErrTransport).Msg("no signaler, local description dropped")
		return
	}
	if err := signaler.SendSDP(out); err != nil {
		v.logger.Error().Err(err).Str("type", sdp.Type).Msg("send local description")
		return
	}
	v.logger.Info().Str("type", sdp.Type).Int("bitrate", BitrateFor(size)).Msg("local description sent")
}

func (v *Viewer) onRemoteStream(s *session, stream domain.RemoteStream) {
	v.mu.Lock()
	if v.session != s {
		v.mu.Unlock()
		return
	}
	s.stream = stream
	v.mu.Unlock()

	v.logger.Info().Str("stream", stream.ID()).Msg("remote stream attached")
	v.sink.Play(stream, AudioVolume)
}

func (v *Viewer) onICEState(s *session, state domain.ICEConnectionState) {
	v.mu.Lock()
	if v.session != s {
		v.mu.Unlock()
		return
	}
	s.ice = state
	switch state {
	case domain.ICEConnected, domain.ICECompleted:
		s.state = domain.SessionEstablished
	case domain.ICEFailed:
		s.state = domain.SessionFailed
	}
	hangUp := v.opts.HangUpOnICEFailure && (state == domain.ICEFailed || state == domain.ICEDisconnected)
	v.mu.Unlock()

	v.logger.Info().Str("ice", string(state)).Msg("ICE connection state")
	if hangUp {
		// Closing from inside the peer's own callback can block on it.
		go v.hangUp(s)
	}
}
