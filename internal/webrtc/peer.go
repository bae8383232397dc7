package webrtc

import (
	"fmt"
	"sync"
	"time"

	"theta_preview/native/internal/domain"
	xlog "theta_preview/native/internal/log"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// DefaultPLIInterval is how often a keyframe is requested from the camera.
const DefaultPLIInterval = 3 * time.Second

// Config configures a Peer.
type Config struct {
	// ICEServers lists STUN/TURN URLs. The camera and viewer normally share a
	// LAN, so the default is host candidates only.
	ICEServers  []string
	PLIInterval time.Duration
}

// Peer wraps a Pion PeerConnection using Vanilla ICE: the local description
// is reported once, after candidate gathering completes.
type Peer struct {
	pc     *pion.PeerConnection
	logger zerolog.Logger

	mu        sync.Mutex
	onLocal   func(domain.SDPPayload)
	onStream  func(domain.RemoteStream)
	onICE     func(domain.ICEConnectionState)
	streams   map[string]*Stream
	gathered  bool
	closeOnce sync.Once
}

// NewPeer creates a PeerConnection with the default codecs and interceptors
// plus a periodic PLI generator.
func NewPeer(cfg Config) (*Peer, error) {
	m := &pion.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	i := &interceptor.Registry{}
	if err := pion.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	pliInterval := cfg.PLIInterval
	if pliInterval <= 0 {
		pliInterval = DefaultPLIInterval
	}
	pli, err := intervalpli.NewReceiverInterceptor(intervalpli.GeneratorInterval(pliInterval))
	if err != nil {
		return nil, fmt.Errorf("create pli interceptor: %w", err)
	}
	i.Add(pli)

	api := pion.NewAPI(
		pion.WithMediaEngine(m),
		pion.WithInterceptorRegistry(i),
	)

	var servers []pion.ICEServer
	if len(cfg.ICEServers) > 0 {
		servers = append(servers, pion.ICEServer{URLs: cfg.ICEServers})
	}

	pc, err := api.NewPeerConnection(pion.Configuration{
		ICEServers:   servers,
		BundlePolicy: pion.BundlePolicyMaxBundle,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &Peer{
		pc:      pc,
		logger:  xlog.WithComponent("webrtc"),
		streams: make(map[string]*Stream),
	}

	pc.OnICECandidate(p.handleICECandidate)
	pc.OnTrack(p.handleTrack)
	pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		p.logger.Info().Str("state", state.String()).Msg("ICE connection state")
		p.mu.Lock()
		fn := p.onICE
		p.mu.Unlock()
		if fn != nil {
			fn(domain.ICEConnectionState(state.String()))
		}
	})
	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		p.logger.Debug().Str("state", state.String()).Msg("peer connection state")
	})

	return p, nil
}

// NewFactory returns a domain.PeerFactory producing peers with cfg.
func NewFactory(cfg Config) domain.PeerFactory {
	return func() (domain.Peer, error) {
		return NewPeer(cfg)
	}
}

func (p *Peer) SetOnLocalDescription(fn func(domain.SDPPayload)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLocal = fn
}

func (p *Peer) SetOnRemoteStream(fn func(domain.RemoteStream)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStream = fn
}

func (p *Peer) SetOnICEConnectionStateChange(fn func(domain.ICEConnectionState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onICE = fn
}

func (p *Peer) handleICECandidate(c *pion.ICECandidate) {
	if c != nil {
		p.logger.Debug().Str("candidate", c.ToJSON().Candidate).Msg("local ICE candidate")
		return
	}

	p.mu.Lock()
	if p.gathered {
		p.mu.Unlock()
		return
	}
	p.gathered = true
	fn := p.onLocal
	p.mu.Unlock()

	p.logger.Info().Msg("ICE gathering complete")
	desc := p.pc.LocalDescription()
	if desc == nil || fn == nil {
		return
	}
	fn(domain.SDPPayload{Type: desc.Type.String(), SDP: desc.SDP})
}

func (p *Peer) handleTrack(track *pion.TrackRemote, _ *pion.RTPReceiver) {
	codec := track.Codec()
	p.logger.Info().
		Str("kind", track.Kind().String()).
		Str("codec", codec.MimeType).
		Str("stream", track.StreamID()).
		Msg("got track")

	p.mu.Lock()
	st, seen := p.streams[track.StreamID()]
	if !seen {
		st = newStream(track.StreamID(), p.logger)
		p.streams[track.StreamID()] = st
	}
	fn := p.onStream
	p.mu.Unlock()

	if track.Kind() == pion.RTPCodecTypeVideo && codec.MimeType == pion.MimeTypeH264 {
		go st.readVideoTrack(track)
	} else {
		go drainTrack(track)
	}

	if !seen && fn != nil {
		fn(st)
	}
}

// SetRemoteDescription applies an offer or answer received from the camera.
func (p *Peer) SetRemoteDescription(sdp domain.SDPPayload) error {
	desc := pion.SessionDescription{
		Type: pion.NewSDPType(sdp.Type),
		SDP:  sdp.SDP,
	}
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	p.logger.Info().Str("type", sdp.Type).Msg("remote description set")
	return nil
}

// CreateAnswer creates an answer and sets it as the local description,
// which starts candidate gathering.
func (p *Peer) CreateAnswer() error {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	p.logger.Info().Msg("local answer set")
	return nil
}

// CreateOffer adds receive-only audio and video transceivers, creates an
// offer and sets it as the local description.
func (p *Peer) CreateOffer() error {
	for _, kind := range []pion.RTPCodecType{pion.RTPCodecTypeAudio, pion.RTPCodecTypeVideo} {
		_, err := p.pc.AddTransceiverFromKind(kind, pion.RTPTransceiverInit{
			Direction: pion.RTPTransceiverDirectionRecvonly,
		})
		if err != nil {
			return fmt.Errorf("add %s transceiver: %w", kind, err)
		}
	}

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	p.logger.Info().Msg("local offer set")
	return nil
}

// Close shuts down the PeerConnection and detaches every stream.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		for _, st := range p.streams {
			st.Detach()
		}
		p.mu.Unlock()
		err = p.pc.Close()
	})
	return err
}

var _ domain.Peer = (*Peer)(nil)
