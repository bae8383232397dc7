package viewer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"theta_preview/native/internal/api"
	"theta_preview/native/internal/domain"
)

// fakePeer records calls and lets tests fire the peer callbacks.
type fakePeer struct {
	mu        sync.Mutex
	onLocal   func(domain.SDPPayload)
	onStream  func(domain.RemoteStream)
	onICE     func(domain.ICEConnectionState)
	remote    []domain.SDPPayload
	answers   int
	offers    int
	closes    int
	remoteErr error
}

func (p *fakePeer) SetOnLocalDescription(fn func(domain.SDPPayload)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLocal = fn
}

func (p *fakePeer) SetOnRemoteStream(fn func(domain.RemoteStream)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStream = fn
}

func (p *fakePeer) SetOnICEConnectionStateChange(fn func(domain.ICEConnectionState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onICE = fn
}

func (p *fakePeer) SetRemoteDescription(sdp domain.SDPPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remote = append(p.remote, sdp)
	return p.remoteErr
}

func (p *fakePeer) CreateAnswer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answers++
	return nil
}

func (p *fakePeer) CreateOffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offers++
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return nil
}

func (p *fakePeer) gather(sdp domain.SDPPayload) {
	p.mu.Lock()
	fn := p.onLocal
	p.mu.Unlock()
	fn(sdp)
}

func (p *fakePeer) stream(s domain.RemoteStream) {
	p.mu.Lock()
	fn := p.onStream
	p.mu.Unlock()
	fn(s)
}

func (p *fakePeer) ice(state domain.ICEConnectionState) {
	p.mu.Lock()
	fn := p.onICE
	p.mu.Unlock()
	fn(state)
}

func (p *fakePeer) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

// peerFactory hands out fakePeers and remembers them.
type peerFactory struct {
	mu    sync.Mutex
	peers []*fakePeer
	err   error
}

func (f *peerFactory) New() (domain.Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p := &fakePeer{}
	f.peers = append(f.peers, p)
	return p, nil
}

func (f *peerFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.peers)
}

func (f *peerFactory) last() *fakePeer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peers[len(f.peers)-1]
}

type fakeSignaler struct {
	mu   sync.Mutex
	sent []domain.SDPPayload
	err  error
}

func (s *fakeSignaler) SendSDP(sdp domain.SDPPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sdp)
	return nil
}

func (s *fakeSignaler) Close() {}

func (s *fakeSignaler) messages() []domain.SDPPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SDPPayload(nil), s.sent...)
}

type fakeSink struct {
	mu      sync.Mutex
	plays   []domain.RemoteStream
	volumes []float64
	pauses  int
}

func (s *fakeSink) Play(stream domain.RemoteStream, volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays = append(s.plays, stream)
	s.volumes = append(s.volumes, volume)
}

func (s *fakeSink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses++
}

func (s *fakeSink) counts() (plays, pauses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.plays), s.pauses
}

type fakeStream string

func (f fakeStream) ID() string { return string(f) }

var errBoom = errors.New("boom")

type harness struct {
	v      *Viewer
	camera *api.MockServer
	peers  *peerFactory
	signal *fakeSignaler
	sink   *fakeSink
}

func fastOptions() Options {
	return Options{
		SettleDelay:   time.Millisecond,
		PollInterval:  5 * time.Millisecond,
		SettingsDelay: time.Millisecond,
	}
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	camera := api.NewMockServer()
	t.Cleanup(camera.Close)

	h := &harness{
		camera: camera,
		peers:  &peerFactory{},
		signal: &fakeSignaler{},
		sink:   &fakeSink{},
	}
	h.v = New(api.NewClient(camera.CommandURL()), h.peers.New, h.sink, opts)
	h.v.SetSignaler(h.signal)
	return h
}
