package domain

import "context"

// Commander issues camera commands over the HTTP command endpoint.
type Commander interface {
	StartLivePreview(ctx context.Context, size VideoSize) error
	StopLivePreview(ctx context.Context) error
	TakePicture(ctx context.Context) error
	GetShootingStatus(ctx context.Context) (string, error)
	SetOptions(ctx context.Context, opts CameraOptions) error
	GetOptions(ctx context.Context) (CameraOptions, error)
	SetSettings(ctx context.Context, settings CameraSettings) error
	GetSettings(ctx context.Context) (CameraSettings, error)
	GetStatus(ctx context.Context) (CameraState, error)
}

// Signaler manages the WebSocket signaling connection.
type Signaler interface {
	SendSDP(sdp SDPPayload) error
	Close()
}

// Handler receives signaling events.
type Handler interface {
	OnOffer(sdp SDPPayload)
	OnAnswer(sdp SDPPayload)
	OnDisconnect()
}

// Peer manages one WebRTC peer connection.
type Peer interface {
	// SetOnLocalDescription registers the callback fired once ICE gathering
	// completes, carrying the full local description.
	SetOnLocalDescription(fn func(sdp SDPPayload))
	// SetOnRemoteStream registers the callback fired once per remote stream.
	SetOnRemoteStream(fn func(stream RemoteStream))
	SetOnICEConnectionStateChange(fn func(state ICEConnectionState))
	SetRemoteDescription(sdp SDPPayload) error
	// CreateAnswer creates an answer and sets it as the local description.
	CreateAnswer() error
	// CreateOffer creates an offer and sets it as the local description.
	CreateOffer() error
	Close() error
}

// PeerFactory creates a fresh Peer for each session.
type PeerFactory func() (Peer, error)

// RemoteStream is a media stream received from the camera.
type RemoteStream interface {
	ID() string
}

// VideoSink renders a remote stream.
type VideoSink interface {
	Play(stream RemoteStream, volume float64)
	Pause()
}
