package webrtc

import (
	"io"
	"sync"

	"theta_preview/native/internal/domain"
	xlog "theta_preview/native/internal/log"

	"github.com/rs/zerolog"
)

// Sink plays remote streams into a writer, typically stdout piped to a
// player such as ffplay.
type Sink struct {
	out    io.Writer
	logger zerolog.Logger

	mu      sync.Mutex
	current *Stream
	playing bool
}

// NewSink creates a sink writing Annex-B H264 to out.
func NewSink(out io.Writer) *Sink {
	return &Sink{out: out, logger: xlog.WithComponent("webrtc")}
}

// Play attaches stream to the sink's writer. A stream not produced by this
// package is ignored.
func (s *Sink) Play(stream domain.RemoteStream, volume float64) {
	st, ok := stream.(*Stream)
	if !ok {
		s.logger.Warn().Str("stream", stream.ID()).Msg("unsupported stream type")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current != st {
		s.current.Detach()
	}
	st.Attach(s.out, volume)
	s.current = st
	s.playing = true
	s.logger.Debug().Str("stream", st.ID()).Float64("volume", volume).Msg("playing")
}

// Pause detaches the current stream, if any.
func (s *Sink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Detach()
	}
	s.playing = false
}

// Playing reports whether a stream is attached.
func (s *Sink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

var _ domain.VideoSink = (*Sink)(nil)
