package webrtc

import (
	"io"
	"sync"

	"theta_preview/native/internal/domain"

	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

var startCode = []byte{0x00, 0x00, 0x00, 0x01}

// Stream groups the remote tracks that share one stream id. Video is written
// as Annex-B H264 to whatever writer is attached; with none attached the
// track is still read and discarded.
type Stream struct {
	id     string
	logger zerolog.Logger

	mu     sync.Mutex
	out    io.Writer
	volume float64
}

func newStream(id string, logger zerolog.Logger) *Stream {
	return &Stream{id: id, logger: logger.With().Str("stream", id).Logger()}
}

// ID returns the remote stream id.
func (s *Stream) ID() string { return s.id }

// Attach directs video output to w.
func (s *Stream) Attach(w io.Writer, volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = w
	s.volume = volume
}

// Detach stops video output. Frames read while detached are dropped.
func (s *Stream) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = nil
}

// Volume returns the playback volume set by the last Attach.
func (s *Stream) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// writeNALU writes one NAL unit with its start code. Returns false if no
// writer is attached.
func (s *Stream) writeNALU(nalu []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		return false
	}
	if _, err := s.out.Write(startCode); err != nil {
		s.logger.Warn().Err(err).Msg("video write failed")
		return false
	}
	if _, err := s.out.Write(nalu); err != nil {
		s.logger.Warn().Err(err).Msg("video write failed")
		return false
	}
	return true
}

func (s *Stream) readVideoTrack(track *pion.TrackRemote) {
	s.logger.Info().Str("codec", track.Codec().MimeType).Msg("reading video track")

	depack := NewH264Depacketizer()
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			s.logger.Debug().Err(err).Msg("video track ended")
			return
		}
		for _, nalu := range depack.Depacketize(pkt.SequenceNumber, pkt.Payload) {
			if len(nalu) == 0 {
				continue
			}
			s.writeNALU(nalu)
		}
	}
}

func drainTrack(track *pion.TrackRemote) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buf); err != nil {
			return
		}
	}
}

var _ domain.RemoteStream = (*Stream)(nil)
