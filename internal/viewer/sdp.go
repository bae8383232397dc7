package viewer

import (
	"fmt"
	"strings"

	"theta_preview/native/internal/domain"
)

// Preview bitrate hints in kbps.
const (
	Bitrate2K = 6500
	Bitrate4K = 40000
)

const videoMidMarker = "a=mid:video\r\n"

// BitrateFor returns the bitrate hint for a preview size.
func BitrateFor(size domain.VideoSize) int {
	if size == domain.VideoSize2K {
		return Bitrate2K
	}
	return Bitrate4K
}

// RewriteSDP inserts a framerate and bandwidth line after every video mid
// line. An SDP without one is returned unchanged.
func RewriteSDP(sdp string, bitrate int) string {
	insert := fmt.Sprintf("%sa=framerate:30.0\r\nb=AS:%d\r\n", videoMidMarker, bitrate)
	return strings.ReplaceAll(sdp, videoMidMarker, insert)
}

// selectSize picks the active size: 2K and 4K are taken as is, the
// keep-current sentinel keeps current, anything else falls back to 2K.
func selectSize(current, requested domain.VideoSize) domain.VideoSize {
	switch requested {
	case domain.VideoSize2K, domain.VideoSize4K:
		return requested
	case domain.VideoSizeCurrent:
		return current
	default:
		return domain.VideoSize2K
	}
}
