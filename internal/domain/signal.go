package domain

// SDPPayload is the JSON structure for SDP offer/answer messages.
type SDPPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// SignalType tags a relay message.
type SignalType string

const (
	SignalOffer      SignalType = "offer"
	SignalAnswer     SignalType = "answer"
	SignalDisconnect SignalType = "disconnect"
)

// SignalingMessage is the relay envelope. Offers and answers carry the
// session description fields at the top level, disconnect notices carry
// nothing but the type.
type SignalingMessage struct {
	Type SignalType `json:"type"`
	SDP  string     `json:"sdp,omitempty"`
}

// Payload returns the session description carried by an offer or answer.
func (m SignalingMessage) Payload() SDPPayload {
	return SDPPayload{Type: string(m.Type), SDP: m.SDP}
}
