package agent

// Inbound event types carried on the duplex channel.
const (
	// EventAssistant carries assistant-generated text, either a complete
	// message or an incremental delta replacing the in-progress message.
	EventAssistant = "assistant"
	// EventFinal carries the finalized transcript of what the user said.
	EventFinal = "final"
	// EventAudio carries one unit of synthesized speech, base64 encoded.
	EventAudio = "audio"
)

// Event is one inbound message received from the remote agent.
// Events are delivered to subscribers in receipt order; the transport
// preserves ordering but carries no sequence numbers.
type Event struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	B64  string `json:"b64,omitempty"`
}
