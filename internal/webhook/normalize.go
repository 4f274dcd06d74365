// Package webhook normalizes inbound Chatwoot webhook payloads into
// pipeline messages.
//
// Two payload shapes arrive on the same endpoint: a flat message shape
// and an event-wrapped shape where the message nests under "message"
// with event == "message_created". Normalize resolves both to one
// InboundMessage or to a skip/reject decision. It is pure: no I/O, no
// errors.
package webhook

import (
	"encoding/json"
	"strings"
)

// eventMessageCreated is the only event type carrying a new message.
const eventMessageCreated = "message_created"

// Outcome classifies the normalization result.
type Outcome string

const (
	// OutcomeOK means the payload produced a valid InboundMessage.
	OutcomeOK Outcome = "ok"

	// OutcomeSkipped means the payload is well-formed but not
	// actionable (outgoing message, unrelated event). Not an error.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeRejected means the payload looked actionable but required
	// fields are missing. Not an error either; the sender is still
	// acknowledged so it never retries.
	OutcomeRejected Outcome = "rejected"
)

// InboundMessage is a normalized actionable message.
type InboundMessage struct {
	ConversationID int64
	AccountID      int64
	Content        string
	MessageType    string
}

// Decision is the result of normalizing one payload.
type Decision struct {
	Outcome Outcome

	// Message is set only when Outcome is OutcomeOK.
	Message *InboundMessage

	// Reason explains a skip or reject for logging and the status body.
	Reason string
}

// Payload mirrors the union of both webhook shapes. Unknown fields are
// ignored.
type Payload struct {
	Event       string `json:"event"`
	MessageType string `json:"message_type"`
	Content     string `json:"content"`

	Message *struct {
		MessageType string `json:"message_type"`
		Content     string `json:"content"`
	} `json:"message"`

	Conversation *struct {
		ID int64 `json:"id"`
	} `json:"conversation"`

	Account *struct {
		ID int64 `json:"id"`
	} `json:"account"`
}

// Parse decodes raw JSON into a Payload. This is the only step that can
// fail; everything after it is a pure decision.
func Parse(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Normalize resolves a payload to an InboundMessage or a skip/reject
// decision.
func Normalize(p *Payload) Decision {
	messageType := p.MessageType
	content := p.Content

	// Event-wrapped shape: only message_created carries a new message,
	// and the message fields move under "message".
	if p.Event != "" {
		if p.Event != eventMessageCreated {
			return Decision{Outcome: OutcomeSkipped, Reason: "event " + p.Event + " is not actionable"}
		}
		if p.Message != nil {
			messageType = p.Message.MessageType
			if p.Message.Content != "" {
				content = p.Message.Content
			}
		}
	}

	if !actionable(messageType) {
		return Decision{Outcome: OutcomeSkipped, Reason: "message type " + messageType + " is not actionable"}
	}

	msg := InboundMessage{
		Content:     strings.TrimSpace(content),
		MessageType: messageType,
	}
	if p.Conversation != nil {
		msg.ConversationID = p.Conversation.ID
	}
	if p.Account != nil {
		msg.AccountID = p.Account.ID
	}

	switch {
	case msg.ConversationID == 0:
		return Decision{Outcome: OutcomeRejected, Reason: "missing conversation id"}
	case msg.AccountID == 0:
		return Decision{Outcome: OutcomeRejected, Reason: "missing account id"}
	case msg.Content == "":
		return Decision{Outcome: OutcomeRejected, Reason: "missing message content"}
	}

	return Decision{Outcome: OutcomeOK, Message: &msg}
}

// actionable reports whether a message type names a user-authored
// message the bot should answer. "text" is a legacy variant of
// "incoming" seen from older senders.
func actionable(messageType string) bool {
	return messageType == "incoming" || messageType == "text"
}
