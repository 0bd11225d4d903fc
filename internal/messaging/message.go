// Package messaging carries the cross-context messages exchanged between page
// controllers, the critique gateway, and the settings surfaces.
package messaging

import "fmt"

// Action identifies a message kind.
type Action string

const (
	// ActionUpdateStats asks listeners to re-read usage statistics. No payload.
	ActionUpdateStats Action = "updateStats"
	// ActionGenerateCritique requests a critique from the gateway.
	ActionGenerateCritique Action = "generateCritique"
	// ActionToggleState switches detection on or off.
	ActionToggleState Action = "toggleState"
)

// Message is a single cross-context message. Only the fields relevant to
// Action are populated.
type Message struct {
	Action   Action `json:"action"`
	ID       string `json:"id,omitempty"`
	Enabled  bool   `json:"enabled,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

// Reply answers a request. Exactly one of Text or Error is set.
type Reply struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether the reply carries an error.
func (r Reply) Failed() bool { return r.Error != "" }

// ChannelError is a transport failure between contexts: no handler, a handler
// panic, or a request abandoned before its reply arrived.
type ChannelError struct {
	Action Action
	Reason string
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("message channel error (%s): %s", e.Action, e.Reason)
}

// ErrorReply converts err into a Reply.
func ErrorReply(err error) Reply {
	return Reply{Error: err.Error()}
}

// UpdateStats builds the stats broadcast.
func UpdateStats() Message { return Message{Action: ActionUpdateStats} }

// ToggleState builds the enable/disable broadcast.
func ToggleState(enabled bool) Message {
	return Message{Action: ActionToggleState, Enabled: enabled}
}
